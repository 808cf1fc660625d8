package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeSchema         ErrorType = "SCHEMA"
	ErrTypeDateParse      ErrorType = "DATE_PARSE"
	ErrTypeClassification ErrorType = "CLASSIFICATION"
	ErrTypeConfig         ErrorType = "CONFIG"
	ErrTypeWrite          ErrorType = "WRITE"
	ErrTypeNoValidInput   ErrorType = "NO_VALID_INPUT"
	ErrTypeParsing        ErrorType = "PARSING"
	ErrTypeCancelled      ErrorType = "CANCELLED"
	ErrTypeNetwork        ErrorType = "NETWORK"
	ErrTypeStorage        ErrorType = "STORAGE"
	ErrTypeValidation     ErrorType = "VALIDATION"
	ErrTypeNotFound       ErrorType = "NOT_FOUND"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Fatal reports whether an error of this type aborts a report run.
func (e *AppError) Fatal() bool {
	switch e.Type {
	case ErrTypeConfig, ErrTypeWrite, ErrTypeNoValidInput, ErrTypeCancelled:
		return true
	}
	return false
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether err, or anything it wraps, is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// TypeOf returns the AppError type found in err's chain, or "" when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// Helper functions for common error types

// NewSchemaError creates an error for a file whose header lacks the standard columns
func NewSchemaError(filename, message string) *AppError {
	return NewAppError(ErrTypeSchema, message, nil).WithContext("file", filename)
}

// NewDateParseError creates an error for a row whose date cell cannot be parsed
func NewDateParseError(filename string, row int, value string, cause error) *AppError {
	return NewAppError(ErrTypeDateParse, fmt.Sprintf("unparsable date %q", value), cause).
		WithContext("file", filename).
		WithContext("row", row)
}

// NewClassificationAmbiguity creates a warning-level error for a filename carrying both period markers
func NewClassificationAmbiguity(filename, chosen string) *AppError {
	return NewAppError(ErrTypeClassification,
		fmt.Sprintf("filename matches both pre and post markers, resolved as %s", chosen), nil).
		WithContext("file", filename)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewWriteError creates an error for a workbook that could not be written
func NewWriteError(path string, cause error) *AppError {
	return NewAppError(ErrTypeWrite, "failed to write workbook", cause).WithContext("path", path)
}

// NewNoValidInputError creates the error returned when no file survived validation
func NewNoValidInputError(rejected int) *AppError {
	return NewAppError(ErrTypeNoValidInput,
		fmt.Sprintf("no valid input files (%d rejected)", rejected), nil).
		WithContext("rejected", rejected)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewCancelledError creates the error returned when a run is cancelled before producing output
func NewCancelledError(cause error) *AppError {
	return NewAppError(ErrTypeCancelled, "run cancelled", cause)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}
