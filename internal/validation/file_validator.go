package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "surveytracker/internal/errors"
)

// FileValidator checks the directories and files a report run touches
// before the run starts.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateInputDirectory checks that dir exists and returns how many survey
// exports it holds. An empty directory is not an error here; the engine
// reports it as NO_VALID_INPUT.
func (v *FileValidator) ValidateInputDirectory(dir string) (int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist", slog.String("directory", dir))
		return 0, apperrors.NewConfigError(fmt.Sprintf("input directory %s does not exist", dir), err)
	}
	if err != nil {
		return 0, apperrors.NewConfigError(fmt.Sprintf("failed to stat directory %s", dir), err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory", slog.String("path", dir))
		return 0, apperrors.NewConfigError(fmt.Sprintf("%s is not a directory", dir), nil)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, apperrors.NewConfigError(fmt.Sprintf("failed to read directory %s", dir), err)
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && IsSurveyExportName(e.Name()) {
			count++
		}
	}

	if count == 0 {
		v.logger.Warn("No survey exports found", slog.String("directory", dir))
	} else {
		v.logger.Info("Input directory validated",
			slog.String("directory", dir),
			slog.Int("files_found", count))
	}
	return count, nil
}

// ValidateOutputDirectory ensures the output directory exists and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewWriteError(dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewWriteError(dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return apperrors.NewNotFoundError(path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return apperrors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateTeacherFile checks an optional teacher configuration path. It
// reports false with no error when the file is absent.
func (v *FileValidator) ValidateTeacherFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	err := v.ValidateFile(path)
	if apperrors.IsType(err, apperrors.ErrTypeNotFound) {
		v.logger.Info("Teacher configuration not found", slog.String("file", path))
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewConfigError("invalid teacher configuration path", err).WithContext("path", path)
	}
	return true, nil
}

// ValidateSurveyExport checks that path is a readable survey export.
func (v *FileValidator) ValidateSurveyExport(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Skipping temporary Excel file", slog.String("file", path))
		return apperrors.NewAppValidationError(fmt.Sprintf("file %s is a temporary Excel file", base))
	}
	if !IsSurveyExportName(base) {
		return apperrors.NewAppValidationError(fmt.Sprintf("file %s is not a survey export (extension: %s)",
			base, filepath.Ext(base)))
	}
	return nil
}

// IsSurveyExportName reports whether name looks like a survey export the
// engine can read.
func IsSurveyExportName(name string) bool {
	if strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx", ".xlsm":
		return true
	}
	return false
}
