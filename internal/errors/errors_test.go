package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Render(t *testing.T) {
	tests := []struct {
		name       string
		apiError   *APIError
		wantStatus int
	}{
		{
			name:       "conflict",
			apiError:   ErrRunInProgress,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "not found",
			apiError:   ErrReportNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			require.NoError(t, render.Render(w, r, NewErrorResponse(tt.apiError)))
			assert.Equal(t, tt.wantStatus, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.apiError.ErrorCode, body.Error.ErrorCode)
		})
	}
}

func TestFromAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"config", NewConfigError("bad header", nil), http.StatusBadRequest, "CONFIG"},
		{"no valid input", NewNoValidInputError(2), http.StatusUnprocessableEntity, "NO_VALID_INPUT"},
		{"write", NewWriteError("x.xlsx", errors.New("locked")), http.StatusInternalServerError, "WRITE"},
		{"wrapped", fmt.Errorf("run: %w", NewConfigError("bad", nil)), http.StatusBadRequest, "CONFIG"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{"api passthrough", ErrRunInProgress, http.StatusConflict, "RUN_IN_PROGRESS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromAppError(tt.err)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrValidation("date_field", "must be one of EndTime StartTime"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "date_field")
}
