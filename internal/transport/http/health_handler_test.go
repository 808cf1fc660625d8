package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"surveytracker/internal/services"
)

type mockHealth struct {
	mock.Mock
}

func (m *mockHealth) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *mockHealth) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *mockHealth) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *mockHealth) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		method     string
		status     services.HealthStatus
		wantStatus int
	}{
		{"health", "/", "HealthCheck", services.HealthStatus{Status: "ok"}, http.StatusOK},
		{"ready", "/ready", "ReadinessCheck", services.HealthStatus{Status: "ready"}, http.StatusOK},
		{"not ready", "/ready", "ReadinessCheck", services.HealthStatus{
			Status:   "not_ready",
			Services: map[string]services.ServiceHealth{"reports": {Status: "not_ready"}},
		}, http.StatusServiceUnavailable},
		{"live", "/live", "LivenessCheck", services.HealthStatus{Status: "alive"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockHealth{}
			svc.On(tt.method).Return(tt.status)
			h := NewHealthHandler(svc, nil)

			w := httptest.NewRecorder()
			h.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var got services.HealthStatus
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.status.Status, got.Status)
			svc.AssertExpectations(t)
		})
	}
}

func TestHealthHandler_Version(t *testing.T) {
	svc := &mockHealth{}
	svc.On("Version").Return(map[string]interface{}{"version": "1.2.3"})
	h := NewHealthHandler(svc, nil)

	w := httptest.NewRecorder()
	h.Version(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"version":"1.2.3"}`, w.Body.String())
}

func TestMetricsHandler(t *testing.T) {
	exporter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("report_runs_total 3\n"))
	})

	w := httptest.NewRecorder()
	NewMetricsHandler(exporter).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "report_runs_total")

	w = httptest.NewRecorder()
	NewMetricsHandler(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
