package http

import (
	"net/http"

	apierrors "surveytracker/internal/errors"
)

// MetricsHandler serves the Prometheus scrape endpoint
type MetricsHandler struct {
	exporter http.Handler
}

// NewMetricsHandler creates a metrics handler. A nil exporter means metrics
// are disabled and the endpoint answers 404.
func NewMetricsHandler(exporter http.Handler) *MetricsHandler {
	return &MetricsHandler{exporter: exporter}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		apierrors.WriteError(w, apierrors.NotFoundError("metrics exporter"))
		return
	}
	h.exporter.ServeHTTP(w, r)
}
