package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"surveytracker/internal/config"
	"surveytracker/internal/files"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	paths     *config.Paths
	runs      RunTracker
	startTime time.Time
	logger    *slog.Logger
}

// RunTracker reports whether a report run is in flight.
type RunTracker interface {
	Running() bool
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. runs may be nil.
func NewHealthService(version, buildTime string, paths *config.Paths, runs RunTracker, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		paths:     paths,
		runs:      runs,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}

	hs.logger.DebugContext(ctx, "HealthCheck: completed",
		slog.String("status", status.Status),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return status
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"reports":  hs.checkReportsHealth(),
			"teachers": hs.checkTeachersHealth(),
			"engine":   hs.checkEngineHealth(),
		},
	}

	for _, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

// checkReportsHealth verifies the reports directory is writable.
func (hs *HealthService) checkReportsHealth() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "not_ready", Message: "paths not configured"}
	}

	if err := os.MkdirAll(hs.paths.ReportsDir, 0755); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot create reports directory: %v", err),
		}
	}
	probe, err := os.CreateTemp(hs.paths.ReportsDir, ".health-*")
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot write to reports directory: %v", err),
		}
	}
	probe.Close()
	os.Remove(probe.Name())

	msg := "Reports directory is writable"
	if reports, err := files.NewDiscovery("").FindReports(hs.paths.ReportsDir); err == nil {
		if latest, ok := files.GetLatestFile(reports); ok {
			msg = fmt.Sprintf("%s; latest report %s", msg, latest.Name)
		}
	}
	return ServiceHealth{Status: "ready", Message: msg}
}

// checkTeachersHealth reports whether a teacher configuration is present.
// A missing file is not an error.
func (hs *HealthService) checkTeachersHealth() ServiceHealth {
	if hs.paths == nil || !config.FileExists(hs.paths.TeachersFile) {
		return ServiceHealth{Status: "ready", Message: "No teacher configuration; all identities map to Other"}
	}
	return ServiceHealth{Status: "ready", Message: "Teacher configuration present"}
}

func (hs *HealthService) checkEngineHealth() ServiceHealth {
	msg := "idle"
	if hs.runs != nil && hs.runs.Running() {
		msg = "report run in progress"
	}
	return ServiceHealth{
		Status:  "ready",
		Message: msg,
		Uptime:  time.Since(hs.startTime).String(),
	}
}
