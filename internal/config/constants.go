package config

// Application constants
const (
	AppName    = "Survey Tracker"
	AppVersion = "1.0.0"

	// File paths (relative to the base directory)
	DefaultDataDir      = "data"
	DefaultLogsDir      = "logs"
	DefaultDownloadsDir = "data/downloads"
	DefaultReportsDir   = "data/reports"

	// Report naming
	ReportTimestampLayout = "20060102_150405"
	PartialReportSuffix   = "_partial"
	ReportExtension       = ".xlsx"

	// Log settings
	DefaultLogLevel = "info"
)
