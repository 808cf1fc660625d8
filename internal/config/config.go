package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix for every environment variable read by Load.
const EnvPrefix = "SURVEY"

// Date fields a report run can take its response date from.
const (
	DateFieldEndTime   = "EndTime"
	DateFieldStartTime = "StartTime"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Scraper   ScraperConfig   `yaml:"scraper" envconfig:"SCRAPER"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/surveytracker.log"`
}

// ReportConfig controls how survey exports are aggregated and where the workbook goes
type ReportConfig struct {
	DateField    string `yaml:"date_field" envconfig:"DATE_FIELD" default:"EndTime"`
	TeachersFile string `yaml:"teachers_file" envconfig:"TEACHERS_FILE" default:"teachers.csv"`
	InputDir     string `yaml:"input_dir" envconfig:"INPUT_DIR" default:"data/downloads"`
	OutputDir    string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"data/reports"`
	FilePrefix   string `yaml:"file_prefix" envconfig:"FILE_PREFIX" default:"survey_report"`
}

// ScraperConfig contains browser automation settings for retrieving exports
type ScraperConfig struct {
	Headless     bool          `yaml:"headless" envconfig:"HEADLESS" default:"true"`
	LoginURL     string        `yaml:"login_url" envconfig:"LOGIN_URL"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"10s"`
	DownloadWait time.Duration `yaml:"download_wait" envconfig:"DOWNLOAD_WAIT" default:"60s"`
	DownloadDir  string        `yaml:"download_dir" envconfig:"DOWNLOAD_DIR" default:"data/downloads"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"5m"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	MaxUploadBytes  int64           `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"67108864"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"5"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"10"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config. A value explicitly set in the
// environment wins; otherwise a value present in the file replaces the default.
func mergeConfigs(fileConfig, envConfig Config) Config {
	pick := func(envKey string, envVal, fileVal string) string {
		if _, ok := os.LookupEnv(envKey); ok || fileVal == "" {
			return envVal
		}
		return fileVal
	}
	pickDur := func(envKey string, envVal, fileVal time.Duration) time.Duration {
		if _, ok := os.LookupEnv(envKey); ok || fileVal == 0 {
			return envVal
		}
		return fileVal
	}

	envConfig.Logging.Level = pick("SURVEY_LOGGING_LEVEL", envConfig.Logging.Level, fileConfig.Logging.Level)
	envConfig.Logging.Output = pick("SURVEY_LOGGING_OUTPUT", envConfig.Logging.Output, fileConfig.Logging.Output)
	envConfig.Logging.FilePath = pick("SURVEY_LOGGING_FILE_PATH", envConfig.Logging.FilePath, fileConfig.Logging.FilePath)

	envConfig.Report.DateField = pick("SURVEY_REPORT_DATE_FIELD", envConfig.Report.DateField, fileConfig.Report.DateField)
	envConfig.Report.TeachersFile = pick("SURVEY_REPORT_TEACHERS_FILE", envConfig.Report.TeachersFile, fileConfig.Report.TeachersFile)
	envConfig.Report.InputDir = pick("SURVEY_REPORT_INPUT_DIR", envConfig.Report.InputDir, fileConfig.Report.InputDir)
	envConfig.Report.OutputDir = pick("SURVEY_REPORT_OUTPUT_DIR", envConfig.Report.OutputDir, fileConfig.Report.OutputDir)
	envConfig.Report.FilePrefix = pick("SURVEY_REPORT_FILE_PREFIX", envConfig.Report.FilePrefix, fileConfig.Report.FilePrefix)

	envConfig.Scraper.LoginURL = pick("SURVEY_SCRAPER_LOGIN_URL", envConfig.Scraper.LoginURL, fileConfig.Scraper.LoginURL)
	envConfig.Scraper.DownloadDir = pick("SURVEY_SCRAPER_DOWNLOAD_DIR", envConfig.Scraper.DownloadDir, fileConfig.Scraper.DownloadDir)
	envConfig.Scraper.Timeout = pickDur("SURVEY_SCRAPER_TIMEOUT", envConfig.Scraper.Timeout, fileConfig.Scraper.Timeout)
	envConfig.Scraper.DownloadWait = pickDur("SURVEY_SCRAPER_DOWNLOAD_WAIT", envConfig.Scraper.DownloadWait, fileConfig.Scraper.DownloadWait)

	if _, ok := os.LookupEnv("SURVEY_SERVER_PORT"); !ok && fileConfig.Server.Port != 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	envConfig.Server.ReadTimeout = pickDur("SURVEY_SERVER_READ_TIMEOUT", envConfig.Server.ReadTimeout, fileConfig.Server.ReadTimeout)
	envConfig.Server.WriteTimeout = pickDur("SURVEY_SERVER_WRITE_TIMEOUT", envConfig.Server.WriteTimeout, fileConfig.Server.WriteTimeout)

	envConfig.Telemetry.TraceExporter = pick("SURVEY_TELEMETRY_TRACE_EXPORTER", envConfig.Telemetry.TraceExporter, fileConfig.Telemetry.TraceExporter)
	envConfig.Telemetry.MetricExporter = pick("SURVEY_TELEMETRY_METRIC_EXPORTER", envConfig.Telemetry.MetricExporter, fileConfig.Telemetry.MetricExporter)

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	switch c.Report.DateField {
	case DateFieldEndTime, DateFieldStartTime:
	default:
		return fmt.Errorf("invalid report date field %q: must be %s or %s",
			c.Report.DateField, DateFieldEndTime, DateFieldStartTime)
	}

	if c.Report.FilePrefix == "" {
		return fmt.Errorf("report file prefix must not be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RPS <= 0 || c.Server.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive when enabled")
	}

	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper timeout must be positive")
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}
	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", c.Telemetry.MetricExporter)
	}

	if c.Logging.Output != "console" && c.Logging.Output != "file" && c.Logging.Output != "both" {
		c.Logging.Output = "console"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv("SURVEY_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"surveytracker.yaml",
		"configs/surveytracker.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/surveytracker.log",
		},
		Report: ReportConfig{
			DateField:    DateFieldEndTime,
			TeachersFile: "teachers.csv",
			InputDir:     "data/downloads",
			OutputDir:    "data/reports",
			FilePrefix:   "survey_report",
		},
		Scraper: ScraperConfig{
			Headless:     true,
			Timeout:      10 * time.Second,
			DownloadWait: 60 * time.Second,
			DownloadDir:  "data/downloads",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  64 << 20,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     5,
				Burst:   10,
			},
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
		},
	}
}
