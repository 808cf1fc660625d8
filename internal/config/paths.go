package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains the resolved directories a run reads from and writes to.
type Paths struct {
	BaseDir      string
	DataDir      string
	DownloadsDir string
	ReportsDir   string
	LogsDir      string
	TeachersFile string
}

// GetPaths resolves paths relative to the executable location.
func GetPaths(cfg *Config) (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return NewPaths(filepath.Dir(exe), cfg), nil
}

// NewPaths resolves the configured directories against baseDir. Absolute
// configured paths are used unchanged.
//
// Layout with the default configuration:
//
//	<base>/
//	  ├── teachers.csv
//	  ├── data/
//	  │   ├── downloads/   (exports fetched from the assessment platform)
//	  │   └── reports/     (generated workbooks)
//	  └── logs/
func NewPaths(baseDir string, cfg *Config) *Paths {
	if cfg == nil {
		cfg = Default()
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	logsDir := filepath.Join(baseDir, DefaultLogsDir)
	if cfg.Logging.FilePath != "" {
		logsDir = filepath.Dir(resolve(cfg.Logging.FilePath))
	}

	return &Paths{
		BaseDir:      baseDir,
		DataDir:      filepath.Join(baseDir, DefaultDataDir),
		DownloadsDir: resolve(cfg.Report.InputDir),
		ReportsDir:   resolve(cfg.Report.OutputDir),
		LogsDir:      logsDir,
		TeachersFile: resolve(cfg.Report.TeachersFile),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.DownloadsDir,
		p.ReportsDir,
		p.LogsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// ReportPath returns the path for a report file. Names carrying a directory
// component are rejected so callers cannot escape the reports directory.
func (p *Paths) ReportPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid report name %q", name)
	}
	return filepath.Join(p.ReportsDir, name), nil
}

// DownloadPath returns the path for a downloaded export
func (p *Paths) DownloadPath(filename string) string {
	return filepath.Join(p.DownloadsDir, filepath.Base(filename))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("downloads", p.DownloadsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("config_files",
			slog.String("teachers", p.TeachersFile),
			slog.Bool("teachers_exists", FileExists(p.TeachersFile)),
		))
}
