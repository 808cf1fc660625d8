package files

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"surveytracker/internal/config"
	"surveytracker/internal/dataprocessing"
)

// Manager provides file management operations
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{paths: paths, logger: logger.With(slog.String("component", "file_manager"))}
}

// LoadSourceFiles reads each discovered file into memory for a report run.
func (m *Manager) LoadSourceFiles(infos []FileInfo) ([]dataprocessing.SourceFile, error) {
	out := make([]dataprocessing.SourceFile, 0, len(infos))
	for _, info := range infos {
		content, err := os.ReadFile(info.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", info.Path, err)
		}
		out = append(out, dataprocessing.SourceFile{Name: info.Name, Content: content})
	}

	m.logger.Debug("Loaded source files", slog.Int("count", len(out)))
	return out, nil
}

// ReadTeacherConfig returns the teacher configuration content, or nil when
// the file does not exist.
func (m *Manager) ReadTeacherConfig(path string) ([]byte, error) {
	if path == "" {
		path = m.paths.TeachersFile
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		m.logger.Info("Teacher configuration not found, every teacher maps to Other",
			slog.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read teacher configuration: %w", err)
	}
	return data, nil
}

// SaveDownload stores a retrieved export in the downloads directory and
// returns its path.
func (m *Manager) SaveDownload(name string, content []byte) (string, error) {
	path := m.paths.DownloadPath(name)

	m.logger.Info("Saving download",
		slog.String("name", name),
		slog.String("path", path),
		slog.Int("size_bytes", len(content)))

	if err := m.WriteFile(path, content); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFile writes data to a file, creating parent directories.
func (m *Manager) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDirectory creates a directory if it doesn't exist
func (m *Manager) EnsureDirectory(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	return nil
}

// ReportFileName names a workbook <prefix>_<YYYYMMDD_HHMMSS>.xlsx, with a
// _partial suffix for cancelled runs.
func ReportFileName(prefix string, at time.Time, partial bool) string {
	if prefix == "" {
		prefix = "survey_report"
	}
	name := prefix + "_" + at.Format(config.ReportTimestampLayout)
	if partial {
		name += config.PartialReportSuffix
	}
	return name + config.ReportExtension
}

// maxReportCopies bounds the _N counter tried by ReserveReportPath.
const maxReportCopies = 1000

// ReserveReportPath claims a workbook path in dir that no earlier run owns.
// The first candidate is ReportFileName; when it is taken a _2, _3, ...
// counter is placed before the extension. The claim is an empty file created
// exclusively, which the workbook writer later renames over.
func ReserveReportPath(dir, prefix string, at time.Time, partial bool) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	name := ReportFileName(prefix, at, partial)
	stem := strings.TrimSuffix(name, config.ReportExtension)
	for n := 1; n <= maxReportCopies; n++ {
		candidate := name
		if n > 1 {
			candidate = fmt.Sprintf("%s_%d%s", stem, n, config.ReportExtension)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return path, f.Close()
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("no free report name for %s after %d attempts", name, maxReportCopies)
}

// IsReportName reports whether name is a plain workbook base name.
func IsReportName(name string) bool {
	return name != "" &&
		name == filepath.Base(name) &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`) &&
		strings.EqualFold(filepath.Ext(name), config.ReportExtension)
}
