package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	apperrors "surveytracker/internal/errors"
)

// OtherTeacherID is the bucket for teacher ids missing from the directory.
const OtherTeacherID = "Other"

// Teacher configuration header columns.
const (
	teacherIDColumn   = "teacher_id"
	teacherNameColumn = "teacher_name"
)

// TeacherEntry is one configured teacher.
type TeacherEntry struct {
	ID   string `json:"teacher_id"`
	Name string `json:"teacher_name"`
}

// TeacherDirectory is the read-only set of configured teachers, in
// configuration order.
type TeacherDirectory struct {
	entries []TeacherEntry
	index   map[string]int
}

// NewTeacherDirectory builds a directory from entries. Blank and reserved ids
// are skipped and duplicate ids keep the first entry.
func NewTeacherDirectory(entries ...TeacherEntry) *TeacherDirectory {
	d := &TeacherDirectory{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		d.add(e)
	}
	return d
}

func (d *TeacherDirectory) add(e TeacherEntry) bool {
	if e.ID == "" || e.ID == OtherTeacherID {
		return false
	}
	if _, dup := d.index[e.ID]; dup {
		return false
	}
	d.index[e.ID] = len(d.entries)
	d.entries = append(d.entries, e)
	return true
}

// LoadDirectory reads a teacher_id,teacher_name CSV. Absent or empty content
// yields an empty directory; a header without both columns, or content that
// cannot be parsed, is a CONFIG error.
func LoadDirectory(r io.Reader, logger *slog.Logger) (*TeacherDirectory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := NewTeacherDirectory()
	if r == nil {
		return dir, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to read teacher configuration", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return dir, nil
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, apperrors.NewConfigError("malformed teacher configuration header", err)
	}

	idCol, nameCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(normalizeCell(h)) {
		case teacherIDColumn:
			if idCol < 0 {
				idCol = i
			}
		case teacherNameColumn:
			if nameCol < 0 {
				nameCol = i
			}
		}
	}
	if idCol < 0 || nameCol < 0 {
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("teacher configuration must have %s and %s columns", teacherIDColumn, teacherNameColumn), nil)
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewConfigError("malformed teacher configuration", err).WithContext("line", line)
		}

		entry := TeacherEntry{
			ID:   strings.TrimSpace(cell(rec, idCol)),
			Name: strings.TrimSpace(cell(rec, nameCol)),
		}
		switch {
		case entry.ID == "":
			continue
		case entry.ID == OtherTeacherID:
			logger.Warn("Skipping teacher entry using reserved id",
				slog.String("teacher_id", entry.ID),
				slog.Int("line", line))
		case !dir.add(entry):
			logger.Warn("Duplicate teacher id, keeping first entry",
				slog.String("teacher_id", entry.ID),
				slog.Int("line", line))
		}
	}

	logger.Debug("Teacher directory loaded", slog.Int("teachers", dir.Len()))
	return dir, nil
}

// LoadDirectoryFile loads the directory from path. A missing file yields an
// empty directory.
func LoadDirectoryFile(path string, logger *slog.Logger) (*TeacherDirectory, error) {
	if path == "" {
		return NewTeacherDirectory(), nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTeacherDirectory(), nil
	}
	if err != nil {
		return nil, apperrors.NewConfigError("failed to open teacher configuration", err).WithContext("path", path)
	}
	defer f.Close()

	return LoadDirectory(f, logger)
}

// Classify returns id when it is configured, otherwise OtherTeacherID.
func (d *TeacherDirectory) Classify(id string) string {
	if d != nil {
		if _, ok := d.index[id]; ok {
			return id
		}
	}
	return OtherTeacherID
}

// Contains reports whether id is configured.
func (d *TeacherDirectory) Contains(id string) bool {
	if d == nil {
		return false
	}
	_, ok := d.index[id]
	return ok
}

// Name returns the configured name for id, or "".
func (d *TeacherDirectory) Name(id string) string {
	if d == nil {
		return ""
	}
	if i, ok := d.index[id]; ok {
		return d.entries[i].Name
	}
	return ""
}

// Entries returns a copy of the configured teachers in order.
func (d *TeacherDirectory) Entries() []TeacherEntry {
	if d == nil {
		return nil
	}
	out := make([]TeacherEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Len returns the number of configured teachers.
func (d *TeacherDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// rank orders identities for display: configured teachers first, then Other.
func (d *TeacherDirectory) rank(identity string) int {
	if d != nil {
		if i, ok := d.index[identity]; ok {
			return i
		}
	}
	return d.Len()
}
