package dataprocessing

import (
	"fmt"
	"slices"
	"strings"

	apperrors "surveytracker/internal/errors"
)

// Standard column names referenced directly by the extractor.
const (
	ColumnStudentID = "Student ID"
	ColumnStartTime = "Start Time"
	ColumnEndTime   = "End Time"
)

// standardColumns is the fixed prefix every export header must carry.
var standardColumns = [...]string{
	"Test ID",
	"Test Label",
	"Unique ID",
	ColumnStudentID,
	"Status",
	"Progress",
	ColumnStartTime,
	ColumnEndTime,
	"Overall Score",
	"Attempted Score",
	"Age",
	"Gender",
	"Grade",
	"Language",
	"Ethnicity",
	"State",
}

// StandardColumns returns a copy of the standard column schema in order.
func StandardColumns() []string {
	return slices.Clone(standardColumns[:])
}

// Layout describes a validated header. Variables are the file-local unique
// test variables, i.e. Header[CutIndex:].
type Layout struct {
	Header    []string
	CutIndex  int
	Variables []string
}

// Index returns the position of a standard column, or -1.
func (l Layout) Index(column string) int {
	return slices.Index(l.Header[:l.CutIndex], column)
}

// ValidateHeader confirms the standard columns form the prefix of header and
// returns the resulting layout. Cells are trimmed and a leading byte order
// mark is ignored.
func ValidateHeader(filename string, header []string) (Layout, error) {
	normalized := make([]string, len(header))
	for i, cell := range header {
		normalized[i] = normalizeCell(cell)
	}

	for i, want := range standardColumns {
		if i >= len(normalized) {
			return Layout{}, apperrors.NewSchemaError(filename,
				fmt.Sprintf("missing standard column %q at position %d", want, i+1))
		}
		if normalized[i] != want {
			msg := fmt.Sprintf("expected standard column %q at position %d, found %q", want, i+1, normalized[i])
			if !slices.Contains(normalized, want) {
				msg = fmt.Sprintf("missing standard column %q", want)
			}
			return Layout{}, apperrors.NewSchemaError(filename, msg)
		}
	}

	cut := len(standardColumns)
	return Layout{
		Header:    normalized,
		CutIndex:  cut,
		Variables: normalized[cut:],
	}, nil
}

func normalizeCell(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
}
