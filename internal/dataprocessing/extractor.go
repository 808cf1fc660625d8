package dataprocessing

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "surveytracker/internal/errors"
)

// Date fields selectable for a run.
const (
	DateFieldEndTime   = "EndTime"
	DateFieldStartTime = "StartTime"
)

// teacherIDLength is the number of leading Student ID characters naming the teacher.
const teacherIDLength = 3

// ResponseRecord is one extracted data row.
type ResponseRecord struct {
	TeacherID      string
	ResponseDate   time.Time
	HasDate        bool
	IsValid        bool
	Period         Period
	SourceFilename string
	Row            int
}

// DateColumn maps a date field option to its standard column.
func DateColumn(dateField string) (string, error) {
	switch dateField {
	case DateFieldEndTime, "":
		return ColumnEndTime, nil
	case DateFieldStartTime:
		return ColumnStartTime, nil
	}
	return "", apperrors.NewConfigError(fmt.Sprintf("unknown date field %q", dateField), nil)
}

// DeriveTeacherID returns the first three characters of a Student ID, or the
// whole value when it is shorter. No trimming or padding is applied.
func DeriveTeacherID(studentID string) string {
	runes := []rune(studentID)
	if len(runes) <= teacherIDLength {
		return studentID
	}
	return string(runes[:teacherIDLength])
}

// Extractor turns the rows of one validated table into ResponseRecords.
type Extractor struct {
	table      *Table
	layout     Layout
	period     Period
	source     string
	studentIdx int
	dateIdx    int
	used       bool
}

// NewExtractor prepares extraction for a table whose header produced layout.
func NewExtractor(table *Table, layout Layout, period Period, dateField string) (*Extractor, error) {
	column, err := DateColumn(dateField)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		table:      table,
		layout:     layout,
		period:     period,
		source:     BaseName(table.Name),
		studentIdx: layout.Index(ColumnStudentID),
		dateIdx:    layout.Index(column),
	}, nil
}

// Records returns the lazy record sequence. It is single-pass: the table is
// closed when iteration stops and later calls yield nothing. A DATE_PARSE
// error is yielded for a valid row with an unparsable date; any other error
// ends the sequence.
func (e *Extractor) Records() iter.Seq2[ResponseRecord, error] {
	return func(yield func(ResponseRecord, error) bool) {
		if e.used {
			return
		}
		e.used = true
		defer e.table.Close()

		for n := 1; ; n++ {
			row, err := e.table.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(ResponseRecord{}, apperrors.NewParsingError("failed to read row", err).
					WithContext("file", e.source).
					WithContext("row", n))
				return
			}

			rec, err := e.extract(row, n)
			if !yield(rec, err) {
				return
			}
		}
	}
}

func (e *Extractor) extract(row []string, n int) (ResponseRecord, error) {
	rec := ResponseRecord{
		TeacherID:      DeriveTeacherID(cell(row, e.studentIdx)),
		IsValid:        e.hasResponse(row),
		Period:         e.period,
		SourceFilename: e.source,
		Row:            n,
	}

	raw := cell(row, e.dateIdx)
	date, err := parseCellDate(raw, e.table.Workbook)
	if err != nil {
		if !rec.IsValid {
			return rec, nil
		}
		return rec, apperrors.NewDateParseError(e.source, n, raw, err)
	}
	rec.ResponseDate = date
	rec.HasDate = true
	return rec, nil
}

// hasResponse reports whether any unique test variable cell is non-blank.
func (e *Extractor) hasResponse(row []string) bool {
	for i := e.layout.CutIndex; i < len(row) && i < len(e.layout.Header); i++ {
		if strings.TrimSpace(row[i]) != "" {
			return true
		}
	}
	return false
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// dateLayouts are tried in order. Fractional seconds are accepted after any
// seconds field.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -0700 MST",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04:05 PM",
	"1/2/06",
	"1/2/06 15:04",
	"2006/1/2",
	"2006/1/2 15:04",
	"2006/1/2 15:04:05",
}

// ParseDate parses a date or timestamp and returns its calendar date as
// written, at midnight UTC. Zone offsets are not applied.
func ParseDate(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return calendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", v)
}

// parseCellDate also accepts Excel serial numbers for workbook cells that
// carry no date format.
func parseCellDate(value string, workbook bool) (time.Time, error) {
	t, err := ParseDate(value)
	if err == nil || !workbook {
		return t, err
	}

	serial, convErr := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if convErr != nil || serial <= 0 {
		return time.Time{}, err
	}
	st, serialErr := excelize.ExcelDateToTime(serial, false)
	if serialErr != nil {
		return time.Time{}, err
	}
	return calendarDate(st), nil
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the display form of response dates.
const DateLayout = "2006-01-02"

// FormatDate renders a response date for reports.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
