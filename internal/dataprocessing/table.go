package dataprocessing

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "surveytracker/internal/errors"
)

// SourceFile is one input export as handed to the engine.
type SourceFile struct {
	Name    string
	Content []byte
}

// BaseName strips any directory and the extension from a filename.
func BaseName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsWorkbook reports whether name carries a spreadsheet extension.
func IsWorkbook(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// rowSource yields data rows until io.EOF.
type rowSource interface {
	Next() ([]string, error)
	Close() error
}

// Table is an opened export: its header plus a single-pass row stream.
type Table struct {
	Name     string
	Header   []string
	Workbook bool

	rows rowSource
}

// Next returns the next non-blank data row, or io.EOF.
func (t *Table) Next() ([]string, error) {
	for {
		row, err := t.rows.Next()
		if err != nil {
			return nil, err
		}
		if !blankRow(row) {
			return row, nil
		}
	}
}

// Close releases the underlying reader. It is safe to call more than once.
func (t *Table) Close() error {
	if t.rows == nil {
		return nil
	}
	err := t.rows.Close()
	t.rows = nil
	return err
}

// ReadTable opens src as a workbook (first sheet) or CSV and reads its header.
func ReadTable(src SourceFile) (*Table, error) {
	if len(bytes.TrimSpace(src.Content)) == 0 {
		return nil, apperrors.NewParsingError("empty file", nil).WithContext("file", src.Name)
	}

	var (
		rows rowSource
		err  error
	)
	workbook := IsWorkbook(src.Name)
	if workbook {
		rows, err = openWorkbookRows(src.Content)
	} else {
		rows = newCSVRows(src.Content)
	}
	if err != nil {
		return nil, apperrors.NewParsingError("unreadable workbook", err).WithContext("file", src.Name)
	}

	t := &Table{Name: src.Name, Workbook: workbook, rows: rows}
	header, err := t.Next()
	if err != nil {
		t.Close()
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewParsingError("no header row", nil).WithContext("file", src.Name)
		}
		return nil, apperrors.NewParsingError("failed to read header", err).WithContext("file", src.Name)
	}
	t.Header = header
	return t, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

type csvRows struct {
	r *csv.Reader
}

func newCSVRows(content []byte) *csvRows {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return &csvRows{r: r}
}

func (c *csvRows) Next() ([]string, error) {
	return c.r.Read()
}

func (c *csvRows) Close() error { return nil }

type workbookRows struct {
	f    *excelize.File
	rows *excelize.Rows
}

func openWorkbookRows(content []byte) (*workbookRows, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return &workbookRows{f: f, rows: rows}, nil
}

func (w *workbookRows) Next() ([]string, error) {
	if !w.rows.Next() {
		if err := w.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return w.rows.Columns()
}

func (w *workbookRows) Close() error {
	rowsErr := w.rows.Close()
	fileErr := w.f.Close()
	return errors.Join(rowsErr, fileErr)
}
