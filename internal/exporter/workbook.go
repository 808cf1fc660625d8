package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"surveytracker/internal/dataprocessing"
	apperrors "surveytracker/internal/errors"
)

// Sheet names and layout of the report workbook.
const (
	SurveySheet  = "Survey Report"
	SummarySheet = "Teacher Summary"

	surveyTitle  = "Survey Response Report"
	summaryTitle = "Teacher Summary Report"

	headerRow    = 4
	firstDataRow = 5
	maxColWidth  = 50
)

var surveyHeaders = []string{"Teacher ID", "Time", "Filename"}

var summaryHeaders = []string{
	"Teacher ID",
	"Pre Responses", "First Pre Date", "Last Pre Date",
	"Post Responses", "First Post Date", "Last Post Date",
}

// WorkbookOptions controls the banner rows of each sheet.
type WorkbookOptions struct {
	GeneratedAt time.Time
	Partial     bool
}

// sheetData is a rendered table; nil cells are left blank.
type sheetData struct {
	name    string
	title   string
	headers []string
	rows    [][]any
}

// SurveyTable renders the survey table: one row per (teacher, file) with a
// count column per response date, ascending.
func SurveyTable(state *dataprocessing.AggregateState, dir *dataprocessing.TeacherDirectory) ([]string, [][]any) {
	dates := state.Dates()

	headers := make([]string, 0, len(surveyHeaders)+len(dates))
	headers = append(headers, surveyHeaders...)
	for _, d := range dates {
		headers = append(headers, dataprocessing.FormatDate(d))
	}

	groups := state.Groups(dir)
	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		row := make([]any, len(headers))
		row[0] = g.Identity
		if label := g.DominantPeriod().Label(); label != "" {
			row[1] = label
		}
		row[2] = g.Filename
		for i, d := range dates {
			row[len(surveyHeaders)+i] = countCell(g.Counts[d])
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// SummaryTable renders the teacher summary: every configured teacher in
// directory order, then Other when it received data.
func SummaryTable(state *dataprocessing.AggregateState, dir *dataprocessing.TeacherDirectory) ([]string, [][]any) {
	summaries := state.SummaryRows(dir)
	rows := make([][]any, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []any{
			s.Identity,
			countCell(s.Pre.Responses), dateCell(s.Pre.First), dateCell(s.Pre.Last),
			countCell(s.Post.Responses), dateCell(s.Post.First), dateCell(s.Post.Last),
		})
	}
	return append([]string{}, summaryHeaders...), rows
}

// BuildWorkbook renders the aggregate state as the two-sheet report.
func BuildWorkbook(state *dataprocessing.AggregateState, dir *dataprocessing.TeacherDirectory, opts WorkbookOptions) (*excelize.File, error) {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	surveyHead, surveyRows := SurveyTable(state, dir)
	summaryHead, summaryRowsData := SummaryTable(state, dir)
	sheets := []sheetData{
		{name: SurveySheet, title: surveyTitle, headers: surveyHead, rows: surveyRows},
		{name: SummarySheet, title: summaryTitle, headers: summaryHead, rows: summaryRowsData},
	}

	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetName(f.GetSheetName(0), SurveySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	banner := "Generated on: " + opts.GeneratedAt.Format("2006-01-02 15:04:05")
	if opts.Partial {
		banner += " (Partial report: run cancelled before all files were processed)"
	}

	for _, sd := range sheets {
		if err := writeSheet(f, sd, banner, st); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write sheet %q: %w", sd.name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// WriteWorkbook builds the report and writes it to path through a temporary
// file, so a failed write never leaves a workbook at path.
func WriteWorkbook(path string, state *dataprocessing.AggregateState, dir *dataprocessing.TeacherDirectory, opts WorkbookOptions) error {
	f, err := BuildWorkbook(state, dir, opts)
	if err != nil {
		return apperrors.NewWriteError(path, err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return apperrors.NewWriteError(path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewWriteError(path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		os.Remove(tmp)
		return apperrors.NewWriteError(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.NewWriteError(path, err)
	}
	return nil
}

type styles struct {
	title  int
	banner int
	header int
}

func newStyles(f *excelize.File) (styles, error) {
	var (
		st  styles
		err error
	)
	center := &excelize.Alignment{Horizontal: "center"}

	if st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: center,
	}); err != nil {
		return st, fmt.Errorf("failed to create title style: %w", err)
	}
	if st.banner, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Italic: true},
		Alignment: center,
	}); err != nil {
		return st, fmt.Errorf("failed to create banner style: %w", err)
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"CCCCCC"}},
		Alignment: center,
	}); err != nil {
		return st, fmt.Errorf("failed to create header style: %w", err)
	}
	return st, nil
}

func writeSheet(f *excelize.File, sd sheetData, banner string, st styles) error {
	lastCol, err := excelize.ColumnNumberToName(len(sd.headers))
	if err != nil {
		return err
	}

	if err := f.SetCellStr(sd.name, "A1", sd.title); err != nil {
		return err
	}
	if err := f.SetCellStr(sd.name, "A2", banner); err != nil {
		return err
	}
	for row, style := range []int{st.title, st.banner} {
		right := fmt.Sprintf("%s%d", lastCol, row+1)
		left := fmt.Sprintf("A%d", row+1)
		if lastCol != "A" {
			if err := f.MergeCell(sd.name, left, right); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(sd.name, left, right, style); err != nil {
			return err
		}
	}

	headerCells := make([]any, len(sd.headers))
	for i, h := range sd.headers {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(sd.name, fmt.Sprintf("A%d", headerRow), &headerCells); err != nil {
		return err
	}
	if err := f.SetCellStyle(sd.name, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), st.header); err != nil {
		return err
	}

	for i, row := range sd.rows {
		for j, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, firstDataRow+i)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sd.name, cell, v); err != nil {
				return err
			}
		}
	}

	for col, width := range columnWidths(sd.headers, sd.rows) {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sd.name, name, name, width); err != nil {
			return err
		}
	}

	return f.SetPanes(sd.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: fmt.Sprintf("A%d", firstDataRow),
		ActivePane:  "bottomLeft",
	})
}

// columnWidths sizes each column to its longest header or value plus two,
// capped at maxColWidth.
func columnWidths(headers []string, rows [][]any) []float64 {
	widths := make([]float64, len(headers))
	for i, h := range headers {
		longest := utf8.RuneCountInString(h)
		for _, row := range rows {
			if i < len(row) {
				longest = max(longest, utf8.RuneCountInString(cellText(row[i])))
			}
		}
		widths[i] = float64(min(longest+2, maxColWidth))
	}
	return widths
}
