package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"surveytracker/internal/dataprocessing"
	apperrors "surveytracker/internal/errors"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func record(teacher, date string, period dataprocessing.Period, file string) dataprocessing.ResponseRecord {
	return dataprocessing.ResponseRecord{
		TeacherID:      teacher,
		ResponseDate:   day(date),
		HasDate:        true,
		IsValid:        true,
		Period:         period,
		SourceFilename: file,
	}
}

func sampleState() (*dataprocessing.AggregateState, *dataprocessing.TeacherDirectory) {
	dir := dataprocessing.NewTeacherDirectory(
		dataprocessing.TeacherEntry{ID: "100", Name: "Ada"},
		dataprocessing.TeacherEntry{ID: "101", Name: "Grace"},
	)
	agg := dataprocessing.NewAggregator(dir)
	for _, r := range []dataprocessing.ResponseRecord{
		record("100", "2024-01-01", dataprocessing.PeriodPre, "pre_a"),
		record("100", "2024-01-01", dataprocessing.PeriodPre, "pre_a"),
		record("100", "2024-01-03", dataprocessing.PeriodPre, "pre_a"),
		record("999", "2024-01-02", dataprocessing.PeriodPost, "post_b"),
		{TeacherID: "100", IsValid: false, SourceFilename: "pre_a"},
	} {
		agg.Add(r)
	}
	return agg.State(), dir
}

func reopen(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	out, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { out.Close() })
	return out
}

func cells(t *testing.T, f *excelize.File, sheet string, refs ...string) []string {
	t.Helper()
	out := make([]string, len(refs))
	for i, ref := range refs {
		v, err := f.GetCellValue(sheet, ref)
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func TestBuildWorkbook_Sheets(t *testing.T) {
	state, dir := sampleState()
	built, err := BuildWorkbook(state, dir, WorkbookOptions{GeneratedAt: time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC)})
	require.NoError(t, err)
	defer built.Close()

	f := reopen(t, built)
	assert.Equal(t, []string{SurveySheet, SummarySheet}, f.GetSheetList())

	assert.Equal(t, []string{"Survey Response Report", "Generated on: 2024-02-01 10:30:00"},
		cells(t, f, SurveySheet, "A1", "A2"))
	assert.Equal(t, []string{"Teacher Summary Report", "Generated on: 2024-02-01 10:30:00"},
		cells(t, f, SummarySheet, "A1", "A2"))
}

func TestBuildWorkbook_SurveyReport(t *testing.T) {
	state, dir := sampleState()
	built, err := BuildWorkbook(state, dir, WorkbookOptions{})
	require.NoError(t, err)
	defer built.Close()
	f := reopen(t, built)

	tests := []struct {
		name string
		refs []string
		want []string
	}{
		{"header", []string{"A4", "B4", "C4", "D4", "E4", "F4", "G4"},
			[]string{"Teacher ID", "Time", "Filename", "2024-01-01", "2024-01-02", "2024-01-03", ""}},
		{"configured teacher first", []string{"A5", "B5", "C5", "D5", "E5", "F5"},
			[]string{"100", "Pre", "pre_a", "2", "", "1"}},
		{"other last", []string{"A6", "B6", "C6", "D6", "E6", "F6"},
			[]string{"Other", "Post", "post_b", "", "1", ""}},
		{"no further rows", []string{"A7"}, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cells(t, f, SurveySheet, tt.refs...))
		})
	}
}

func TestBuildWorkbook_TeacherSummary(t *testing.T) {
	state, dir := sampleState()
	built, err := BuildWorkbook(state, dir, WorkbookOptions{})
	require.NoError(t, err)
	defer built.Close()
	f := reopen(t, built)

	row := func(n int) []string {
		refs := make([]string, len(summaryHeaders))
		for i := range refs {
			refs[i], _ = excelize.CoordinatesToCellName(i+1, n)
		}
		return cells(t, f, SummarySheet, refs...)
	}

	assert.Equal(t, summaryHeaders, row(4))
	assert.Equal(t, []string{"100", "3", "2024-01-01", "2024-01-03", "", "", ""}, row(5))
	assert.Equal(t, []string{"101", "", "", "", "", "", ""}, row(6), "configured teacher without data stays blank")
	assert.Equal(t, []string{"Other", "", "", "", "1", "2024-01-02", "2024-01-02"}, row(7))
	assert.Equal(t, []string{"", "", "", "", "", "", ""}, row(8))
}

func TestBuildWorkbook_Formatting(t *testing.T) {
	state, dir := sampleState()
	built, err := BuildWorkbook(state, dir, WorkbookOptions{})
	require.NoError(t, err)
	defer built.Close()
	f := reopen(t, built)

	merged, err := f.GetMergeCells(SurveySheet)
	require.NoError(t, err)
	var ranges []string
	for _, mc := range merged {
		ranges = append(ranges, mc.GetStartAxis()+":"+mc.GetEndAxis())
	}
	assert.ElementsMatch(t, []string{"A1:F1", "A2:F2"}, ranges)

	panes, err := f.GetPanes(SurveySheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 4, panes.YSplit)
	assert.Equal(t, "A5", panes.TopLeftCell)

	width, err := f.GetColWidth(SurveySheet, "A")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Teacher ID")+2), width)

	width, err = f.GetColWidth(SummarySheet, "C")
	require.NoError(t, err)
	assert.Equal(t, float64(len("First Pre Date")+2), width)

	headerStyle, err := f.GetCellStyle(SurveySheet, "A4")
	require.NoError(t, err)
	style, err := f.GetStyle(headerStyle)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	assert.Equal(t, "pattern", style.Fill.Type)

	titleStyle, err := f.GetCellStyle(SurveySheet, "A1")
	require.NoError(t, err)
	style, err = f.GetStyle(titleStyle)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
	assert.Equal(t, float64(16), style.Font.Size)
}

func TestBuildWorkbook_PartialMarker(t *testing.T) {
	state, dir := sampleState()
	built, err := BuildWorkbook(state, dir, WorkbookOptions{Partial: true})
	require.NoError(t, err)
	defer built.Close()
	f := reopen(t, built)

	for _, sheet := range []string{SurveySheet, SummarySheet} {
		banner, err := f.GetCellValue(sheet, "A2")
		require.NoError(t, err)
		assert.Contains(t, banner, "Partial report")
	}
}

func TestBuildWorkbook_EmptyState(t *testing.T) {
	dir := dataprocessing.NewTeacherDirectory(dataprocessing.TeacherEntry{ID: "100", Name: "Ada"})
	state := dataprocessing.NewAggregator(dir).State()

	built, err := BuildWorkbook(state, dir, WorkbookOptions{})
	require.NoError(t, err)
	defer built.Close()
	f := reopen(t, built)

	assert.Equal(t, []string{"Teacher ID", "Time", "Filename", ""}, cells(t, f, SurveySheet, "A4", "B4", "C4", "D4"))
	assert.Equal(t, []string{"", ""}, cells(t, f, SurveySheet, "A5", "C5"))
	assert.Equal(t, []string{"100", ""}, cells(t, f, SummarySheet, "A5", "B5"))
}

func TestColumnWidths(t *testing.T) {
	long := strings.Repeat("x", 80)
	widths := columnWidths(
		[]string{"Teacher ID", "Filename", "2024-01-01"},
		[][]any{{"100", long, 12}, {"Other", "pre", nil}},
	)
	assert.Equal(t, []float64{12, 50, 12}, widths)
}

func TestWriteWorkbook(t *testing.T) {
	state, dir := sampleState()

	t.Run("writes through temporary file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reports", "survey_report_20240201_103000.xlsx")

		require.NoError(t, WriteWorkbook(path, state, dir, WorkbookOptions{}))

		assert.FileExists(t, path)
		assert.NoFileExists(t, path+".tmp")

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer f.Close()
		v, err := f.GetCellValue(SurveySheet, "A5")
		require.NoError(t, err)
		assert.Equal(t, "100", v)
	})

	t.Run("failure leaves nothing behind", func(t *testing.T) {
		base := t.TempDir()
		blocker := filepath.Join(base, "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))
		path := filepath.Join(blocker, "report.xlsx")

		err := WriteWorkbook(path, state, dir, WorkbookOptions{})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeWrite))
		assert.NoFileExists(t, path)
		assert.NoFileExists(t, path+".tmp")
	})
}
