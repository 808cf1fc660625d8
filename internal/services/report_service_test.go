package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"surveytracker/internal/config"
	"surveytracker/internal/dataprocessing"
	apperrors "surveytracker/internal/errors"
	"surveytracker/internal/exporter"
	"surveytracker/internal/infrastructure"
	"surveytracker/internal/shared/testutil"
)

var fixedNow = time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC)

func newService(t *testing.T) (*ReportService, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	svc := NewReportService(config.ReportConfig{FilePrefix: "survey_report"}, logger, nil, nil).
		WithClock(func() time.Time { return fixedNow })
	return svc, handler
}

func csvFile(name string, s *testutil.SurveyCSV) dataprocessing.SourceFile {
	return dataprocessing.SourceFile{Name: name, Content: s.Bytes()}
}

func preFile() dataprocessing.SourceFile {
	return csvFile("pre_assessment.csv", testutil.NewSurveyCSV("Q1", "Q2").
		Row("100S0001", "2024-01-03 09:00:00", "yes").
		Row("100S0002", "2024-01-01 10:00:00", "", "no").
		Row("101S0001", "2024-01-02 11:00:00", "", "").
		Row("555S0001", "2024-01-02 12:00:00", "maybe"))
}

func postFile() dataprocessing.SourceFile {
	return csvFile("post_assessment.csv", testutil.NewSurveyCSV("Q1").
		Row("101S0001", "2024-01-20 08:00:00", "yes").
		Row("101S0002", "1/21/2024 3:15 PM", "yes"))
}

func teachers() []byte {
	return testutil.TeachersCSV("100", "Ada", "101", "Grace")
}

func TestReportService_Run_Complete(t *testing.T) {
	svc, _ := newService(t)
	out := t.TempDir()

	result, err := svc.Run(context.Background(), RunRequest{
		Files:         []dataprocessing.SourceFile{preFile(), postFile()},
		TeacherConfig: teachers(),
		OutputDir:     out,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, RunStatusComplete, result.Status)
	assert.Equal(t, 2, result.FilesProcessed)
	assert.Empty(t, result.FileErrors)
	assert.Empty(t, result.RowErrors)
	assert.Equal(t, 5, result.ValidResponses)
	assert.Equal(t, 1, result.InvalidResponses)
	assert.Equal(t, filepath.Join(out, "survey_report_20240201_103000.xlsx"), result.WorkbookPath)
	assert.Equal(t, "survey_report_20240201_103000.xlsx", result.WorkbookName())
	assert.Equal(t, dataprocessing.SummaryStatistics{
		TotalTeachers:          3,
		TotalResponses:         5,
		DateRange:              "2024-01-01 to 2024-01-21",
		AvgResponsesPerTeacher: 1.67,
	}, result.Summary)

	f, err := excelize.OpenFile(result.WorkbookPath)
	require.NoError(t, err)
	defer f.Close()

	rows := map[string][]string{}
	for n := 5; n <= 7; n++ {
		var row []string
		for _, col := range []string{"A", "B", "C", "D", "E", "F", "G"} {
			v, err := f.GetCellValue(exporter.SummarySheet, fmt.Sprintf("%s%d", col, n))
			require.NoError(t, err)
			row = append(row, v)
		}
		rows[row[0]] = row
	}
	assert.Equal(t, []string{"100", "2", "2024-01-01", "2024-01-03", "", "", ""}, rows["100"])
	assert.Equal(t, []string{"101", "", "", "", "2", "2024-01-20", "2024-01-21"}, rows["101"])
	assert.Equal(t, []string{"Other", "1", "2024-01-02", "2024-01-02", "", "", ""}, rows["Other"])
}

func TestReportService_Run_SkipsBadFiles(t *testing.T) {
	svc, handler := newService(t)
	out := t.TempDir()

	badHeader := dataprocessing.SourceFile{Name: "pre_broken.csv", Content: []byte("Student ID,End Time,Q1\n100S1,2024-01-01,yes\n")}
	badWorkbook := dataprocessing.SourceFile{Name: "post_garbage.xlsx", Content: []byte("not a zip archive")}
	empty := dataprocessing.SourceFile{Name: "pre_empty.csv"}

	result, err := svc.Run(context.Background(), RunRequest{
		Files:     []dataprocessing.SourceFile{badHeader, preFile(), badWorkbook, empty},
		OutputDir: out,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesProcessed)
	require.Len(t, result.FileErrors, 3)
	assert.Equal(t, FileError{File: "pre_broken.csv", Type: apperrors.ErrTypeSchema, Message: result.FileErrors[0].Message}, result.FileErrors[0])
	assert.Contains(t, result.FileErrors[0].Message, `"Test ID"`)
	assert.Equal(t, apperrors.ErrTypeParsing, result.FileErrors[1].Type)
	assert.Equal(t, "post_garbage.xlsx", result.FileErrors[1].File)
	assert.Equal(t, apperrors.ErrTypeParsing, result.FileErrors[2].Type)

	assert.Equal(t, 3, handler.CountAtLevel(slogWarn, "Skipping file"))
	assert.FileExists(t, result.WorkbookPath)
}

func TestReportService_Run_RowErrors(t *testing.T) {
	svc, handler := newService(t)

	file := csvFile("post_dates.csv", testutil.NewSurveyCSV("Q1").
		Row("100S1", "2024-01-05", "yes").
		Row("100S2", "not a date", "yes").
		Row("100S3", "also bad", "").
		Row("100S4", "2024-01-06", "yes"))

	result, err := svc.Run(context.Background(), RunRequest{
		Files:         []dataprocessing.SourceFile{file},
		TeacherConfig: teachers(),
		OutputDir:     t.TempDir(),
	})
	require.NoError(t, err)

	require.Len(t, result.RowErrors, 1, "date failure on an invalid row is not reported")
	assert.Equal(t, "post_dates.csv", result.RowErrors[0].File)
	assert.Equal(t, 2, result.RowErrors[0].Row)
	assert.Equal(t, apperrors.ErrTypeDateParse, result.RowErrors[0].Type)
	assert.Contains(t, result.RowErrors[0].Message, `"not a date"`)

	assert.Equal(t, 2, result.ValidResponses)
	assert.Equal(t, 1, result.InvalidResponses)
	testutil.AssertLogContains(t, handler, slogWarn, "Skipping row with unparsable date")
}

func TestReportService_Run_Warnings(t *testing.T) {
	svc, handler := newService(t)

	ambiguous := csvFile("pre_and_post_mix.csv", testutil.NewSurveyCSV("Q1").Row("100S1", "2024-01-05", "yes"))
	noVariables := csvFile("post_novars.csv", testutil.NewSurveyCSV().Row("100S1", "2024-01-05"))

	result, err := svc.Run(context.Background(), RunRequest{
		Files:     []dataprocessing.SourceFile{ambiguous, noVariables},
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 2)
	assert.Contains(t, result.Warnings[0], "resolved as pre")
	assert.Contains(t, result.Warnings[1], "post_novars.csv has no unique test variables")
	assert.Equal(t, 1, result.ValidResponses)
	assert.Equal(t, 1, result.InvalidResponses)
	testutil.AssertLogContains(t, handler, slogWarn, "Ambiguous file classification")
}

func TestReportService_Run_FatalErrors(t *testing.T) {
	tests := []struct {
		name     string
		req      RunRequest
		wantType apperrors.ErrorType
	}{
		{
			name:     "no files",
			req:      RunRequest{},
			wantType: apperrors.ErrTypeNoValidInput,
		},
		{
			name: "every file rejected",
			req: RunRequest{Files: []dataprocessing.SourceFile{
				{Name: "pre.csv", Content: []byte("a,b\n1,2\n")},
			}},
			wantType: apperrors.ErrTypeNoValidInput,
		},
		{
			name: "malformed teacher configuration",
			req: RunRequest{
				Files:         []dataprocessing.SourceFile{preFile()},
				TeacherConfig: []byte("teacher_id,name\n100,Ada\n"),
			},
			wantType: apperrors.ErrTypeConfig,
		},
		{
			name:     "unknown date field",
			req:      RunRequest{Files: []dataprocessing.SourceFile{preFile()}, DateField: "Submitted"},
			wantType: apperrors.ErrTypeConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t)
			out := t.TempDir()
			tt.req.OutputDir = out

			result, err := svc.Run(context.Background(), tt.req)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, apperrors.IsType(err, tt.wantType), err.Error())

			entries, err := os.ReadDir(out)
			require.NoError(t, err)
			assert.Empty(t, entries, "no workbook for a failed run")
		})
	}
}

func TestReportService_Run_MissingOutputDir(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Run(context.Background(), RunRequest{Files: []dataprocessing.SourceFile{preFile()}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestReportService_Run_StartTime(t *testing.T) {
	svc, _ := newService(t)

	file := csvFile("pre_times.csv", testutil.NewSurveyCSV("Q1").
		RowTimes("100S1", "2024-01-01 23:50:00", "2024-01-02 00:10:00", "yes"))

	result, err := svc.Run(context.Background(), RunRequest{
		Files:         []dataprocessing.SourceFile{file},
		TeacherConfig: teachers(),
		OutputDir:     t.TempDir(),
		DateField:     dataprocessing.DateFieldStartTime,
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 to 2024-01-01", result.Summary.DateRange)
}

// cancelAfter reports cancellation once Err has been consulted n times.
type cancelAfter struct {
	context.Context
	n int
}

func (c *cancelAfter) Err() error {
	if c.n <= 0 {
		return context.Canceled
	}
	c.n--
	return nil
}

func TestReportService_Run_Cancellation(t *testing.T) {
	t.Run("partial workbook after first file", func(t *testing.T) {
		svc, handler := newService(t)
		ctx := &cancelAfter{Context: context.Background(), n: 1}

		result, err := svc.Run(ctx, RunRequest{
			Files:         []dataprocessing.SourceFile{preFile(), postFile()},
			TeacherConfig: teachers(),
			OutputDir:     t.TempDir(),
		})
		require.NoError(t, err)

		assert.Equal(t, RunStatusPartial, result.Status)
		assert.Equal(t, 1, result.FilesProcessed)
		assert.Equal(t, "survey_report_20240201_103000_partial.xlsx", result.WorkbookName())
		testutil.AssertLogContains(t, handler, slogWarn, "Report run cancelled between files")

		f, err := excelize.OpenFile(result.WorkbookPath)
		require.NoError(t, err)
		defer f.Close()
		banner, err := f.GetCellValue(exporter.SurveySheet, "A2")
		require.NoError(t, err)
		assert.Contains(t, banner, "Partial report")
	})

	t.Run("cancelled before any file", func(t *testing.T) {
		svc, _ := newService(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		out := t.TempDir()

		_, err := svc.Run(ctx, RunRequest{Files: []dataprocessing.SourceFile{preFile()}, OutputDir: out})

		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeCancelled))
		assert.ErrorIs(t, err, context.Canceled)
		entries, _ := os.ReadDir(out)
		assert.Empty(t, entries)
	})
}

func TestReportService_Run_WriteFailure(t *testing.T) {
	svc, _ := newService(t)
	svc.WithWorkbookWriter(func(path string, _ *dataprocessing.AggregateState, _ *dataprocessing.TeacherDirectory, _ exporter.WorkbookOptions) error {
		return apperrors.NewWriteError(path, os.ErrPermission)
	})

	out := t.TempDir()
	_, err := svc.Run(context.Background(), RunRequest{Files: []dataprocessing.SourceFile{preFile()}, OutputDir: out})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeWrite))
	assert.ErrorIs(t, err, os.ErrPermission)
	entries, _ := os.ReadDir(out)
	assert.Empty(t, entries, "reserved name released after a failed write")
}

func TestReportService_Run_SameSecondRunsKeepBothReports(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	svc := NewReportService(config.ReportConfig{FilePrefix: "survey_report"}, logger, nil, nil)
	out := t.TempDir()

	first, err := svc.Run(context.Background(), RunRequest{Files: []dataprocessing.SourceFile{preFile()}, OutputDir: out})
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), RunRequest{Files: []dataprocessing.SourceFile{postFile()}, OutputDir: out})
	require.NoError(t, err)

	require.NotEqual(t, first.WorkbookPath, second.WorkbookPath)
	for _, result := range []*RunResult{first, second} {
		f, err := excelize.OpenFile(result.WorkbookPath)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
}

func TestReportService_Run_FixedClockNumbersRepeats(t *testing.T) {
	svc, _ := newService(t)
	out := t.TempDir()

	var names []string
	for range 3 {
		result, err := svc.Run(context.Background(), RunRequest{Files: []dataprocessing.SourceFile{preFile()}, OutputDir: out})
		require.NoError(t, err)
		names = append(names, result.WorkbookName())
	}

	assert.Equal(t, []string{
		"survey_report_20240201_103000.xlsx",
		"survey_report_20240201_103000_2.xlsx",
		"survey_report_20240201_103000_3.xlsx",
	}, names)
}

func TestReportService_Run_OrderIndependent(t *testing.T) {
	run := func(files ...dataprocessing.SourceFile) *dataprocessing.AggregateState {
		var captured *dataprocessing.AggregateState
		svc, _ := newService(t)
		svc.WithWorkbookWriter(func(_ string, state *dataprocessing.AggregateState, _ *dataprocessing.TeacherDirectory, _ exporter.WorkbookOptions) error {
			captured = state
			return nil
		})
		_, err := svc.Run(context.Background(), RunRequest{Files: files, TeacherConfig: teachers(), OutputDir: t.TempDir()})
		require.NoError(t, err)
		return captured
	}

	forward := run(preFile(), postFile())
	backward := run(postFile(), preFile())

	assert.Equal(t, forward.Summary, backward.Summary)
	assert.Equal(t, forward.CountsByTeacher(), backward.CountsByTeacher())
	assert.Equal(t, forward.Totals, backward.Totals)
}

func TestReportService_Run_Telemetry(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := infrastructure.CreateReportMetrics(mp.Meter("test"))
	require.NoError(t, err)

	logger, _ := testutil.NewTestLogger(t)
	svc := NewReportService(config.ReportConfig{FilePrefix: "survey_report"}, logger, tp.Tracer("test"), metrics)

	bad := dataprocessing.SourceFile{Name: "pre_bad.csv", Content: []byte("x\n1\n")}
	_, err = svc.Run(context.Background(), RunRequest{
		Files:         []dataprocessing.SourceFile{preFile(), bad, postFile()},
		TeacherConfig: teachers(),
		OutputDir:     t.TempDir(),
	})
	require.NoError(t, err)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"report.file", "report.file", "report.file", "report.write", "report.run"}, names)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), sums["report_runs_total"])
	assert.Equal(t, int64(2), sums["report_files_accepted_total"])
	assert.Equal(t, int64(1), sums["report_files_rejected_total"])
	assert.Equal(t, int64(5), sums["report_valid_responses_total"])
}
