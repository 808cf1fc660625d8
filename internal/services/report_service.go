package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"surveytracker/internal/config"
	"surveytracker/internal/dataprocessing"
	apperrors "surveytracker/internal/errors"
	"surveytracker/internal/exporter"
	"surveytracker/internal/files"
	"surveytracker/internal/infrastructure"
)

// RunStatus is the outcome of a run that produced a workbook.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial"
)

// RunRequest is the input of one report run. A nil TeacherConfig means no
// configuration was supplied; every identity then maps to Other.
type RunRequest struct {
	Files         []dataprocessing.SourceFile `json:"-"`
	TeacherConfig []byte                      `json:"-"`
	OutputDir     string                      `json:"output_dir" validate:"required"`
	DateField     string                      `json:"date_field" validate:"omitempty,oneof=EndTime StartTime"`
}

// FileError records an input file skipped by a run.
type FileError struct {
	File    string              `json:"file"`
	Type    apperrors.ErrorType `json:"type"`
	Message string              `json:"message"`
}

// RowError records a row excluded from aggregation.
type RowError struct {
	File    string              `json:"file"`
	Row     int                 `json:"row"`
	Type    apperrors.ErrorType `json:"type"`
	Message string              `json:"message"`
}

// RunResult summarises a run that wrote a workbook.
type RunResult struct {
	RunID            string                           `json:"run_id"`
	WorkbookPath     string                           `json:"workbook_path"`
	Status           RunStatus                        `json:"status"`
	FilesProcessed   int                              `json:"files_processed"`
	FileErrors       []FileError                      `json:"file_errors"`
	RowErrors        []RowError                       `json:"row_errors"`
	ValidResponses   int                              `json:"valid_responses"`
	InvalidResponses int                              `json:"invalid_responses"`
	Warnings         []string                         `json:"warnings"`
	Summary          dataprocessing.SummaryStatistics `json:"summary"`
	Duration         time.Duration                    `json:"duration_ns"`
}

// WorkbookName is the base name of the produced workbook.
func (r *RunResult) WorkbookName() string {
	return filepath.Base(r.WorkbookPath)
}

// WorkbookWriterFunc persists an aggregate state as a report workbook.
type WorkbookWriterFunc func(path string, state *dataprocessing.AggregateState, dir *dataprocessing.TeacherDirectory, opts exporter.WorkbookOptions) error

// ReportService runs the survey report engine: it reads, validates,
// classifies and aggregates input files, then writes the report workbook.
// A service holds no per-run state and may serve concurrent runs.
type ReportService struct {
	filePrefix string
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    *infrastructure.ReportMetrics
	validate   *validator.Validate
	now        func() time.Time
	write      WorkbookWriterFunc
}

// NewReportService creates a report service. A nil tracer uses the global
// provider; nil metrics disable instrumentation.
func NewReportService(cfg config.ReportConfig, logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.ReportMetrics) *ReportService {
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.ServiceName)
	}
	return &ReportService{
		filePrefix: cfg.FilePrefix,
		logger:     infrastructure.WithComponent(logger, "report_service"),
		tracer:     tracer,
		metrics:    metrics,
		validate:   validator.New(),
		now:        time.Now,
		write:      exporter.WriteWorkbook,
	}
}

// WithClock replaces the clock used for workbook naming and timestamps.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// WithWorkbookWriter replaces the workbook writer.
func (s *ReportService) WithWorkbookWriter(w WorkbookWriterFunc) *ReportService {
	s.write = w
	return s
}

// Run executes one report run. Fatal failures (CONFIG, NO_VALID_INPUT,
// WRITE, CANCELLED) are returned as errors; per-file and per-row problems
// are collected in the result.
func (s *ReportService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := s.now()
	ctx, runID := infrastructure.EnsureTraceID(ctx)
	logger := s.logger.With(slog.String("run_id", runID))

	ctx, span := s.tracer.Start(ctx, "report.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("run.files", len(req.Files)),
	))
	defer span.End()

	logger.InfoContext(ctx, "Report run started",
		slog.Int("files", len(req.Files)),
		slog.String("date_field", req.DateField),
		slog.Bool("teacher_config", req.TeacherConfig != nil))

	result, err := s.run(ctx, runID, req, logger)
	duration := s.now().Sub(start)

	if err != nil {
		s.metrics.RecordRun(ctx, strings.ToLower(string(apperrors.TypeOf(err))), duration)
		infrastructure.RecordError(ctx, err)
		logger.ErrorContext(ctx, "Report run failed",
			slog.String("error", err.Error()),
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.Duration("duration", duration))
		return nil, err
	}

	result.Duration = duration
	s.metrics.RecordRun(ctx, string(result.Status), duration)
	span.SetAttributes(
		attribute.String("run.status", string(result.Status)),
		attribute.Int("run.files_processed", result.FilesProcessed),
		attribute.Int("run.valid_responses", result.ValidResponses),
	)
	logger.InfoContext(ctx, "Report run finished",
		slog.String("status", string(result.Status)),
		slog.String("workbook", result.WorkbookPath),
		slog.Int("files_processed", result.FilesProcessed),
		slog.Int("files_skipped", len(result.FileErrors)),
		slog.Int("rows_skipped", len(result.RowErrors)),
		slog.Int("valid_responses", result.ValidResponses),
		slog.Int("invalid_responses", result.InvalidResponses),
		slog.Duration("duration", duration))
	return result, nil
}

func (s *ReportService) run(ctx context.Context, runID string, req RunRequest, logger *slog.Logger) (*RunResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.NewConfigError("invalid run request", err)
	}
	dateField := req.DateField
	if dateField == "" {
		dateField = dataprocessing.DateFieldEndTime
	}

	dir, err := s.loadDirectory(req.TeacherConfig, logger)
	if err != nil {
		return nil, err
	}

	agg := dataprocessing.NewAggregator(dir)
	result := &RunResult{
		RunID:      runID,
		Status:     RunStatusComplete,
		FileErrors: []FileError{},
		RowErrors:  []RowError{},
		Warnings:   []string{},
	}

	cancelled := false
	for i, src := range req.Files {
		if err := ctx.Err(); err != nil {
			cancelled = true
			logger.WarnContext(ctx, "Report run cancelled between files",
				slog.Int("files_remaining", len(req.Files)-i),
				slog.String("cause", err.Error()))
			break
		}

		out, err := s.processFile(ctx, src, dateField, logger)
		result.Warnings = append(result.Warnings, out.warnings...)
		if err != nil {
			result.FileErrors = append(result.FileErrors, FileError{
				File:    src.Name,
				Type:    apperrors.TypeOf(err),
				Message: err.Error(),
			})
			s.metrics.RecordFile(ctx, false, string(apperrors.TypeOf(err)))
			continue
		}

		for _, rec := range out.records {
			agg.Add(rec)
		}
		result.FilesProcessed++
		result.RowErrors = append(result.RowErrors, out.rowErrors...)
		s.metrics.RecordFile(ctx, true, "")
		s.metrics.RecordRows(ctx, out.valid, len(out.rowErrors))
	}

	if result.FilesProcessed == 0 {
		if cancelled {
			return nil, apperrors.NewCancelledError(ctx.Err())
		}
		return nil, apperrors.NewNoValidInputError(len(result.FileErrors))
	}

	state := agg.State()
	result.ValidResponses = state.Totals.Valid
	result.InvalidResponses = state.Totals.Invalid
	result.Summary = dataprocessing.Summarize(state)
	if cancelled {
		result.Status = RunStatusPartial
	}

	generatedAt := s.now()
	path, err := files.ReserveReportPath(req.OutputDir, s.filePrefix, generatedAt, cancelled)
	if err != nil {
		return nil, apperrors.NewWriteError(filepath.Join(req.OutputDir, files.ReportFileName(s.filePrefix, generatedAt, cancelled)), err)
	}
	_, span := s.tracer.Start(ctx, "report.write", trace.WithAttributes(attribute.String("workbook.path", path)))
	err = s.write(path, state, dir, exporter.WorkbookOptions{GeneratedAt: generatedAt, Partial: cancelled})
	span.End()
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	result.WorkbookPath = path
	return result, nil
}

func (s *ReportService) loadDirectory(content []byte, logger *slog.Logger) (*dataprocessing.TeacherDirectory, error) {
	if content == nil {
		logger.Info("No teacher configuration supplied, all identities map to Other")
		return dataprocessing.NewTeacherDirectory(), nil
	}
	dir, err := dataprocessing.LoadDirectory(bytes.NewReader(content), logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Teacher configuration loaded", slog.Int("teachers", dir.Len()))
	return dir, nil
}

type fileOutcome struct {
	records   []dataprocessing.ResponseRecord
	rowErrors []RowError
	warnings  []string
	valid     int
}

// processFile reads one file to completion. Records are returned only when
// the whole file was read, so a file failing midway contributes nothing.
func (s *ReportService) processFile(ctx context.Context, src dataprocessing.SourceFile, dateField string, logger *slog.Logger) (fileOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "report.file", trace.WithAttributes(attribute.String("file.name", src.Name)))
	defer span.End()

	var out fileOutcome
	name := dataprocessing.BaseName(src.Name)
	logger = logger.With(slog.String("file", src.Name))

	reject := func(err error) error {
		infrastructure.RecordError(ctx, err)
		logger.WarnContext(ctx, "Skipping file",
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()))
		return err
	}

	table, err := dataprocessing.ReadTable(src)
	if err != nil {
		return out, reject(err)
	}

	layout, err := dataprocessing.ValidateHeader(name, table.Header)
	if err != nil {
		table.Close()
		return out, reject(err)
	}
	if len(layout.Variables) == 0 {
		msg := fmt.Sprintf("%s has no unique test variables; every row counts as an invalid response", src.Name)
		logger.WarnContext(ctx, "File has no unique test variables")
		out.warnings = append(out.warnings, msg)
	}

	class := dataprocessing.ClassifyFilename(src.Name)
	if class.Ambiguous {
		amb := apperrors.NewClassificationAmbiguity(src.Name, string(class.Period))
		logger.WarnContext(ctx, "Ambiguous file classification",
			slog.String("period", string(class.Period)))
		out.warnings = append(out.warnings, amb.Error())
	}
	span.SetAttributes(attribute.String("file.period", string(class.Period)))

	ex, err := dataprocessing.NewExtractor(table, layout, class.Period, dateField)
	if err != nil {
		table.Close()
		return out, reject(err)
	}

	for rec, err := range ex.Records() {
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrTypeDateParse) {
				out.rowErrors = append(out.rowErrors, RowError{
					File:    src.Name,
					Row:     rec.Row,
					Type:    apperrors.ErrTypeDateParse,
					Message: err.Error(),
				})
				logger.WarnContext(ctx, "Skipping row with unparsable date",
					slog.Int("row", rec.Row),
					slog.String("error", err.Error()))
				continue
			}
			return fileOutcome{warnings: out.warnings}, reject(err)
		}
		if rec.IsValid && rec.HasDate {
			out.valid++
		}
		logger.DebugContext(ctx, "Extracted record",
			slog.Int("row", rec.Row),
			slog.String("teacher_id", rec.TeacherID),
			slog.Bool("valid", rec.IsValid))
		out.records = append(out.records, rec)
	}

	logger.InfoContext(ctx, "Processed file",
		slog.String("period", string(class.Period)),
		slog.Int("variables", len(layout.Variables)),
		slog.Int("records", len(out.records)),
		slog.Int("valid", out.valid),
		slog.Int("rows_skipped", len(out.rowErrors)))
	return out, nil
}

// DirectoryRun describes a run over exports stored on disk.
type DirectoryRun struct {
	InputDir     string
	TeachersFile string
	OutputDir    string
	DateField    string
}

// RunDirectory discovers the exports in InputDir, reads the teacher
// configuration (absent file means none) and runs the report.
func (s *ReportService) RunDirectory(ctx context.Context, manager *files.Manager, run DirectoryRun) (*RunResult, error) {
	found, err := files.NewDiscovery("").FindSurveyExports(run.InputDir)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to list input directory", err).WithContext("dir", run.InputDir)
	}

	sources, err := manager.LoadSourceFiles(found)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to load input files", err)
	}

	teachers, err := manager.ReadTeacherConfig(run.TeachersFile)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to read teacher configuration", err).WithContext("path", run.TeachersFile)
	}

	return s.Run(ctx, RunRequest{
		Files:         sources,
		TeacherConfig: teachers,
		OutputDir:     run.OutputDir,
		DateField:     run.DateField,
	})
}
