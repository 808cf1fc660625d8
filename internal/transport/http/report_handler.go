package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"surveytracker/internal/config"
	"surveytracker/internal/dataprocessing"
	apierrors "surveytracker/internal/errors"
	"surveytracker/internal/files"
	"surveytracker/internal/infrastructure"
	"surveytracker/internal/middleware"
	"surveytracker/internal/services"
)

const (
	multipartMemory = 32 << 20
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ReportRunner executes a report run
type ReportRunner interface {
	Run(ctx context.Context, req services.RunRequest) (*services.RunResult, error)
}

// TeacherSource supplies the stored teacher configuration when a request
// does not upload one
type TeacherSource interface {
	ReadTeacherConfig(path string) ([]byte, error)
}

// reportRequest is the validated shape of a multipart report upload
type reportRequest struct {
	Files     []string `form:"files" validate:"min=1,dive,filename"`
	DateField string   `form:"date_field" validate:"omitempty,oneof=EndTime StartTime"`
}

// ReportResponse is returned by a successful report run
type ReportResponse struct {
	*services.RunResult
	DownloadURL string `json:"download_url"`
}

// ReportListing describes a stored workbook
type ReportListing struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"modified"`
	DownloadURL string    `json:"download_url"`
}

// ReportHandler handles report run and download requests
type ReportHandler struct {
	runner    ReportRunner
	teachers  TeacherSource
	paths     *config.Paths
	dateField string
	validator *middleware.RequestValidator
	logger    *slog.Logger
}

// NewReportHandler creates a report handler. teachers may be nil.
func NewReportHandler(runner ReportRunner, teachers TeacherSource, paths *config.Paths, cfg config.ReportConfig, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		runner:    runner,
		teachers:  teachers,
		paths:     paths,
		dateField: cfg.DateField,
		validator: middleware.NewRequestValidator(),
		logger:    infrastructure.WithComponent(logger, "report_handler"),
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListReports)
	r.With(middleware.ContentTypeValidator("multipart/form-data")).Post("/", h.CreateReport)
	r.Get("/{name}", h.DownloadReport)
	return r
}

// CreateReport handles POST /api/reports
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.renderError(w, r, apierrors.ErrPayloadTooLarge)
			return
		}
		h.renderError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	uploads := r.MultipartForm.File["files"]
	form := reportRequest{DateField: r.FormValue("date_field")}
	for _, fh := range uploads {
		form.Files = append(form.Files, filepath.Base(fh.Filename))
	}
	if apiErr := h.validator.ValidateStruct(form); apiErr != nil {
		h.renderError(w, r, apiErr)
		return
	}

	sources := make([]dataprocessing.SourceFile, 0, len(uploads))
	for _, fh := range uploads {
		content, err := readUpload(fh)
		if err != nil {
			h.renderError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
		sources = append(sources, dataprocessing.SourceFile{Name: filepath.Base(fh.Filename), Content: content})
	}

	teacherConfig, err := h.teacherConfig(r.MultipartForm)
	if err != nil {
		h.renderError(w, r, apierrors.FromAppError(err))
		return
	}

	dateField := form.DateField
	if dateField == "" {
		dateField = h.dateField
	}

	result, err := h.runner.Run(ctx, services.RunRequest{
		Files:         sources,
		TeacherConfig: teacherConfig,
		OutputDir:     h.paths.ReportsDir,
		DateField:     dateField,
	})
	if err != nil {
		if errors.Is(err, services.ErrRunInProgress) {
			h.renderError(w, r, apierrors.ErrRunInProgress)
			return
		}
		h.logger.ErrorContext(ctx, "Report run failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(ctx)))
		h.renderError(w, r, apierrors.FromAppError(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, ReportResponse{
		RunResult:   result,
		DownloadURL: reportURL(result.WorkbookName()),
	})
}

// ListReports handles GET /api/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := files.NewDiscovery("").FindReports(h.paths.ReportsDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		h.renderError(w, r, apierrors.FromAppError(apierrors.NewStorageError("failed to list reports", err)))
		return
	}

	out := make([]ReportListing, 0, len(reports))
	for _, rep := range reports {
		out = append(out, ReportListing{
			Name:        rep.Name,
			Size:        rep.Size,
			ModTime:     rep.ModTime,
			DownloadURL: reportURL(rep.Name),
		})
	}
	render.JSON(w, r, out)
}

// DownloadReport handles GET /api/reports/{name}
func (h *ReportHandler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !files.IsReportName(name) {
		h.renderError(w, r, apierrors.ErrValidation("name", "must be a workbook file name ending in .xlsx"))
		return
	}

	path, err := h.paths.ReportPath(name)
	if err != nil {
		h.renderError(w, r, apierrors.ErrValidation("name", err.Error()))
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		h.renderError(w, r, apierrors.ErrReportNotFound)
		return
	}

	h.logger.InfoContext(r.Context(), "Serving report", slog.String("name", name))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

func (h *ReportHandler) teacherConfig(form *multipart.Form) ([]byte, error) {
	if uploads := form.File["teachers"]; len(uploads) > 0 {
		content, err := readUpload(uploads[0])
		if err != nil {
			return nil, apierrors.NewAppValidationError("unreadable teachers upload")
		}
		return content, nil
	}
	if h.teachers == nil {
		return nil, nil
	}
	content, err := h.teachers.ReadTeacherConfig("")
	if err != nil {
		return nil, apierrors.NewConfigError("failed to read teacher configuration", err)
	}
	return content, nil
}

func (h *ReportHandler) renderError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	if err := render.Render(w, r, apierrors.NewErrorResponse(apiErr)); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render error", slog.String("error", err.Error()))
	}
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func reportURL(name string) string {
	return "/api/reports/" + name
}
