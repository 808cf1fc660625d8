package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"surveytracker/internal/config"
	apierrors "surveytracker/internal/errors"
	"surveytracker/internal/files"
	"surveytracker/internal/infrastructure"
	customMiddleware "surveytracker/internal/middleware"
	"surveytracker/internal/services"
	handlers "surveytracker/internal/transport/http"
)

// BuildTime is set at link time with -ldflags "-X surveytracker/internal/app.BuildTime=..."
var BuildTime string

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Reports       *services.ReportService
	Runs          *services.RunGate
	Health        *services.HealthService
	Files         *files.Manager
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
}

// NewApplication resolves paths, ensures the data directories exist,
// initializes OpenTelemetry and wires the application.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	paths, err := config.GetPaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	return New(cfg, paths, logger, providers)
}

// New wires services, handlers and the HTTP server. providers may be nil, in
// which case tracing uses the global provider and /metrics is disabled.
func New(cfg *config.Config, paths *config.Paths, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger = infrastructure.WithComponent(logger, "app")

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
	}
	if err := a.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := a.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	a.createServer()
	return a, nil
}

func (a *Application) initializeServices() error {
	var (
		tracer  = a.tracer()
		metrics *infrastructure.ReportMetrics
	)
	if a.OTelProviders != nil {
		m, err := infrastructure.CreateReportMetrics(a.OTelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create report metrics: %w", err)
		}
		metrics = m
	}

	a.Reports = services.NewReportService(a.Config.Report, a.Logger, tracer, metrics)
	a.Runs = services.NewRunGate(a.Reports)
	a.Health = services.NewHealthService(config.AppVersion, BuildTime, a.Paths, a.Runs, a.Logger)
	a.Files = files.NewManager(a.Paths, a.Logger)
	return nil
}

func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	// RequestID → RealIP → OTel → Logger → Recoverer → limits
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.tracer(), a.meter(), a.Logger)
	if err != nil {
		return err
	}
	r.Use(otelMiddleware.Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	r.Use(customMiddleware.SecurityHeaders)

	if rl := a.Config.Server.RateLimit; rl.Enabled {
		r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		health := handlers.NewHealthHandler(a.Health, a.Logger)
		r.Mount("/health", health.Routes())
		r.Get("/version", health.Version)

		reports := handlers.NewReportHandler(a.Runs, a.Files, a.Paths, a.Config.Report, a.Logger)
		r.With(customMiddleware.BodyLimit(a.Config.Server.MaxUploadBytes)).Mount("/reports", reports.Routes())
	})

	var exporter http.Handler
	if a.OTelProviders != nil {
		exporter = a.OTelProviders.PrometheusHTTP
	}
	r.Method(http.MethodGet, "/metrics", handlers.NewMetricsHandler(exporter))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, apierrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, apierrors.ErrMethodNotAllowed)
	})

	a.Router = r
	return nil
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Run listens on the configured port and serves until ctx is cancelled or
// the process receives SIGINT or SIGTERM.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "Server listening",
			slog.String("address", ln.Addr().String()),
			slog.String("version", config.AppVersion))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop gracefully stops the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

func (a *Application) tracer() trace.Tracer {
	if a.OTelProviders != nil && a.OTelProviders.Tracer != nil {
		return a.OTelProviders.Tracer
	}
	return nil
}

func (a *Application) meter() metric.Meter {
	if a.OTelProviders != nil {
		return a.OTelProviders.Meter
	}
	return nil
}
