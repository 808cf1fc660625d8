package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"surveytracker/internal/config"
	"surveytracker/internal/dataprocessing"
	"surveytracker/internal/infrastructure"
	"surveytracker/internal/scraper"
)

// ExportFetcher retrieves survey exports from the assessment platform.
type ExportFetcher interface {
	Fetch(ctx context.Context, sess *scraper.Session, urls []string) ([]dataprocessing.SourceFile, []scraper.FetchError)
}

// App holds what every command needs. Fetcher and Out may be nil; Fetcher
// then defaults to a chromedp fetcher and Out to stdout.
type App struct {
	Config  *config.Config
	Paths   *config.Paths
	Logger  *slog.Logger
	Fetcher ExportFetcher
	Out     io.Writer
}

// NewRootCmd creates the top-level "surveytracker" command and registers
// all subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	if app.Config == nil {
		app.Config = config.Default()
	}
	if app.Out == nil {
		app.Out = os.Stdout
	}
	if app.Logger == nil {
		app.Logger = infrastructure.GetLogger()
	}

	root := &cobra.Command{
		Use:           "surveytracker",
		Short:         "Aggregate pre/post survey exports into a teacher report workbook",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.Out)

	root.AddCommand(
		newReportCmd(app),
		newFetchCmd(app),
		newServeCmd(app),
		newGenDataCmd(app),
		newVersionCmd(app),
	)

	return root
}

// Execute runs the root command with args under a context that is cancelled
// on SIGINT or SIGTERM. A report run interrupted between files still writes
// a partial workbook. With no args cobra reads os.Args.
func Execute(ctx context.Context, app *App, args ...string) error {
	ctx, stop := interruptContext(ctx)
	defer stop()

	root := NewRootCmd(app)
	if len(args) > 0 {
		root.SetArgs(args)
	}
	return root.ExecuteContext(ctx)
}

func interruptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func (a *App) fetcher() ExportFetcher {
	if a.Fetcher != nil {
		return a.Fetcher
	}
	return scraper.NewFetcher(a.Config.Scraper, a.Logger)
}

// pathsWithDownloads returns a copy of the app paths with the downloads
// directory replaced when dir is set.
func (a *App) pathsWithDownloads(dir string) *config.Paths {
	p := *a.Paths
	if dir != "" {
		p.DownloadsDir = dir
	}
	return &p
}
