package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"surveytracker/internal/files"
	"surveytracker/internal/scraper"
	"surveytracker/internal/validation"
)

type fetchFlags struct {
	urls       string
	username   string
	password   string
	loginURL   string
	out        string
	report     bool
	reportOpts reportFlags
}

func newFetchCmd(app *App) *cobra.Command {
	var f fetchFlags
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download survey exports listed in a URL file",
		Long: `Opens each URL in a browser, clicks its download control and stores the
export in the downloads directory. A failed URL is reported and the rest
continue. With --report the downloaded exports are aggregated afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, app, f)
		},
	}

	cmd.Flags().StringVar(&f.urls, "urls", "", "file with one export URL per line")
	cmd.Flags().StringVar(&f.username, "username", "", "platform username")
	cmd.Flags().StringVar(&f.password, "password", os.Getenv("SURVEY_PASSWORD"), "platform password (default: $SURVEY_PASSWORD)")
	cmd.Flags().StringVar(&f.loginURL, "login-url", app.Config.Scraper.LoginURL, "login page visited once before the exports")
	cmd.Flags().StringVar(&f.out, "out", "", "downloads directory (default: data/downloads)")
	cmd.Flags().BoolVar(&f.report, "report", false, "build the report from the downloads directory afterwards")
	cmd.Flags().StringVar(&f.reportOpts.teachers, "teachers", "", "teacher configuration CSV used with --report")
	cmd.Flags().StringVar(&f.reportOpts.dateField, "date-field", app.Config.Report.DateField, "response date column used with --report")
	_ = cmd.MarkFlagRequired("urls")
	return cmd
}

func runFetch(cmd *cobra.Command, app *App, f fetchFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	list, err := os.Open(f.urls)
	if err != nil {
		return fmt.Errorf("failed to open url list: %w", err)
	}
	urls, err := scraper.ParseURLList(list)
	list.Close()
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return errors.New("url list is empty")
	}

	sess := &scraper.Session{Username: f.username, Password: f.password, LoginURL: f.loginURL}
	if err := sess.Validate(); err != nil {
		return err
	}

	paths := app.pathsWithDownloads(f.out)
	if err := validation.NewFileValidator(app.Logger).ValidateOutputDirectory(paths.DownloadsDir); err != nil {
		return err
	}

	downloaded, failures := app.fetcher().Fetch(ctx, sess, urls)
	for _, fe := range failures {
		fmt.Fprintf(out, "Failed: %s\n", fe.Error())
	}

	manager := files.NewManager(paths, app.Logger)
	for _, src := range downloaded {
		path, err := manager.SaveDownload(src.Name, src.Content)
		if err != nil {
			return fmt.Errorf("failed to save %s: %w", src.Name, err)
		}
		fmt.Fprintf(out, "Saved: %s\n", path)
	}
	fmt.Fprintf(out, "Downloaded %d of %d exports\n", len(downloaded), len(urls))

	if len(downloaded) == 0 {
		return errors.New("no exports were downloaded")
	}
	if !f.report {
		return nil
	}

	rf := f.reportOpts
	rf.in = paths.DownloadsDir
	result, err := runReport(cmd, app, rf)
	if err != nil {
		return err
	}
	printResult(out, result)
	return nil
}

var _ ExportFetcher = (*scraper.Fetcher)(nil)
