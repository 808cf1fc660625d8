package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"surveytracker/internal/config"
	"surveytracker/internal/dataprocessing"
	apperrors "surveytracker/internal/errors"
	"surveytracker/internal/infrastructure"
)

// settleDelay gives a page time to finish client-side rendering before the
// download control is looked up.
const settleDelay = 1500 * time.Millisecond

var (
	usernameSelectors = []string{
		"input[name='username']",
		"input[name='email']",
		"input[name='user']",
		"input[type='email']",
		"input[type='text']",
		"#username",
		"#email",
		"#user",
	}
	passwordSelectors = []string{
		"input[name='password']",
		"input[type='password']",
		"#password",
	}
	submitSelectors = []string{
		"input[type='submit']",
		"button[type='submit']",
	}
	// Controls whose text contains downloadText are tried before these.
	downloadSelectors = []string{
		"a[href*='download']",
		"button[type='submit']",
	}
)

const downloadText = "Download"

// FetchError records a URL whose export could not be retrieved.
type FetchError struct {
	URL string
	Err error
}

func (e FetchError) Error() string {
	if e.URL == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.URL, e.Err)
}

func (e FetchError) Unwrap() error { return e.Err }

// Fetcher downloads survey exports through a Chrome instance driven over CDP.
type Fetcher struct {
	cfg    config.ScraperConfig
	logger *slog.Logger
}

// NewFetcher creates a fetcher. A zero Timeout or DownloadWait falls back to
// the configuration defaults.
func NewFetcher(cfg config.ScraperConfig, logger *slog.Logger) *Fetcher {
	defaults := config.Default().Scraper
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.DownloadWait <= 0 {
		cfg.DownloadWait = defaults.DownloadWait
	}
	return &Fetcher{cfg: cfg, logger: infrastructure.WithComponent(logger, "scraper")}
}

func (f *Fetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	return append(opts, chromedp.Flag("headless", f.cfg.Headless))
}

// Fetch retrieves one export per URL. A failing URL is reported in the
// returned errors and the remaining URLs are still attempted; nothing is
// retried.
func (f *Fetcher) Fetch(ctx context.Context, sess *Session, urls []string) ([]dataprocessing.SourceFile, []FetchError) {
	if err := sess.Validate(); err != nil {
		return nil, []FetchError{{Err: err}}
	}
	if len(urls) == 0 {
		return nil, nil
	}

	logger := f.logger.With(slog.Any("session", sess), slog.Int("urls", len(urls)))
	logger.InfoContext(ctx, "Starting export retrieval", slog.Bool("headless", f.cfg.Headless))

	downloadDir, err := os.MkdirTemp("", "surveytracker-download-*")
	if err != nil {
		return nil, failAll(urls, apperrors.NewStorageError("failed to create download directory", err))
	}
	defer os.RemoveAll(downloadDir)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))
	defer cancelBrowser()

	tracker := newDownloadTracker()
	chromedp.ListenTarget(browserCtx, tracker.handle)

	setup := browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
		WithDownloadPath(downloadDir).
		WithEventsEnabled(true)
	if err := chromedp.Run(browserCtx, setup); err != nil {
		logger.ErrorContext(ctx, "Failed to start browser", slog.String("error", err.Error()))
		return nil, failAll(urls, apperrors.NewNetworkError("failed to start browser", err))
	}

	if sess.HasCredentials() && sess.LoginURL != "" {
		if err := f.login(browserCtx, sess); err != nil {
			logger.ErrorContext(ctx, "Login failed", slog.String("error", err.Error()))
			return nil, failAll(urls, apperrors.NewNetworkError("login failed", err))
		}
		logger.InfoContext(ctx, "Logged in", slog.String("login_url", sess.LoginURL))
	}

	var (
		sources []dataprocessing.SourceFile
		failed  []FetchError
	)
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			failed = append(failed, failAll(urls[i:], apperrors.NewCancelledError(err))...)
			break
		}

		start := time.Now()
		src, err := f.fetchOne(browserCtx, sess, tracker, downloadDir, u, i)
		if err != nil {
			logger.WarnContext(ctx, "Export retrieval failed",
				slog.String("url", u),
				slog.String("error", err.Error()))
			failed = append(failed, FetchError{URL: u, Err: err})
			continue
		}

		logger.InfoContext(ctx, "Export downloaded",
			slog.String("url", u),
			slog.String("file", src.Name),
			slog.Int("bytes", len(src.Content)),
			slog.Duration("duration", time.Since(start)))
		sources = append(sources, src)
	}

	logger.InfoContext(ctx, "Export retrieval finished",
		slog.Int("downloaded", len(sources)),
		slog.Int("failed", len(failed)))
	return sources, failed
}

func (f *Fetcher) fetchOne(ctx context.Context, sess *Session, tracker *downloadTracker, dir, target string, index int) (dataprocessing.SourceFile, error) {
	pageCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	if err := chromedp.Run(pageCtx, chromedp.Navigate(target)); err != nil {
		return dataprocessing.SourceFile{}, apperrors.NewNetworkError("navigation failed", err)
	}

	if sess.HasCredentials() && sess.LoginURL == "" {
		prompted, err := f.submitLoginIfPresent(pageCtx, sess)
		if err != nil {
			return dataprocessing.SourceFile{}, apperrors.NewNetworkError("login form submission failed", err)
		}
		if prompted {
			f.logger.Debug("Submitted login form on export page", slog.String("url", target))
		}
	}

	tracker.reset()
	var clicked bool
	err := chromedp.Run(pageCtx,
		chromedp.Sleep(settleDelay),
		chromedp.Evaluate(clickDownloadScript(downloadText, downloadSelectors), &clicked),
	)
	if err != nil {
		return dataprocessing.SourceFile{}, apperrors.NewNetworkError("failed to trigger download", err)
	}
	if !clicked {
		return dataprocessing.SourceFile{}, apperrors.NewNotFoundError("download control")
	}

	d, err := tracker.wait(ctx, f.cfg.DownloadWait)
	if err != nil {
		return dataprocessing.SourceFile{}, apperrors.NewNetworkError("download did not complete", err)
	}

	path := filepath.Join(dir, d.guid)
	content, err := os.ReadFile(path)
	if err != nil {
		return dataprocessing.SourceFile{}, apperrors.NewStorageError("failed to read downloaded file", err)
	}
	_ = os.Remove(path)

	return dataprocessing.SourceFile{Name: downloadName(d.name, index), Content: content}, nil
}

func (f *Fetcher) login(ctx context.Context, sess *Session) error {
	loginCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	if err := chromedp.Run(loginCtx, chromedp.Navigate(sess.LoginURL)); err != nil {
		return err
	}
	submitted, err := f.submitLoginIfPresent(loginCtx, sess)
	if err != nil {
		return err
	}
	if !submitted {
		return fmt.Errorf("no login form found at %s", sess.LoginURL)
	}
	return nil
}

// submitLoginIfPresent fills and submits the page's login form. It reports
// false when the page has no password field.
func (f *Fetcher) submitLoginIfPresent(ctx context.Context, sess *Session) (bool, error) {
	passwordSel, err := firstPresent(ctx, passwordSelectors)
	if err != nil || passwordSel == "" {
		return false, err
	}
	usernameSel, err := firstPresent(ctx, usernameSelectors)
	if err != nil {
		return false, err
	}
	if usernameSel == "" {
		return false, fmt.Errorf("login form has no username field")
	}
	submitSel, err := firstPresent(ctx, submitSelectors)
	if err != nil {
		return false, err
	}

	actions := chromedp.Tasks{
		chromedp.SetValue(usernameSel, sess.Username, chromedp.ByQuery),
		chromedp.SetValue(passwordSel, sess.Password, chromedp.ByQuery),
	}
	if submitSel != "" {
		actions = append(actions, chromedp.Click(submitSel, chromedp.ByQuery))
	} else {
		actions = append(actions, chromedp.Submit(passwordSel, chromedp.ByQuery))
	}
	actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))

	if err := chromedp.Run(ctx, actions); err != nil {
		return false, err
	}
	return true, nil
}

// firstPresent returns the first selector matching an element on the page,
// or "" when none does.
func firstPresent(ctx context.Context, selectors []string) (string, error) {
	var found string
	if err := chromedp.Run(ctx, chromedp.Evaluate(firstPresentScript(selectors), &found)); err != nil {
		return "", err
	}
	return found, nil
}

func firstPresentScript(selectors []string) string {
	return fmt.Sprintf(`(function(sels) {
	for (const s of sels) {
		if (document.querySelector(s)) { return s; }
	}
	return "";
})(%s)`, jsArray(selectors))
}

func clickDownloadScript(text string, selectors []string) string {
	label, _ := json.Marshal(text)
	return fmt.Sprintf(`(function(label, sels) {
	for (const el of document.querySelectorAll("a, button")) {
		if ((el.textContent || "").includes(label)) { el.click(); return true; }
	}
	for (const s of sels) {
		const el = document.querySelector(s);
		if (el) { el.click(); return true; }
	}
	return false;
})(%s, %s)`, label, jsArray(selectors))
}

func jsArray(values []string) string {
	out, _ := json.Marshal(values)
	return string(out)
}

func failAll(urls []string, err error) []FetchError {
	out := make([]FetchError, 0, len(urls))
	for _, u := range urls {
		out = append(out, FetchError{URL: u, Err: err})
	}
	return out
}
