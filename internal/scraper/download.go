package scraper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
)

var errDownloadCanceled = errors.New("download canceled by browser")

type download struct {
	guid string
	name string
	err  error
}

// downloadTracker turns CDP download events into completed downloads.
// handle runs on the chromedp event goroutine and must not block.
type downloadTracker struct {
	mu    sync.Mutex
	names map[string]string
	done  chan download
}

func newDownloadTracker() *downloadTracker {
	return &downloadTracker{
		names: make(map[string]string),
		done:  make(chan download, 8),
	}
}

func (t *downloadTracker) handle(ev any) {
	switch e := ev.(type) {
	case *browser.EventDownloadWillBegin:
		t.mu.Lock()
		t.names[e.GUID] = e.SuggestedFilename
		t.mu.Unlock()
	case *browser.EventDownloadProgress:
		switch e.State {
		case browser.DownloadProgressStateCompleted:
			t.finish(e.GUID, nil)
		case browser.DownloadProgressStateCanceled:
			t.finish(e.GUID, errDownloadCanceled)
		}
	}
}

func (t *downloadTracker) finish(guid string, err error) {
	t.mu.Lock()
	name := t.names[guid]
	delete(t.names, guid)
	t.mu.Unlock()

	select {
	case t.done <- download{guid: guid, name: name, err: err}:
	default:
	}
}

// reset drops downloads nobody waited for.
func (t *downloadTracker) reset() {
	for {
		select {
		case <-t.done:
		default:
			return
		}
	}
}

func (t *downloadTracker) wait(ctx context.Context, timeout time.Duration) (download, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d := <-t.done:
		return d, d.err
	case <-timer.C:
		return download{}, fmt.Errorf("no download completed within %s", timeout)
	case <-ctx.Done():
		return download{}, ctx.Err()
	}
}

// downloadName picks the stored file name: the browser's suggestion when it
// has one, survey_data_N.csv otherwise.
func downloadName(suggested string, index int) string {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(suggested), `\`, "/"))
	if name == "" || name == "." || name == "/" {
		return fmt.Sprintf("survey_data_%d.csv", index+1)
	}
	return name
}
