package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadTracker_Completed(t *testing.T) {
	tracker := newDownloadTracker()

	tracker.handle(&browser.EventDownloadWillBegin{GUID: "g1", SuggestedFilename: "pre_survey.csv"})
	tracker.handle(&browser.EventDownloadProgress{GUID: "g1", State: browser.DownloadProgressStateInProgress})
	tracker.handle(&browser.EventDownloadProgress{GUID: "g1", State: browser.DownloadProgressStateCompleted})

	d, err := tracker.wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "g1", d.guid)
	assert.Equal(t, "pre_survey.csv", d.name)
}

func TestDownloadTracker_Canceled(t *testing.T) {
	tracker := newDownloadTracker()

	tracker.handle(&browser.EventDownloadWillBegin{GUID: "g2", SuggestedFilename: "post.csv"})
	tracker.handle(&browser.EventDownloadProgress{GUID: "g2", State: browser.DownloadProgressStateCanceled})

	_, err := tracker.wait(context.Background(), time.Second)
	assert.ErrorIs(t, err, errDownloadCanceled)
}

func TestDownloadTracker_ResetDropsStale(t *testing.T) {
	tracker := newDownloadTracker()
	tracker.handle(&browser.EventDownloadProgress{GUID: "old", State: browser.DownloadProgressStateCompleted})

	tracker.reset()

	_, err := tracker.wait(context.Background(), 20*time.Millisecond)
	assert.ErrorContains(t, err, "no download completed")
}

func TestDownloadTracker_ContextCancelled(t *testing.T) {
	tracker := newDownloadTracker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tracker.wait(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownloadTracker_IgnoresOtherEvents(t *testing.T) {
	tracker := newDownloadTracker()
	tracker.handle("not an event")
	tracker.handle(&browser.EventDownloadWillBegin{GUID: "g3", SuggestedFilename: "x.csv"})

	assert.Len(t, tracker.done, 0)
}

func TestDownloadName(t *testing.T) {
	tests := []struct {
		suggested string
		index     int
		want      string
	}{
		{"pre_survey_1.csv", 0, "pre_survey_1.csv"},
		{"  results.xlsx ", 3, "results.xlsx"},
		{"", 0, "survey_data_1.csv"},
		{"", 4, "survey_data_5.csv"},
		{"../../etc/passwd", 0, "passwd"},
		{`C:\exports\post.csv`, 0, "post.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, downloadName(tt.suggested, tt.index))
		})
	}
}
