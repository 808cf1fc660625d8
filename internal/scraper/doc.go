// Package scraper retrieves survey exports from the survey platform by
// driving a Chrome instance with chromedp.
//
// A Fetcher navigates to each export URL, optionally logs in, clicks the
// page's download control and waits for the browser to report the download
// as complete. Downloads land in a temporary directory and are returned as
// dataprocessing.SourceFile values ready for a report run.
package scraper
