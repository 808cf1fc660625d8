// Package shared holds code used across layers that belongs to no single
// domain package.
//
// The testutil subpackage provides:
//
//	- BufferedSlogHandler and NewTestLogger for asserting on structured logs
//	- SurveyCSV and TeachersCSV for building export and configuration fixtures
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    content := testutil.NewSurveyCSV("Q1").Row("100abc", "2024-01-01", "yes").Bytes()
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelWarn, "Skipping file")
//	}
package shared
