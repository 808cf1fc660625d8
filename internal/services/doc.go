// Package services implements the survey report engine and the services
// around it.
//
// # Report runs
//
// ReportService.Run takes the input files, an optional teacher
// configuration, an output directory and the date field, and produces one
// report workbook:
//
//	svc := services.NewReportService(cfg.Report, logger, nil, metrics)
//	result, err := svc.Run(ctx, services.RunRequest{
//	    Files:         sources,
//	    TeacherConfig: teachers, // nil when absent
//	    OutputDir:     paths.ReportsDir,
//	})
//
// Files are processed sequentially in the order given. A file is either
// accepted whole or skipped (SCHEMA or PARSING), and rows with unparsable
// dates are skipped individually. Both are reported in the RunResult.
// Run returns an error only for fatal conditions: CONFIG, NO_VALID_INPUT,
// WRITE and CANCELLED.
//
// Cancellation is observed between files. A cancelled run that accepted at
// least one file still writes a workbook, named with a _partial suffix and
// marked as partial.
//
// # Concurrency
//
// ReportService holds no per-run state. RunGate wraps a runner so that only
// one run executes at a time; the HTTP layer uses it to answer 409 while a
// run is in flight.
//
// # Health
//
// HealthService reports liveness, readiness (reports directory writable,
// teacher configuration present) and version information.
package services
