// Package app wires the report server: services, middleware, handlers and
// the HTTP server lifecycle.
//
// NewApplication resolves paths next to the executable, creates the data
// directories and initializes OpenTelemetry before calling New, which does
// the wiring alone and is what tests use.
//
// Middleware order on every request:
//
//	RequestID → RealIP → OTel → StructuredLogger → Recoverer → SecurityHeaders → RateLimiter
//
// Uploads under /api/reports are additionally capped by BodyLimit.
//
// # Usage
//
//	a, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
package app
