// Package middleware holds the HTTP middleware chain of the report server:
// request ids, structured request logging, panic recovery, rate limiting,
// body limits, OpenTelemetry instrumentation and request validation.
package middleware
