// Package http implements the HTTP handlers of the report server.
//
// Handlers stay thin: they parse and validate the request, call a service
// and render the response with chi/render. Errors are rendered as
// errors.ErrorResponse values, with engine errors mapped through
// errors.FromAppError.
//
// Routes mounted by the app package:
//
//	POST /api/reports          multipart upload: files (1..n), teachers, date_field
//	GET  /api/reports          list produced workbooks
//	GET  /api/reports/{name}   download a workbook
//	GET  /api/health           health, /ready and /live below it
//	GET  /api/version
//	GET  /metrics              Prometheus scrape endpoint
package http
