// Package observability provides structured logging, Prometheus metrics,
// health checking, OpenTelemetry tracing, and graceful shutdown for the
// console service.
package observability
