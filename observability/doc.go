// Package observability provides a go-utils metrics extension for the
// escrow ledger. The MetricsExtension implements lifecycle hooks to record
// system-wide counters for job creation, landings in each status, rejected
// requests, and escrow holds, releases and refunds.
//
// For per-operation tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
