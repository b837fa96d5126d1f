package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	trustwork "github.com/nexora-w/TrustWork"
)

// meterName is the instrumentation scope name for ledger metrics.
const meterName = "github.com/nexora-w/TrustWork"

// Metrics returns middleware that records per-operation metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - trustwork.ledger.duration (Float64Histogram): operation time in seconds,
//     with attributes: action, status ("ok", "rejected" or "error")
//   - trustwork.ledger.operations (Int64Counter): total operations,
//     with attributes: action, status
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"trustwork.ledger.duration",
		metric.WithDescription("Duration of ledger operations in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	operations, oErr := meter.Int64Counter(
		"trustwork.ledger.operations",
		metric.WithDescription("Total number of ledger operations"),
		metric.WithUnit("{operation}"),
	)
	_ = oErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, op Operation, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		switch {
		case err == nil:
		case trustwork.Rejected(err):
			status = "rejected"
		default:
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("action", string(op.Action)),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		operations.Add(ctx, 1, attrs)

		return err
	}
}
