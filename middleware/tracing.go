package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for ledger tracing.
const tracerName = "github.com/nexora-w/TrustWork"

// Tracing returns middleware that wraps each operation in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is used
// and this middleware becomes a pass-through with zero overhead.
//
// Spans are named trustwork.ledger.<action> and carry trustwork.job.id,
// trustwork.action and trustwork.caller attributes.
// On error, the span status is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, op Operation, next Handler) error {
		ctx, span := tracer.Start(ctx, "trustwork.ledger."+string(op.Action),
			trace.WithAttributes(
				attribute.String("trustwork.job.id", op.JobID.String()),
				attribute.String("trustwork.action", string(op.Action)),
				attribute.String("trustwork.caller", op.Caller.String()),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
