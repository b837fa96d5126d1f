package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace. A panic
// inside a store mutator aborts before commit, so nothing is written.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, op Operation, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("ledger operation panicked",
					slog.String("action", string(op.Action)),
					slog.String("job_id", op.JobID.String()),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in %s of job %s: %v", op.Action, op.JobID, r)
			}
		}()
		return next(ctx)
	}
}
