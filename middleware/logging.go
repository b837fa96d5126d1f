package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	trustwork "github.com/nexora-w/TrustWork"
)

// Logging returns middleware that logs the outcome of each operation.
// Rejections the caller can fix are logged at warn; ErrNothingHeld and
// unexpected failures at error.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, op Operation, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		attrs := []any{
			slog.String("action", string(op.Action)),
			slog.String("job_id", op.JobID.String()),
			slog.String("caller", op.Caller.String()),
			slog.Duration("elapsed", elapsed),
		}

		switch {
		case err == nil:
			logger.Info("ledger operation completed", attrs...)
		case errors.Is(err, trustwork.ErrNothingHeld):
			logger.Error("ledger consistency violation", append(attrs, slog.String("error", err.Error()))...)
		case trustwork.Rejected(err):
			logger.Warn("ledger operation rejected", append(attrs, slog.String("error", err.Error()))...)
		default:
			logger.Error("ledger operation failed", append(attrs, slog.String("error", err.Error()))...)
		}

		return err
	}
}
