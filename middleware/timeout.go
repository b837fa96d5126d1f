package middleware

import (
	"context"
	"time"
)

// Timeout returns middleware that bounds each operation by d. The store
// observes the deadline through its context; a zero d disables the bound.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, _ Operation, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx)
	}
}
