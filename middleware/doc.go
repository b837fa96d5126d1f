// Package middleware provides composable middleware for ledger operations.
//
// A [Middleware] is a function that wraps one ledger operation. Middleware
// are composed into a chain using [Chain] and applied around every create
// and transition. They are applied right-to-left: the first middleware in
// the slice is the outermost wrapper.
//
//	// logging → recover → operation
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging]: logs action, job, caller, duration and outcome
//   - [Recover]: catches panics and converts them to errors
//   - [Timeout]: bounds the operation context by a fixed duration
//   - [Tracing]: wraps each operation in an OpenTelemetry span
//   - [Metrics]: records per-action duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, op middleware.Operation, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., rate limiting).
package middleware
