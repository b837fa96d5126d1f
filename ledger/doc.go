// Package ledger implements the escrow job state machine.
//
// A [Ledger] owns no state of its own: it validates requests, checks the
// caller's role and the job's status against the transition table, and
// hands the resulting change to the store as one atomic update.
//
//	created ──accept──▶ accepted ──deliver──▶ delivered ──confirm──▶ completed
//	   │                   │                      │
//	 cancel             dispute                dispute
//	   ▼                   └──────▶ disputed ◀────┘
//	cancelled ◀──resolve(refund)──┘     └──resolve(release)──▶ completed
//
// Funds move on exactly four edges: create holds the amount, confirm and
// resolve(release) pay the freelancer, cancel and resolve(refund) repay the
// client. The held amount is zeroed by the payout, so a second payout on
// the same job is impossible regardless of interleaving.
//
// # Caller identity
//
// Every write reads the caller from the context, placed there by the
// transport's authentication layer:
//
//	ctx = identity.WithCaller(ctx, addr)
//	j, err := l.AcceptJob(ctx, jobID)
//
// # Check order
//
// For every transition: the job exists, then the caller's role
// ([access.RoleOf]) may perform the action, then the current status
// permits it, then the effect is applied. Any failure leaves the record
// and the ledger untouched.
//
// # Options
//
//   - [WithLogger]: structured logger for the middleware and hooks
//   - [WithClock]: time source for deadlines and timestamps
//   - [WithConfig] / [WithMinDeadline]: validation limits
//   - [WithExtension]: register a lifecycle extension
//   - [WithMiddleware]: add a middleware to the operation chain
//   - [WithTracerProvider] / [WithMeterProvider]: OpenTelemetry providers
//   - [WithMetricFactory]: go-utils factory for lifecycle counters
package ledger
