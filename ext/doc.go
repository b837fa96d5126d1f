// Package ext defines the extension system for the escrow ledger.
//
// Extensions are notified of lifecycle events and can react to them by
// recording metrics, emitting webhooks or writing audit logs.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnFundsMoved(ctx context.Context, t *escrow.Transfer) error {
//	    log.Printf("%s %s for job %s", t.Kind, t.Amount, t.JobID)
//	    return nil
//	}
//
// # Job Lifecycle Hooks
//
//   - [JobCreated]: job was created and its funds are held
//   - [JobTransitioned]: a transition was committed
//   - [TransitionRejected]: an operation was refused; nothing changed
//
// # Ledger Hooks
//
//   - [FundsMoved]: a hold, release or refund was committed
//
// # Other Hooks
//
//   - [Shutdown]: the ledger is shutting down gracefully
//
// Hooks run synchronously after the store commit, in registration order.
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package ext
