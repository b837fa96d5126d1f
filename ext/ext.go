// Package ext defines the extension system for the escrow ledger.
// Extensions are notified of lifecycle events (job created, transitioned,
// funds moved, etc.) and can react to them with logging or webhooks.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"

	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobCreated is called after a job and its hold are committed.
type JobCreated interface {
	OnJobCreated(ctx context.Context, j *job.Job) error
}

// JobTransitioned is called after a transition is committed. from is the
// status the job left.
type JobTransitioned interface {
	OnJobTransitioned(ctx context.Context, j *job.Job, action job.Action, from job.Status) error
}

// TransitionRejected is called when an operation fails a role, status or
// validation check. Nothing was written.
type TransitionRejected interface {
	OnTransitionRejected(ctx context.Context, jobID id.JobID, action job.Action, caller identity.Address, err error) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// FundsMoved is called once for every committed ledger entry.
type FundsMoved interface {
	OnFundsMoved(ctx context.Context, t *escrow.Transfer) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
