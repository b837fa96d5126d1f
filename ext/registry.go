package ext

import (
	"context"
	"log/slog"

	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type jobCreatedEntry struct {
	name string
	hook JobCreated
}

type jobTransitionedEntry struct {
	name string
	hook JobTransitioned
}

type transitionRejectedEntry struct {
	name string
	hook TransitionRejected
}

type fundsMovedEntry struct {
	name string
	hook FundsMoved
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	jobCreated         []jobCreatedEntry
	jobTransitioned    []jobTransitionedEntry
	transitionRejected []transitionRejectedEntry
	fundsMoved         []fundsMovedEntry
	shutdown           []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(JobCreated); ok {
		r.jobCreated = append(r.jobCreated, jobCreatedEntry{name, h})
	}
	if h, ok := e.(JobTransitioned); ok {
		r.jobTransitioned = append(r.jobTransitioned, jobTransitionedEntry{name, h})
	}
	if h, ok := e.(TransitionRejected); ok {
		r.transitionRejected = append(r.transitionRejected, transitionRejectedEntry{name, h})
	}
	if h, ok := e.(FundsMoved); ok {
		r.fundsMoved = append(r.fundsMoved, fundsMovedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Job event emitters
// ──────────────────────────────────────────────────

// EmitJobCreated notifies all extensions that implement JobCreated.
func (r *Registry) EmitJobCreated(ctx context.Context, j *job.Job) {
	for _, e := range r.jobCreated {
		if err := e.hook.OnJobCreated(ctx, j); err != nil {
			r.logHookError("OnJobCreated", e.name, err)
		}
	}
}

// EmitJobTransitioned notifies all extensions that implement JobTransitioned.
func (r *Registry) EmitJobTransitioned(ctx context.Context, j *job.Job, action job.Action, from job.Status) {
	for _, e := range r.jobTransitioned {
		if err := e.hook.OnJobTransitioned(ctx, j, action, from); err != nil {
			r.logHookError("OnJobTransitioned", e.name, err)
		}
	}
}

// EmitTransitionRejected notifies all extensions that implement TransitionRejected.
func (r *Registry) EmitTransitionRejected(ctx context.Context, jobID id.JobID, action job.Action, caller identity.Address, rejectErr error) {
	for _, e := range r.transitionRejected {
		if err := e.hook.OnTransitionRejected(ctx, jobID, action, caller, rejectErr); err != nil {
			r.logHookError("OnTransitionRejected", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Ledger event emitters
// ──────────────────────────────────────────────────

// EmitFundsMoved notifies all extensions that implement FundsMoved.
func (r *Registry) EmitFundsMoved(ctx context.Context, t *escrow.Transfer) {
	for _, e := range r.fundsMoved {
		if err := e.hook.OnFundsMoved(ctx, t); err != nil {
			r.logHookError("OnFundsMoved", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated: a committed transition stays
// committed whatever its observers do.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
