package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/ext"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension          = (*Extension)(nil)
	_ ext.JobCreated         = (*Extension)(nil)
	_ ext.JobTransitioned    = (*Extension)(nil)
	_ ext.TransitionRejected = (*Extension)(nil)
	_ ext.FundsMoved         = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// Callers inject the concrete backend at wiring time so this package
// carries no dependency on it.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// Callers provide a RecorderFunc adapter that bridges to their audit backend.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Who did it
	Actor string `json:"actor,omitempty"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// LogRecorder writes audit events as structured log records. It is the
// default trail of the daemon when no external audit backend is wired.
func LogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, evt *AuditEvent) error {
		level := slog.LevelInfo
		switch evt.Severity {
		case SeverityWarning:
			level = slog.LevelWarn
		case SeverityCritical:
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "audit",
			slog.String("action", evt.Action),
			slog.String("resource", evt.Resource),
			slog.String("resource_id", evt.ResourceID),
			slog.String("actor", evt.Actor),
			slog.String("outcome", evt.Outcome),
			slog.Any("metadata", evt.Metadata),
		)
		return nil
	})
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges ledger lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobCreated implements ext.JobCreated.
func (e *Extension) OnJobCreated(ctx context.Context, j *job.Job) error {
	return e.record(ctx, ActionJobCreated, SeverityInfo, OutcomeSuccess,
		ResourceJob, j.ID.String(), CategoryJob, j.Client, nil,
		"freelancer", j.Freelancer.String(),
		"amount", j.Amount.String(),
		"deadline", j.Deadline.Format(time.RFC3339),
	)
}

// OnJobTransitioned implements ext.JobTransitioned.
func (e *Extension) OnJobTransitioned(ctx context.Context, j *job.Job, action job.Action, from job.Status) error {
	auditAction, ok := transitionActions[action]
	if !ok {
		return nil
	}

	category := CategoryJob
	actor := actorOf(j, action)
	kv := []any{"from", string(from), "to", string(j.Status)}
	switch action {
	case job.ActionDeliver:
		kv = append(kv, "deliverable_ref", j.DeliverableRef)
	case job.ActionDispute:
		kv = append(kv, "raised_by", j.DisputeRaisedBy.String())
	case job.ActionResolve:
		category = CategoryDispute
		kv = append(kv, "outcome", string(j.Resolution))
	}

	return e.record(ctx, auditAction, SeverityInfo, OutcomeSuccess,
		ResourceJob, j.ID.String(), category, actor, nil, kv...)
}

// OnTransitionRejected implements ext.TransitionRejected.
func (e *Extension) OnTransitionRejected(ctx context.Context, jobID id.JobID, action job.Action, caller identity.Address, err error) error {
	return e.record(ctx, ActionTransitionRejected, SeverityWarning, OutcomeFailure,
		ResourceJob, jobID.String(), CategoryJob, caller, err,
		"attempted", string(action),
	)
}

// ── Ledger hooks ────────────────────────────────────

// OnFundsMoved implements ext.FundsMoved.
func (e *Extension) OnFundsMoved(ctx context.Context, t *escrow.Transfer) error {
	var action string
	switch t.Kind {
	case escrow.KindHold:
		action = ActionFundsHeld
	case escrow.KindRelease:
		action = ActionFundsReleased
	case escrow.KindRefund:
		action = ActionFundsRefunded
	default:
		return nil
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceTransfer, t.ID.String(), CategoryEscrow, t.From, nil,
		"job_id", t.JobID.String(),
		"to", t.To.String(),
		"amount", t.Amount.String(),
	)
}

// ── Internal helpers ────────────────────────────────

// actorOf names who performed a committed action from the record alone.
func actorOf(j *job.Job, action job.Action) identity.Address {
	switch action {
	case job.ActionAccept, job.ActionDeliver:
		return j.Freelancer
	case job.ActionConfirm, job.ActionCancel:
		return j.Client
	case job.ActionDispute:
		return j.DisputeRaisedBy
	case job.ActionResolve:
		return j.ResolvedBy
	}
	return identity.Zero
}

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	actor identity.Address,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		Actor:      actor.String(),
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
