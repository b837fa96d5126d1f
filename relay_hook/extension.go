package relayhook

import (
	"context"
	"time"

	"github.com/xraph/relay"
	"github.com/xraph/relay/event"

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

// transitionEvents maps a committed ledger action to its webhook type.
var transitionEvents = map[job.Action]string{
	job.ActionAccept:  EventJobAccepted,
	job.ActionDeliver: EventJobDelivered,
	job.ActionConfirm: EventJobCompleted,
	job.ActionCancel:  EventJobCancelled,
	job.ActionDispute: EventJobDisputed,
	job.ActionResolve: EventDisputeResolved,
}

// Extension bridges ledger lifecycle events to Relay for webhook
// delivery. Each lifecycle hook emits a typed event via [relay.Relay.Send].
// Events are tenanted by the job's client address, so a subscriber
// registered for a client receives the whole history of that client's jobs.
type Extension struct {
	relay    *relay.Relay
	enabled  map[string]bool        // nil = all enabled
	payloads map[string]PayloadFunc // custom payload builders
}

// New creates an Extension that emits ledger events through the provided
// Relay instance.
func New(r *relay.Relay, opts ...Option) *Extension {
	h := &Extension{relay: r}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name implements ext.Extension.
func (h *Extension) Name() string { return "relay-hook" }

// ── Job lifecycle hooks ─────────────────────────────

// OnJobCreated implements ext.JobCreated.
func (h *Extension) OnJobCreated(ctx context.Context, j *job.Job) error {
	return h.send(ctx, EventJobCreated, tenant(j.Client), &jobCreatedPayload{
		jobPayload:  *newJobPayload(j),
		Title:       j.Title,
		Amount:      j.Amount.String(),
		Deadline:    j.Deadline.Format(time.RFC3339),
		Description: j.Description,
	})
}

// OnJobTransitioned implements ext.JobTransitioned.
func (h *Extension) OnJobTransitioned(ctx context.Context, j *job.Job, action job.Action, from job.Status) error {
	eventType, ok := transitionEvents[action]
	if !ok {
		return nil
	}
	p := &jobTransitionPayload{
		jobPayload: *newJobPayload(j),
		Action:     string(action),
		From:       string(from),
	}
	switch action {
	case job.ActionDeliver:
		p.DeliverableRef = j.DeliverableRef
	case job.ActionDispute:
		p.RaisedBy = j.DisputeRaisedBy.String()
	case job.ActionResolve:
		p.Outcome = string(j.Resolution)
		p.ResolvedBy = j.ResolvedBy.String()
	}
	return h.send(ctx, eventType, tenant(j.Client), p)
}

// OnTransitionRejected implements ext.TransitionRejected.
func (h *Extension) OnTransitionRejected(ctx context.Context, jobID id.JobID, action job.Action, caller identity.Address, err error) error {
	return h.send(ctx, EventTransitionRejected, tenant(caller), &rejectedPayload{
		JobID:  jobID.String(),
		Action: string(action),
		Caller: caller.String(),
		Error:  err.Error(),
	})
}

// ── Ledger hooks ────────────────────────────────────

// OnFundsMoved implements ext.FundsMoved.
func (h *Extension) OnFundsMoved(ctx context.Context, t *escrow.Transfer) error {
	var eventType string
	owner := t.To
	switch t.Kind {
	case escrow.KindHold:
		eventType = EventFundsHeld
		owner = t.From
	case escrow.KindRelease:
		eventType = EventFundsReleased
	case escrow.KindRefund:
		eventType = EventFundsRefunded
	default:
		return nil
	}
	return h.send(ctx, eventType, tenant(owner), &transferPayload{
		TransferID: t.ID.String(),
		JobID:      t.JobID.String(),
		Kind:       string(t.Kind),
		From:       t.From.String(),
		To:         t.To.String(),
		Amount:     t.Amount.String(),
		At:         t.CreatedAt.Format(time.RFC3339),
	})
}

// ── Internal helpers ────────────────────────────────

// send emits an event through Relay if the event type is enabled.
func (h *Extension) send(ctx context.Context, eventType, tenantID string, defaultData any) error {
	if h.enabled != nil && !h.enabled[eventType] {
		return nil
	}

	data := defaultData
	if fn, ok := h.payloads[eventType]; ok {
		custom, err := fn(defaultData)
		if err != nil {
			return err
		}
		data = custom
	}

	return h.relay.Send(ctx, &event.Event{
		Type:     eventType,
		TenantID: tenantID,
		Data:     data,
	})
}

func tenant(a identity.Address) string {
	if a.IsZero() {
		return ""
	}
	return a.String()
}

// ── Default payload types ───────────────────────────

type jobPayload struct {
	JobID      string `json:"job_id"`
	Client     string `json:"client"`
	Freelancer string `json:"freelancer"`
	Status     string `json:"status"`
}

func newJobPayload(j *job.Job) *jobPayload {
	return &jobPayload{
		JobID:      j.ID.String(),
		Client:     j.Client.String(),
		Freelancer: j.Freelancer.String(),
		Status:     string(j.Status),
	}
}

type jobCreatedPayload struct {
	jobPayload
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
	Deadline    string `json:"deadline"`
}

type jobTransitionPayload struct {
	jobPayload
	Action         string `json:"action"`
	From           string `json:"from"`
	DeliverableRef string `json:"deliverable_ref,omitempty"`
	RaisedBy       string `json:"raised_by,omitempty"`
	Outcome        string `json:"outcome,omitempty"`
	ResolvedBy     string `json:"resolved_by,omitempty"`
}

type rejectedPayload struct {
	JobID  string `json:"job_id"`
	Action string `json:"action"`
	Caller string `json:"caller"`
	Error  string `json:"error"`
}

type transferPayload struct {
	TransferID string `json:"transfer_id"`
	JobID      string `json:"job_id"`
	Kind       string `json:"kind"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Amount     string `json:"amount"`
	At         string `json:"at"`
}
