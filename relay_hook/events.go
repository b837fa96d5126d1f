package relayhook

import (
	"context"

	"github.com/xraph/relay"
	"github.com/xraph/relay/catalog"
)

// Ledger event types. Each constant maps to one ext lifecycle hook and is
// used as the event.Event.Type when sending via Relay.
const (
	EventJobCreated         = "trustwork.job.created"
	EventJobAccepted        = "trustwork.job.accepted"
	EventJobDelivered       = "trustwork.job.delivered"
	EventJobCompleted       = "trustwork.job.completed"
	EventJobCancelled       = "trustwork.job.cancelled"
	EventJobDisputed        = "trustwork.job.disputed"
	EventDisputeResolved    = "trustwork.dispute.resolved"
	EventTransitionRejected = "trustwork.job.rejected"
	EventFundsHeld          = "trustwork.escrow.held"
	EventFundsReleased      = "trustwork.escrow.released"
	EventFundsRefunded      = "trustwork.escrow.refunded"
)

// AllDefinitions returns webhook definitions for all ledger event types.
// Pass these to relay.RegisterEventType to populate the catalog.
func AllDefinitions() []catalog.WebhookDefinition {
	return []catalog.WebhookDefinition{
		// ── Job events ──────────────────────────────────
		{
			Name:        EventJobCreated,
			Description: "Fired when a client posts and funds a job.",
			Group:       "jobs",
			Version:     "2026-01-01",
		},
		{
			Name:        EventJobAccepted,
			Description: "Fired when the named freelancer accepts a job.",
			Group:       "jobs",
			Version:     "2026-01-01",
		},
		{
			Name:        EventJobDelivered,
			Description: "Fired when the freelancer submits a deliverable reference.",
			Group:       "jobs",
			Version:     "2026-01-01",
		},
		{
			Name:        EventJobCompleted,
			Description: "Fired when the client confirms delivery and the freelancer is paid.",
			Group:       "jobs",
			Version:     "2026-01-01",
		},
		{
			Name:        EventJobCancelled,
			Description: "Fired when the client cancels an unaccepted job and is refunded.",
			Group:       "jobs",
			Version:     "2026-01-01",
		},
		{
			Name:        EventJobDisputed,
			Description: "Fired when a party raises a dispute.",
			Group:       "jobs",
			Version:     "2026-01-01",
		},
		{
			Name:        EventTransitionRejected,
			Description: "Fired when a caller attempts a transition the job does not permit.",
			Group:       "jobs",
			Version:     "2026-01-01",
		},
		// ── Dispute events ──────────────────────────────
		{
			Name:        EventDisputeResolved,
			Description: "Fired when an arbitrator settles a disputed job.",
			Group:       "disputes",
			Version:     "2026-01-01",
		},
		// ── Escrow events ───────────────────────────────
		{
			Name:        EventFundsHeld,
			Description: "Fired when a job's amount enters custody.",
			Group:       "escrow",
			Version:     "2026-01-01",
		},
		{
			Name:        EventFundsReleased,
			Description: "Fired when custodied funds are paid to the freelancer.",
			Group:       "escrow",
			Version:     "2026-01-01",
		},
		{
			Name:        EventFundsRefunded,
			Description: "Fired when custodied funds are returned to the client.",
			Group:       "escrow",
			Version:     "2026-01-01",
		},
	}
}

// RegisterAll registers all ledger webhook event types in the Relay catalog.
// Call this once during application startup before sending events.
func RegisterAll(ctx context.Context, r *relay.Relay) error {
	for _, def := range AllDefinitions() {
		if _, err := r.RegisterEventType(ctx, def); err != nil {
			return err
		}
	}
	return nil
}
