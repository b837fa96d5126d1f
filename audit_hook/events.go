package audithook

import "github.com/nexora-w/TrustWork/job"

// Audit event actions. Each constant becomes the Action field of the audit
// event emitted for the corresponding lifecycle change.
const (
	ActionJobCreated         = "job.created"
	ActionJobAccepted        = "job.accepted"
	ActionJobDelivered       = "job.delivered"
	ActionJobCompleted       = "job.completed"
	ActionJobCancelled       = "job.cancelled"
	ActionJobDisputed        = "job.disputed"
	ActionDisputeResolved    = "dispute.resolved"
	ActionTransitionRejected = "transition.rejected"
	ActionFundsHeld          = "funds.held"
	ActionFundsReleased      = "funds.released"
	ActionFundsRefunded      = "funds.refunded"
)

// Audit event categories group related actions.
const (
	CategoryJob     = "trustwork.job"
	CategoryDispute = "trustwork.dispute"
	CategoryEscrow  = "trustwork.escrow"
)

// Resource types used as the Resource field in audit events.
const (
	ResourceJob      = "job"
	ResourceTransfer = "transfer"
)

// transitionActions maps a committed ledger action to its audit action.
var transitionActions = map[job.Action]string{
	job.ActionAccept:  ActionJobAccepted,
	job.ActionDeliver: ActionJobDelivered,
	job.ActionConfirm: ActionJobCompleted,
	job.ActionCancel:  ActionJobCancelled,
	job.ActionDispute: ActionJobDisputed,
	job.ActionResolve: ActionDisputeResolved,
}

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionJobCreated,
		ActionJobAccepted,
		ActionJobDelivered,
		ActionJobCompleted,
		ActionJobCancelled,
		ActionJobDisputed,
		ActionDisputeResolved,
		ActionTransitionRejected,
		ActionFundsHeld,
		ActionFundsReleased,
		ActionFundsRefunded,
	}
}
