// Package stream provides a real-time event broker for ledger events.
// It bridges the ext.Extension system to connected clients via topic-based pub/sub.
package stream

import "time"

// EventType identifies the kind of ledger event.
type EventType string

const (
	// Job events.
	EventJobCreated         EventType = "job.created"
	EventJobAccepted        EventType = "job.accepted"
	EventJobDelivered       EventType = "job.delivered"
	EventJobCompleted       EventType = "job.completed"
	EventJobCancelled       EventType = "job.cancelled"
	EventJobDisputed        EventType = "job.disputed"
	EventJobResolved        EventType = "job.resolved"
	EventTransitionRejected EventType = "job.rejected"

	// Escrow events.
	EventFundsHeld     EventType = "escrow.held"
	EventFundsReleased EventType = "escrow.released"
	EventFundsRefunded EventType = "escrow.refunded"
)

// Event is the envelope sent to subscribers on a topic channel.
type Event struct {
	// Type identifies the ledger event.
	Type EventType `json:"type" msgpack:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts" msgpack:"ts"`

	// Topic is the entity channel this event was published on.
	Topic string `json:"topic" msgpack:"topic"`

	// Data is the event-specific payload.
	Data any `json:"data" msgpack:"data"`

	// parties are the addresses whose account topics also receive the event.
	parties []string
}

// JobEventData is the payload for job lifecycle events.
type JobEventData struct {
	JobID          string `json:"job_id" msgpack:"job_id"`
	Client         string `json:"client" msgpack:"client"`
	Freelancer     string `json:"freelancer" msgpack:"freelancer"`
	Status         string `json:"status" msgpack:"status"`
	From           string `json:"from,omitempty" msgpack:"from,omitempty"`
	Amount         string `json:"amount,omitempty" msgpack:"amount,omitempty"`
	DeliverableRef string `json:"deliverable_ref,omitempty" msgpack:"deliverable_ref,omitempty"`
	Outcome        string `json:"outcome,omitempty" msgpack:"outcome,omitempty"`
}

// RejectionEventData is the payload for rejected transition attempts.
type RejectionEventData struct {
	JobID  string `json:"job_id" msgpack:"job_id"`
	Action string `json:"action" msgpack:"action"`
	Caller string `json:"caller" msgpack:"caller"`
	Error  string `json:"error" msgpack:"error"`
}

// TransferEventData is the payload for escrow movements.
type TransferEventData struct {
	TransferID string `json:"transfer_id" msgpack:"transfer_id"`
	JobID      string `json:"job_id" msgpack:"job_id"`
	From       string `json:"from,omitempty" msgpack:"from,omitempty"`
	To         string `json:"to,omitempty" msgpack:"to,omitempty"`
	Amount     string `json:"amount" msgpack:"amount"`
}
