package job

import (
	"time"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	// StatusCreated means the job is funded and waiting for the freelancer.
	StatusCreated Status = "created"
	// StatusAccepted means the freelancer took the job.
	StatusAccepted Status = "accepted"
	// StatusDelivered means the freelancer submitted a deliverable.
	StatusDelivered Status = "delivered"
	// StatusCompleted means the freelancer was paid. Terminal.
	StatusCompleted Status = "completed"
	// StatusDisputed means a party raised a dispute awaiting arbitration.
	StatusDisputed Status = "disputed"
	// StatusCancelled means the client was refunded. Terminal.
	StatusCancelled Status = "cancelled"
)

// statusCodes keeps the numeric order of the on-chain status enum.
var statusCodes = []Status{
	StatusCreated,
	StatusAccepted,
	StatusDelivered,
	StatusCompleted,
	StatusDisputed,
	StatusCancelled,
}

// Statuses returns every status in code order.
func Statuses() []Status {
	out := make([]Status, len(statusCodes))
	copy(out, statusCodes)
	return out
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s.Code() >= 0 }

// Code returns the contract's numeric status code, or -1 if unknown.
func (s Status) Code() int {
	for i, st := range statusCodes {
		if st == s {
			return i
		}
	}
	return -1
}

// StatusFromCode maps a contract status code back to a Status.
func StatusFromCode(code int) (Status, bool) {
	if code < 0 || code >= len(statusCodes) {
		return "", false
	}
	return statusCodes[code], true
}

// Action names an operation that creates or transitions a job.
type Action string

const (
	ActionCreate  Action = "create"
	ActionAccept  Action = "accept"
	ActionDeliver Action = "deliver"
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
	ActionDispute Action = "dispute"
	ActionResolve Action = "resolve"
)

// Job is an escrowed agreement between a client and a freelancer.
type Job struct {
	trustwork.Entity

	ID              id.JobID         `json:"id"`
	Client          identity.Address `json:"client"`
	Freelancer      identity.Address `json:"freelancer"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Amount          escrow.Amount    `json:"amount"`
	Deadline        time.Time        `json:"deadline"`
	Status          Status           `json:"status"`
	DeliverableRef  string           `json:"deliverable_ref,omitempty"`
	DisputeRaisedBy identity.Address `json:"dispute_raised_by,omitempty"`
	Resolution      escrow.Outcome   `json:"resolution,omitempty"`
	ResolvedBy      identity.Address `json:"resolved_by,omitempty"`
	Escrow          escrow.Holding   `json:"escrow"`
	Version         int64            `json:"version"`
	DeliveredAt     *time.Time       `json:"delivered_at,omitempty"`
	SettledAt       *time.Time       `json:"settled_at,omitempty"`
}

// Clone returns a copy that can be mutated without affecting j.
func (j *Job) Clone() *Job {
	cp := *j
	if j.DeliveredAt != nil {
		t := *j.DeliveredAt
		cp.DeliveredAt = &t
	}
	if j.SettledAt != nil {
		t := *j.SettledAt
		cp.SettledAt = &t
	}
	return &cp
}

// PastDeadline reports whether the deadline has passed at now.
func (j *Job) PastDeadline(now time.Time) bool {
	return !j.Deadline.IsZero() && now.After(j.Deadline)
}
