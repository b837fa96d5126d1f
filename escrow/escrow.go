package escrow

import (
	"context"
	"fmt"
	"time"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
)

// Kind classifies a movement of funds.
type Kind string

const (
	// KindHold moves funds from the client into custody.
	KindHold Kind = "hold"
	// KindRelease pays the custodied funds to the freelancer.
	KindRelease Kind = "release"
	// KindRefund returns the custodied funds to the client.
	KindRefund Kind = "refund"
)

// Outcome is an arbitrator's binding decision on a disputed job.
type Outcome string

const (
	// OutcomeRelease pays the freelancer and completes the job.
	OutcomeRelease Outcome = "release"
	// OutcomeRefund refunds the client and cancels the job.
	OutcomeRefund Outcome = "refund"
)

// ParseOutcome validates s as an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeRelease, OutcomeRefund:
		return o, nil
	default:
		return "", fmt.Errorf("%w: %q", trustwork.ErrInvalidOutcome, s)
	}
}

// Transfer is an immutable ledger entry. An empty From or To denotes
// escrow custody.
type Transfer struct {
	ID        id.TransferID    `json:"id"`
	JobID     id.JobID         `json:"job_id"`
	Kind      Kind             `json:"kind"`
	From      identity.Address `json:"from,omitempty"`
	To        identity.Address `json:"to,omitempty"`
	Amount    Amount           `json:"amount"`
	CreatedAt time.Time        `json:"created_at"`
}

// Credit reports whether the transfer pays an account out of custody.
func (t *Transfer) Credit() bool {
	return t.Kind == KindRelease || t.Kind == KindRefund
}

// Holding is the custody account of a single job. Held equals Funded
// until the job is settled, after which it is zero and Settlement names
// the one movement that emptied it.
type Holding struct {
	Client     identity.Address `json:"client"`
	Funded     Amount           `json:"funded"`
	Held       Amount           `json:"held"`
	Settlement Kind             `json:"settlement,omitempty"`
	SettledTo  identity.Address `json:"settled_to,omitempty"`
}

// Hold opens custody of amount on behalf of client. The returned transfer
// carries no job id; the store stamps it when the job is assigned one.
func Hold(client identity.Address, amount Amount, at time.Time) (Holding, *Transfer, error) {
	if !amount.IsPositive() {
		return Holding{}, nil, fmt.Errorf("%w: %s", trustwork.ErrInvalidAmount, amount)
	}
	h := Holding{Client: client, Funded: amount, Held: amount}
	t := &Transfer{
		ID:        id.NewTransferID(),
		Kind:      KindHold,
		From:      client,
		Amount:    amount,
		CreatedAt: at,
	}
	return h, t, nil
}

// Release pays the full held amount to to and zeroes the holding.
// A second call observes zero and fails with ErrNothingHeld.
func (h *Holding) Release(jobID id.JobID, to identity.Address, at time.Time) (*Transfer, error) {
	return h.settle(jobID, KindRelease, to, at)
}

// Refund returns the full held amount to the client and zeroes the
// holding. Same at-most-once contract as Release.
func (h *Holding) Refund(jobID id.JobID, at time.Time) (*Transfer, error) {
	return h.settle(jobID, KindRefund, h.Client, at)
}

func (h *Holding) settle(jobID id.JobID, kind Kind, to identity.Address, at time.Time) (*Transfer, error) {
	if !h.Held.IsPositive() {
		return nil, fmt.Errorf("%w: job %s", trustwork.ErrNothingHeld, jobID)
	}
	t := &Transfer{
		ID:        id.NewTransferID(),
		JobID:     jobID,
		Kind:      kind,
		To:        to,
		Amount:    h.Held,
		CreatedAt: at,
	}
	h.Held = Amount{}
	h.Settlement = kind
	h.SettledTo = to
	return t, nil
}

// Store defines read access to persisted ledger entries. Entries are
// written only by job.Store, atomically with the job record they belong to.
type Store interface {
	// ListTransfers returns every ledger entry of a job, oldest first.
	ListTransfers(ctx context.Context, jobID id.JobID) ([]*Transfer, error)

	// Balance returns the total paid out of custody to addr.
	Balance(ctx context.Context, addr identity.Address) (Amount, error)
}
