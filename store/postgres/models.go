package postgres

import (
	"fmt"
	"time"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// jobColumns is the select list matching jobRow.dest. Numerics are read as
// text so values above int64 survive the round trip.
const jobColumns = `id, client, freelancer, title, description, amount::text,
	deadline, status, deliverable_ref, dispute_raised_by, resolution,
	resolved_by, escrow_funded::text, escrow_held::text, settlement,
	settled_to, version, delivered_at, settled_at, created_at, updated_at`

// ── Job row ───────────────────────────────────────────────────────

type jobRow struct {
	ID              int64
	Client          string
	Freelancer      string
	Title           string
	Description     string
	Amount          string
	Deadline        time.Time
	Status          string
	DeliverableRef  string
	DisputeRaisedBy string
	Resolution      string
	ResolvedBy      string
	EscrowFunded    string
	EscrowHeld      string
	Settlement      string
	SettledTo       string
	Version         int64
	DeliveredAt     *time.Time
	SettledAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r *jobRow) dest() []any {
	return []any{
		&r.ID, &r.Client, &r.Freelancer, &r.Title, &r.Description, &r.Amount,
		&r.Deadline, &r.Status, &r.DeliverableRef, &r.DisputeRaisedBy, &r.Resolution,
		&r.ResolvedBy, &r.EscrowFunded, &r.EscrowHeld, &r.Settlement,
		&r.SettledTo, &r.Version, &r.DeliveredAt, &r.SettledAt, &r.CreatedAt, &r.UpdatedAt,
	}
}

func toJobRow(j *job.Job) *jobRow {
	return &jobRow{
		ID:              int64(j.ID),
		Client:          j.Client.String(),
		Freelancer:      j.Freelancer.String(),
		Title:           j.Title,
		Description:     j.Description,
		Amount:          j.Amount.String(),
		Deadline:        j.Deadline,
		Status:          string(j.Status),
		DeliverableRef:  j.DeliverableRef,
		DisputeRaisedBy: j.DisputeRaisedBy.String(),
		Resolution:      string(j.Resolution),
		ResolvedBy:      j.ResolvedBy.String(),
		EscrowFunded:    j.Escrow.Funded.String(),
		EscrowHeld:      j.Escrow.Held.String(),
		Settlement:      string(j.Escrow.Settlement),
		SettledTo:       j.Escrow.SettledTo.String(),
		Version:         j.Version,
		DeliveredAt:     j.DeliveredAt,
		SettledAt:       j.SettledAt,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
}

func fromJobRow(r *jobRow) (*job.Job, error) {
	amount, err := escrow.ParseAmount(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("job %d amount: %w", r.ID, err)
	}
	funded, err := escrow.ParseAmount(r.EscrowFunded)
	if err != nil {
		return nil, fmt.Errorf("job %d escrow funded: %w", r.ID, err)
	}
	var held escrow.Amount
	if r.EscrowHeld != "0" {
		if held, err = escrow.ParseAmount(r.EscrowHeld); err != nil {
			return nil, fmt.Errorf("job %d escrow held: %w", r.ID, err)
		}
	}
	return &job.Job{
		Entity: trustwork.Entity{
			CreatedAt: r.CreatedAt.UTC(),
			UpdatedAt: r.UpdatedAt.UTC(),
		},
		ID:              id.JobID(r.ID),
		Client:          identity.Address(r.Client),
		Freelancer:      identity.Address(r.Freelancer),
		Title:           r.Title,
		Description:     r.Description,
		Amount:          amount,
		Deadline:        r.Deadline.UTC(),
		Status:          job.Status(r.Status),
		DeliverableRef:  r.DeliverableRef,
		DisputeRaisedBy: identity.Address(r.DisputeRaisedBy),
		Resolution:      escrow.Outcome(r.Resolution),
		ResolvedBy:      identity.Address(r.ResolvedBy),
		Escrow: escrow.Holding{
			Client:     identity.Address(r.Client),
			Funded:     funded,
			Held:       held,
			Settlement: escrow.Kind(r.Settlement),
			SettledTo:  identity.Address(r.SettledTo),
		},
		Version:     r.Version,
		DeliveredAt: utcPtr(r.DeliveredAt),
		SettledAt:   utcPtr(r.SettledAt),
	}, nil
}

// ── Transfer row ──────────────────────────────────────────────────

const transferColumns = `id, job_id, kind, from_addr, to_addr, amount::text, created_at`

type transferRow struct {
	ID        string
	JobID     int64
	Kind      string
	From      string
	To        string
	Amount    string
	CreatedAt time.Time
}

func (r *transferRow) dest() []any {
	return []any{&r.ID, &r.JobID, &r.Kind, &r.From, &r.To, &r.Amount, &r.CreatedAt}
}

func fromTransferRow(r *transferRow) (*escrow.Transfer, error) {
	tid, err := id.ParseTransferID(r.ID)
	if err != nil {
		return nil, fmt.Errorf("transfer %s id: %w", r.ID, err)
	}
	amount, err := escrow.ParseAmount(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("transfer %s amount: %w", r.ID, err)
	}
	return &escrow.Transfer{
		ID:        tid,
		JobID:     id.JobID(r.JobID),
		Kind:      escrow.Kind(r.Kind),
		From:      identity.Address(r.From),
		To:        identity.Address(r.To),
		Amount:    amount,
		CreatedAt: r.CreatedAt.UTC(),
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
