package mongo

import (
	"fmt"
	"time"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// ── Job model ─────────────────────────────────────────────────────

// jobModel is the stored document. Amounts are decimal strings so that
// values beyond 64 bits survive.
type jobModel struct {
	ID              int64           `bson:"_id"`
	Client          string          `bson:"client"`
	Freelancer      string          `bson:"freelancer"`
	Title           string          `bson:"title"`
	Description     string          `bson:"description"`
	Amount          string          `bson:"amount"`
	Deadline        time.Time       `bson:"deadline"`
	Status          string          `bson:"status"`
	DeliverableRef  string          `bson:"deliverable_ref,omitempty"`
	DisputeRaisedBy string          `bson:"dispute_raised_by,omitempty"`
	Resolution      string          `bson:"resolution,omitempty"`
	ResolvedBy      string          `bson:"resolved_by,omitempty"`
	EscrowFunded    string          `bson:"escrow_funded"`
	EscrowHeld      string          `bson:"escrow_held"`
	Settlement      string          `bson:"settlement,omitempty"`
	SettledTo       string          `bson:"settled_to,omitempty"`
	Version         int64           `bson:"version"`
	DeliveredAt     *time.Time      `bson:"delivered_at,omitempty"`
	SettledAt       *time.Time      `bson:"settled_at,omitempty"`
	CreatedAt       time.Time       `bson:"created_at"`
	UpdatedAt       time.Time       `bson:"updated_at"`
	Transfers       []transferModel `bson:"transfers,omitempty"`
}

type transferModel struct {
	ID        string    `bson:"id"`
	Kind      string    `bson:"kind"`
	From      string    `bson:"from,omitempty"`
	To        string    `bson:"to,omitempty"`
	Amount    string    `bson:"amount"`
	CreatedAt time.Time `bson:"created_at"`
}

func toJobModel(j *job.Job) *jobModel {
	return &jobModel{
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

func fromJobModel(m *jobModel) (*job.Job, error) {
	amount, err := escrow.ParseAmount(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("job %d amount: %w", m.ID, err)
	}
	funded, err := escrow.ParseAmount(m.EscrowFunded)
	if err != nil {
		return nil, fmt.Errorf("job %d escrow funded: %w", m.ID, err)
	}
	held, err := escrow.ParseAmount(m.EscrowHeld)
	if err != nil {
		return nil, fmt.Errorf("job %d escrow held: %w", m.ID, err)
	}
	return &job.Job{
		Entity: trustwork.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:              id.JobID(m.ID),
		Client:          identity.Address(m.Client),
		Freelancer:      identity.Address(m.Freelancer),
		Title:           m.Title,
		Description:     m.Description,
		Amount:          amount,
		Deadline:        m.Deadline.UTC(),
		Status:          job.Status(m.Status),
		DeliverableRef:  m.DeliverableRef,
		DisputeRaisedBy: identity.Address(m.DisputeRaisedBy),
		Resolution:      escrow.Outcome(m.Resolution),
		ResolvedBy:      identity.Address(m.ResolvedBy),
		Escrow: escrow.Holding{
			Client:     identity.Address(m.Client),
			Funded:     funded,
			Held:       held,
			Settlement: escrow.Kind(m.Settlement),
			SettledTo:  identity.Address(m.SettledTo),
		},
		Version:     m.Version,
		DeliveredAt: utcPtr(m.DeliveredAt),
		SettledAt:   utcPtr(m.SettledAt),
	}, nil
}

func toTransferModel(t *escrow.Transfer) transferModel {
	return transferModel{
		ID:        t.ID.String(),
		Kind:      string(t.Kind),
		From:      t.From.String(),
		To:        t.To.String(),
		Amount:    t.Amount.String(),
		CreatedAt: t.CreatedAt,
	}
}

func fromTransferModel(jobID int64, m *transferModel) (*escrow.Transfer, error) {
	tid, err := id.ParseTransferID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("transfer %s id: %w", m.ID, err)
	}
	amount, err := escrow.ParseAmount(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("transfer %s amount: %w", m.ID, err)
	}
	return &escrow.Transfer{
		ID:        tid,
		JobID:     id.JobID(jobID),
		Kind:      escrow.Kind(m.Kind),
		From:      identity.Address(m.From),
		To:        identity.Address(m.To),
		Amount:    amount,
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
