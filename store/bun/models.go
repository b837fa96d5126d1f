package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// ── Job model ─────────────────────────────────────────────────────

type jobModel struct {
	bun.BaseModel `bun:"table:trustwork_jobs"`

	ID              int64            `bun:"id,pk,autoincrement"`
	Client          identity.Address `bun:"client,notnull"`
	Freelancer      identity.Address `bun:"freelancer,notnull"`
	Title           string           `bun:"title,notnull"`
	Description     string           `bun:"description,notnull"`
	Amount          escrow.Amount    `bun:"amount,notnull,type:numeric(78,0)"`
	Deadline        time.Time        `bun:"deadline,notnull"`
	Status          job.Status       `bun:"status,notnull"`
	DeliverableRef  string           `bun:"deliverable_ref,notnull"`
	DisputeRaisedBy identity.Address `bun:"dispute_raised_by,notnull"`
	Resolution      escrow.Outcome   `bun:"resolution,notnull"`
	ResolvedBy      identity.Address `bun:"resolved_by,notnull"`
	EscrowFunded    escrow.Amount    `bun:"escrow_funded,notnull,type:numeric(78,0)"`
	EscrowHeld      escrow.Amount    `bun:"escrow_held,notnull,type:numeric(78,0)"`
	Settlement      escrow.Kind      `bun:"settlement,notnull"`
	SettledTo       identity.Address `bun:"settled_to,notnull"`
	Version         int64            `bun:"version,notnull"`
	DeliveredAt     *time.Time       `bun:"delivered_at"`
	SettledAt       *time.Time       `bun:"settled_at"`
	CreatedAt       time.Time        `bun:"created_at,notnull"`
	UpdatedAt       time.Time        `bun:"updated_at,notnull"`
}

func toJobModel(j *job.Job) *jobModel {
	return &jobModel{
		ID:              int64(j.ID),
		Client:          j.Client,
		Freelancer:      j.Freelancer,
		Title:           j.Title,
		Description:     j.Description,
		Amount:          j.Amount,
		Deadline:        j.Deadline,
		Status:          j.Status,
		DeliverableRef:  j.DeliverableRef,
		DisputeRaisedBy: j.DisputeRaisedBy,
		Resolution:      j.Resolution,
		ResolvedBy:      j.ResolvedBy,
		EscrowFunded:    j.Escrow.Funded,
		EscrowHeld:      j.Escrow.Held,
		Settlement:      j.Escrow.Settlement,
		SettledTo:       j.Escrow.SettledTo,
		Version:         j.Version,
		DeliveredAt:     j.DeliveredAt,
		SettledAt:       j.SettledAt,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
}

func fromJobModel(m *jobModel) *job.Job {
	return &job.Job{
		Entity: trustwork.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:              id.JobID(m.ID),
		Client:          m.Client,
		Freelancer:      m.Freelancer,
		Title:           m.Title,
		Description:     m.Description,
		Amount:          m.Amount,
		Deadline:        m.Deadline.UTC(),
		Status:          m.Status,
		DeliverableRef:  m.DeliverableRef,
		DisputeRaisedBy: m.DisputeRaisedBy,
		Resolution:      m.Resolution,
		ResolvedBy:      m.ResolvedBy,
		Escrow: escrow.Holding{
			Client:     m.Client,
			Funded:     m.EscrowFunded,
			Held:       m.EscrowHeld,
			Settlement: m.Settlement,
			SettledTo:  m.SettledTo,
		},
		Version:     m.Version,
		DeliveredAt: utcPtr(m.DeliveredAt),
		SettledAt:   utcPtr(m.SettledAt),
	}
}

// ── Transfer model ────────────────────────────────────────────────

type transferModel struct {
	bun.BaseModel `bun:"table:trustwork_transfers"`

	Seq       int64            `bun:"seq,pk,autoincrement"`
	ID        string           `bun:"id,notnull"`
	JobID     int64            `bun:"job_id,notnull"`
	Kind      escrow.Kind      `bun:"kind,notnull"`
	From      identity.Address `bun:"from_addr,notnull"`
	To        identity.Address `bun:"to_addr,notnull"`
	Amount    escrow.Amount    `bun:"amount,notnull,type:numeric(78,0)"`
	CreatedAt time.Time        `bun:"created_at,notnull"`
}

func toTransferModel(t *escrow.Transfer) *transferModel {
	return &transferModel{
		ID:        t.ID.String(),
		JobID:     int64(t.JobID),
		Kind:      t.Kind,
		From:      t.From,
		To:        t.To,
		Amount:    t.Amount,
		CreatedAt: t.CreatedAt,
	}
}

func fromTransferModel(m *transferModel) (*escrow.Transfer, error) {
	tid, err := id.ParseTransferID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse transfer id %q: %w", m.ID, err)
	}
	return &escrow.Transfer{
		ID:        tid,
		JobID:     id.JobID(m.JobID),
		Kind:      m.Kind,
		From:      m.From,
		To:        m.To,
		Amount:    m.Amount,
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
