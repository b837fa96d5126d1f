package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/access"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
	mw "github.com/nexora-w/TrustWork/middleware"
)

// NewJob holds the client-supplied terms of a job. The client is the
// caller identity carried by the context.
type NewJob struct {
	Freelancer  identity.Address `json:"freelancer"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Amount      escrow.Amount    `json:"amount"`
	Deadline    time.Time        `json:"deadline"`
}

// CreateJob validates the terms, holds the amount in escrow and stores a
// new job in StatusCreated. Nothing is held when validation fails.
func (l *Ledger) CreateJob(ctx context.Context, in NewJob) (*job.Job, error) {
	caller, _ := identity.CallerFrom(ctx)
	op := mw.Operation{Action: job.ActionCreate, Caller: caller}

	var (
		created *job.Job
		hold    *escrow.Transfer
	)
	err := l.chain(ctx, op, func(ctx context.Context) error {
		client, err := identity.RequireCaller(ctx)
		if err != nil {
			return err
		}
		now := l.clock()
		freelancer, err := l.validate(client, in, now)
		if err != nil {
			return err
		}

		holding, t, err := escrow.Hold(client, in.Amount, now)
		if err != nil {
			return err
		}

		j := &job.Job{
			Entity:      trustwork.Entity{CreatedAt: now, UpdatedAt: now},
			Client:      client,
			Freelancer:  freelancer,
			Title:       strings.TrimSpace(in.Title),
			Description: strings.TrimSpace(in.Description),
			Amount:      in.Amount,
			Deadline:    in.Deadline.UTC(),
			Status:      job.StatusCreated,
			Escrow:      holding,
		}
		if err := l.store.CreateJob(ctx, j, t); err != nil {
			return fmt.Errorf("create job: %w", err)
		}
		created, hold = j, t
		return nil
	})
	if err != nil {
		l.reject(ctx, id.NoJob, job.ActionCreate, caller, err)
		return nil, err
	}

	l.extensions.EmitJobCreated(ctx, created)
	l.extensions.EmitFundsMoved(ctx, hold)
	return created.Clone(), nil
}

// validate checks the terms of a new job in a fixed order: required
// fields, amount, deadline, then self-dealing. It returns the canonical
// freelancer address.
func (l *Ledger) validate(client identity.Address, in NewJob, now time.Time) (identity.Address, error) {
	switch {
	case in.Freelancer.IsZero():
		return identity.Zero, fmt.Errorf("%w: freelancer", trustwork.ErrMissingField)
	case strings.TrimSpace(in.Title) == "":
		return identity.Zero, fmt.Errorf("%w: title", trustwork.ErrMissingField)
	case strings.TrimSpace(in.Description) == "":
		return identity.Zero, fmt.Errorf("%w: description", trustwork.ErrMissingField)
	case in.Deadline.IsZero():
		return identity.Zero, fmt.Errorf("%w: deadline", trustwork.ErrMissingField)
	}
	freelancer, err := identity.Parse(in.Freelancer.String())
	if err != nil {
		return identity.Zero, fmt.Errorf("freelancer: %w", err)
	}
	if limit := l.config.MaxTitleLength; limit > 0 && utf8.RuneCountInString(in.Title) > limit {
		return identity.Zero, fmt.Errorf("%w: title longer than %d characters", trustwork.ErrFieldTooLong, limit)
	}
	if limit := l.config.MaxDescriptionLength; limit > 0 && utf8.RuneCountInString(in.Description) > limit {
		return identity.Zero, fmt.Errorf("%w: description longer than %d characters", trustwork.ErrFieldTooLong, limit)
	}
	if !in.Amount.IsPositive() {
		return identity.Zero, fmt.Errorf("%w: %s", trustwork.ErrInvalidAmount, in.Amount)
	}
	if !in.Deadline.After(now.Add(l.config.MinDeadline)) {
		return identity.Zero, fmt.Errorf("%w: %s", trustwork.ErrInvalidDeadline, in.Deadline.UTC().Format(time.RFC3339))
	}
	if client == freelancer {
		return identity.Zero, fmt.Errorf("%w: %s", trustwork.ErrSelfDealing, client)
	}
	return freelancer, nil
}

// AcceptJob moves a created job to accepted. Only the designated
// freelancer may accept.
func (l *Ledger) AcceptJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return l.transition(ctx, jobID, job.ActionAccept, func(j *job.Job, _ identity.Address, _ time.Time) (*escrow.Transfer, error) {
		j.Status = job.StatusAccepted
		return nil, nil
	})
}

// DeliverWork records the deliverable reference and moves the job to
// delivered. The reference is opaque; its bytes live elsewhere.
func (l *Ledger) DeliverWork(ctx context.Context, jobID id.JobID, ref string) (*job.Job, error) {
	ref = strings.TrimSpace(ref)
	return l.transition(ctx, jobID, job.ActionDeliver, func(j *job.Job, _ identity.Address, now time.Time) (*escrow.Transfer, error) {
		if ref == "" {
			return nil, trustwork.ErrEmptyDeliverable
		}
		j.Status = job.StatusDelivered
		j.DeliverableRef = ref
		j.DeliveredAt = &now
		return nil, nil
	})
}

// ConfirmDelivery completes a delivered job and releases the held funds
// to the freelancer.
func (l *Ledger) ConfirmDelivery(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return l.transition(ctx, jobID, job.ActionConfirm, func(j *job.Job, _ identity.Address, now time.Time) (*escrow.Transfer, error) {
		t, err := j.Escrow.Release(j.ID, j.Freelancer, now)
		if err != nil {
			return nil, err
		}
		j.Status = job.StatusCompleted
		j.SettledAt = &now
		return t, nil
	})
}

// CancelJob cancels a job nobody has accepted yet and refunds the client.
func (l *Ledger) CancelJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return l.transition(ctx, jobID, job.ActionCancel, func(j *job.Job, _ identity.Address, now time.Time) (*escrow.Transfer, error) {
		t, err := j.Escrow.Refund(j.ID, now)
		if err != nil {
			return nil, err
		}
		j.Status = job.StatusCancelled
		j.SettledAt = &now
		return t, nil
	})
}

// RaiseDispute freezes an accepted or delivered job until an arbitrator
// resolves it. No funds move.
func (l *Ledger) RaiseDispute(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return l.transition(ctx, jobID, job.ActionDispute, func(j *job.Job, caller identity.Address, _ time.Time) (*escrow.Transfer, error) {
		j.Status = job.StatusDisputed
		j.DisputeRaisedBy = caller
		return nil, nil
	})
}

// ResolveDispute applies an arbitrator's binding outcome: release pays the
// freelancer and completes the job, refund repays the client and cancels
// it. The caller must be neither party. Callers that need an arbitrator
// policy go through dispute.Resolver.
func (l *Ledger) ResolveDispute(ctx context.Context, jobID id.JobID, outcome escrow.Outcome) (*job.Job, error) {
	return l.transition(ctx, jobID, job.ActionResolve, func(j *job.Job, caller identity.Address, now time.Time) (*escrow.Transfer, error) {
		var (
			t   *escrow.Transfer
			err error
		)
		switch outcome {
		case escrow.OutcomeRelease:
			t, err = j.Escrow.Release(j.ID, j.Freelancer, now)
			j.Status = job.StatusCompleted
		case escrow.OutcomeRefund:
			t, err = j.Escrow.Refund(j.ID, now)
			j.Status = job.StatusCancelled
		default:
			return nil, fmt.Errorf("%w: %q", trustwork.ErrInvalidOutcome, outcome)
		}
		if err != nil {
			return nil, err
		}
		j.Resolution = outcome
		j.ResolvedBy = caller
		j.SettledAt = &now
		return t, nil
	})
}

// effect applies the status change and escrow movement of one action to a
// private copy of the job. The checks in transition have already passed.
type effect func(j *job.Job, caller identity.Address, now time.Time) (*escrow.Transfer, error)

// transition runs one table-driven action. Checks happen inside the
// store's critical section in this order: the job exists, the caller's
// role may perform the action, the current status permits it. Only then
// is the effect applied. A failure at any step discards the copy.
func (l *Ledger) transition(ctx context.Context, jobID id.JobID, action job.Action, apply effect) (*job.Job, error) {
	caller, _ := identity.CallerFrom(ctx)
	op := mw.Operation{Action: action, JobID: jobID, Caller: caller}
	r := transitions[action]

	var (
		updated *job.Job
		moved   *escrow.Transfer
		from    job.Status
	)
	err := l.chain(ctx, op, func(ctx context.Context) error {
		caller, err := identity.RequireCaller(ctx)
		if err != nil {
			return err
		}
		now := l.clock()

		j, err := l.store.UpdateJob(ctx, jobID, func(j *job.Job) (*escrow.Transfer, error) {
			moved, from = nil, j.Status

			if role := access.RoleOf(j, caller); !r.actors.Allows(role) {
				return nil, fmt.Errorf("%w: %s may not %s job %s", trustwork.ErrUnauthorized, role, action, j.ID)
			}
			if !r.permits(j.Status) {
				return nil, fmt.Errorf("%w: cannot %s job %s in status %s", trustwork.ErrInvalidTransition, action, j.ID, j.Status)
			}

			t, err := apply(j, caller, now)
			if err != nil {
				return nil, err
			}
			if !r.reaches(j.Status) {
				return nil, fmt.Errorf("%w: %s led job %s to %s", trustwork.ErrInvalidTransition, action, j.ID, j.Status)
			}
			moved = t
			return t, nil
		})
		if err != nil {
			return fmt.Errorf("%s job %s: %w", action, jobID, err)
		}
		updated = j
		return nil
	})
	if err != nil {
		l.reject(ctx, jobID, action, caller, err)
		return nil, err
	}

	l.extensions.EmitJobTransitioned(ctx, updated, action, from)
	if moved != nil {
		l.extensions.EmitFundsMoved(ctx, moved)
	}
	return updated, nil
}

// reject notifies extensions of a refused request. Store faults are not
// rejections and are left to the logging middleware.
func (l *Ledger) reject(ctx context.Context, jobID id.JobID, action job.Action, caller identity.Address, err error) {
	if trustwork.Rejected(err) {
		l.extensions.EmitTransitionRejected(ctx, jobID, action, caller, err)
	}
}
