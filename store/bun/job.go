package bunstore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/job"
)

// CreateJob inserts j and its hold entry in one transaction.
func (s *Store) CreateJob(ctx context.Context, j *job.Job, hold *escrow.Transfer) error {
	m := toJobModel(j)
	m.ID = 0
	m.Version = 1
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(m).Returning("id").Exec(ctx); err != nil {
			return err
		}
		if hold == nil {
			return nil
		}
		hold.JobID = id.JobID(m.ID)
		_, err := tx.NewInsert().Model(toTransferModel(hold)).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("trustwork/bun: create job: %w", err)
	}
	j.ID = id.JobID(m.ID)
	j.Version = 1
	return nil
}

// GetJob retrieves a job by id.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	m := new(jobModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", int64(jobID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, trustwork.ErrJobNotFound
		}
		return nil, fmt.Errorf("trustwork/bun: get job: %w", err)
	}
	return fromJobModel(m), nil
}

// UpdateJob locks the row, applies fn and writes the record with its
// transfer in the same transaction.
func (s *Store) UpdateJob(ctx context.Context, jobID id.JobID, fn job.Mutator) (*job.Job, error) {
	var next *job.Job
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		m := new(jobModel)
		err := tx.NewSelect().Model(m).
			Where("id = ?", int64(jobID)).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if isNoRows(err) {
				return trustwork.ErrJobNotFound
			}
			return fmt.Errorf("trustwork/bun: lock job: %w", err)
		}

		n, t, err := job.Apply(fromJobModel(m), fn, time.Now().UTC())
		if err != nil {
			return err
		}

		if _, err := tx.NewUpdate().Model(toJobModel(n)).
			Column("status", "deliverable_ref", "dispute_raised_by", "resolution",
				"resolved_by", "escrow_held", "settlement", "settled_to", "version",
				"delivered_at", "settled_at", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("trustwork/bun: update job: %w", err)
		}
		if t != nil {
			if _, err := tx.NewInsert().Model(toTransferModel(t)).Exec(ctx); err != nil {
				return fmt.Errorf("trustwork/bun: insert transfer: %w", err)
			}
		}
		next = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// ListJobs returns jobs matching opts ordered by id.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	var models []jobModel
	q := s.db.NewSelect().Model(&models)

	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if !opts.DeadlineBefore.IsZero() {
		q = q.Where("deadline < ?", opts.DeadlineBefore)
	}
	if opts.AfterID > 0 {
		q = q.Where("id > ?", int64(opts.AfterID))
	}
	q = whereParticipant(q, opts.Participant, opts.As)
	q = q.Order("id ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("trustwork/bun: list jobs: %w", err)
	}

	jobs := make([]*job.Job, len(models))
	for i := range models {
		jobs[i] = fromJobModel(&models[i])
	}
	return jobs, nil
}

// CountJobs returns the number of jobs matching opts.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	q := s.db.NewSelect().Model((*jobModel)(nil))
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	q = whereParticipant(q, opts.Participant, opts.As)

	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("trustwork/bun: count jobs: %w", err)
	}
	return int64(count), nil
}
