package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/job"
)

// CreateJob inserts j and its hold entry in one transaction. The id comes
// from the table sequence.
func (s *Store) CreateJob(ctx context.Context, j *job.Job, hold *escrow.Transfer) error {
	r := toJobRow(j)
	var newID int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO trustwork_jobs (
				client, freelancer, title, description, amount, deadline, status,
				escrow_funded, escrow_held, version, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5::numeric, $6, $7,
				$8::numeric, $9::numeric, 1, $10, $11
			)
			RETURNING id`,
			r.Client, r.Freelancer, r.Title, r.Description, r.Amount, r.Deadline, r.Status,
			r.EscrowFunded, r.EscrowHeld, r.CreatedAt, r.UpdatedAt,
		).Scan(&newID); err != nil {
			return err
		}
		if hold == nil {
			return nil
		}
		hold.JobID = id.JobID(newID)
		return insertTransfer(ctx, tx, hold)
	})
	if err != nil {
		return fmt.Errorf("trustwork/postgres: create job: %w", err)
	}
	j.ID = id.JobID(newID)
	j.Version = 1
	return nil
}

// GetJob retrieves a job by id.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	var r jobRow
	err := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM trustwork_jobs WHERE id = $1`,
		int64(jobID),
	).Scan(r.dest()...)
	if err != nil {
		if isNoRows(err) {
			return nil, trustwork.ErrJobNotFound
		}
		return nil, fmt.Errorf("trustwork/postgres: get job: %w", err)
	}
	return fromJobRow(&r)
}

// UpdateJob locks the job row, applies fn and writes the new record with
// its transfer before the lock is released.
func (s *Store) UpdateJob(ctx context.Context, jobID id.JobID, fn job.Mutator) (*job.Job, error) {
	var next *job.Job
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var r jobRow
		err := tx.QueryRow(ctx,
			`SELECT `+jobColumns+` FROM trustwork_jobs WHERE id = $1 FOR UPDATE`,
			int64(jobID),
		).Scan(r.dest()...)
		if err != nil {
			if isNoRows(err) {
				return trustwork.ErrJobNotFound
			}
			return fmt.Errorf("trustwork/postgres: lock job: %w", err)
		}
		cur, err := fromJobRow(&r)
		if err != nil {
			return fmt.Errorf("trustwork/postgres: decode job: %w", err)
		}

		n, t, err := job.Apply(cur, fn, time.Now().UTC())
		if err != nil {
			return err
		}

		w := toJobRow(n)
		if _, err := tx.Exec(ctx, `
			UPDATE trustwork_jobs SET
				status = $2, deliverable_ref = $3, dispute_raised_by = $4,
				resolution = $5, resolved_by = $6, escrow_held = $7::numeric,
				settlement = $8, settled_to = $9, version = $10,
				delivered_at = $11, settled_at = $12, updated_at = $13
			WHERE id = $1`,
			w.ID, w.Status, w.DeliverableRef, w.DisputeRaisedBy,
			w.Resolution, w.ResolvedBy, w.EscrowHeld,
			w.Settlement, w.SettledTo, w.Version,
			w.DeliveredAt, w.SettledAt, w.UpdatedAt,
		); err != nil {
			return fmt.Errorf("trustwork/postgres: update job: %w", err)
		}
		if t != nil {
			if err := insertTransfer(ctx, tx, t); err != nil {
				return fmt.Errorf("trustwork/postgres: insert transfer: %w", err)
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
	var f filter
	if opts.Status != "" {
		f.add("status = ?", string(opts.Status))
	}
	if !opts.DeadlineBefore.IsZero() {
		f.add("deadline < ?", opts.DeadlineBefore)
	}
	if opts.AfterID > 0 {
		f.add("id > ?", int64(opts.AfterID))
	}
	f.participant(opts.Participant, opts.As)

	query := `SELECT ` + jobColumns + ` FROM trustwork_jobs` + f.where() + ` ORDER BY id ASC`
	args := f.args
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("trustwork/postgres: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		var r jobRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, fmt.Errorf("trustwork/postgres: scan job: %w", err)
		}
		j, err := fromJobRow(&r)
		if err != nil {
			return nil, fmt.Errorf("trustwork/postgres: decode job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trustwork/postgres: list jobs: %w", err)
	}
	return jobs, nil
}

// CountJobs returns the number of jobs matching opts.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	var f filter
	if opts.Status != "" {
		f.add("status = ?", string(opts.Status))
	}
	f.participant(opts.Participant, opts.As)

	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trustwork_jobs`+f.where(), f.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("trustwork/postgres: count jobs: %w", err)
	}
	return count, nil
}
