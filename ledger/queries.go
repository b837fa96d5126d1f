package ledger

import (
	"context"
	"fmt"

	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// GetJob returns the current record of a job. Reads need no caller
// identity; every job is public to its audience.
func (l *Ledger) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	j, err := l.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return j, nil
}

// ListJobs returns jobs matching opts ordered by id.
func (l *Ledger) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	jobs, err := l.store.ListJobs(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// CountJobs returns the number of jobs matching opts.
func (l *Ledger) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	n, err := l.store.CountJobs(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

// Summary counts a participant's jobs per side and status.
type Summary struct {
	AsClient     map[job.Status]int64 `json:"as_client"`
	AsFreelancer map[job.Status]int64 `json:"as_freelancer"`
}

// Summarize counts addr's jobs on each side, per status.
func (l *Ledger) Summarize(ctx context.Context, addr identity.Address) (*Summary, error) {
	s := &Summary{
		AsClient:     make(map[job.Status]int64),
		AsFreelancer: make(map[job.Status]int64),
	}
	for _, side := range []job.Side{job.SideClient, job.SideFreelancer} {
		dst := s.AsClient
		if side == job.SideFreelancer {
			dst = s.AsFreelancer
		}
		for _, st := range job.Statuses() {
			n, err := l.CountJobs(ctx, job.CountOpts{Status: st, Participant: addr, As: side})
			if err != nil {
				return nil, err
			}
			if n > 0 {
				dst[st] = n
			}
		}
	}
	return s, nil
}

// Transfers returns the ledger entries of a job, oldest first.
func (l *Ledger) Transfers(ctx context.Context, jobID id.JobID) ([]*escrow.Transfer, error) {
	ts, err := l.store.ListTransfers(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list transfers of job %s: %w", jobID, err)
	}
	return ts, nil
}

// Balance returns the total paid out of custody to addr.
func (l *Ledger) Balance(ctx context.Context, addr identity.Address) (escrow.Amount, error) {
	b, err := l.store.Balance(ctx, addr)
	if err != nil {
		return escrow.Amount{}, fmt.Errorf("balance of %s: %w", addr, err)
	}
	return b, nil
}

// Held returns the amount currently in custody for a job.
func (l *Ledger) Held(ctx context.Context, jobID id.JobID) (escrow.Amount, error) {
	j, err := l.GetJob(ctx, jobID)
	if err != nil {
		return escrow.Amount{}, err
	}
	return j.Escrow.Held, nil
}
