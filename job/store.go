package job

import (
	"context"
	"errors"
	"time"

	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
)

// Side selects which party a participant filter matches.
type Side string

const (
	// SideAny matches jobs where the participant is either party.
	SideAny Side = ""
	// SideClient matches jobs the participant posted.
	SideClient Side = "client"
	// SideFreelancer matches jobs the participant works on.
	SideFreelancer Side = "freelancer"
)

// ListOpts controls pagination and filtering for job list queries.
type ListOpts struct {
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
	// Status filters by status. Empty means all statuses.
	Status Status
	// Participant filters by client or freelancer address.
	Participant identity.Address
	// As narrows Participant to one side of the job.
	As Side
	// DeadlineBefore keeps only jobs whose deadline is before this time.
	DeadlineBefore time.Time
	// AfterID keeps only jobs with a greater id. Paging by the last id
	// seen stays stable while earlier jobs leave the filter.
	AfterID id.JobID
}

// CountOpts controls filtering for job count queries.
type CountOpts struct {
	Status      Status
	Participant identity.Address
	As          Side
}

// Mutator applies one transition to a private copy of a job. A non-nil
// transfer is persisted atomically with the updated record. Returning an
// error discards the copy; nothing is written.
type Mutator func(j *Job) (*escrow.Transfer, error)

// Store defines the persistence contract for jobs.
type Store interface {
	// CreateJob assigns the next sequential id to j, persists it together
	// with its hold entry, and stamps both with the id.
	CreateJob(ctx context.Context, j *Job, hold *escrow.Transfer) error

	// GetJob retrieves a job by id. Unassigned ids yield ErrJobNotFound.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// UpdateJob runs fn against the current record under per-job mutual
	// exclusion and commits the result and its transfer together.
	// Concurrent readers observe either the old or the new record.
	UpdateJob(ctx context.Context, jobID id.JobID, fn Mutator) (*Job, error)

	// ListJobs returns jobs matching opts ordered by id.
	ListJobs(ctx context.Context, opts ListOpts) ([]*Job, error)

	// CountJobs returns the number of jobs matching opts.
	CountJobs(ctx context.Context, opts CountOpts) (int64, error)
}

// ErrImmutableField is returned by Apply when a mutator rewrites a field
// that is fixed at creation. It indicates a programming error.
var ErrImmutableField = errors.New("job: mutator changed an immutable field")

// Apply runs fn on a copy of current and returns the committed copy with
// its version bumped and timestamps refreshed. Backends call it inside
// their critical section so every store enforces the same write rules.
func Apply(current *Job, fn Mutator, now time.Time) (*Job, *escrow.Transfer, error) {
	next := current.Clone()
	t, err := fn(next)
	if err != nil {
		return nil, nil, err
	}
	if !sameImmutable(current, next) {
		return nil, nil, ErrImmutableField
	}
	next.Version = current.Version + 1
	next.UpdatedAt = now
	if t != nil {
		t.JobID = current.ID
	}
	return next, t, nil
}

func sameImmutable(a, b *Job) bool {
	if a.DeliverableRef != "" && a.DeliverableRef != b.DeliverableRef {
		return false
	}
	return a.ID == b.ID &&
		a.Client == b.Client &&
		a.Freelancer == b.Freelancer &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		a.Amount.Equal(b.Amount) &&
		a.Deadline.Equal(b.Deadline) &&
		a.CreatedAt.Equal(b.CreatedAt)
}

// Matches reports whether j satisfies the filter part of opts.
func (o ListOpts) Matches(j *Job) bool {
	if o.Status != "" && j.Status != o.Status {
		return false
	}
	if !o.DeadlineBefore.IsZero() && !j.Deadline.Before(o.DeadlineBefore) {
		return false
	}
	if j.ID <= o.AfterID {
		return false
	}
	return matchParticipant(j, o.Participant, o.As)
}

// Matches reports whether j satisfies the count filter.
func (o CountOpts) Matches(j *Job) bool {
	if o.Status != "" && j.Status != o.Status {
		return false
	}
	return matchParticipant(j, o.Participant, o.As)
}

func matchParticipant(j *Job, p identity.Address, as Side) bool {
	if p.IsZero() {
		return true
	}
	switch as {
	case SideClient:
		return j.Client.Equal(p)
	case SideFreelancer:
		return j.Freelancer.Equal(p)
	default:
		return j.Client.Equal(p) || j.Freelancer.Equal(p)
	}
}
