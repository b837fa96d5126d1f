// Package memory provides a fully in-memory implementation of store.Store.
// It is safe for concurrent use and intended for unit tests and
// development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

var (
	_ job.Store    = (*Store)(nil)
	_ escrow.Store = (*Store)(nil)
)

// Store keeps jobs and ledger entries in maps. Updates to one job are
// serialized by a per-job mutex; the map lock is only held while a record
// pointer is read or swapped, so independent jobs never wait on each
// other's mutators.
type Store struct {
	mu sync.RWMutex

	seq       uint64
	jobs      map[id.JobID]*job.Job
	locks     map[id.JobID]*sync.Mutex
	transfers map[id.JobID][]*escrow.Transfer
	credits   map[string]escrow.Amount // key: lowercase address
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:      make(map[id.JobID]*job.Job),
		locks:     make(map[id.JobID]*sync.Mutex),
		transfers: make(map[id.JobID][]*escrow.Transfer),
		credits:   make(map[string]escrow.Amount),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// CreateJob assigns the next sequential id and stores the job with its
// hold entry.
func (m *Store) CreateJob(_ context.Context, j *job.Job, hold *escrow.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	j.ID = id.JobID(m.seq)
	j.Version = 1
	m.jobs[j.ID] = j.Clone()
	m.locks[j.ID] = &sync.Mutex{}
	if hold != nil {
		hold.JobID = j.ID
		cp := *hold
		m.transfers[j.ID] = append(m.transfers[j.ID], &cp)
	}
	return nil
}

// GetJob retrieves a job by id.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, trustwork.ErrJobNotFound
	}
	return j.Clone(), nil
}

// UpdateJob applies fn under the job's own mutex and swaps the record in
// a single map write.
func (m *Store) UpdateJob(_ context.Context, jobID id.JobID, fn job.Mutator) (*job.Job, error) {
	m.mu.RLock()
	lk, ok := m.locks[jobID]
	m.mu.RUnlock()
	if !ok {
		return nil, trustwork.ErrJobNotFound
	}

	lk.Lock()
	defer lk.Unlock()

	m.mu.RLock()
	cur := m.jobs[jobID]
	m.mu.RUnlock()

	next, t, err := job.Apply(cur, fn, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.jobs[jobID] = next
	if t != nil {
		cp := *t
		m.transfers[jobID] = append(m.transfers[jobID], &cp)
		if cp.Credit() {
			key := strings.ToLower(cp.To.String())
			m.credits[key] = m.credits[key].Add(cp.Amount)
		}
	}
	m.mu.Unlock()

	return next.Clone(), nil
}

// ListJobs returns jobs matching opts ordered by id.
func (m *Store) ListJobs(_ context.Context, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if !opts.Matches(j) {
			continue
		}
		result = append(result, j.Clone())
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].ID < result[k].ID
	})

	// Apply offset / limit.
	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

// CountJobs returns the number of jobs matching opts.
func (m *Store) CountJobs(_ context.Context, opts job.CountOpts) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, j := range m.jobs {
		if opts.Matches(j) {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// Escrow Store
// ──────────────────────────────────────────────────

// ListTransfers returns the ledger entries of a job, oldest first.
func (m *Store) ListTransfers(_ context.Context, jobID id.JobID) ([]*escrow.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.jobs[jobID]; !ok {
		return nil, trustwork.ErrJobNotFound
	}
	src := m.transfers[jobID]
	out := make([]*escrow.Transfer, len(src))
	for i, t := range src {
		cp := *t
		out[i] = &cp
	}
	return out, nil
}

// Balance returns the total paid out of custody to addr.
func (m *Store) Balance(_ context.Context, addr identity.Address) (escrow.Amount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.credits[strings.ToLower(addr.String())], nil
}
