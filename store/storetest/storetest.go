// Package storetest is a conformance suite for store.Store backends.
// Every backend's tests call Run with a constructor for a migrated store.
// Cases use fresh random addresses so they can share one database.
package storetest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
	"github.com/nexora-w/TrustWork/store"
)

// missingJob is never assigned by a backend under test.
const missingJob id.JobID = 1 << 62

// Run executes every conformance case against the store returned by
// newStore. newStore may return the same store for every call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateAssignsSequentialIDs", testCreateSequential},
		{"CreateStoresHold", testCreateStoresHold},
		{"GetNotFound", testGetNotFound},
		{"UpdateCommitsTransfer", testUpdateCommitsTransfer},
		{"UpdateMutatorErrorWritesNothing", testUpdateMutatorError},
		{"UpdateRejectsImmutableChange", testUpdateImmutable},
		{"UpdateNotFound", testUpdateNotFound},
		{"ConcurrentSettlementOnce", testConcurrentSettlement},
		{"ListAndCountFilters", testListAndCount},
		{"ListPaging", testListPaging},
		{"ListDeadlineBefore", testListDeadlineBefore},
		{"TransfersNotFound", testTransfersNotFound},
		{"BalanceLargeAmounts", testBalanceLarge},
		{"LookupsIgnoreAddressCase", testLookupsIgnoreCase},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

// NewAddress returns a random address.
func NewAddress(t *testing.T) identity.Address {
	t.Helper()
	var b [20]byte
	if _, err := rand.Read(b[:]); err != nil {
		t.Fatalf("random address: %v", err)
	}
	return identity.MustParse("0x" + hex.EncodeToString(b[:]))
}

// NewJob builds a funded job in the created state, the way the ledger
// does before handing it to CreateJob.
func NewJob(t *testing.T, client, freelancer identity.Address, amount escrow.Amount, deadline time.Time) (*job.Job, *escrow.Transfer) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	holding, hold, err := escrow.Hold(client, amount, now)
	if err != nil {
		t.Fatalf("hold: %v", err)
	}
	return &job.Job{
		Entity:      trustwork.Entity{CreatedAt: now, UpdatedAt: now},
		Client:      client,
		Freelancer:  freelancer,
		Title:       "Logo design",
		Description: "Vector logo in three colours",
		Amount:      amount,
		Deadline:    deadline.UTC().Truncate(time.Millisecond),
		Status:      job.StatusCreated,
		Escrow:      holding,
	}, hold
}

func create(t *testing.T, s store.Store, client, freelancer identity.Address, amount int64) *job.Job {
	t.Helper()
	j, hold := NewJob(t, client, freelancer, escrow.NewAmount(amount), time.Now().Add(24*time.Hour))
	if err := s.CreateJob(context.Background(), j, hold); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return j
}

// complete moves a created job straight to completed with a release, the
// same shape of write as ConfirmDelivery.
func complete(j *job.Job) (*escrow.Transfer, error) {
	if j.Status != job.StatusCreated {
		return nil, trustwork.ErrInvalidTransition
	}
	t, err := j.Escrow.Release(j.ID, j.Freelancer, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	j.Status = job.StatusCompleted
	now := time.Now().UTC()
	j.SettledAt = &now
	return t, nil
}

func testCreateSequential(t *testing.T, s store.Store) {
	client, freelancer := NewAddress(t), NewAddress(t)

	var prev id.JobID
	for i := range 3 {
		j := create(t, s, client, freelancer, 10)
		if !j.ID.Valid() {
			t.Fatalf("job %d: id not assigned", i)
		}
		if j.Version != 1 {
			t.Errorf("job %d: version = %d, want 1", i, j.Version)
		}
		if i > 0 && j.ID != prev+1 {
			t.Errorf("ids not sequential: %s after %s", j.ID, prev)
		}
		prev = j.ID
	}
}

func testCreateStoresHold(t *testing.T, s store.Store) {
	ctx := context.Background()
	client, freelancer := NewAddress(t), NewAddress(t)
	j := create(t, s, client, freelancer, 250)

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Client != client || got.Freelancer != freelancer {
		t.Errorf("parties = %s/%s", got.Client, got.Freelancer)
	}
	if got.Status != job.StatusCreated {
		t.Errorf("status = %s", got.Status)
	}
	if !got.Amount.Equal(escrow.NewAmount(250)) || !got.Escrow.Held.Equal(escrow.NewAmount(250)) {
		t.Errorf("amount = %s, held = %s", got.Amount, got.Escrow.Held)
	}
	if !got.Deadline.Equal(j.Deadline) {
		t.Errorf("deadline = %v, want %v", got.Deadline, j.Deadline)
	}
	if got.Title != j.Title || got.Description != j.Description {
		t.Errorf("terms = %q/%q", got.Title, got.Description)
	}

	transfers, err := s.ListTransfers(ctx, j.ID)
	if err != nil {
		t.Fatalf("ListTransfers: %v", err)
	}
	if len(transfers) != 1 {
		t.Fatalf("transfers = %d, want 1", len(transfers))
	}
	h := transfers[0]
	if h.Kind != escrow.KindHold || h.JobID != j.ID || h.From != client || !h.To.IsZero() {
		t.Errorf("hold = %+v", h)
	}

	bal, err := s.Balance(ctx, client)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !bal.IsZero() {
		t.Errorf("a hold must not credit anyone, balance = %s", bal)
	}
}

func testGetNotFound(t *testing.T, s store.Store) {
	_, err := s.GetJob(context.Background(), missingJob)
	if !errors.Is(err, trustwork.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func testUpdateCommitsTransfer(t *testing.T, s store.Store) {
	ctx := context.Background()
	client, freelancer := NewAddress(t), NewAddress(t)
	j := create(t, s, client, freelancer, 400)

	next, err := s.UpdateJob(ctx, j.ID, complete)
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if next.Status != job.StatusCompleted || next.Version != 2 {
		t.Errorf("next = %s v%d", next.Status, next.Version)
	}
	if !next.Escrow.Held.IsZero() || next.Escrow.Settlement != escrow.KindRelease {
		t.Errorf("escrow = %+v", next.Escrow)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusCompleted || got.Version != 2 || got.SettledAt == nil {
		t.Errorf("stored = %s v%d settled=%v", got.Status, got.Version, got.SettledAt)
	}
	if got.Escrow.SettledTo != freelancer {
		t.Errorf("settled to %s", got.Escrow.SettledTo)
	}

	transfers, err := s.ListTransfers(ctx, j.ID)
	if err != nil {
		t.Fatalf("ListTransfers: %v", err)
	}
	if len(transfers) != 2 {
		t.Fatalf("transfers = %d, want 2", len(transfers))
	}
	if transfers[0].Kind != escrow.KindHold || transfers[1].Kind != escrow.KindRelease {
		t.Errorf("kinds = %s, %s", transfers[0].Kind, transfers[1].Kind)
	}
	if transfers[1].To != freelancer || !transfers[1].Amount.Equal(escrow.NewAmount(400)) {
		t.Errorf("release = %+v", transfers[1])
	}

	bal, err := s.Balance(ctx, freelancer)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !bal.Equal(escrow.NewAmount(400)) {
		t.Errorf("freelancer balance = %s, want 400", bal)
	}
}

func testUpdateMutatorError(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := create(t, s, NewAddress(t), NewAddress(t), 10)

	_, err := s.UpdateJob(ctx, j.ID, func(j *job.Job) (*escrow.Transfer, error) {
		j.Status = job.StatusCancelled
		return nil, trustwork.ErrUnauthorized
	})
	if !errors.Is(err, trustwork.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusCreated || got.Version != 1 {
		t.Errorf("failed mutator wrote %s v%d", got.Status, got.Version)
	}
	transfers, _ := s.ListTransfers(ctx, j.ID)
	if len(transfers) != 1 {
		t.Errorf("transfers = %d, want 1", len(transfers))
	}
}

func testUpdateImmutable(t *testing.T, s store.Store) {
	ctx := context.Background()
	j := create(t, s, NewAddress(t), NewAddress(t), 10)
	other := NewAddress(t)

	_, err := s.UpdateJob(ctx, j.ID, func(j *job.Job) (*escrow.Transfer, error) {
		j.Freelancer = other
		return nil, nil
	})
	if !errors.Is(err, job.ErrImmutableField) {
		t.Fatalf("expected ErrImmutableField, got %v", err)
	}
}

func testUpdateNotFound(t *testing.T, s store.Store) {
	_, err := s.UpdateJob(context.Background(), missingJob, complete)
	if !errors.Is(err, trustwork.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func testConcurrentSettlement(t *testing.T, s store.Store) {
	ctx := context.Background()
	freelancer := NewAddress(t)
	j := create(t, s, NewAddress(t), freelancer, 75)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateJob(ctx, j.ID, complete)
			switch {
			case err == nil:
				mu.Lock()
				successes++
				mu.Unlock()
			case errors.Is(err, trustwork.ErrInvalidTransition),
				errors.Is(err, trustwork.ErrConcurrentUpdate):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	transfers, err := s.ListTransfers(ctx, j.ID)
	if err != nil {
		t.Fatalf("ListTransfers: %v", err)
	}
	if len(transfers) != 2 {
		t.Errorf("transfers = %d, want 2", len(transfers))
	}
	bal, _ := s.Balance(ctx, freelancer)
	if !bal.Equal(escrow.NewAmount(75)) {
		t.Errorf("balance = %s, want 75", bal)
	}
}

func testListAndCount(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice, bob, carol := NewAddress(t), NewAddress(t), NewAddress(t)

	a1 := create(t, s, alice, bob, 10)
	create(t, s, alice, carol, 10)
	create(t, s, bob, alice, 10)
	if _, err := s.UpdateJob(ctx, a1.ID, complete); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	tests := []struct {
		name string
		opts job.ListOpts
		want int
	}{
		{"alice any side", job.ListOpts{Participant: alice}, 3},
		{"alice as client", job.ListOpts{Participant: alice, As: job.SideClient}, 2},
		{"alice as freelancer", job.ListOpts{Participant: alice, As: job.SideFreelancer}, 1},
		{"alice completed", job.ListOpts{Participant: alice, Status: job.StatusCompleted}, 1},
		{"alice created", job.ListOpts{Participant: alice, Status: job.StatusCreated}, 2},
		{"carol", job.ListOpts{Participant: carol}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := s.ListJobs(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListJobs: %v", err)
			}
			if len(jobs) != tt.want {
				t.Errorf("ListJobs = %d, want %d", len(jobs), tt.want)
			}
			for i := 1; i < len(jobs); i++ {
				if jobs[i].ID <= jobs[i-1].ID {
					t.Errorf("not ordered by id: %s after %s", jobs[i].ID, jobs[i-1].ID)
				}
			}

			n, err := s.CountJobs(ctx, job.CountOpts{
				Status: tt.opts.Status, Participant: tt.opts.Participant, As: tt.opts.As,
			})
			if err != nil {
				t.Fatalf("CountJobs: %v", err)
			}
			if n != int64(tt.want) {
				t.Errorf("CountJobs = %d, want %d", n, tt.want)
			}
		})
	}
}

func testListPaging(t *testing.T, s store.Store) {
	ctx := context.Background()
	client := NewAddress(t)
	var ids []id.JobID
	for range 5 {
		ids = append(ids, create(t, s, client, NewAddress(t), 1).ID)
	}

	page, err := s.ListJobs(ctx, job.ListOpts{Participant: client, Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(page) != 2 || page[0].ID != ids[1] || page[1].ID != ids[2] {
		t.Fatalf("page = %v, want ids %v", jobIDs(page), ids[1:3])
	}

	tail, err := s.ListJobs(ctx, job.ListOpts{Participant: client, Offset: 4, Limit: 10})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(tail) != 1 || tail[0].ID != ids[4] {
		t.Fatalf("tail = %v", jobIDs(tail))
	}

	past, err := s.ListJobs(ctx, job.ListOpts{Participant: client, Offset: 9})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(past) != 0 {
		t.Fatalf("offset past end = %v", jobIDs(past))
	}

	after, err := s.ListJobs(ctx, job.ListOpts{Participant: client, AfterID: ids[2], Limit: 10})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(after) != 2 || after[0].ID != ids[3] || after[1].ID != ids[4] {
		t.Fatalf("after %s = %v, want %v", ids[2], jobIDs(after), ids[3:])
	}
}

func testListDeadlineBefore(t *testing.T, s store.Store) {
	ctx := context.Background()
	client := NewAddress(t)
	now := time.Now().UTC()

	soon, hold := NewJob(t, client, NewAddress(t), escrow.NewAmount(1), now.Add(time.Hour))
	if err := s.CreateJob(ctx, soon, hold); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	later, hold := NewJob(t, client, NewAddress(t), escrow.NewAmount(1), now.Add(48*time.Hour))
	if err := s.CreateJob(ctx, later, hold); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	jobs, err := s.ListJobs(ctx, job.ListOpts{
		Participant:    client,
		Status:         job.StatusCreated,
		DeadlineBefore: now.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != soon.ID {
		t.Fatalf("jobs = %v, want [%s]", jobIDs(jobs), soon.ID)
	}
}

func testTransfersNotFound(t *testing.T, s store.Store) {
	_, err := s.ListTransfers(context.Background(), missingJob)
	if !errors.Is(err, trustwork.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func testBalanceLarge(t *testing.T, s store.Store) {
	ctx := context.Background()
	freelancer := NewAddress(t)
	big := escrow.MustParseAmount("100000000000000000000000") // 1e23, beyond int64

	for range 2 {
		j, hold := NewJob(t, NewAddress(t), freelancer, big, time.Now().Add(time.Hour))
		if err := s.CreateJob(ctx, j, hold); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
		if _, err := s.UpdateJob(ctx, j.ID, complete); err != nil {
			t.Fatalf("UpdateJob: %v", err)
		}
	}

	bal, err := s.Balance(ctx, freelancer)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if want := escrow.MustParseAmount("200000000000000000000000"); !bal.Equal(want) {
		t.Errorf("balance = %s, want %s", bal, want)
	}
}

func testLookupsIgnoreCase(t *testing.T, s store.Store) {
	ctx := context.Background()
	client, freelancer := NewAddress(t), NewAddress(t)
	upper := func(a identity.Address) identity.Address {
		return identity.Address("0x" + strings.ToUpper(a.String()[2:]))
	}

	j := create(t, s, client, freelancer, 100)
	if _, err := s.UpdateJob(ctx, j.ID, complete); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	bal, err := s.Balance(ctx, upper(freelancer))
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !bal.Equal(escrow.NewAmount(100)) {
		t.Errorf("balance by upper-case address = %s, want 100", bal)
	}

	for _, tt := range []struct {
		name string
		p    identity.Address
		as   job.Side
	}{
		{"client any side", upper(client), job.SideAny},
		{"client as client", upper(client), job.SideClient},
		{"freelancer as freelancer", upper(freelancer), job.SideFreelancer},
	} {
		jobs, err := s.ListJobs(ctx, job.ListOpts{Participant: tt.p, As: tt.as})
		if err != nil {
			t.Fatalf("%s: ListJobs: %v", tt.name, err)
		}
		if len(jobs) != 1 || jobs[0].ID != j.ID {
			t.Errorf("%s: ListJobs = %v, want [%s]", tt.name, jobIDs(jobs), j.ID)
		}
		n, err := s.CountJobs(ctx, job.CountOpts{Participant: tt.p, As: tt.as})
		if err != nil || n != 1 {
			t.Errorf("%s: CountJobs = %d, %v; want 1", tt.name, n, err)
		}
	}
}

func jobIDs(jobs []*job.Job) []id.JobID {
	out := make([]id.JobID, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}
