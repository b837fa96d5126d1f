package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
	"github.com/nexora-w/TrustWork/store"
	"github.com/nexora-w/TrustWork/store/storetest"
)

var _ store.Store = (*Store)(nil)

// ──────────────────────────────────────────────────
// Lifecycle tests
// ──────────────────────────────────────────────────

func TestLifecycle(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"Migrate", func() error { return s.Migrate(ctx) }},
		{"Ping", func() error { return s.Ping(ctx) }},
		{"Close", func() error { return s.Close() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err != nil {
				t.Fatalf("%s returned error: %v", tt.name, err)
			}
		})
	}
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}

// ──────────────────────────────────────────────────
// Memory-specific behaviour
// ──────────────────────────────────────────────────

func TestIDsStartAtOne(t *testing.T) {
	s := New()
	client, freelancer := storetest.NewAddress(t), storetest.NewAddress(t)

	for want := uint64(1); want <= 3; want++ {
		j, hold := storetest.NewJob(t, client, freelancer, escrow.NewAmount(5), time.Now().Add(time.Hour))
		if err := s.CreateJob(context.Background(), j, hold); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
		if uint64(j.ID) != want {
			t.Errorf("id = %s, want %d", j.ID, want)
		}
		if hold.JobID != j.ID {
			t.Errorf("hold stamped with %s, want %s", hold.JobID, j.ID)
		}
	}
}

func TestReturnedJobsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	j, hold := storetest.NewJob(t, storetest.NewAddress(t), storetest.NewAddress(t), escrow.NewAmount(5), time.Now().Add(time.Hour))
	if err := s.CreateJob(ctx, j, hold); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	// Mutating the caller's copy must not reach the store.
	j.Status = job.StatusCancelled
	got, _ := s.GetJob(ctx, j.ID)
	if got.Status != job.StatusCreated {
		t.Fatalf("store aliased the created job, status = %s", got.Status)
	}

	got.Status = job.StatusCompleted
	again, _ := s.GetJob(ctx, j.ID)
	if again.Status != job.StatusCreated {
		t.Fatalf("store aliased a fetched job, status = %s", again.Status)
	}
}

func TestBalanceIgnoresAddressCase(t *testing.T) {
	s := New()
	ctx := context.Background()
	freelancer := storetest.NewAddress(t)
	j, hold := storetest.NewJob(t, storetest.NewAddress(t), freelancer, escrow.NewAmount(9), time.Now().Add(time.Hour))
	if err := s.CreateJob(ctx, j, hold); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	_, err := s.UpdateJob(ctx, j.ID, func(j *job.Job) (*escrow.Transfer, error) {
		j.Status = job.StatusCompleted
		return j.Escrow.Release(j.ID, j.Freelancer, time.Now())
	})
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	upper := identity.Address("0X" + strings.ToUpper(freelancer.String()[2:]))
	bal, _ := s.Balance(ctx, upper)
	if !bal.Equal(escrow.NewAmount(9)) {
		t.Fatalf("balance = %s, want 9", bal)
	}
}
