package job_test

import (
	"errors"
	"testing"
	"time"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

var (
	alice = identity.MustParse("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = identity.MustParse("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	carol = identity.MustParse("0xcccccccccccccccccccccccccccccccccccccccc")
)

func newJob() *job.Job {
	return &job.Job{
		Entity:     trustwork.NewEntity(),
		ID:         1,
		Client:     alice,
		Freelancer: bob,
		Title:      "Logo",
		Amount:     escrow.NewAmount(100),
		Deadline:   time.Now().Add(time.Hour),
		Status:     job.StatusCreated,
		Version:    1,
	}
}

func TestStatusCodes(t *testing.T) {
	want := []job.Status{
		job.StatusCreated, job.StatusAccepted, job.StatusDelivered,
		job.StatusCompleted, job.StatusDisputed, job.StatusCancelled,
	}
	for code, st := range want {
		if st.Code() != code {
			t.Errorf("%s.Code() = %d, want %d", st, st.Code(), code)
		}
		got, ok := job.StatusFromCode(code)
		if !ok || got != st {
			t.Errorf("StatusFromCode(%d) = %q, %v", code, got, ok)
		}
	}
	if _, ok := job.StatusFromCode(6); ok {
		t.Error("code 6 must not map to a status")
	}
	if job.Status("bogus").Valid() {
		t.Error("unknown status must be invalid")
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, st := range job.Statuses() {
		want := st == job.StatusCompleted || st == job.StatusCancelled
		if st.Terminal() != want {
			t.Errorf("%s.Terminal() = %v", st, st.Terminal())
		}
	}
}

func TestApply_BumpsVersionAndStampsTransfer(t *testing.T) {
	cur := newJob()
	now := time.Now().UTC()

	next, tr, err := job.Apply(cur, func(j *job.Job) (*escrow.Transfer, error) {
		j.Status = job.StatusCancelled
		return j.Escrow.Refund(j.ID, now)
	}, now)
	// Holding is empty in this fixture, so the refund reports nothing held.
	if !errors.Is(err, trustwork.ErrNothingHeld) {
		t.Fatalf("expected ErrNothingHeld, got %v", err)
	}
	if next != nil || tr != nil {
		t.Fatal("failed mutator must not produce output")
	}
	if cur.Status != job.StatusCreated {
		t.Fatal("failed mutator must not touch the original")
	}

	cur.Escrow, _, _ = escrow.Hold(alice, cur.Amount, now)
	next, tr, err = job.Apply(cur, func(j *job.Job) (*escrow.Transfer, error) {
		j.Status = job.StatusCancelled
		return j.Escrow.Refund(j.ID, now)
	}, now)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next.Version != 2 {
		t.Errorf("version = %d, want 2", next.Version)
	}
	if tr.JobID != cur.ID {
		t.Errorf("transfer job id = %s", tr.JobID)
	}
	if cur.Status != job.StatusCreated || !cur.Escrow.Held.Equal(escrow.NewAmount(100)) {
		t.Error("Apply must not mutate the current record")
	}
}

func TestApply_RejectsImmutableChanges(t *testing.T) {
	tests := []struct {
		name string
		fn   func(j *job.Job)
	}{
		{"client", func(j *job.Job) { j.Client = carol }},
		{"freelancer", func(j *job.Job) { j.Freelancer = carol }},
		{"amount", func(j *job.Job) { j.Amount = escrow.NewAmount(1) }},
		{"title", func(j *job.Job) { j.Title = "other" }},
		{"deadline", func(j *job.Job) { j.Deadline = j.Deadline.Add(time.Hour) }},
		{"deliverable overwrite", func(j *job.Job) { j.DeliverableRef = "cid-2" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur := newJob()
			cur.DeliverableRef = "cid-1"
			_, _, err := job.Apply(cur, func(j *job.Job) (*escrow.Transfer, error) {
				tt.fn(j)
				return nil, nil
			}, time.Now())
			if !errors.Is(err, job.ErrImmutableField) {
				t.Fatalf("expected ErrImmutableField, got %v", err)
			}
		})
	}
}

func TestListOpts_Matches(t *testing.T) {
	j := newJob()

	tests := []struct {
		name string
		opts job.ListOpts
		want bool
	}{
		{"empty filter", job.ListOpts{}, true},
		{"status match", job.ListOpts{Status: job.StatusCreated}, true},
		{"status mismatch", job.ListOpts{Status: job.StatusAccepted}, false},
		{"client any side", job.ListOpts{Participant: alice}, true},
		{"freelancer any side", job.ListOpts{Participant: bob}, true},
		{"stranger", job.ListOpts{Participant: carol}, false},
		{"client as freelancer", job.ListOpts{Participant: alice, As: job.SideFreelancer}, false},
		{"freelancer as freelancer", job.ListOpts{Participant: bob, As: job.SideFreelancer}, true},
		{"deadline before later", job.ListOpts{DeadlineBefore: j.Deadline.Add(time.Minute)}, true},
		{"deadline before earlier", job.ListOpts{DeadlineBefore: j.Deadline.Add(-time.Minute)}, false},
		{"after lower id", job.ListOpts{AfterID: j.ID - 1}, true},
		{"after own id", job.ListOpts{AfterID: j.ID}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Matches(j); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
