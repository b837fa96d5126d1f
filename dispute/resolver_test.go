package dispute_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	gu "github.com/xraph/go-utils/metrics"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/dispute"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
	"github.com/nexora-w/TrustWork/ledger"
	"github.com/nexora-w/TrustWork/store/memory"
)

var (
	client     = identity.MustParse("0x1111111111111111111111111111111111111111")
	freelancer = identity.MustParse("0x2222222222222222222222222222222222222222")
	arbitrator = identity.MustParse("0x3333333333333333333333333333333333333333")
	outsider   = identity.MustParse("0x4444444444444444444444444444444444444444")
)

func as(a identity.Address) context.Context {
	return identity.WithCaller(context.Background(), a)
}

// disputedJob returns a ledger holding one job in StatusDisputed.
func disputedJob(t *testing.T) (*ledger.Ledger, id.JobID) {
	t.Helper()
	l, err := ledger.New(memory.New(),
		ledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		ledger.WithMetricFactory(gu.NewMetricsCollector("test")),
	)
	if err != nil {
		t.Fatal(err)
	}
	j, err := l.CreateJob(as(client), ledger.NewJob{
		Freelancer:  freelancer,
		Title:       "Translate docs",
		Description: "EN to DE",
		Amount:      escrow.NewAmount(250),
		Deadline:    time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.AcceptJob(as(freelancer), j.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := l.RaiseDispute(as(freelancer), j.ID); err != nil {
		t.Fatal(err)
	}
	return l, j.ID
}

func TestResolver_PartiesRejected(t *testing.T) {
	for _, party := range []identity.Address{client, freelancer} {
		t.Run(party.String(), func(t *testing.T) {
			l, jobID := disputedJob(t)
			r := dispute.NewResolver(l)

			_, err := r.Resolve(as(party), jobID, escrow.OutcomeRelease)
			if !errors.Is(err, trustwork.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
			j, _ := l.GetJob(context.Background(), jobID)
			if j.Status != job.StatusDisputed {
				t.Errorf("status = %s, want disputed", j.Status)
			}
		})
	}
}

func TestResolver_AnyThirdParty(t *testing.T) {
	l, jobID := disputedJob(t)
	r := dispute.NewResolver(l)

	j, err := r.Resolve(as(outsider), jobID, escrow.OutcomeRelease)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if j.Status != job.StatusCompleted || j.ResolvedBy != outsider {
		t.Errorf("status %s resolved by %s", j.Status, j.ResolvedBy)
	}
}

func TestResolver_Allowlist(t *testing.T) {
	tests := []struct {
		name    string
		caller  identity.Address
		wantErr error
	}{
		{"listed arbitrator", arbitrator, nil},
		{"unlisted third party", outsider, trustwork.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, jobID := disputedJob(t)
			r := dispute.NewResolver(l, dispute.WithPolicy(dispute.Allowlist(arbitrator)))

			j, err := r.Resolve(as(tt.caller), jobID, escrow.OutcomeRefund)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && j.Status != job.StatusCancelled {
				t.Errorf("status = %s, want cancelled", j.Status)
			}
		})
	}
}

func TestResolver_AllowlistedPartyStillRejected(t *testing.T) {
	l, jobID := disputedJob(t)
	r := dispute.NewResolver(l, dispute.WithPolicy(dispute.Allowlist(client, arbitrator)))

	if _, err := r.Resolve(as(client), jobID, escrow.OutcomeRefund); !errors.Is(err, trustwork.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolver_UnknownJob(t *testing.T) {
	l, _ := disputedJob(t)
	r := dispute.NewResolver(l)

	if _, err := r.Resolve(as(arbitrator), 99, escrow.OutcomeRefund); !errors.Is(err, trustwork.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestResolver_MissingCaller(t *testing.T) {
	l, jobID := disputedJob(t)
	r := dispute.NewResolver(l)

	if _, err := r.Resolve(context.Background(), jobID, escrow.OutcomeRefund); !errors.Is(err, trustwork.ErrMissingCaller) {
		t.Fatalf("expected ErrMissingCaller, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	p, err := dispute.FromConfig(trustwork.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Permit(context.Background(), &job.Job{}, outsider); err != nil {
		t.Errorf("empty config must admit any third party: %v", err)
	}

	p, err = dispute.FromConfig(trustwork.Config{Arbitrators: []string{"0x3333333333333333333333333333333333333333"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Permit(context.Background(), &job.Job{}, outsider); !errors.Is(err, trustwork.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for unlisted identity, got %v", err)
	}

	if _, err := dispute.FromConfig(trustwork.Config{Arbitrators: []string{"nope"}}); !errors.Is(err, trustwork.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
}
