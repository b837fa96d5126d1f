package observability_test

import (
	"context"
	"log/slog"
	"testing"

	gu "github.com/xraph/go-utils/metrics"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/ext"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
	"github.com/nexora-w/TrustWork/observability"
)

func newTestExtension() *observability.MetricsExtension {
	return observability.NewMetricsExtensionWithFactory(gu.NewMetricsCollector("test"))
}

func newTestJob(st job.Status) *job.Job {
	return &job.Job{ID: 1, Status: st}
}

func TestMetricsExtension_Name(t *testing.T) {
	e := newTestExtension()
	if e.Name() != "observability-metrics" {
		t.Errorf("expected name %q, got %q", "observability-metrics", e.Name())
	}
}

func TestMetricsExtension_JobCreated(t *testing.T) {
	e := newTestExtension()
	if err := e.OnJobCreated(context.Background(), newTestJob(job.StatusCreated)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.JobCreated.Value() != 1 {
		t.Errorf("JobCreated: want 1, got %v", e.JobCreated.Value())
	}
}

func TestMetricsExtension_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		status  job.Status
		action  job.Action
		counter func(*observability.MetricsExtension) gu.Counter
	}{
		{"accepted", job.StatusAccepted, job.ActionAccept, func(e *observability.MetricsExtension) gu.Counter { return e.JobAccepted }},
		{"delivered", job.StatusDelivered, job.ActionDeliver, func(e *observability.MetricsExtension) gu.Counter { return e.JobDelivered }},
		{"completed", job.StatusCompleted, job.ActionConfirm, func(e *observability.MetricsExtension) gu.Counter { return e.JobCompleted }},
		{"cancelled", job.StatusCancelled, job.ActionCancel, func(e *observability.MetricsExtension) gu.Counter { return e.JobCancelled }},
		{"disputed", job.StatusDisputed, job.ActionDispute, func(e *observability.MetricsExtension) gu.Counter { return e.JobDisputed }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtension()
			if err := e.OnJobTransitioned(context.Background(), newTestJob(tt.status), tt.action, job.StatusCreated); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := tt.counter(e).Value(); got != 1 {
				t.Errorf("want 1, got %v", got)
			}
			if e.DisputeResolved.Value() != 0 {
				t.Error("only resolve counts as a resolved dispute")
			}
		})
	}
}

func TestMetricsExtension_ResolveCountsDispute(t *testing.T) {
	e := newTestExtension()
	_ = e.OnJobTransitioned(context.Background(), newTestJob(job.StatusCancelled), job.ActionResolve, job.StatusDisputed)

	if e.DisputeResolved.Value() != 1 {
		t.Errorf("DisputeResolved: want 1, got %v", e.DisputeResolved.Value())
	}
	if e.JobCancelled.Value() != 1 {
		t.Errorf("JobCancelled: want 1, got %v", e.JobCancelled.Value())
	}
}

func TestMetricsExtension_ViaRegistry(t *testing.T) {
	e := newTestExtension()

	reg := ext.NewRegistry(slog.Default())
	reg.Register(e)

	ctx := context.Background()
	reg.EmitJobCreated(ctx, newTestJob(job.StatusCreated))
	reg.EmitFundsMoved(ctx, &escrow.Transfer{Kind: escrow.KindHold})
	reg.EmitFundsMoved(ctx, &escrow.Transfer{Kind: escrow.KindRelease})
	reg.EmitFundsMoved(ctx, &escrow.Transfer{Kind: escrow.KindRefund})
	reg.EmitTransitionRejected(ctx, 1, job.ActionConfirm, identity.Zero, trustwork.ErrUnauthorized)

	checks := []struct {
		name  string
		value float64
	}{
		{"JobCreated", e.JobCreated.Value()},
		{"FundsHeld", e.FundsHeld.Value()},
		{"FundsReleased", e.FundsReleased.Value()},
		{"FundsRefunded", e.FundsRefunded.Value()},
		{"TransitionRejected", e.TransitionRejected.Value()},
	}

	for _, c := range checks {
		if c.value != 1 {
			t.Errorf("%s: want 1, got %v", c.name, c.value)
		}
	}
}
