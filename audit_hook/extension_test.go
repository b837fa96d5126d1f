package audithook_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	trustwork "github.com/nexora-w/TrustWork"
	ah "github.com/nexora-w/TrustWork/audit_hook"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/ext"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// ── Mock recorder ────────────────────────────────────

// mockRecorder captures audit events for verification.
type mockRecorder struct {
	mu     sync.Mutex
	events []*ah.AuditEvent
}

func (m *mockRecorder) Record(_ context.Context, evt *ah.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockRecorder) last() *ah.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return nil
	}
	return m.events[len(m.events)-1]
}

func (m *mockRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockRecorder) findByAction(action string) *ah.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, evt := range m.events {
		if evt.Action == action {
			return evt
		}
	}
	return nil
}

// ── Test helpers ─────────────────────────────────────

var (
	client     = identity.MustParse("0x1111111111111111111111111111111111111111")
	freelancer = identity.MustParse("0x2222222222222222222222222222222222222222")
	arbitrator = identity.MustParse("0x3333333333333333333333333333333333333333")
)

func newTestJob(st job.Status) *job.Job {
	return &job.Job{
		ID:         5,
		Client:     client,
		Freelancer: freelancer,
		Amount:     escrow.NewAmount(1500),
		Deadline:   time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:     st,
	}
}

// ── Tests ────────────────────────────────────────────

func TestExtension_Name(t *testing.T) {
	e := ah.New(&mockRecorder{})
	if e.Name() != "audit-hook" {
		t.Errorf("expected name %q, got %q", "audit-hook", e.Name())
	}
}

func TestExtension_JobCreated(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)

	if err := e.OnJobCreated(context.Background(), newTestJob(job.StatusCreated)); err != nil {
		t.Fatalf("OnJobCreated: %v", err)
	}

	evt := rec.last()
	if evt == nil {
		t.Fatal("no event recorded")
	}
	if evt.Action != ah.ActionJobCreated {
		t.Errorf("Action: want %q, got %q", ah.ActionJobCreated, evt.Action)
	}
	if evt.Resource != ah.ResourceJob || evt.ResourceID != "5" {
		t.Errorf("Resource: got %q/%q", evt.Resource, evt.ResourceID)
	}
	if evt.Category != ah.CategoryJob {
		t.Errorf("Category: want %q, got %q", ah.CategoryJob, evt.Category)
	}
	if evt.Actor != client.String() {
		t.Errorf("Actor: want client, got %q", evt.Actor)
	}
	if evt.Severity != ah.SeverityInfo || evt.Outcome != ah.OutcomeSuccess {
		t.Errorf("Severity/Outcome: got %q/%q", evt.Severity, evt.Outcome)
	}
	if evt.Metadata["amount"] != "1500" {
		t.Errorf("Metadata[amount]: want %q, got %v", "1500", evt.Metadata["amount"])
	}
	if evt.Metadata["deadline"] != "2030-06-01T00:00:00Z" {
		t.Errorf("Metadata[deadline]: got %v", evt.Metadata["deadline"])
	}
}

func TestExtension_JobTransitioned(t *testing.T) {
	tests := []struct {
		action     job.Action
		from, to   job.Status
		wantAction string
		wantActor  identity.Address
		category   string
	}{
		{job.ActionAccept, job.StatusCreated, job.StatusAccepted, ah.ActionJobAccepted, freelancer, ah.CategoryJob},
		{job.ActionDeliver, job.StatusAccepted, job.StatusDelivered, ah.ActionJobDelivered, freelancer, ah.CategoryJob},
		{job.ActionConfirm, job.StatusDelivered, job.StatusCompleted, ah.ActionJobCompleted, client, ah.CategoryJob},
		{job.ActionCancel, job.StatusCreated, job.StatusCancelled, ah.ActionJobCancelled, client, ah.CategoryJob},
		{job.ActionDispute, job.StatusDelivered, job.StatusDisputed, ah.ActionJobDisputed, client, ah.CategoryJob},
		{job.ActionResolve, job.StatusDisputed, job.StatusCancelled, ah.ActionDisputeResolved, arbitrator, ah.CategoryDispute},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			rec := &mockRecorder{}
			e := ah.New(rec)

			j := newTestJob(tt.to)
			j.DisputeRaisedBy = client
			j.ResolvedBy = arbitrator
			j.Resolution = escrow.OutcomeRefund

			if err := e.OnJobTransitioned(context.Background(), j, tt.action, tt.from); err != nil {
				t.Fatalf("OnJobTransitioned: %v", err)
			}
			evt := rec.last()
			if evt == nil {
				t.Fatal("no event recorded")
			}
			if evt.Action != tt.wantAction {
				t.Errorf("Action: want %q, got %q", tt.wantAction, evt.Action)
			}
			if evt.Actor != tt.wantActor.String() {
				t.Errorf("Actor: want %s, got %s", tt.wantActor, evt.Actor)
			}
			if evt.Category != tt.category {
				t.Errorf("Category: want %q, got %q", tt.category, evt.Category)
			}
			if evt.Metadata["from"] != string(tt.from) || evt.Metadata["to"] != string(tt.to) {
				t.Errorf("Metadata from/to: got %v/%v", evt.Metadata["from"], evt.Metadata["to"])
			}
		})
	}
}

func TestExtension_TransitionRejected(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec)

	err := e.OnTransitionRejected(context.Background(), 9, job.ActionConfirm, freelancer, trustwork.ErrUnauthorized)
	if err != nil {
		t.Fatalf("OnTransitionRejected: %v", err)
	}

	evt := rec.last()
	if evt.Action != ah.ActionTransitionRejected {
		t.Errorf("Action: want %q, got %q", ah.ActionTransitionRejected, evt.Action)
	}
	if evt.Severity != ah.SeverityWarning || evt.Outcome != ah.OutcomeFailure {
		t.Errorf("Severity/Outcome: got %q/%q", evt.Severity, evt.Outcome)
	}
	if evt.Reason != trustwork.ErrUnauthorized.Error() {
		t.Errorf("Reason: got %q", evt.Reason)
	}
	if evt.Metadata["attempted"] != "confirm" {
		t.Errorf("Metadata[attempted]: got %v", evt.Metadata["attempted"])
	}
}

func TestExtension_FundsMoved(t *testing.T) {
	tests := []struct {
		kind escrow.Kind
		want string
	}{
		{escrow.KindHold, ah.ActionFundsHeld},
		{escrow.KindRelease, ah.ActionFundsReleased},
		{escrow.KindRefund, ah.ActionFundsRefunded},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			rec := &mockRecorder{}
			e := ah.New(rec)
			tr := &escrow.Transfer{
				ID:     id.NewTransferID(),
				JobID:  5,
				Kind:   tt.kind,
				To:     freelancer,
				Amount: escrow.NewAmount(1500),
			}

			if err := e.OnFundsMoved(context.Background(), tr); err != nil {
				t.Fatalf("OnFundsMoved: %v", err)
			}
			evt := rec.last()
			if evt.Action != tt.want {
				t.Errorf("Action: want %q, got %q", tt.want, evt.Action)
			}
			if evt.Resource != ah.ResourceTransfer || evt.ResourceID != tr.ID.String() {
				t.Errorf("Resource: got %q/%q", evt.Resource, evt.ResourceID)
			}
			if evt.Category != ah.CategoryEscrow {
				t.Errorf("Category: got %q", evt.Category)
			}
			if evt.Metadata["job_id"] != "5" || evt.Metadata["amount"] != "1500" {
				t.Errorf("Metadata: got %v", evt.Metadata)
			}
		})
	}
}

// ── WithActions filter tests ─────────────────────────

func TestExtension_WithActions_FiltersDisabled(t *testing.T) {
	rec := &mockRecorder{}
	e := ah.New(rec, ah.WithActions(ah.ActionFundsReleased, ah.ActionTransitionRejected))

	ctx := context.Background()

	// Created is not enabled and should be silently skipped.
	if err := e.OnJobCreated(ctx, newTestJob(job.StatusCreated)); err != nil {
		t.Fatalf("OnJobCreated: %v", err)
	}
	if rec.count() != 0 {
		t.Errorf("expected 0 events (created disabled), got %d", rec.count())
	}

	// Released is enabled and should be recorded.
	if err := e.OnFundsMoved(ctx, &escrow.Transfer{Kind: escrow.KindRelease}); err != nil {
		t.Fatalf("OnFundsMoved: %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("expected 1 event (released enabled), got %d", rec.count())
	}

	// Rejected is enabled and should be recorded.
	if err := e.OnTransitionRejected(ctx, 1, job.ActionAccept, client, trustwork.ErrUnauthorized); err != nil {
		t.Fatalf("OnTransitionRejected: %v", err)
	}
	if rec.count() != 2 {
		t.Errorf("expected 2 events, got %d", rec.count())
	}
}

// ── Recorder error handling test ─────────────────────

func TestExtension_RecorderError_DoesNotPropagate(t *testing.T) {
	failingRecorder := ah.RecorderFunc(func(_ context.Context, _ *ah.AuditEvent) error {
		return errors.New("audit backend down")
	})

	e := ah.New(failingRecorder)

	// Hook should NOT return an error; a committed transition must not
	// be reported as failed because its audit write failed.
	if err := e.OnJobCreated(context.Background(), newTestJob(job.StatusCreated)); err != nil {
		t.Fatalf("expected no error (audit failure swallowed), got: %v", err)
	}
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	e := ah.New(ah.LogRecorder(slog.New(slog.NewTextHandler(&buf, nil))))

	_ = e.OnTransitionRejected(context.Background(), 2, job.ActionCancel, freelancer, trustwork.ErrUnauthorized)

	out := buf.String()
	for _, want := range []string{"level=WARN", "action=transition.rejected", "resource_id=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

// ── Registry integration test ────────────────────────

func TestExtension_ViaRegistry(t *testing.T) {
	rec := &mockRecorder{}
	reg := ext.NewRegistry(slog.Default())
	reg.Register(ah.New(rec))

	ctx := context.Background()
	reg.EmitJobCreated(ctx, newTestJob(job.StatusCreated))
	for _, step := range []struct {
		action job.Action
		to     job.Status
	}{
		{job.ActionAccept, job.StatusAccepted},
		{job.ActionDeliver, job.StatusDelivered},
		{job.ActionConfirm, job.StatusCompleted},
		{job.ActionCancel, job.StatusCancelled},
		{job.ActionDispute, job.StatusDisputed},
		{job.ActionResolve, job.StatusCompleted},
	} {
		reg.EmitJobTransitioned(ctx, newTestJob(step.to), step.action, job.StatusCreated)
	}
	reg.EmitTransitionRejected(ctx, 5, job.ActionAccept, client, trustwork.ErrUnauthorized)
	reg.EmitFundsMoved(ctx, &escrow.Transfer{Kind: escrow.KindHold})
	reg.EmitFundsMoved(ctx, &escrow.Transfer{Kind: escrow.KindRelease})
	reg.EmitFundsMoved(ctx, &escrow.Transfer{Kind: escrow.KindRefund})

	allActions := ah.AllActions()
	if rec.count() != len(allActions) {
		t.Fatalf("expected %d events, got %d", len(allActions), rec.count())
	}
	for _, action := range allActions {
		if rec.findByAction(action) == nil {
			t.Errorf("missing event for action %q", action)
		}
	}
}
