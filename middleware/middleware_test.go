package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
	"github.com/nexora-w/TrustWork/middleware"
)

var testCaller = identity.MustParse("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

func newTestOp() middleware.Operation {
	return middleware.Operation{
		Action: job.ActionConfirm,
		JobID:  42,
		Caller: testCaller,
	}
}

func TestChain_ExecutionOrder(t *testing.T) {
	var order []string

	mw1 := func(ctx context.Context, _ middleware.Operation, next middleware.Handler) error {
		order = append(order, "mw1-before")
		err := next(ctx)
		order = append(order, "mw1-after")
		return err
	}

	mw2 := func(ctx context.Context, _ middleware.Operation, next middleware.Handler) error {
		order = append(order, "mw2-before")
		err := next(ctx)
		order = append(order, "mw2-after")
		return err
	}

	chain := middleware.Chain(mw1, mw2)
	handler := func(_ context.Context) error {
		order = append(order, "handler")
		return nil
	}

	if err := chain(context.Background(), newTestOp(), handler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(order), order)
	}
	for i, want := range expected {
		if order[i] != want {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want)
		}
	}
}

func TestChain_Empty(t *testing.T) {
	chain := middleware.Chain()
	called := false

	err := chain(context.Background(), newTestOp(), func(_ context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler not called with empty chain")
	}
}

func TestChain_PropagatesError(t *testing.T) {
	mw := func(ctx context.Context, _ middleware.Operation, next middleware.Handler) error {
		return next(ctx)
	}
	chain := middleware.Chain(mw)

	err := chain(context.Background(), newTestOp(), func(_ context.Context) error {
		return trustwork.ErrInvalidTransition
	})
	if !errors.Is(err, trustwork.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRecover_CatchesPanic(t *testing.T) {
	mw := middleware.Recover(slog.Default())

	err := mw(context.Background(), newTestOp(), func(_ context.Context) error {
		panic("test panic")
	})
	if err == nil {
		t.Fatal("expected error from panic recovery")
	}
	if got := err.Error(); got != "panic in confirm of job 42: test panic" {
		t.Errorf("unexpected error message: %q", got)
	}
}

func TestRecover_PassesThrough(t *testing.T) {
	mw := middleware.Recover(slog.Default())

	called := false
	err := mw(context.Background(), newTestOp(), func(_ context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler not called")
	}
}

func TestLogging_Levels(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantMsg   string
	}{
		{"success", nil, "INFO", "ledger operation completed"},
		{"rejected", fmt.Errorf("confirm: %w", trustwork.ErrUnauthorized), "WARN", "ledger operation rejected"},
		{"nothing held", trustwork.ErrNothingHeld, "ERROR", "ledger consistency violation"},
		{"store failure", errors.New("connection reset"), "ERROR", "ledger operation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			mw := middleware.Logging(logger)

			err := mw(context.Background(), newTestOp(), func(_ context.Context) error {
				return tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Fatalf("error not propagated: %v", err)
			}

			out := buf.String()
			if !strings.Contains(out, "level="+tt.wantLevel) {
				t.Errorf("expected level %s in %q", tt.wantLevel, out)
			}
			if !strings.Contains(out, tt.wantMsg) {
				t.Errorf("expected message %q in %q", tt.wantMsg, out)
			}
			if !strings.Contains(out, "job_id=42") {
				t.Errorf("expected job_id attribute in %q", out)
			}
		})
	}
}

func TestTimeout_SetsDeadline(t *testing.T) {
	mw := middleware.Timeout(time.Minute)

	err := mw(context.Background(), newTestOp(), func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline on context")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestTimeout_ZeroDisables(t *testing.T) {
	mw := middleware.Timeout(0)

	err := mw(context.Background(), newTestOp(), func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			return errors.New("unexpected deadline")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
