// Package backoff spaces out retries of optimistic store writes. When a
// compare-and-swap loses a race, the store waits for Delay(attempt) before
// re-reading the record. Strategies are stateless and safe for concurrent
// use.
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry attempt.
type Strategy interface {
	// Delay returns how long to wait before retry attempt n (1-indexed).
	Delay(attempt int) time.Duration
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(attempt int) time.Duration

// Delay calls f.
func (f StrategyFunc) Delay(attempt int) time.Duration { return f(attempt) }

// None retries immediately.
var None Strategy = StrategyFunc(func(int) time.Duration { return 0 })

// Constant always waits the same interval.
type Constant time.Duration

// Delay returns the fixed interval.
func (c Constant) Delay(_ int) time.Duration { return time.Duration(c) }

// Exponential doubles the delay each attempt, capped at Max.
// With Jitter set the delay is drawn uniformly from [0, cap) so racing
// writers spread out instead of colliding again.
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  bool
}

// Delay returns Initial * 2^(attempt-1), capped at Max, optionally jittered.
func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(e.Initial) * math.Pow(2, float64(attempt-1))
	if e.Max > 0 && base > float64(e.Max) {
		base = float64(e.Max)
	}
	if e.Jitter {
		return time.Duration(rand.Float64() * base) //nolint:gosec // jitter intentionally uses non-crypto rand
	}
	return time.Duration(base)
}

// Default is the strategy stores use unless configured otherwise:
// jittered exponential from 1ms up to 50ms.
func Default() Strategy {
	return Exponential{Initial: time.Millisecond, Max: 50 * time.Millisecond, Jitter: true}
}

// Wait sleeps for s.Delay(attempt) or until ctx is done, whichever comes
// first. A nil strategy does not wait.
func Wait(ctx context.Context, s Strategy, attempt int) error {
	if s == nil {
		return ctx.Err()
	}
	d := s.Delay(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
