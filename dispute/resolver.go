// Package dispute gates dispute resolution behind an arbitrator policy.
package dispute

import (
	"context"
	"fmt"
	"log/slog"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/access"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// Settler applies a resolution. *ledger.Ledger satisfies it.
type Settler interface {
	GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error)
	ResolveDispute(ctx context.Context, jobID id.JobID, outcome escrow.Outcome) (*job.Job, error)
}

// Resolver checks the arbitrator before delegating to the Settler.
type Resolver struct {
	settler Settler
	policy  Policy
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPolicy sets the arbitrator policy. Defaults to AnyThirdParty.
func WithPolicy(p Policy) Option {
	return func(r *Resolver) { r.policy = p }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver on top of s.
func NewResolver(s Settler, opts ...Option) *Resolver {
	r := &Resolver{
		settler: s,
		policy:  AnyThirdParty(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve applies outcome to a disputed job on behalf of the caller in
// ctx. Either party, or anyone the policy rejects, gets ErrUnauthorized.
func (r *Resolver) Resolve(ctx context.Context, jobID id.JobID, outcome escrow.Outcome) (*job.Job, error) {
	caller, err := identity.RequireCaller(ctx)
	if err != nil {
		return nil, err
	}

	j, err := r.settler.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if access.IsParty(j, caller) {
		return nil, fmt.Errorf("%w: %s is a party to job %s", trustwork.ErrUnauthorized, access.RoleOf(j, caller), jobID)
	}
	if err := r.policy.Permit(ctx, j, caller); err != nil {
		r.logger.Warn("arbitrator rejected by policy",
			slog.String("job_id", jobID.String()),
			slog.String("caller", caller.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return r.settler.ResolveDispute(ctx, jobID, outcome)
}
