package dispute

import (
	"context"
	"fmt"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// Policy decides whether an identity may arbitrate a disputed job. The
// Resolver has already excluded both parties before consulting it.
type Policy interface {
	Permit(ctx context.Context, j *job.Job, arbitrator identity.Address) error
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(ctx context.Context, j *job.Job, arbitrator identity.Address) error

// Permit implements Policy.
func (f PolicyFunc) Permit(ctx context.Context, j *job.Job, arbitrator identity.Address) error {
	return f(ctx, j, arbitrator)
}

// AnyThirdParty admits every identity that is neither party to the job.
func AnyThirdParty() Policy {
	return PolicyFunc(func(context.Context, *job.Job, identity.Address) error { return nil })
}

// Allowlist admits only the listed arbitrators.
func Allowlist(arbitrators ...identity.Address) Policy {
	set := make(map[identity.Address]struct{}, len(arbitrators))
	for _, a := range arbitrators {
		set[canonical(a)] = struct{}{}
	}
	return PolicyFunc(func(_ context.Context, j *job.Job, arbitrator identity.Address) error {
		if _, ok := set[canonical(arbitrator)]; !ok {
			return fmt.Errorf("%w: %s is not an arbitrator for job %s", trustwork.ErrUnauthorized, arbitrator, j.ID)
		}
		return nil
	})
}

// FromConfig builds the policy described by cfg.Arbitrators: an allowlist
// when entries are present, AnyThirdParty otherwise.
func FromConfig(cfg trustwork.Config) (Policy, error) {
	if len(cfg.Arbitrators) == 0 {
		return AnyThirdParty(), nil
	}
	addrs := make([]identity.Address, 0, len(cfg.Arbitrators))
	for _, s := range cfg.Arbitrators {
		a, err := identity.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("arbitrator %q: %w", s, err)
		}
		addrs = append(addrs, a)
	}
	return Allowlist(addrs...), nil
}

func canonical(a identity.Address) identity.Address {
	if p, err := identity.Parse(a.String()); err == nil {
		return p
	}
	return a
}
