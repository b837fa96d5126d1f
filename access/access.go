// Package access resolves a caller's role on a job. It is the first check
// of every ledger transition.
package access

import (
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// Role is the relationship between a caller and a job.
type Role int

const (
	// RoleNone is any identity that is neither party. Arbitrators have it.
	RoleNone Role = iota
	// RoleClient posted and funded the job.
	RoleClient
	// RoleFreelancer is the party designated to perform the job.
	RoleFreelancer
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleFreelancer:
		return "freelancer"
	default:
		return "none"
	}
}

// RoleOf returns the role of caller on j. It is a pure function of the
// stored identities; the zero address has no role.
func RoleOf(j *job.Job, caller identity.Address) Role {
	switch {
	case caller.IsZero():
		return RoleNone
	case j.Client.Equal(caller):
		return RoleClient
	case j.Freelancer.Equal(caller):
		return RoleFreelancer
	default:
		return RoleNone
	}
}

// IsParty reports whether caller is the client or the freelancer of j.
func IsParty(j *job.Job, caller identity.Address) bool {
	return RoleOf(j, caller) != RoleNone
}

// Set is a set of roles permitted to perform an action.
type Set []Role

// Allows reports whether r is in the set.
func (s Set) Allows(r Role) bool {
	for _, x := range s {
		if x == r {
			return true
		}
	}
	return false
}
