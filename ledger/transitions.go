package ledger

import (
	"slices"

	"github.com/nexora-w/TrustWork/access"
	"github.com/nexora-w/TrustWork/job"
)

// rule is one row of the transition table: who may perform an action and
// from which statuses. The target status and the escrow effect are applied
// by the operation itself.
type rule struct {
	from   []job.Status
	to     []job.Status
	actors access.Set
}

// transitions is the complete table of legal moves. Funds leave custody
// only on confirm, cancel and resolve.
var transitions = map[job.Action]rule{
	job.ActionAccept: {
		from:   []job.Status{job.StatusCreated},
		to:     []job.Status{job.StatusAccepted},
		actors: access.Set{access.RoleFreelancer},
	},
	job.ActionCancel: {
		from:   []job.Status{job.StatusCreated},
		to:     []job.Status{job.StatusCancelled},
		actors: access.Set{access.RoleClient},
	},
	job.ActionDeliver: {
		from:   []job.Status{job.StatusAccepted},
		to:     []job.Status{job.StatusDelivered},
		actors: access.Set{access.RoleFreelancer},
	},
	job.ActionConfirm: {
		from:   []job.Status{job.StatusDelivered},
		to:     []job.Status{job.StatusCompleted},
		actors: access.Set{access.RoleClient},
	},
	job.ActionDispute: {
		from:   []job.Status{job.StatusAccepted, job.StatusDelivered},
		to:     []job.Status{job.StatusDisputed},
		actors: access.Set{access.RoleClient, access.RoleFreelancer},
	},
	job.ActionResolve: {
		from:   []job.Status{job.StatusDisputed},
		to:     []job.Status{job.StatusCompleted, job.StatusCancelled},
		actors: access.Set{access.RoleNone},
	},
}

// permits reports whether the rule allows leaving s.
func (r rule) permits(s job.Status) bool {
	return slices.Contains(r.from, s)
}

// reaches reports whether the rule may end in s.
func (r rule) reaches(s job.Status) bool {
	return slices.Contains(r.to, s)
}

// Allowed returns the actions whose source statuses include s, in table
// order. Terminal statuses yield none.
func Allowed(s job.Status) []job.Action {
	var out []job.Action
	for _, a := range []job.Action{
		job.ActionAccept, job.ActionDeliver, job.ActionConfirm,
		job.ActionCancel, job.ActionDispute, job.ActionResolve,
	} {
		if transitions[a].permits(s) {
			out = append(out, a)
		}
	}
	return out
}
