package bunstore

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"

	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// whereParticipant narrows q to jobs where p sits on the requested side.
func whereParticipant(q *bun.SelectQuery, p identity.Address, as job.Side) *bun.SelectQuery {
	if p.IsZero() {
		return q
	}
	addr := strings.ToLower(p.String())
	switch as {
	case job.SideClient:
		return q.Where("client = ?", addr)
	case job.SideFreelancer:
		return q.Where("freelancer = ?", addr)
	default:
		return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("client = ?", addr).WhereOr("freelancer = ?", addr)
		})
	}
}
