package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// isNoRows returns true when err indicates no rows were found.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// filter accumulates WHERE conditions with positional arguments.
type filter struct {
	conds []string
	args  []any
}

func (f *filter) add(cond string, args ...any) {
	for _, a := range args {
		f.args = append(f.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(f.args)), 1)
	}
	f.conds = append(f.conds, cond)
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

func (f *filter) participant(p identity.Address, as job.Side) {
	if p.IsZero() {
		return
	}
	addr := strings.ToLower(p.String())
	switch as {
	case job.SideClient:
		f.add("client = ?", addr)
	case job.SideFreelancer:
		f.add("freelancer = ?", addr)
	default:
		f.add("(client = ? OR freelancer = ?)", addr, addr)
	}
}
