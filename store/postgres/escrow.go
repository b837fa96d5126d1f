package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
)

func insertTransfer(ctx context.Context, tx pgx.Tx, t *escrow.Transfer) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO trustwork_transfers (id, job_id, kind, from_addr, to_addr, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)`,
		t.ID.String(), int64(t.JobID), string(t.Kind),
		t.From.String(), t.To.String(), t.Amount.String(), t.CreatedAt,
	)
	return err
}

// ListTransfers returns the ledger entries of a job, oldest first.
func (s *Store) ListTransfers(ctx context.Context, jobID id.JobID) ([]*escrow.Transfer, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM trustwork_jobs WHERE id = $1)`, int64(jobID),
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("trustwork/postgres: list transfers: %w", err)
	}
	if !exists {
		return nil, trustwork.ErrJobNotFound
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+transferColumns+` FROM trustwork_transfers WHERE job_id = $1 ORDER BY seq ASC`,
		int64(jobID),
	)
	if err != nil {
		return nil, fmt.Errorf("trustwork/postgres: list transfers: %w", err)
	}
	defer rows.Close()

	out := []*escrow.Transfer{}
	for rows.Next() {
		var r transferRow
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, fmt.Errorf("trustwork/postgres: scan transfer: %w", err)
		}
		t, err := fromTransferRow(&r)
		if err != nil {
			return nil, fmt.Errorf("trustwork/postgres: decode transfer: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trustwork/postgres: list transfers: %w", err)
	}
	return out, nil
}

// Balance sums every release and refund paid to addr.
func (s *Store) Balance(ctx context.Context, addr identity.Address) (escrow.Amount, error) {
	var total string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text FROM trustwork_transfers
		WHERE to_addr = $1 AND kind IN ('release', 'refund')`,
		strings.ToLower(addr.String()),
	).Scan(&total)
	if err != nil {
		return escrow.Amount{}, fmt.Errorf("trustwork/postgres: balance: %w", err)
	}
	return escrow.ParseAmount(total)
}
