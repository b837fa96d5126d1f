package bunstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
)

// ListTransfers returns the ledger entries of a job, oldest first.
func (s *Store) ListTransfers(ctx context.Context, jobID id.JobID) ([]*escrow.Transfer, error) {
	exists, err := s.db.NewSelect().Model((*jobModel)(nil)).
		Where("id = ?", int64(jobID)).
		Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("trustwork/bun: list transfers: %w", err)
	}
	if !exists {
		return nil, trustwork.ErrJobNotFound
	}

	var models []transferModel
	err = s.db.NewSelect().Model(&models).
		Where("job_id = ?", int64(jobID)).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("trustwork/bun: list transfers: %w", err)
	}

	out := make([]*escrow.Transfer, 0, len(models))
	for i := range models {
		t, convErr := fromTransferModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("trustwork/bun: list transfers: %w", convErr)
		}
		out = append(out, t)
	}
	return out, nil
}

// Balance sums every release and refund paid to addr.
func (s *Store) Balance(ctx context.Context, addr identity.Address) (escrow.Amount, error) {
	var total escrow.Amount
	err := s.db.NewSelect().
		Model((*transferModel)(nil)).
		ColumnExpr("COALESCE(SUM(amount), 0)::text").
		Where("to_addr = ?", strings.ToLower(addr.String())).
		Where("kind IN (?)", bun.In([]string{string(escrow.KindRelease), string(escrow.KindRefund)})).
		Scan(ctx, &total)
	if err != nil {
		return escrow.Amount{}, fmt.Errorf("trustwork/bun: balance: %w", err)
	}
	return total, nil
}
