package redis

import (
	"context"
	"encoding/json"
	"fmt"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
)

// ListTransfers returns the ledger entries of a job, oldest first.
func (s *Store) ListTransfers(ctx context.Context, jobID id.JobID) ([]*escrow.Transfer, error) {
	jID := jobID.String()
	exists, err := s.client.Exists(ctx, jobKey(jID)).Result()
	if err != nil {
		return nil, fmt.Errorf("trustwork/redis: list transfers: %w", err)
	}
	if exists == 0 {
		return nil, trustwork.ErrJobNotFound
	}

	entries, err := s.client.LRange(ctx, transfersKey(jID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("trustwork/redis: list transfers: %w", err)
	}

	out := make([]*escrow.Transfer, 0, len(entries))
	for _, e := range entries {
		var t escrow.Transfer
		if err := json.Unmarshal([]byte(e), &t); err != nil {
			return nil, fmt.Errorf("trustwork/redis: unmarshal transfer: %w", err)
		}
		out = append(out, &t)
	}
	return out, nil
}

// Balance sums the credit list of addr. Amounts are decimal strings, so
// totals keep full precision.
func (s *Store) Balance(ctx context.Context, addr identity.Address) (escrow.Amount, error) {
	entries, err := s.client.LRange(ctx, creditsKey(addr.String()), 0, -1).Result()
	if err != nil {
		return escrow.Amount{}, fmt.Errorf("trustwork/redis: balance: %w", err)
	}

	var total escrow.Amount
	for _, e := range entries {
		a, err := escrow.ParseAmount(e)
		if err != nil {
			return escrow.Amount{}, fmt.Errorf("trustwork/redis: balance entry: %w", err)
		}
		total = total.Add(a)
	}
	return total, nil
}
