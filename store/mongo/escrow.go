package mongo

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
)

// ledgerModel projects a job document down to its ledger entries.
type ledgerModel struct {
	ID        int64           `bson:"_id"`
	Transfers []transferModel `bson:"transfers"`
}

var creditKinds = bson.A{string(escrow.KindRelease), string(escrow.KindRefund)}

// ListTransfers returns the ledger entries of a job, oldest first.
func (s *Store) ListTransfers(ctx context.Context, jobID id.JobID) ([]*escrow.Transfer, error) {
	var m ledgerModel
	err := s.db.Collection(colJobs).FindOne(ctx,
		bson.M{"_id": int64(jobID)},
		options.FindOne().SetProjection(bson.D{{Key: "transfers", Value: 1}}),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, trustwork.ErrJobNotFound
		}
		return nil, fmt.Errorf("trustwork/mongo: list transfers: %w", err)
	}

	out := make([]*escrow.Transfer, 0, len(m.Transfers))
	for i := range m.Transfers {
		t, convErr := fromTransferModel(m.ID, &m.Transfers[i])
		if convErr != nil {
			return nil, fmt.Errorf("trustwork/mongo: list transfers convert: %w", convErr)
		}
		out = append(out, t)
	}
	return out, nil
}

// Balance sums every release and refund paid to addr. The sum runs in Go
// because amounts are stored as decimal strings.
func (s *Store) Balance(ctx context.Context, addr identity.Address) (escrow.Amount, error) {
	to := strings.ToLower(addr.String())
	cursor, err := s.db.Collection(colJobs).Find(ctx,
		bson.M{"transfers": bson.M{"$elemMatch": bson.M{
			"to":   to,
			"kind": bson.M{"$in": creditKinds},
		}}},
		options.Find().SetProjection(bson.D{{Key: "transfers", Value: 1}}),
	)
	if err != nil {
		return escrow.Amount{}, fmt.Errorf("trustwork/mongo: balance: %w", err)
	}

	var models []ledgerModel
	if err := cursor.All(ctx, &models); err != nil {
		return escrow.Amount{}, fmt.Errorf("trustwork/mongo: balance decode: %w", err)
	}

	var total escrow.Amount
	for _, m := range models {
		for _, t := range m.Transfers {
			if t.To != to || (t.Kind != string(escrow.KindRelease) && t.Kind != string(escrow.KindRefund)) {
				continue
			}
			a, err := escrow.ParseAmount(t.Amount)
			if err != nil {
				return escrow.Amount{}, fmt.Errorf("trustwork/mongo: balance entry %s: %w", t.ID, err)
			}
			total = total.Add(a)
		}
	}
	return total, nil
}
