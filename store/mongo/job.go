package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/backoff"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// withoutTransfers keeps job reads from loading the embedded ledger.
var withoutTransfers = bson.D{{Key: "transfers", Value: 0}}

// CreateJob takes the next id from the counters collection and inserts the
// job document with its hold entry embedded.
func (s *Store) CreateJob(ctx context.Context, j *job.Job, hold *escrow.Transfer) error {
	seq, err := s.nextJobID(ctx)
	if err != nil {
		return err
	}

	m := toJobModel(j)
	m.ID = seq
	m.Version = 1
	if hold != nil {
		hold.JobID = id.JobID(seq)
		m.Transfers = []transferModel{toTransferModel(hold)}
	}

	if _, err := s.db.Collection(colJobs).InsertOne(ctx, m); err != nil {
		return fmt.Errorf("trustwork/mongo: create job: %w", err)
	}
	j.ID = id.JobID(seq)
	j.Version = 1
	return nil
}

func (s *Store) nextJobID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": jobsCounter},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("trustwork/mongo: next job id: %w", err)
	}
	return counter.Seq, nil
}

// GetJob retrieves a job by id.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	var m jobModel
	err := s.db.Collection(colJobs).FindOne(ctx,
		bson.M{"_id": int64(jobID)},
		options.FindOne().SetProjection(withoutTransfers),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, trustwork.ErrJobNotFound
		}
		return nil, fmt.Errorf("trustwork/mongo: get job: %w", err)
	}
	return fromJobModel(&m)
}

// UpdateJob applies fn and writes the result only if the stored version is
// still the one fn saw. A lost race is retried against the fresh document.
func (s *Store) UpdateJob(ctx context.Context, jobID id.JobID, fn job.Mutator) (*job.Job, error) {
	col := s.db.Collection(colJobs)

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		cur, err := s.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		next, t, err := job.Apply(cur, fn, time.Now().UTC())
		if err != nil {
			return nil, err
		}

		m := toJobModel(next)
		update := bson.M{
			"$set": bson.M{
				"status":            m.Status,
				"deliverable_ref":   m.DeliverableRef,
				"dispute_raised_by": m.DisputeRaisedBy,
				"resolution":        m.Resolution,
				"resolved_by":       m.ResolvedBy,
				"escrow_held":       m.EscrowHeld,
				"settlement":        m.Settlement,
				"settled_to":        m.SettledTo,
				"version":           m.Version,
				"delivered_at":      m.DeliveredAt,
				"settled_at":        m.SettledAt,
				"updated_at":        m.UpdatedAt,
			},
		}
		if t != nil {
			update["$push"] = bson.M{"transfers": toTransferModel(t)}
		}

		res, err := col.UpdateOne(ctx,
			bson.M{"_id": int64(jobID), "version": cur.Version},
			update,
		)
		if err != nil {
			return nil, fmt.Errorf("trustwork/mongo: update job: %w", err)
		}
		if res.MatchedCount == 1 {
			return next, nil
		}
		s.logger.Debug("job update lost race, retrying", "job_id", jobID.String(), "attempt", attempt+1)
		if err := backoff.Wait(ctx, s.backoff, attempt+1); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: job %s after %d attempts", trustwork.ErrConcurrentUpdate, jobID, s.maxRetries)
}

// ListJobs returns jobs matching opts ordered by id.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	filter := jobFilter(opts.Status, opts.Participant, opts.As)
	if !opts.DeadlineBefore.IsZero() {
		filter["deadline"] = bson.M{"$lt": opts.DeadlineBefore}
	}
	if opts.AfterID > 0 {
		filter["_id"] = bson.M{"$gt": int64(opts.AfterID)}
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(withoutTransfers)
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cursor, err := s.db.Collection(colJobs).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("trustwork/mongo: list jobs: %w", err)
	}

	var models []jobModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("trustwork/mongo: list jobs decode: %w", err)
	}

	jobs := make([]*job.Job, 0, len(models))
	for i := range models {
		j, convErr := fromJobModel(&models[i])
		if convErr != nil {
			return nil, fmt.Errorf("trustwork/mongo: list jobs convert: %w", convErr)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// CountJobs returns the number of jobs matching opts.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	n, err := s.db.Collection(colJobs).CountDocuments(ctx, jobFilter(opts.Status, opts.Participant, opts.As))
	if err != nil {
		return 0, fmt.Errorf("trustwork/mongo: count jobs: %w", err)
	}
	return n, nil
}

func jobFilter(status job.Status, p identity.Address, as job.Side) bson.M {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}
	if p.IsZero() {
		return filter
	}
	addr := strings.ToLower(p.String())
	switch as {
	case job.SideClient:
		filter["client"] = addr
	case job.SideFreelancer:
		filter["freelancer"] = addr
	default:
		filter["$or"] = bson.A{bson.M{"client": addr}, bson.M{"freelancer": addr}}
	}
	return filter
}
