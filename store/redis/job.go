package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	trustwork "github.com/nexora-w/TrustWork"
	"github.com/nexora-w/TrustWork/backoff"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/id"
	"github.com/nexora-w/TrustWork/identity"
	"github.com/nexora-w/TrustWork/job"
)

// CreateJob takes the next id from the sequence and writes the job, its
// index entries and its hold entry in one MULTI/EXEC.
func (s *Store) CreateJob(ctx context.Context, j *job.Job, hold *escrow.Transfer) error {
	seq, err := s.client.Incr(ctx, jobSeqKey).Result()
	if err != nil {
		return fmt.Errorf("trustwork/redis: next job id: %w", err)
	}

	rec := j.Clone()
	rec.ID = id.JobID(seq)
	rec.Version = 1
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("trustwork/redis: marshal job: %w", err)
	}

	var holdData []byte
	if hold != nil {
		hold.JobID = rec.ID
		if holdData, err = json.Marshal(hold); err != nil {
			return fmt.Errorf("trustwork/redis: marshal hold: %w", err)
		}
	}

	jID := rec.ID.String()
	z := goredis.Z{Score: float64(seq), Member: jID}
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, jobKey(jID),
			"payload", payload,
			"status", string(rec.Status),
			"version", rec.Version,
		)
		pipe.ZAdd(ctx, jobIDsKey, z)
		pipe.ZAdd(ctx, statusKey(string(rec.Status)), z)
		pipe.ZAdd(ctx, clientKey(rec.Client.String()), z)
		pipe.ZAdd(ctx, freelancerKey(rec.Freelancer.String()), z)
		if holdData != nil {
			pipe.RPush(ctx, transfersKey(jID), holdData)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("trustwork/redis: create job: %w", err)
	}

	j.ID = rec.ID
	j.Version = rec.Version
	return nil
}

// GetJob retrieves a job by id.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return loadJob(ctx, s.client, jobKey(jobID.String()))
}

// UpdateJob watches the job key, applies fn and commits the record with
// its transfer. A commit that loses the race is retried against the fresh
// record up to the configured limit.
func (s *Store) UpdateJob(ctx context.Context, jobID id.JobID, fn job.Mutator) (*job.Job, error) {
	jID := jobID.String()
	key := jobKey(jID)

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		var next *job.Job
		err := s.client.Watch(ctx, func(tx *goredis.Tx) error {
			cur, err := loadJob(ctx, tx, key)
			if err != nil {
				return err
			}
			n, t, err := job.Apply(cur, fn, time.Now().UTC())
			if err != nil {
				return err
			}

			payload, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("trustwork/redis: marshal job: %w", err)
			}
			var tdata []byte
			if t != nil {
				if tdata, err = json.Marshal(t); err != nil {
					return fmt.Errorf("trustwork/redis: marshal transfer: %w", err)
				}
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.HSet(ctx, key,
					"payload", payload,
					"status", string(n.Status),
					"version", n.Version,
				)
				if n.Status != cur.Status {
					pipe.ZRem(ctx, statusKey(string(cur.Status)), jID)
					pipe.ZAdd(ctx, statusKey(string(n.Status)), goredis.Z{Score: float64(n.ID), Member: jID})
				}
				if t != nil {
					pipe.RPush(ctx, transfersKey(jID), tdata)
					if t.Credit() {
						pipe.RPush(ctx, creditsKey(t.To.String()), t.Amount.String())
					}
				}
				return nil
			})
			if err != nil {
				if errors.Is(err, goredis.TxFailedErr) {
					return err
				}
				return fmt.Errorf("trustwork/redis: update job: %w", err)
			}
			next = n
			return nil
		}, key)

		switch {
		case err == nil:
			return next, nil
		case errors.Is(err, goredis.TxFailedErr):
			s.logger.Debug("job update lost race, retrying", "job_id", jID, "attempt", attempt+1)
			if err := backoff.Wait(ctx, s.backoff, attempt+1); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: job %s after %d attempts", trustwork.ErrConcurrentUpdate, jID, s.maxRetries)
}

// ListJobs reads candidate ids from the narrowest index, loads them, and
// applies the remaining filters in id order.
func (s *Store) ListJobs(ctx context.Context, opts job.ListOpts) ([]*job.Job, error) {
	jobs, err := s.candidates(ctx, opts.Status, opts.Participant, opts.As)
	if err != nil {
		return nil, err
	}

	result := make([]*job.Job, 0, len(jobs))
	for _, j := range jobs {
		if opts.Matches(j) {
			result = append(result, j)
		}
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// CountJobs returns the number of jobs matching opts. A status-only or
// empty filter is answered from the index cardinality.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	if opts.Participant.IsZero() {
		key := jobIDsKey
		if opts.Status != "" {
			key = statusKey(string(opts.Status))
		}
		n, err := s.client.ZCard(ctx, key).Result()
		if err != nil {
			return 0, fmt.Errorf("trustwork/redis: count jobs: %w", err)
		}
		return n, nil
	}

	jobs, err := s.candidates(ctx, opts.Status, opts.Participant, opts.As)
	if err != nil {
		return 0, err
	}
	var count int64
	for _, j := range jobs {
		if opts.Matches(j) {
			count++
		}
	}
	return count, nil
}

// candidates loads every job in the index that best narrows the filter,
// ordered by id.
func (s *Store) candidates(ctx context.Context, status job.Status, p identity.Address, as job.Side) ([]*job.Job, error) {
	var keys []string
	switch {
	case !p.IsZero() && as == job.SideClient:
		keys = []string{clientKey(p.String())}
	case !p.IsZero() && as == job.SideFreelancer:
		keys = []string{freelancerKey(p.String())}
	case !p.IsZero():
		keys = []string{clientKey(p.String()), freelancerKey(p.String())}
	case status != "":
		keys = []string{statusKey(string(status))}
	default:
		keys = []string{jobIDsKey}
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, k := range keys {
		members, err := s.client.ZRange(ctx, k, 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("trustwork/redis: read index %s: %w", k, err)
		}
		for _, m := range members {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			ids = append(ids, m)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	cmds, err := s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, jID := range ids {
			pipe.HGet(ctx, jobKey(jID), "payload")
		}
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("trustwork/redis: load jobs: %w", err)
	}

	jobs := make([]*job.Job, 0, len(cmds))
	for _, cmd := range cmds {
		data, cmdErr := cmd.(*goredis.StringCmd).Bytes()
		if errors.Is(cmdErr, goredis.Nil) {
			continue
		}
		if cmdErr != nil {
			return nil, fmt.Errorf("trustwork/redis: load job: %w", cmdErr)
		}
		var j job.Job
		if err := json.Unmarshal(data, &j); err != nil {
			return nil, fmt.Errorf("trustwork/redis: unmarshal job: %w", err)
		}
		jobs = append(jobs, &j)
	}

	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID < jobs[k].ID })
	return jobs, nil
}

func loadJob(ctx context.Context, c goredis.Cmdable, key string) (*job.Job, error) {
	data, err := c.HGet(ctx, key, "payload").Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, trustwork.ErrJobNotFound
		}
		return nil, fmt.Errorf("trustwork/redis: get job: %w", err)
	}
	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("trustwork/redis: unmarshal job: %w", err)
	}
	return &j, nil
}
