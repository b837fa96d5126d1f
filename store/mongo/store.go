package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/nexora-w/TrustWork/backoff"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/job"
)

// Collection name constants.
const (
	colJobs     = "trustwork_jobs"
	colCounters = "trustwork_counters"
)

// jobsCounter is the counters document that hands out job ids.
const jobsCounter = "jobs"

// DefaultMaxRetries bounds the compare-and-swap attempts of one UpdateJob.
const DefaultMaxRetries = 16

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ job.Store    = (*Store)(nil)
	_ escrow.Store = (*Store)(nil)
)

// Store is a MongoDB implementation of store.Store.
// The caller owns the database's client; Store never disconnects it.
type Store struct {
	db         *mongod.Database
	logger     *slog.Logger
	maxRetries int
	backoff    backoff.Strategy
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMaxRetries sets how many compare-and-swap attempts UpdateJob makes
// before giving up with ErrConcurrentUpdate.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithBackoff sets the wait between compare-and-swap attempts.
func WithBackoff(b backoff.Strategy) Option {
	return func(s *Store) {
		s.backoff = b
	}
}

// New creates a new MongoDB store on db.
func New(db *mongod.Database, opts ...Option) *Store {
	s := &Store{
		db:         db,
		logger:     slog.Default(),
		maxRetries: DefaultMaxRetries,
		backoff:    backoff.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database for advanced usage.
func (s *Store) DB() *mongod.Database {
	return s.db
}

// Migrate creates the indexes of every TrustWork collection.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}

		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("trustwork/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}

// Close is a no-op because the caller owns the client lifecycle.
func (s *Store) Close() error {
	return nil
}

// ── helpers ──────────────────────────────────────────────────────

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colJobs: {
			{Keys: bson.D{{Key: "client", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "freelancer", Value: 1}, {Key: "_id", Value: 1}}},
			// Deadline sweep: status + deadline.
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "deadline", Value: 1}}},
			// Balance lookups.
			{Keys: bson.D{{Key: "transfers.to", Value: 1}}},
		},
	}
}
