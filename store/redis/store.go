package redis

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nexora-w/TrustWork/backoff"
	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/job"
)

// Compile-time interface checks.
var (
	_ job.Store    = (*Store)(nil)
	_ escrow.Store = (*Store)(nil)
)

// DefaultMaxRetries bounds the optimistic retries of one UpdateJob call.
const DefaultMaxRetries = 16

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMaxRetries sets how many times UpdateJob retries a transaction that
// lost a race before giving up with ErrConcurrentUpdate.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithBackoff sets the wait between UpdateJob retries.
func WithBackoff(b backoff.Strategy) Option {
	return func(s *Store) { s.backoff = b }
}

// Store implements the composite store.Store interface backed by Redis.
type Store struct {
	client     goredis.UniversalClient
	logger     *slog.Logger
	maxRetries int
	backoff    backoff.Strategy
}

// New creates a new Redis-backed store. The caller owns the Redis client
// lifecycle.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client:     client,
		logger:     slog.Default(),
		maxRetries: DefaultMaxRetries,
		backoff:    backoff.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying Redis client.
func (s *Store) Client() goredis.UniversalClient { return s.client }

// Migrate is a no-op for Redis (schemaless).
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the caller owns the Redis client lifecycle.
func (s *Store) Close() error { return nil }
