package bunstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/job"
	"github.com/nexora-w/TrustWork/store/internal/pgmigrate"
)

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ job.Store    = (*Store)(nil)
	_ escrow.Store = (*Store)(nil)
)

// Store is a Bun ORM implementation of store.Store using PostgreSQL dialect.
// The caller owns the *bun.DB lifecycle; Store never closes it.
type Store struct {
	db     *bun.DB
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new Bun store. The caller owns the db lifecycle; the Store
// will not close it on Close().
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *bun.DB for advanced usage.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Migrate applies the shared schema migrations. Statements go through the
// underlying *sql.DB so pgdriver binds the $n placeholders itself.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := pgmigrate.Run(ctx, sqlConn{s.db.DB}, s.logger); err != nil {
		return fmt.Errorf("trustwork/bun: %w", err)
	}
	return nil
}

// sqlConn adapts database/sql to pgmigrate.Conn.
type sqlConn struct{ db *sql.DB }

func (c sqlConn) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.db.ExecContext(ctx, query, args...)
	return err
}

func (c sqlConn) QueryBool(ctx context.Context, query string, args ...any) (bool, error) {
	var b bool
	err := c.db.QueryRowContext(ctx, query, args...).Scan(&b)
	return b, err
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op because the caller owns the *bun.DB lifecycle.
func (s *Store) Close() error {
	return nil
}
