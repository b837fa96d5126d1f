// Package store defines the aggregate persistence interface. The job and
// escrow subsystems each define their own store interface; the composite
// Store composes them. Backends: Memory, Postgres, Bun, Redis, and Mongo.
package store

import (
	"context"

	"github.com/nexora-w/TrustWork/escrow"
	"github.com/nexora-w/TrustWork/job"
)

// Store is the aggregate persistence interface.
// A single backend implements all of it so that a job record and its
// ledger entries always live in the same transactional domain.
type Store interface {
	job.Store
	escrow.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases resources owned by the store.
	Close() error
}
