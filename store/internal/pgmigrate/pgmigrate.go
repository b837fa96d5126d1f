// Package pgmigrate applies the embedded PostgreSQL schema shared by the
// postgres and bun stores. Applied files are tracked by name in
// trustwork_migrations, so running it again is a no-op.
package pgmigrate

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Table records which migration files have been applied.
const Table = "trustwork_migrations"

// Conn is the part of a connection the runner needs. Queries use $n
// placeholders.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	QueryBool(ctx context.Context, query string, args ...any) (bool, error)
}

// Files returns the embedded migration file names in apply order.
func Files() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Run applies every file not yet recorded in Table and returns the names
// it applied.
func Run(ctx context.Context, conn Conn, logger *slog.Logger) ([]string, error) {
	if err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+Table+` (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	names, err := Files()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range names {
		done, err := conn.QueryBool(ctx,
			`SELECT EXISTS(SELECT 1 FROM `+Table+` WHERE filename = $1)`, name)
		if err != nil {
			return applied, fmt.Errorf("check migration %s: %w", name, err)
		}
		if done {
			continue
		}

		data, err := fs.ReadFile(migrationsFS, "migrations/"+name)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := conn.Exec(ctx, string(data)); err != nil {
			return applied, fmt.Errorf("execute migration %s: %w", name, err)
		}
		if err := conn.Exec(ctx, `INSERT INTO `+Table+` (filename) VALUES ($1)`, name); err != nil {
			return applied, fmt.Errorf("record migration %s: %w", name, err)
		}

		applied = append(applied, name)
		if logger != nil {
			logger.Info("applied migration", slog.String("file", name))
		}
	}
	return applied, nil
}
