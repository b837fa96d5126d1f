// Package postgres implements the store using pgx/v5 with raw SQL.
//
// Job ids come from a BIGSERIAL sequence. UpdateJob locks the job row with
// SELECT ... FOR UPDATE, runs the mutator, and writes the record together
// with its transfer row before committing. Amounts are NUMERIC(78,0) so
// any uint256 fits. Migrations are embedded SQL files applied in name
// order and tracked in trustwork_migrations.
package postgres
