package repository

import (
	"context"
	"fmt"
	"strings"
)

// Statements are kept portable between SQLite and PostgreSQL. Timestamps are
// stored as Unix nanoseconds so ordering never depends on driver time parsing.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '',
    rating DOUBLE PRECISION,
    total_votes INTEGER NOT NULL DEFAULT 0,
    created_at_ns BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS ballots (
    id TEXT PRIMARY KEY,
    vote_id TEXT NOT NULL,
    item_id TEXT NOT NULL REFERENCES items(id),
    outcome TEXT NOT NULL CHECK (outcome IN ('keep', 'trade', 'cut')),
    created_at_ns BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_ballots_item_created ON ballots(item_id, created_at_ns, id)`,
	`CREATE INDEX IF NOT EXISTS idx_ballots_vote_id ON ballots(vote_id)`,
}

// createSchema is safe to call on every start.
func (s *SQLStore) createSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites $N placeholders to ?N for SQLite.
func rebind(driver, query string) string {
	if driver != DriverSQLite {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}
