package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS config (
		component  TEXT        NOT NULL,
		name       TEXT        NOT NULL,
		value      TEXT        NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (component, name)
	)`,

	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id    BIGINT      NOT NULL,
		name       TEXT        NOT NULL,
		value      TEXT        NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, name)
	)`,
}

// migrate applies the schema once per version inside a transaction.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("postgres: create schema_version: %w", err)
	}

	var current int
	if err := tx.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("postgres: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return tx.Commit(ctx)
	}

	for _, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_version (version) VALUES ($1) ON CONFLICT DO NOTHING", schemaVersion,
	); err != nil {
		return fmt.Errorf("postgres: record schema version: %w", err)
	}

	return tx.Commit(ctx)
}
