package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const upsertConfig = `INSERT INTO config (component, name, value) VALUES ($1, $2, $3)
ON CONFLICT (component, name) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

const upsertPreference = `INSERT INTO user_preferences (user_id, name, value) VALUES ($1, $2, $3)
ON CONFLICT (user_id, name) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

// Store implements store.ConfigStore and store.PreferenceStore on a
// pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Load implements store.ConfigStore.
func (s *Store) Load(ctx context.Context, component string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT name, value FROM config WHERE component = $1", component)
	if err != nil {
		return nil, fmt.Errorf("postgres: load %s: %w", component, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("postgres: scan %s: %w", component, err)
		}
		out[name] = value
	}
	return out, rows.Err()
}

// Save implements store.ConfigStore. All values go out as one batch in
// one transaction.
func (s *Store) Save(ctx context.Context, component string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for name, value := range values {
			batch.Queue(upsertConfig, component, name, value)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres: save %s: %w", component, err)
		}
		return nil
	})
}

// Preference implements store.PreferenceStore.
func (s *Store) Preference(ctx context.Context, userID int64, name string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		"SELECT value FROM user_preferences WHERE user_id = $1 AND name = $2", userID, name,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres: preference %s for user %d: %w", name, userID, err)
	}
	return value, nil
}

// SetPreference implements store.PreferenceStore.
func (s *Store) SetPreference(ctx context.Context, userID int64, name, value string) error {
	if _, err := s.pool.Exec(ctx, upsertPreference, userID, name, value); err != nil {
		return fmt.Errorf("postgres: set preference %s for user %d: %w", name, userID, err)
	}
	return nil
}

// UnsetPreference implements store.PreferenceStore.
func (s *Store) UnsetPreference(ctx context.Context, userID int64, name string) error {
	if _, err := s.pool.Exec(ctx,
		"DELETE FROM user_preferences WHERE user_id = $1 AND name = $2", userID, name,
	); err != nil {
		return fmt.Errorf("postgres: unset preference %s for user %d: %w", name, userID, err)
	}
	return nil
}
