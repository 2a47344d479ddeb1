package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Store implements store.ConfigStore and store.PreferenceStore on one
// SQLite database.
type Store struct {
	db *sql.DB
}

// Load implements store.ConfigStore.
func (s *Store) Load(ctx context.Context, component string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, value FROM config WHERE component = ?", component)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load %s: %w", component, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s: %w", component, err)
		}
		out[name] = value
	}
	return out, rows.Err()
}

// Save implements store.ConfigStore.
func (s *Store) Save(ctx context.Context, component string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin save %s: %w", component, err)
	}
	defer func() { _ = tx.Rollback() }()

	for name, value := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO config (component, name, value) VALUES (?, ?, ?)
			 ON CONFLICT(component, name) DO UPDATE SET
			   value = excluded.value,
			   updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
			component, name, value,
		); err != nil {
			return fmt.Errorf("sqlite: save %s.%s: %w", component, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit save %s: %w", component, err)
	}
	return nil
}

// Preference implements store.PreferenceStore.
func (s *Store) Preference(ctx context.Context, userID int64, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM user_preferences WHERE user_id = ? AND name = ?", userID, name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: preference %s for user %d: %w", name, userID, err)
	}
	return value, nil
}

// SetPreference implements store.PreferenceStore.
func (s *Store) SetPreference(ctx context.Context, userID int64, name, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_preferences (user_id, name, value) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, name) DO UPDATE SET
		   value = excluded.value,
		   updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
		userID, name, value,
	)
	if err != nil {
		return fmt.Errorf("sqlite: set preference %s for user %d: %w", name, userID, err)
	}
	return nil
}

// UnsetPreference implements store.PreferenceStore.
func (s *Store) UnsetPreference(ctx context.Context, userID int64, name string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM user_preferences WHERE user_id = ? AND name = ?", userID, name,
	); err != nil {
		return fmt.Errorf("sqlite: unset preference %s for user %d: %w", name, userID, err)
	}
	return nil
}
