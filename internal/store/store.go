// Package store defines the persistence contracts sigbridge modules use:
// a per-component key/value config store and a per-user preference store.
package store

import (
	"context"
	"errors"
)

// Service names under which store modules publish their implementations.
const (
	ServiceConfig      = "store.config"
	ServicePreferences = "store.preferences"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("store: closed")

// ConfigStore persists scalar settings grouped by component
// (e.g. "message_signal").
type ConfigStore interface {
	// Load returns every key stored for component. Missing components
	// yield an empty map.
	Load(ctx context.Context, component string) (map[string]string, error)

	// Save upserts values for component in a single transaction.
	Save(ctx context.Context, component string, values map[string]string) error
}

// PreferenceStore persists named per-user preferences.
type PreferenceStore interface {
	// Preference returns the stored value, or "" when unset.
	Preference(ctx context.Context, userID int64, name string) (string, error)

	// SetPreference stores value for the user.
	SetPreference(ctx context.Context, userID int64, name, value string) error

	// UnsetPreference removes the preference. Removing a missing one is
	// not an error.
	UnsetPreference(ctx context.Context, userID int64, name string) error
}
