package store

import (
	"context"
	"maps"
	"sync"
)

// Memory is an in-process ConfigStore and PreferenceStore. It backs tests
// and setups without a database module.
type Memory struct {
	mu     sync.RWMutex
	config map[string]map[string]string
	prefs  map[int64]map[string]string
	saves  int
}

var (
	_ ConfigStore     = (*Memory)(nil)
	_ PreferenceStore = (*Memory)(nil)
)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		config: make(map[string]map[string]string),
		prefs:  make(map[int64]map[string]string),
	}
}

// Load implements ConfigStore.
func (m *Memory) Load(_ context.Context, component string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := maps.Clone(m.config[component])
	if out == nil {
		out = make(map[string]string)
	}
	return out, nil
}

// Save implements ConfigStore.
func (m *Memory) Save(_ context.Context, component string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.config[component]
	if !ok {
		c = make(map[string]string, len(values))
		m.config[component] = c
	}
	maps.Copy(c, values)
	m.saves++
	return nil
}

// Saves returns how many Save calls were made.
func (m *Memory) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

// Preference implements PreferenceStore.
func (m *Memory) Preference(_ context.Context, userID int64, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs[userID][name], nil
}

// SetPreference implements PreferenceStore.
func (m *Memory) SetPreference(_ context.Context, userID int64, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.prefs[userID]
	if !ok {
		p = make(map[string]string)
		m.prefs[userID] = p
	}
	p[name] = value
	return nil
}

// UnsetPreference implements PreferenceStore.
func (m *Memory) UnsetPreference(_ context.Context, userID int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prefs[userID], name)
	return nil
}
