// Package storetest provides a conformance suite shared by the store
// implementations.
package storetest

import (
	"context"
	"testing"

	"github.com/flemzord/sigbridge/internal/store"
)

// Stores bundles the two store contracts backed by one implementation.
type Stores struct {
	Config      store.ConfigStore
	Preferences store.PreferenceStore
}

// Run exercises s against the store contracts. Each call must receive
// fresh, empty stores.
func Run(t *testing.T, newStores func(t *testing.T) Stores) {
	t.Helper()

	t.Run("config load empty", func(t *testing.T) {
		s := newStores(t)
		got, err := s.Config.Load(context.Background(), "message_signal")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("Load = %v, want empty map", got)
		}
	})

	t.Run("config save upserts", func(t *testing.T) {
		s := newStores(t)
		ctx := context.Background()

		if err := s.Config.Save(ctx, "message_signal", map[string]string{
			"botaccount": "+14155550123",
			"verified":   "0",
		}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := s.Config.Save(ctx, "message_signal", map[string]string{"verified": "1", "botname": ""}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := s.Config.Save(ctx, "other", map[string]string{"botaccount": "x"}); err != nil {
			t.Fatalf("Save other: %v", err)
		}

		got, err := s.Config.Load(ctx, "message_signal")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		want := map[string]string{"botaccount": "+14155550123", "verified": "1", "botname": ""}
		if len(got) != len(want) {
			t.Fatalf("Load = %v, want %v", got, want)
		}
		for k, v := range want {
			if got[k] != v {
				t.Errorf("%s = %q, want %q", k, got[k], v)
			}
		}
	})

	t.Run("config save empty map", func(t *testing.T) {
		s := newStores(t)
		if err := s.Config.Save(context.Background(), "message_signal", nil); err != nil {
			t.Fatalf("Save(nil): %v", err)
		}
	})

	t.Run("preferences", func(t *testing.T) {
		s := newStores(t)
		ctx := context.Background()
		const name = "message_processor_signal_chatid"

		if v, err := s.Preferences.Preference(ctx, 5, name); err != nil || v != "" {
			t.Fatalf("Preference on empty = %q, %v", v, err)
		}
		if err := s.Preferences.SetPreference(ctx, 5, name, "+4915112345678"); err != nil {
			t.Fatalf("SetPreference: %v", err)
		}
		if err := s.Preferences.SetPreference(ctx, 5, name, "+4915112345679"); err != nil {
			t.Fatalf("SetPreference overwrite: %v", err)
		}
		if err := s.Preferences.SetPreference(ctx, 6, name, "+4915112345679"); err != nil {
			t.Fatalf("SetPreference second user: %v", err)
		}

		if v, _ := s.Preferences.Preference(ctx, 5, name); v != "+4915112345679" {
			t.Errorf("Preference(5) = %q", v)
		}
		if err := s.Preferences.UnsetPreference(ctx, 5, name); err != nil {
			t.Fatalf("UnsetPreference: %v", err)
		}
		if err := s.Preferences.UnsetPreference(ctx, 5, name); err != nil {
			t.Fatalf("UnsetPreference twice: %v", err)
		}
		if v, _ := s.Preferences.Preference(ctx, 5, name); v != "" {
			t.Errorf("Preference(5) after unset = %q", v)
		}
		if v, _ := s.Preferences.Preference(ctx, 6, name); v != "+4915112345679" {
			t.Errorf("Preference(6) = %q", v)
		}
	})
}
