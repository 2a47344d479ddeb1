package store

import (
	"context"
	"testing"
)

func TestMemory_Config(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	got, err := m.Load(ctx, "message_signal")
	if err != nil || len(got) != 0 {
		t.Fatalf("Load on empty = %v, %v", got, err)
	}

	if err := m.Save(ctx, "message_signal", map[string]string{"botaccount": "+14155550123", "verified": "0"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Save(ctx, "message_signal", map[string]string{"verified": "1"}); err != nil {
		t.Fatal(err)
	}

	got, _ = m.Load(ctx, "message_signal")
	if got["botaccount"] != "+14155550123" || got["verified"] != "1" {
		t.Errorf("Load = %v", got)
	}
	if m.Saves() != 2 {
		t.Errorf("Saves = %d, want 2", m.Saves())
	}

	got["botaccount"] = "mutated"
	again, _ := m.Load(ctx, "message_signal")
	if again["botaccount"] != "+14155550123" {
		t.Error("Load must return a copy")
	}
}

func TestMemory_Preferences(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	if v, _ := m.Preference(ctx, 3, "chat"); v != "" {
		t.Errorf("Preference on empty = %q", v)
	}
	if err := m.SetPreference(ctx, 3, "chat", "+4915112345678"); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.Preference(ctx, 3, "chat"); v != "+4915112345678" {
		t.Errorf("Preference = %q", v)
	}
	if err := m.UnsetPreference(ctx, 3, "chat"); err != nil {
		t.Fatal(err)
	}
	if err := m.UnsetPreference(ctx, 99, "chat"); err != nil {
		t.Fatalf("unset missing: %v", err)
	}
	if v, _ := m.Preference(ctx, 3, "chat"); v != "" {
		t.Errorf("Preference after unset = %q", v)
	}
}
