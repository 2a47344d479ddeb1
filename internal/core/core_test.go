package core

import (
	"context"
	"errors"
	"slices"
	"testing"
)

type orderedModule struct {
	id       ModuleID
	events   *[]string
	startErr error
}

func (m *orderedModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{
		ID: m.id,
		New: func() Module {
			return &orderedModule{id: m.id, events: m.events, startErr: m.startErr}
		},
	}
}

func (m *orderedModule) Start() error {
	if m.startErr != nil {
		return m.startErr
	}
	*m.events = append(*m.events, "start "+string(m.id))
	return nil
}

func (m *orderedModule) Stop(_ context.Context) error {
	*m.events = append(*m.events, "stop "+string(m.id))
	return nil
}

func TestApp_StartStopOrder(t *testing.T) {
	t.Cleanup(resetRegistry)

	var events []string
	RegisterModule(&orderedModule{id: "store.a", events: &events})
	RegisterModule(&orderedModule{id: "channel.b", events: &events})
	RegisterModule(&orderedModule{id: "gateway.c", events: &events})

	app := NewApp(NewAppContext(nil, t.TempDir()))
	if err := app.LoadModules([]string{"store.a", "channel.b", "gateway.c"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	app.Stop()

	want := []string{
		"start store.a", "start channel.b", "start gateway.c",
		"stop gateway.c", "stop channel.b", "stop store.a",
	}
	if !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}

	loaded, ok := GetService[[]ModuleID](app.Context(), ServiceModules)
	if !ok || len(loaded) != 3 {
		t.Errorf("core.modules service = %v, %v", loaded, ok)
	}
	if mod, ok := app.Module("channel.b"); !ok || mod.ModuleInfo().ID != "channel.b" {
		t.Errorf("Module(channel.b) = %v, %v", mod, ok)
	}
	if _, ok := app.Module("channel.x"); ok {
		t.Error("Module(channel.x) found")
	}
}

func TestApp_StartFailureStopsStarted(t *testing.T) {
	t.Cleanup(resetRegistry)

	var events []string
	RegisterModule(&orderedModule{id: "store.a", events: &events})
	RegisterModule(&orderedModule{id: "gateway.b", events: &events, startErr: errors.New("listen boom")})

	app := NewApp(NewAppContext(nil, t.TempDir()))
	if err := app.LoadModules([]string{"store.a", "gateway.b"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); err == nil {
		t.Fatal("expected start error")
	}

	want := []string{"start store.a", "stop store.a"}
	if !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestApp_RunStopsOnContextCancel(t *testing.T) {
	t.Cleanup(resetRegistry)

	var events []string
	RegisterModule(&orderedModule{id: "store.a", events: &events})

	app := NewApp(NewAppContext(nil, t.TempDir()))
	if err := app.LoadModules([]string{"store.a"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"start store.a", "stop store.a"}
	if !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestRegisterModule_PanicsOnDuplicate(t *testing.T) {
	t.Cleanup(resetRegistry)

	var events []string
	RegisterModule(&orderedModule{id: "store.dup", events: &events})

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	RegisterModule(&orderedModule{id: "store.dup", events: &events})
}

func TestGetModulesByNamespace(t *testing.T) {
	t.Cleanup(resetRegistry)

	var events []string
	RegisterModule(&orderedModule{id: "store.sqlite", events: &events})
	RegisterModule(&orderedModule{id: "store.postgres", events: &events})
	RegisterModule(&orderedModule{id: "storex.other", events: &events})

	got := GetModulesByNamespace("store")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "store.postgres" || got[1].ID != "store.sqlite" {
		t.Errorf("ids = %s, %s", got[0].ID, got[1].ID)
	}
}
