package config

import (
	"strings"
	"testing"

	"github.com/flemzord/sigbridge/internal/core"
	"gopkg.in/yaml.v3"
)

// stubModule is a basic module for testing.
type stubModule struct {
	id string
}

func (m *stubModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID(m.id),
		New: func() core.Module { return &stubModule{id: m.id} },
	}
}

func registerStub(t *testing.T, id string) {
	t.Helper()
	core.RegisterModule(&stubModule{id: id})
}

func TestValidate_Valid(t *testing.T) {
	id := t.Name() + ".mod"
	registerStub(t, id)
	cfg := &Config{
		Version: "1",
		Logging: LoggingConfig{Level: "debug", Format: "json"},
		Modules: map[string]yaml.Node{id: {}},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	id := t.Name() + ".mod"
	registerStub(t, id)

	tests := []struct {
		name    string
		cfg     Config
		wantMsg string
	}{
		{
			name:    "missing version",
			cfg:     Config{Modules: map[string]yaml.Node{id: {}}},
			wantMsg: "version field is required",
		},
		{
			name:    "unsupported version",
			cfg:     Config{Version: "99", Modules: map[string]yaml.Node{id: {}}},
			wantMsg: `unsupported version "99"`,
		},
		{
			name:    "no modules",
			cfg:     Config{Version: "1"},
			wantMsg: "at least one module",
		},
		{
			name:    "unknown module",
			cfg:     Config{Version: "1", Modules: map[string]yaml.Node{"nope.missing": {}}},
			wantMsg: `unknown module "nope.missing"`,
		},
		{
			name: "bad log level",
			cfg: Config{
				Version: "1",
				Logging: LoggingConfig{Level: "loud"},
				Modules: map[string]yaml.Node{id: {}},
			},
			wantMsg: "logging.level",
		},
		{
			name: "bad log format",
			cfg: Config{
				Version: "1",
				Logging: LoggingConfig{Format: "xml"},
				Modules: map[string]yaml.Node{id: {}},
			},
			wantMsg: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := &Config{Modules: map[string]yaml.Node{"ghost.one": {}, "ghost.two": {}}}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"version", "ghost.one", "ghost.two"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q: %v", want, err)
		}
	}
}

func TestValidate_SingleStore(t *testing.T) {
	registerStub(t, "store.validate_a")
	registerStub(t, "store.validate_b")

	cfg := &Config{
		Version: "1",
		Modules: map[string]yaml.Node{"store.validate_a": {}, "store.validate_b": {}},
	}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for two store modules")
	}
	if !strings.Contains(err.Error(), "only one store module") {
		t.Errorf("unexpected error: %v", err)
	}
}
