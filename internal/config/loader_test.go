package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("SIGBRIDGE_TEST_URL", "http://signal:8080")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "api_url: x", "api_url: x", false},
		{"set", "api_url: ${SIGBRIDGE_TEST_URL}", "api_url: http://signal:8080", false},
		{"default unused", "api_url: ${SIGBRIDGE_TEST_URL:-nope}", "api_url: http://signal:8080", false},
		{"default used", "bind: ${SIGBRIDGE_TEST_UNSET_BIND:-127.0.0.1:9000}", "bind: 127.0.0.1:9000", false},
		{"empty default", "token: ${SIGBRIDGE_TEST_UNSET_TOKEN:-}", "token: ", false},
		{"unresolved", "token: ${SIGBRIDGE_TEST_UNSET_TOKEN}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnv([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !strings.Contains(err.Error(), "SIGBRIDGE_TEST_UNSET_TOKEN") {
					t.Errorf("error should name the variable: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := "SIGBRIDGE_TEST_DOTENV_URL=http://from-dotenv:8080\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(envFile), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("SIGBRIDGE_TEST_DOTENV_URL") })

	yml := `version: "1"
logging:
  level: debug
modules:
  channel.signal:
    api_url: ${SIGBRIDGE_TEST_DOTENV_URL}
`
	path := filepath.Join(dir, "sigbridge.yaml")
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}

	node, ok := cfg.Modules["channel.signal"]
	if !ok {
		t.Fatal("channel.signal module missing")
	}
	var sig struct {
		APIURL string `yaml:"api_url"`
	}
	if err := node.Decode(&sig); err != nil {
		t.Fatal(err)
	}
	if sig.APIURL != "http://from-dotenv:8080" {
		t.Errorf("api_url = %q, want %q", sig.APIURL, "http://from-dotenv:8080")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolve_NamespaceOrder(t *testing.T) {
	cfg, err := Parse([]byte(`version: "1"
modules:
  gateway.http: {}
  channel.signal: {}
  telemetry.otel: {}
  store.sqlite: {}
  custom.thing: {}
`), "inline")
	if err != nil {
		t.Fatal(err)
	}

	got := Resolve(cfg)
	want := []string{"store.sqlite", "telemetry.otel", "channel.signal", "gateway.http", "custom.thing"}
	if !slices.Equal(got, want) {
		t.Errorf("Resolve = %v, want %v", got, want)
	}
}
