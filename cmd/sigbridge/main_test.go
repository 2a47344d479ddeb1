package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/flemzord/sigbridge/modules/channel/signal"
)

const (
	botNumber  = "+4915112345678"
	userNumber = "+4917298765432"
)

// signalAPI is a minimal stand-in for the Signal REST API.
type signalAPI struct {
	srv *httptest.Server

	mu     sync.Mutex
	routes map[string]string
	calls  []string
}

func newSignalAPI(t *testing.T) *signalAPI {
	t.Helper()
	api := &signalAPI{routes: map[string]string{}}
	api.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		key := r.Method + " " + r.URL.Path
		api.mu.Lock()
		api.calls = append(api.calls, key)
		body, ok := api.routes[key]
		api.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(api.srv.Close)
	return api
}

func (a *signalAPI) on(method, path, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.routes[method+" "+path] = body
}

func (a *signalAPI) called(method, path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range a.calls {
		if c == method+" "+path {
			return true
		}
	}
	return false
}

func listing(rows string) string {
	data, _ := json.Marshal(map[string]string{"body": rows})
	return string(data)
}

func writeConfig(t *testing.T, apiURL string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`version: "1"
modules:
  store.sqlite:
    path: %s
  channel.signal:
    api_url: %s
    site_url: https://moodle.example.org
    session_secret: %s
`, filepath.Join(dir, "bridge.db"), apiURL, strings.Repeat("k", 32))
	path := filepath.Join(dir, "sigbridge.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// noPrompts fails the test on any interactive question.
func noPrompts(t *testing.T) {
	t.Helper()
	prompt = func(title, _ string, _ func(string) error) (string, error) {
		t.Errorf("unexpected prompt %q", title)
		return "", errNotInteractive
	}
	confirm = func(title, _, _ string) (bool, error) {
		t.Errorf("unexpected confirm %q", title)
		return false, errNotInteractive
	}
	t.Cleanup(func() {
		prompt = huhPrompt
		confirm = huhConfirm
	})
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"sigbridge dev", "channel.signal", "store.sqlite", "gateway.http"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCheck(t *testing.T) {
	api := newSignalAPI(t)
	cfg := writeConfig(t, api.srv.URL)

	out, err := run(t, "config", "check", cfg)
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "Configuration OK") || !strings.Contains(out, "channel.signal") {
		t.Errorf("output = %s", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("version: \"2\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "config", "check", bad); err == nil {
		t.Error("expected error for unsupported version")
	}
}

func TestAccountSetupAndStatus(t *testing.T) {
	noPrompts(t)
	t.Setenv("LANG", "en_US.UTF-8")
	api := newSignalAPI(t)
	cfg := writeConfig(t, api.srv.URL)

	out, err := run(t, "-c", cfg, "account", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, string(signal.StateUnconfigured)) {
		t.Errorf("status = %s", out)
	}

	api.on(http.MethodGet, "/accounts/"+botNumber, listing(botNumber+": false"))
	api.on(http.MethodPost, "/accounts/"+botNumber, `{}`)
	api.on(http.MethodPatch, "/accounts/"+botNumber+"/verify", `{}`)

	out, err = run(t, "-c", cfg, "account", "setup", botNumber, "--captcha", "signalcaptcha://abc", "--token", "123-456")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	for _, want := range []string{"Signal account successfully created", "Signal account successfully verified"} {
		if !strings.Contains(out, want) {
			t.Errorf("setup output missing %q:\n%s", want, out)
		}
	}
	if !api.called(http.MethodPatch, "/accounts/"+botNumber+"/verify") {
		t.Error("verify endpoint not called")
	}

	out, err = run(t, "-c", cfg, "account", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, botNumber) || !strings.Contains(out, string(signal.StateVerified)) {
		t.Errorf("status after setup = %s", out)
	}
}

func TestAccountSetup_InvalidNumber(t *testing.T) {
	noPrompts(t)
	api := newSignalAPI(t)
	cfg := writeConfig(t, api.srv.URL)

	_, err := run(t, "-c", cfg, "account", "setup", "12345")
	if !errors.Is(err, signal.ErrInvalidNumber) {
		t.Errorf("err = %v, want ErrInvalidNumber", err)
	}
}

func TestAccountDelete_NotConfigured(t *testing.T) {
	noPrompts(t)
	t.Setenv("LANG", "de_DE.UTF-8")
	api := newSignalAPI(t)
	cfg := writeConfig(t, api.srv.URL)

	_, err := run(t, "-c", cfg, "account", "delete", "--yes")
	if !errors.Is(err, signal.ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if got := describe(err); got != signal.T("de", "notconfigured", nil) {
		t.Errorf("describe = %q", got)
	}
}

func TestUserLinkAndSend(t *testing.T) {
	noPrompts(t)
	t.Setenv("LANG", "C")
	api := newSignalAPI(t)
	cfg := writeConfig(t, api.srv.URL)

	api.on(http.MethodGet, "/accounts/"+botNumber, listing(botNumber+": true"))
	if _, err := run(t, "-c", cfg, "account", "setup", botNumber); err != nil {
		t.Fatalf("setup: %v", err)
	}

	api.on(http.MethodPost, "/messages/consent/"+botNumber, `{}`)
	if _, err := run(t, "-c", cfg, "user", "link", "42", userNumber, "--name", "Ana"); err != nil {
		t.Fatalf("link: %v", err)
	}
	out, err := run(t, "-c", cfg, "user", "status", "42")
	if err != nil || !strings.Contains(out, userNumber) {
		t.Errorf("user status = %q, %v", out, err)
	}

	api.on(http.MethodPost, "/messages/"+botNumber, `{}`)
	if out, err := run(t, "-c", cfg, "send", "--user", "42", "Grades", "are", "out"); err != nil || !strings.Contains(out, "sent") {
		t.Errorf("send = %q, %v", out, err)
	}
	if _, err := run(t, "-c", cfg, "send", "hello"); err == nil {
		t.Error("send without recipient succeeded")
	}

	if _, err := run(t, "-c", cfg, "user", "unlink", "42"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	out, _ = run(t, "-c", cfg, "user", "status", "42")
	if !strings.Contains(out, "user 42: -") {
		t.Errorf("status after unlink = %q", out)
	}

	if _, err := run(t, "-c", cfg, "user", "status", "abc"); err == nil {
		t.Error("accepted a non-numeric user id")
	}
}

func TestServiceConfig(t *testing.T) {
	c := serviceConfig("/etc/sigbridge/sigbridge.yaml")
	want := []string{"service", "run", "--config", "/etc/sigbridge/sigbridge.yaml"}
	if strings.Join(c.Arguments, " ") != strings.Join(want, " ") {
		t.Errorf("arguments = %v, want %v", c.Arguments, want)
	}
	if c.Name != "sigbridge" {
		t.Errorf("name = %q", c.Name)
	}
}
