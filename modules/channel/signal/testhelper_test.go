package signal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/flemzord/sigbridge/internal/security"
	"github.com/flemzord/sigbridge/internal/store"
)

const (
	testBot  = "+4915112345678"
	testUser = "+4917298765432"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type apiCall struct {
	Method string
	Path   string
	Body   map[string]any
}

type fakeReply struct {
	status int
	body   string
}

// fakeAPI is an httptest Signal REST server answering from a route table.
// Unrouted requests get 404.
type fakeAPI struct {
	t      *testing.T
	srv    *httptest.Server
	mu     sync.Mutex
	routes map[string]fakeReply
	calls  []apiCall
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, routes: make(map[string]fakeReply)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	call := apiCall{Method: r.Method, Path: r.URL.Path}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		if err := json.Unmarshal(data, &call.Body); err != nil {
			f.t.Errorf("%s %s: request body is not a JSON object: %v", r.Method, r.URL.Path, err)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			f.t.Errorf("%s %s: Content-Type = %q, want application/json", r.Method, r.URL.Path, ct)
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	reply, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		reply = fakeReply{status: http.StatusNotFound, body: `{"error":"not found"}`}
	}
	w.WriteHeader(reply.status)
	_, _ = io.WriteString(w, reply.body)
}

func (f *fakeAPI) on(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = fakeReply{status: status, body: body}
}

func (f *fakeAPI) client() *Client {
	return NewClient(f.srv.URL, f.srv.Client())
}

// callsTo returns the recorded calls to method and path.
func (f *fakeAPI) callsTo(method, path string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) allCalls() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

// listing renders an account listing body.
func listing(rows string) string {
	data, _ := json.Marshal(map[string]string{"body": rows})
	return string(data)
}

type testEnv struct {
	manager *Manager
	api     *fakeAPI
	mem     *store.Memory
	events  *auditRecorder
}

type auditRecorder struct {
	mu     sync.Mutex
	events []security.AuditEvent
}

func (a *auditRecorder) record(e security.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *auditRecorder) types() []security.EventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]security.EventType, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := newFakeAPI(t)
	mem := store.NewMemory()
	rec := &auditRecorder{}
	m := NewManager(Deps{
		API:         api.client(),
		Config:      mem,
		Preferences: mem,
		Logger:      discardLogger(),
		Audit:       security.NewAuditLogger(security.AuditLoggerConfig{OnEvent: rec.record}),
	})
	return &testEnv{manager: m, api: api, mem: mem, events: rec}
}

// seed stores cfg as the current settings.
func (e *testEnv) seed(t *testing.T, cfg BotConfig) {
	t.Helper()
	if err := saveConfig(context.Background(), e.mem, cfg, KeyAPIURL, KeyBotAccount, KeyBotName, KeyBotAbout, KeyWebhook, KeyVerified); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (e *testEnv) load(t *testing.T) BotConfig {
	t.Helper()
	cfg, err := LoadConfig(context.Background(), e.mem)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	return cfg
}
