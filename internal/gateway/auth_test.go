package gateway

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/flemzord/sigbridge/internal/security"
)

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{BearerToken: "secret-token", BasicUser: "admin", BasicPass: "hunter22"}
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name string
		set  func(r *http.Request)
		want int
	}{
		{"missing header", func(*http.Request) {}, http.StatusUnauthorized},
		{"valid bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret-token") }, http.StatusNoContent},
		{"wrong bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"valid basic", func(r *http.Request) { r.SetBasicAuth("admin", "hunter22") }, http.StatusNoContent},
		{"wrong basic", func(r *http.Request) { r.SetBasicAuth("admin", "x") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			tt.set(req)
			rec := httptest.NewRecorder()
			authMiddleware(cfg, nil)(ok).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Code == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate challenge with basic auth configured")
			}
		})
	}
}

func TestAuthMiddleware_Audit(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		events []security.EventType
	)
	audit := security.NewAuditLogger(security.AuditLoggerConfig{
		OnEvent: func(e security.AuditEvent) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e.Type)
		},
	})

	h := authMiddleware(AuthConfig{BearerToken: "tok"}, audit)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	good := httptest.NewRequest(http.MethodGet, "/", nil)
	good.Header.Set("Authorization", "Bearer tok")
	h.ServeHTTP(httptest.NewRecorder(), good)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 || events[0] != security.EventAuthSuccess || events[1] != security.EventAuthFailure {
		t.Errorf("events = %v, want [auth_success auth_failure]", events)
	}
}

func TestAuthConfig_IsConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cfg  AuthConfig
		want bool
	}{
		{AuthConfig{}, false},
		{AuthConfig{BasicUser: "u"}, false},
		{AuthConfig{BasicUser: "u", BasicPass: "p"}, true},
		{AuthConfig{BearerToken: "t"}, true},
	}
	for _, tt := range tests {
		if got := tt.cfg.IsConfigured(); got != tt.want {
			t.Errorf("IsConfigured(%+v) = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}
