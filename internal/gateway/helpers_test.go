package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/sigbridge/internal/core"
	"github.com/flemzord/sigbridge/internal/logging"
	"github.com/flemzord/sigbridge/internal/metrics"
	"github.com/flemzord/sigbridge/internal/security"
)

const testToken = "test-admin-token-0123456789"

// newTestGateway provisions a gateway against a fresh AppContext and binds
// the lazily resolved services without listening.
func newTestGateway(t *testing.T, cfg Config, setup func(ctx *core.AppContext)) (*Gateway, http.Handler) {
	t.Helper()

	app := core.NewAppContext(logging.Discard(), t.TempDir())
	app.RegisterService(metrics.ServiceName, metrics.New())
	if setup != nil {
		setup(app)
	}

	g := &Gateway{config: cfg}
	g.config.defaults()
	if err := g.Provision(app.ForModule("gateway.http")); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	g.metrics, _ = core.GetService[*metrics.Metrics](app, metrics.ServiceName)
	g.audit, _ = core.GetService[*security.AuditLogger](app, security.ServiceAudit)
	return g, g.buildRouter()
}

func authedConfig() Config {
	return Config{Auth: AuthConfig{BearerToken: testToken}}
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func bearer() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testToken}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(context.Context) error { return f.err }

type fakeRegistrar struct{}

func (fakeRegistrar) PublicRoutes(r chi.Router) {
	r.Get("/connect", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("public"))
	})
}

func (fakeRegistrar) AdminRoutes(r chi.Router) {
	r.Get("/fake", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("admin"))
	})
}

type recordingWebhook struct {
	body []byte
	err  error
}

func (h *recordingWebhook) HandleWebhook(_ context.Context, _ string, body []byte, _ http.Header) error {
	h.body = body
	return h.err
}
