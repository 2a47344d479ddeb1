package gateway

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/flemzord/sigbridge/internal/core"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string            `json:"status"` // "ok" or "degraded"
	Checks map[string]string `json:"checks,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health. It polls every
// registered HealthChecker concurrently and returns 503 if any fails.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}

		checkers := g.healthCheckers()
		if len(checkers) > 0 {
			resp.Checks = make(map[string]string, len(checkers))
		}

		ctx, cancel := context.WithTimeout(r.Context(), g.config.HealthTimeout)
		defer cancel()

		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for name, hc := range checkers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result := "ok"
				if err := hc.HealthCheck(ctx); err != nil {
					result = err.Error()
				}
				mu.Lock()
				resp.Checks[name] = result
				if result != "ok" {
					resp.Status = "degraded"
				}
				mu.Unlock()
			}()
		}
		wg.Wait()

		code := http.StatusOK
		if resp.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

// healthCheckers resolves the "health.*" services keyed by module ID.
func (g *Gateway) healthCheckers() map[string]core.HealthChecker {
	out := make(map[string]core.HealthChecker)
	for _, name := range g.appCtx.ServicesWithPrefix(core.HealthServicePrefix) {
		if hc, ok := core.GetService[core.HealthChecker](g.appCtx, name); ok {
			out[strings.TrimPrefix(name, core.HealthServicePrefix)] = hc
		}
	}
	return out
}
