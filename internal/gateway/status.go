package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/sigbridge/internal/channel"
	"github.com/flemzord/sigbridge/internal/core"
	"github.com/flemzord/sigbridge/internal/metrics"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Version  string           `json:"version,omitempty"`
	Uptime   float64          `json:"uptime_seconds"`
	Modules  []string         `json:"modules"`
	Channels []string         `json:"channels"`
	Metrics  metrics.Snapshot `json:"metrics"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime:   time.Since(g.startedAt).Truncate(time.Second).Seconds(),
			Modules:  []string{},
			Channels: []string{},
			Metrics:  g.metrics.Snapshot(),
		}

		if v, ok := core.GetService[string](g.appCtx, core.ServiceVersion); ok {
			resp.Version = v
		}
		if ids, ok := core.GetService[[]core.ModuleID](g.appCtx, core.ServiceModules); ok {
			for _, id := range ids {
				resp.Modules = append(resp.Modules, string(id))
			}
		}
		if d, ok := core.GetService[*channel.Dispatcher](g.appCtx, channel.ServiceDispatcher); ok {
			resp.Channels = d.Channels()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
