// Package gateway implements the "gateway.http" module: the HTTP server
// for health, metrics, webhooks, the connect pages of channel modules and
// the authenticated admin API. It binds to loopback by default.
package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/flemzord/sigbridge/internal/channel"
	"github.com/flemzord/sigbridge/internal/core"
	"github.com/flemzord/sigbridge/internal/security"
	"github.com/flemzord/sigbridge/pkg/message"
)

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Loaded    bool   `json:"loaded"`
}

// handleGetAllModules lists all compiled modules and marks the loaded ones.
func (g *Gateway) handleGetAllModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		loaded, _ := core.GetService[[]core.ModuleID](g.appCtx, core.ServiceModules)

		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Name:      m.ID.Name(),
				Loaded:    slices.Contains(loaded, m.ID),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// sendResponse is the JSON response for POST /api/messages.
type sendResponse struct {
	Sent    bool   `json:"sent"`
	Channel string `json:"channel"`
}

// handleSendMessage delivers an outbound message through the channel
// dispatcher.
func (g *Gateway) handleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg message.OutboundMessage
		if err := DecodeJSON(w, r, g.config.MaxBodyBytes, &msg); err != nil {
			WriteError(w, http.StatusBadRequest, err)
			return
		}
		if msg.Channel == "" {
			msg.Channel = "signal"
		}

		dispatcher, ok := core.GetService[*channel.Dispatcher](g.appCtx, channel.ServiceDispatcher)
		if !ok {
			WriteError(w, http.StatusServiceUnavailable, errors.New("no channel module loaded"))
			return
		}

		if err := dispatcher.Send(r.Context(), msg); err != nil {
			g.logger.Warn("message send failed",
				"channel", msg.Channel,
				"request_id", RequestID(r.Context()),
				"error", err,
			)
			WriteError(w, ErrorStatus(err), err)
			return
		}

		writeJSON(w, http.StatusOK, sendResponse{Sent: true, Channel: msg.Channel})
	}
}

// ErrorStatus maps err to an HTTP status. Errors that implement
// HTTPStatus() int choose their own; unknown channels are 404.
func ErrorStatus(err error) int {
	var coded interface{ HTTPStatus() int }
	switch {
	case errors.As(err, &coded):
		return coded.HTTPStatus()
	case errors.Is(err, channel.ErrNoChannel):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON body of error responses.
type errorBody struct {
	Error string `json:"error"`
	Key   string `json:"key,omitempty"`
}

// WriteError writes err as {"error": ...}. Errors that implement
// MessageKey() string also report their key.
func WriteError(w http.ResponseWriter, code int, err error) {
	body := errorBody{Error: err.Error()}
	var keyed interface{ MessageKey() string }
	if errors.As(err, &keyed) {
		body.Key = keyed.MessageKey()
	}
	writeJSON(w, code, body)
}

// DecodeJSON reads a bounded JSON body into v after checking its nesting.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int, v any) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(maxBytes)))
	if err != nil {
		return security.ErrPayloadTooLarge
	}
	if err := security.ValidatePayload(raw, security.PayloadLimits{MaxSize: maxBytes}); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// WriteJSON encodes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	writeJSON(w, code, v)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
