package signal

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/sigbridge/internal/gateway"
	"github.com/flemzord/sigbridge/internal/security"
)

const maxAPIBodyBytes = 64 << 10

var errBadUserID = errors.New("signal: invalid user id")

// PublicRoutes implements gateway.RouteRegistrar. The connect endpoint
// authenticates requests through its session token.
func (s *Signal) PublicRoutes(r chi.Router) {
	r.Method(http.MethodGet, ConnectPath, s.connect)
	r.Method(http.MethodPost, ConnectPath, s.connect)
}

// AdminRoutes implements gateway.RouteRegistrar.
func (s *Signal) AdminRoutes(r chi.Router) {
	r.Route("/signal", func(r chi.Router) {
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings/{key}", s.handleChangeSetting)
		r.Post("/verify", s.handleVerify)
		r.Post("/sessions", s.handleIssueSession)
	})
	r.Get("/users/{id}/signal", s.handleGetUserLink)
	r.Delete("/users/{id}/signal", s.handleDeleteUserLink)
}

type settingsResponse struct {
	Config         BotConfig `json:"config"`
	State          State     `json:"state"`
	DefaultBotName string    `json:"default_bot_name,omitempty"`
}

func (s *Signal) settings(cfg BotConfig, pending string) settingsResponse {
	resp := settingsResponse{Config: cfg, State: StateOf(cfg, pending)}
	if cfg.Account == "" {
		resp.DefaultBotName = DefaultBotName(s.config.SiteURL)
	}
	return resp
}

func (s *Signal) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.manager.Load(r.Context())
	if err != nil {
		gateway.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	gateway.WriteJSON(w, http.StatusOK, s.settings(cfg, ""))
}

type changeRequest struct {
	Value string `json:"value"`
	Actor Actor  `json:"actor"`
}

type noticeJSON struct {
	Level NoticeLevel `json:"level"`
	Key   string      `json:"key"`
	Text  string      `json:"text"`
}

type changeResponse struct {
	settingsResponse
	Notice      *noticeJSON `json:"notice,omitempty"`
	RedirectURL string      `json:"redirect_url,omitempty"`
}

func (s *Signal) handleChangeSetting(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	if err := gateway.DecodeJSON(w, r, maxAPIBodyBytes, &req); err != nil {
		gateway.WriteError(w, http.StatusBadRequest, err)
		return
	}
	key := chi.URLParam(r, "key")

	cfg, err := s.manager.Load(r.Context())
	if err != nil {
		gateway.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	out, err := s.manager.OnConfigChange(r.Context(), cfg, key, req.Value)
	if err != nil {
		s.logger.Warn("signal setting change failed", "key", key, "error", err)
		gateway.WriteError(w, gateway.ErrorStatus(err), err)
		return
	}

	pending := ""
	resp := changeResponse{}
	if out.Notice != nil {
		resp.Notice = &noticeJSON{Level: out.Notice.Level, Key: out.Notice.Key, Text: out.Notice.Text(req.Actor.Lang)}
	}
	if out.Redirect != nil {
		pending = out.Redirect.Account
		// The admin API is authenticated, so the captcha session is
		// issued with admin rights.
		actor := req.Actor
		actor.SiteAdmin = true
		token, err := s.issueSession(actor)
		if err != nil {
			gateway.WriteError(w, http.StatusInternalServerError, err)
			return
		}
		resp.RedirectURL = s.connect.link(out.Redirect.Action, token, url.Values{"botaccount": {out.Redirect.Account}})
	}
	resp.settingsResponse = s.settings(out.Config, pending)
	gateway.WriteJSON(w, http.StatusOK, resp)
}

type verifyResponse struct {
	settingsResponse
	Verified bool `json:"verified"`
}

func (s *Signal) handleVerify(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.manager.Load(r.Context())
	if err != nil {
		gateway.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	if cfg.Account == "" {
		gateway.WriteError(w, gateway.ErrorStatus(ErrNotConfigured), ErrNotConfigured)
		return
	}
	verified, next, err := s.manager.IsAccountVerified(r.Context(), cfg, "")
	if err != nil {
		gateway.WriteError(w, gateway.ErrorStatus(err), err)
		return
	}
	gateway.WriteJSON(w, http.StatusOK, verifyResponse{settingsResponse: s.settings(next, ""), Verified: verified})
}

type sessionResponse struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	ConnectURL string    `json:"connect_url"`
	RemoveURL  string    `json:"remove_url"`
}

func (s *Signal) handleIssueSession(w http.ResponseWriter, r *http.Request) {
	var actor Actor
	if err := gateway.DecodeJSON(w, r, maxAPIBodyBytes, &actor); err != nil {
		gateway.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if actor.UserID <= 0 {
		gateway.WriteError(w, http.StatusBadRequest, errBadUserID)
		return
	}

	token, err := s.issueSession(actor)
	if err != nil {
		gateway.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	user := url.Values{"userid": {strconv.FormatInt(actor.UserID, 10)}}
	gateway.WriteJSON(w, http.StatusCreated, sessionResponse{
		Token:      token,
		ExpiresAt:  time.Now().Add(s.signer.TTL()).UTC(),
		ConnectURL: s.connect.link(ActionConnectUser, token, user),
		RemoveURL:  s.connect.link(ActionRemoveUser, token, user),
	})
}

func (s *Signal) issueSession(actor Actor) (string, error) {
	token, err := s.signer.Issue(security.SessionClaims{
		UserID:    actor.UserID,
		FirstName: actor.FirstName,
		Lang:      actor.Lang,
		Admin:     actor.SiteAdmin,
	})
	if err != nil {
		return "", err
	}
	s.audit.Log(security.AuditEvent{Type: security.EventSessionIssued, UserID: actor.UserID})
	return token, nil
}

type userLinkResponse struct {
	UserID  int64  `json:"user_id"`
	Linked  bool   `json:"linked"`
	Account string `json:"account,omitempty"`
}

func userIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadUserID
	}
	return id, nil
}

func (s *Signal) handleGetUserLink(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		gateway.WriteError(w, http.StatusBadRequest, err)
		return
	}
	account, err := s.manager.UserAccount(r.Context(), id)
	if err != nil {
		gateway.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	gateway.WriteJSON(w, http.StatusOK, userLinkResponse{UserID: id, Linked: account != "", Account: account})
}

// handleDeleteUserLink unlinks a user. The actor comes from the JSON body
// or the actor_id and admin query parameters, and defaults to the user.
func (s *Signal) handleDeleteUserLink(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		gateway.WriteError(w, http.StatusBadRequest, err)
		return
	}

	var body struct {
		Actor *Actor `json:"actor"`
	}
	if err := gateway.DecodeJSON(w, r, maxAPIBodyBytes, &body); err != nil {
		gateway.WriteError(w, http.StatusBadRequest, err)
		return
	}

	actor := Actor{UserID: id}
	switch q := r.URL.Query(); {
	case body.Actor != nil:
		actor = *body.Actor
	case q.Has("actor_id"):
		actorID, err := strconv.ParseInt(q.Get("actor_id"), 10, 64)
		if err != nil {
			gateway.WriteError(w, http.StatusBadRequest, errBadUserID)
			return
		}
		actor = Actor{UserID: actorID, SiteAdmin: parseBool(q.Get("admin"))}
	}

	if err := s.manager.RemoveUserAccount(r.Context(), id, actor); err != nil {
		gateway.WriteError(w, gateway.ErrorStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
