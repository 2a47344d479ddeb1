package signal

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/flemzord/sigbridge/internal/metrics"
	"github.com/flemzord/sigbridge/internal/security"
	"github.com/flemzord/sigbridge/internal/store"
)

// Actor is the platform user on whose behalf an operation runs.
type Actor struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name,omitempty"`
	Lang      string `json:"lang,omitempty"`
	SiteAdmin bool   `json:"admin,omitempty"`
}

// SendRequest describes one outbound message.
type SendRequest struct {
	// Message is the plain text, used when Fields is nil.
	Message string
	// Fields is a structured message merged under Params.
	Fields map[string]any
	// UserID, when set, resolves the recipient from the user's link.
	UserID int64
	// Params are extra API parameters. They win over Fields.
	Params map[string]any
}

// Deps are the collaborators of a Manager.
type Deps struct {
	API         API
	Config      store.ConfigStore
	Preferences store.PreferenceStore
	Logger      *slog.Logger
	Audit       *security.AuditLogger
	Metrics     *metrics.Metrics
}

// Manager implements the bot account lifecycle, user linkage and outbound
// messaging against the Signal REST API. It keeps no state besides the
// stores: every operation takes the snapshot it acts on and returns the
// resulting one.
type Manager struct {
	api     API
	config  store.ConfigStore
	prefs   store.PreferenceStore
	logger  *slog.Logger
	audit   *security.AuditLogger
	metrics *metrics.Metrics
}

// NewManager creates a manager. API, Config and Preferences are required.
func NewManager(d Deps) *Manager {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		api:     d.API,
		config:  d.Config,
		prefs:   d.Preferences,
		logger:  logger,
		audit:   d.Audit,
		metrics: d.Metrics,
	}
}

// Load returns the current snapshot.
func (m *Manager) Load(ctx context.Context) (BotConfig, error) {
	return LoadConfig(ctx, m.config)
}

func accountPath(number string, rest ...string) string {
	p := "/accounts/" + url.PathEscape(number)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// remoteErr converts a failed call into an *APIError. It returns nil for
// a 2xx response.
func remoteErr(code, method, path string, resp *Response, err error) error {
	op := method + " " + path
	if err != nil {
		return &APIError{Op: op, Code: code, Err: err}
	}
	if resp.OK() {
		return nil
	}
	return &APIError{Op: op, Code: code, StatusCode: resp.StatusCode, Body: resp.ErrorText()}
}

// CreateAccount registers number with the API using a captcha token. On
// success the number becomes the unverified bot account.
func (m *Manager) CreateAccount(ctx context.Context, cfg BotConfig, number, captcha string) (BotConfig, error) {
	number = strings.TrimSpace(number)
	if number == "" || ValidateNumber(number) != nil {
		return cfg, ErrInvalidNumber
	}

	path := accountPath(number)
	resp, err := m.api.Post(ctx, path, map[string]any{
		"captcha":   strings.TrimSpace(captcha),
		"use_voice": false,
	})
	if err := remoteErr("errorcreatingaccount", http.MethodPost, path, resp, err); err != nil {
		return cfg, err
	}

	next := cfg
	next.Account = number
	next.Verified = false
	if err := saveConfig(ctx, m.config, next, KeyBotAccount, KeyVerified); err != nil {
		return cfg, err
	}

	m.logger.Info("signal account created", "account", number)
	m.audit.Log(security.AuditEvent{Type: security.EventAccountCreated, Detail: number})
	return next, nil
}

// VerifyAccount confirms number with the token received by SMS. An empty
// number selects the configured account.
func (m *Manager) VerifyAccount(ctx context.Context, cfg BotConfig, number, token string) (BotConfig, error) {
	if number == "" {
		number = cfg.Account
	}
	if number == "" {
		return cfg, ErrNotConfigured
	}

	path := accountPath(number, "verify")
	resp, err := m.api.Patch(ctx, path, map[string]string{"token": strings.TrimSpace(token)})
	if err := remoteErr("errorverifingaccount", http.MethodPatch, path, resp, err); err != nil {
		return cfg, err
	}

	next := cfg
	next.Verified = true
	if err := saveConfig(ctx, m.config, next, KeyVerified); err != nil {
		return cfg, err
	}
	m.logger.Info("signal account verified", "account", number)
	return next, nil
}

// IsAccountVerified asks the API whether number (or the configured
// account) is verified and persists the answer. The listing is the "body"
// field of a JSON object or a plain-text body. A non-2xx or unparsable
// listing counts as unverified. Transport failures persist false and
// return the error. A number other than the configured account is
// rejected with ErrAccountMismatch.
func (m *Manager) IsAccountVerified(ctx context.Context, cfg BotConfig, number string) (bool, BotConfig, error) {
	if number == "" {
		number = cfg.Account
	}
	if cfg.Account != "" && number != cfg.Account {
		return false, cfg, ErrAccountMismatch
	}

	path := accountPath(number)
	resp, callErr := m.api.Get(ctx, path)

	verified := false
	if callErr == nil && resp.OK() {
		verified = parseListing(listingText(resp), number)
	}

	next := cfg
	next.Verified = verified
	if err := saveConfig(ctx, m.config, next, KeyVerified); err != nil {
		return false, cfg, err
	}
	if callErr != nil {
		return false, next, remoteErr("errorverifingaccount", http.MethodGet, path, nil, callErr)
	}
	return verified, next, nil
}

func listingText(resp *Response) string {
	if s := resp.Field("body"); s != "" {
		return s
	}
	s, _ := resp.Body.(string)
	return s
}

// parseListing reads "number: verified" rows separated by real or
// escaped newlines. The first row naming number decides.
func parseListing(listing, number string) bool {
	listing = strings.ReplaceAll(listing, `\n`, "\n")
	for row := range strings.SplitSeq(listing, "\n") {
		left, right, _ := strings.Cut(row, ":")
		if strings.TrimSpace(left) == number {
			return strings.TrimSpace(right) == "true"
		}
	}
	return false
}

// UpdateAccountInfo sets the profile name and about text of the bot. A
// nil field is sent as null and left untouched remotely.
func (m *Manager) UpdateAccountInfo(ctx context.Context, cfg BotConfig, name, about *string) error {
	if cfg.Account == "" {
		return ErrNotConfigured
	}
	path := accountPath(cfg.Account)
	resp, err := m.api.Patch(ctx, path, struct {
		Name  *string `json:"name"`
		About *string `json:"about"`
	}{name, about})
	return remoteErr("errorupdatingaccount", http.MethodPatch, path, resp, err)
}

// CreateWebhook points the bot's webhook at target.
func (m *Manager) CreateWebhook(ctx context.Context, cfg BotConfig, target string) (BotConfig, error) {
	if cfg.Account == "" {
		return cfg, ErrNotConfigured
	}
	path := accountPath(cfg.Account, "webhook")
	resp, err := m.api.Post(ctx, path, map[string]string{"webhook": target})
	if err := remoteErr("errorcreatingwebhook", http.MethodPost, path, resp, err); err != nil {
		return cfg, err
	}

	next := cfg
	next.Webhook = target
	if err := saveConfig(ctx, m.config, next, KeyWebhook); err != nil {
		return cfg, err
	}
	return next, nil
}

// DeleteWebhook removes the bot's webhook.
func (m *Manager) DeleteWebhook(ctx context.Context, cfg BotConfig) (BotConfig, error) {
	if cfg.Account == "" {
		return cfg, ErrNotConfigured
	}
	if err := m.deleteWebhook(ctx, cfg.Account); err != nil {
		return cfg, err
	}

	next := cfg
	next.Webhook = ""
	if err := saveConfig(ctx, m.config, next, KeyWebhook); err != nil {
		return cfg, err
	}
	return next, nil
}

func (m *Manager) deleteWebhook(ctx context.Context, account string) error {
	path := accountPath(account, "webhook")
	resp, err := m.api.Delete(ctx, path)
	return remoteErr("errordeletingwebhook", http.MethodDelete, path, resp, err)
}

// DeleteAccount unregisters number, deleting its webhook first. A failed
// webhook deletion is logged and does not stop the account deletion.
func (m *Manager) DeleteAccount(ctx context.Context, cfg BotConfig, number string) (BotConfig, error) {
	if number == "" {
		number = cfg.Account
	}
	if number == "" {
		return cfg, ErrNotConfigured
	}

	if err := m.deleteWebhook(ctx, number); err != nil {
		m.logger.Warn("signal webhook deletion failed", "account", number, "error", err)
	}

	path := accountPath(number)
	resp, err := m.api.Delete(ctx, path)
	if err := remoteErr("errordeletingaccount", http.MethodDelete, path, resp, err); err != nil {
		return cfg, err
	}

	next := cfg
	next.Account = ""
	next.Verified = false
	next.Webhook = ""
	if err := saveConfig(ctx, m.config, next, KeyBotAccount, KeyVerified, KeyWebhook); err != nil {
		return cfg, err
	}

	m.logger.Info("signal account deleted", "account", number)
	m.audit.Log(security.AuditEvent{Type: security.EventAccountDeleted, Detail: number})
	return next, nil
}

// ClearAccount forgets the bot account locally without any remote call.
func (m *Manager) ClearAccount(ctx context.Context, cfg BotConfig) (BotConfig, error) {
	next := cfg
	next.Account = ""
	if err := saveConfig(ctx, m.config, next, KeyBotAccount); err != nil {
		return cfg, err
	}
	return next, nil
}

// CheckConsent sends the localized consent prompt to recipient. A 2xx
// answer means the prompt was delivered.
func (m *Manager) CheckConsent(ctx context.Context, cfg BotConfig, actor Actor, recipient string) error {
	if cfg.Account == "" {
		return ErrNotConfigured
	}

	lang := actor.Lang
	word := T(lang, "consentword", nil)
	path := "/messages/consent/" + url.PathEscape(cfg.Account)
	resp, err := m.api.Post(ctx, path, map[string]any{
		"consentMessage": T(lang, "consentmessage", map[string]string{"name": actor.FirstName, "consentword": word}),
		"consentGiven":   T(lang, "consentgiven", nil),
		"consentDenied":  T(lang, "consentdenied", nil),
		"consentWord":    word,
		"caseSensitive":  false,
		"recipient":      recipient,
	})
	return remoteErr("consentdenied", http.MethodPost, path, resp, err)
}

// SendMessage delivers req from the bot account. It reports whether the
// API accepted the message.
func (m *Manager) SendMessage(ctx context.Context, cfg BotConfig, req SendRequest) (bool, error) {
	resp, err := m.send(ctx, cfg, req)
	if err != nil {
		return false, err
	}
	return resp.OK(), nil
}

// send performs SendMessage and returns the raw response for callers that
// need the remote error text.
func (m *Manager) send(ctx context.Context, cfg BotConfig, req SendRequest) (*Response, error) {
	if cfg.Account == "" {
		return nil, ErrNotConfigured
	}

	params := make(map[string]any, len(req.Fields)+len(req.Params)+2)
	maps.Copy(params, req.Fields)
	maps.Copy(params, req.Params)
	if req.Fields == nil {
		params["message"] = req.Message
	}
	// A linked user overrides any recipient in Params.
	if req.UserID != 0 {
		chatID, err := m.UserAccount(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		params["recipient"] = chatID
	}

	if isBlank(params["message"]) {
		return nil, ErrMissingMessage
	}
	if isBlank(params["recipient"]) {
		return nil, ErrMissingRecipient
	}

	path := "/messages/" + url.PathEscape(cfg.Account)
	resp, err := m.api.Post(ctx, path, params)
	if err != nil {
		m.metrics.RecordSend(false)
		return nil, fmt.Errorf("signal: send message: %w", err)
	}
	m.metrics.RecordSend(resp.OK())
	return resp, nil
}

func isBlank(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}

// IsUserAccountSet reports whether the user has a linked Signal number.
func (m *Manager) IsUserAccountSet(ctx context.Context, userID int64) (bool, error) {
	chatID, err := m.UserAccount(ctx, userID)
	return chatID != "", err
}

// UserAccount returns the Signal number linked to the user, or "".
func (m *Manager) UserAccount(ctx context.Context, userID int64) (string, error) {
	chatID, err := m.prefs.Preference(ctx, userID, PrefChatID)
	if err != nil {
		return "", fmt.Errorf("signal: load link of user %d: %w", userID, err)
	}
	return chatID, nil
}

// SetUserAccount links account to the user. It requires a bot account.
func (m *Manager) SetUserAccount(ctx context.Context, cfg BotConfig, account string, userID int64) error {
	if cfg.Account == "" {
		return ErrNotConfigured
	}
	if err := m.prefs.SetPreference(ctx, userID, PrefChatID, account); err != nil {
		return fmt.Errorf("signal: link user %d: %w", userID, err)
	}
	m.audit.Log(security.AuditEvent{Type: security.EventLinkSet, UserID: userID, Detail: account})
	return nil
}

// RemoveUserAccount unlinks the user. A zero userID selects the actor.
// Only site admins may unlink other users.
func (m *Manager) RemoveUserAccount(ctx context.Context, userID int64, actor Actor) error {
	if userID == 0 {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.SiteAdmin {
		return ErrForbidden
	}
	if err := m.prefs.UnsetPreference(ctx, userID, PrefChatID); err != nil {
		return fmt.Errorf("signal: unlink user %d: %w", userID, err)
	}
	m.audit.Log(security.AuditEvent{Type: security.EventLinkRemoved, ActorID: actor.UserID, UserID: userID})
	return nil
}

// ConnectUserAccount validates account, sends the consent prompt to it
// and links it to the user. A zero userID selects the actor.
func (m *Manager) ConnectUserAccount(ctx context.Context, cfg BotConfig, actor Actor, userID int64, account string) error {
	account = strings.TrimSpace(account)
	if account == "" || ValidateNumber(account) != nil {
		return ErrInvalidNumber
	}
	if userID == 0 {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.SiteAdmin {
		return ErrForbidden
	}
	if cfg.Account == "" {
		return ErrNotConfigured
	}

	if err := m.CheckConsent(ctx, cfg, actor, account); err != nil {
		return err
	}
	return m.SetUserAccount(ctx, cfg, account, userID)
}

// sendFailure describes a rejected send for callers that need an error.
func sendFailure(cfg BotConfig, resp *Response) error {
	return &APIError{
		Op:         http.MethodPost + " /messages/" + url.PathEscape(cfg.Account),
		Code:       "errorsendingmessage",
		StatusCode: resp.StatusCode,
		Body:       resp.ErrorText(),
	}
}
