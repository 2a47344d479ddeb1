package signal

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/flemzord/sigbridge/internal/security"
)

// Connect actions.
const (
	ActionConnectUser = "connectuseraccount"
	ActionRemoveUser  = "removeuseraccount"
	ActionVerify      = "verifyaccount"
)

// ConnectPath is where the connect endpoint is mounted on the gateway.
const ConnectPath = "/connect"

const maxFormBytes = 64 << 10

// Query parameters appended to return URLs.
const (
	paramNotice = "signal_notice"
	paramLevel  = "signal_level"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	formTemplate    = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/form.html"))
	messageTemplate = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/message.html"))
)

type page struct {
	Lang    string
	Title   string
	Error   string
	Intro   string
	PostURL string
	Hidden  []hiddenField
	Field   *formField
	Submit  string
	Cancel  string
}

type hiddenField struct {
	Name  string
	Value string
}

type formField struct {
	Name  string
	Label string
	Help  string
	Value string
}

// connectHandler serves the browser flows that link users and provision
// the bot account. The sesskey parameter is a signed session token that
// identifies the actor and guards against forged requests.
type connectHandler struct {
	manager   *Manager
	signer    *security.SessionSigner
	logger    *slog.Logger
	siteHost  string
	returnURL string
	publicURL string
}

func newConnectHandler(m *Manager, signer *security.SessionSigner, logger *slog.Logger, cfg Config) *connectHandler {
	host := ""
	if u, err := url.Parse(cfg.SiteURL); err == nil {
		host = u.Hostname()
	}
	return &connectHandler{
		manager:   m,
		signer:    signer,
		logger:    logger,
		siteHost:  host,
		returnURL: cfg.ReturnURL,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}
}

// link builds a connect URL for action.
func (h *connectHandler) link(action, sesskey string, extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		if len(v) > 0 && v[0] != "" {
			q[k] = v
		}
	}
	q.Set("action", action)
	q.Set("sesskey", sesskey)
	return h.publicURL + ConnectPath + "?" + q.Encode()
}

// connectRequest is the verified state of one connect request.
type connectRequest struct {
	w         http.ResponseWriter
	r         *http.Request
	actor     Actor
	lang      string
	sesskey   string
	returnRaw string
	returnURL string
	cfg       BotConfig
}

func (c *connectRequest) isPost() bool { return c.r.Method == http.MethodPost }

func (h *connectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.renderMessage(w, http.StatusBadRequest, defaultLang, err.Error())
		return
	}

	sesskey := r.Form.Get("sesskey")
	claims, err := h.signer.Verify(sesskey)
	if err != nil {
		h.renderMessage(w, http.StatusForbidden, r.Form.Get("lang"), T(r.Form.Get("lang"), "sessioninvalid", nil))
		return
	}
	actor := Actor{UserID: claims.UserID, FirstName: claims.FirstName, Lang: claims.Lang, SiteAdmin: claims.Admin}
	lang := NormalizeLang(actor.Lang)

	returnRaw := r.Form.Get("returnurl")
	returnURL, ok := h.resolveReturn(returnRaw)
	if !ok {
		h.renderMessage(w, http.StatusBadRequest, lang, T(lang, "urlinvalid", nil))
		return
	}

	cfg, err := h.manager.Load(r.Context())
	if err != nil {
		h.logger.Error("signal connect: load settings", "error", err)
		h.renderMessage(w, http.StatusInternalServerError, lang, http.StatusText(http.StatusInternalServerError))
		return
	}

	c := &connectRequest{
		w:         w,
		r:         r,
		actor:     actor,
		lang:      lang,
		sesskey:   sesskey,
		returnRaw: returnRaw,
		returnURL: returnURL,
		cfg:       cfg,
	}

	switch action := r.Form.Get("action"); action {
	case ActionConnectUser:
		h.connectUser(c)
	case ActionRemoveUser:
		h.removeUser(c)
	case ActionCaptcha:
		h.captcha(c)
	case ActionVerify:
		h.verify(c)
	default:
		h.renderMessage(w, http.StatusBadRequest, lang, T(lang, "unknownaction", nil))
	}
}

// resolveReturn accepts an empty value or an http(s) URL on the site host.
func (h *connectHandler) resolveReturn(raw string) (string, bool) {
	if raw == "" {
		return h.returnURL, true
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	if h.siteHost == "" || !strings.EqualFold(u.Hostname(), h.siteHost) {
		return "", false
	}
	return u.String(), true
}

func (h *connectHandler) connectUser(c *connectRequest) {
	userID, ok := h.userParam(c)
	if !ok {
		return
	}
	if c.cfg.Account == "" {
		h.redirect(c, NoticeError, "notconfigured")
		return
	}

	pg := page{
		Title:   T(c.lang, "connectuseraccount", nil),
		Intro:   T(c.lang, "connectinstructions_desc", map[string]string{"account": c.cfg.Account}),
		PostURL: h.link(ActionConnectUser, c.sesskey, url.Values{"userid": {strconv.FormatInt(userID, 10)}, "returnurl": {c.returnRaw}}),
		Field: &formField{
			Name:  "account",
			Label: T(c.lang, "botaccount", nil),
			Help:  T(c.lang, "botaccount_help", nil),
		},
		Submit: T(c.lang, "save", nil),
	}
	if !c.isPost() {
		h.render(c.w, http.StatusOK, c.lang, formTemplate, pg)
		return
	}

	account := strings.TrimSpace(c.r.PostForm.Get("account"))
	err := h.manager.ConnectUserAccount(c.r.Context(), c.cfg, c.actor, userID, account)
	switch {
	case errors.Is(err, ErrInvalidNumber):
		pg.Error = T(c.lang, "numberinvalid", nil)
		pg.Field.Value = account
		h.render(c.w, http.StatusBadRequest, c.lang, formTemplate, pg)
	case err != nil:
		h.fail(c, err)
	default:
		h.redirect(c, NoticeSuccess, "accountcreated")
	}
}

func (h *connectHandler) removeUser(c *connectRequest) {
	userID, ok := h.userParam(c)
	if !ok {
		return
	}
	if err := h.manager.RemoveUserAccount(c.r.Context(), userID, c.actor); err != nil {
		h.fail(c, err)
		return
	}
	h.redirect(c, NoticeSuccess, "useraccountremoved")
}

func (h *connectHandler) captcha(c *connectRequest) {
	botaccount, ok := h.adminAccountParam(c)
	if !ok {
		return
	}

	pg := page{
		Title:   T(c.lang, "entercaptcha", nil),
		Intro:   T(c.lang, "missingcaptcha", nil),
		PostURL: h.link(ActionCaptcha, c.sesskey, url.Values{"botaccount": {botaccount}, "returnurl": {c.returnRaw}}),
		Hidden:  []hiddenField{{Name: "botaccount", Value: botaccount}},
		Field:   &formField{Name: "captcha", Label: T(c.lang, "captcha", nil)},
		Submit:  T(c.lang, "save", nil),
		Cancel:  T(c.lang, "cancel", nil),
	}
	if !c.isPost() {
		h.render(c.w, http.StatusOK, c.lang, formTemplate, pg)
		return
	}
	if c.r.PostForm.Has("cancel") {
		http.Redirect(c.w, c.r, c.returnURL, http.StatusSeeOther)
		return
	}

	token := strings.TrimSpace(c.r.PostForm.Get("captcha"))
	if token == "" {
		pg.Error = T(c.lang, "missingcaptcha", nil)
		h.render(c.w, http.StatusBadRequest, c.lang, formTemplate, pg)
		return
	}

	if _, err := h.manager.CreateAccount(c.r.Context(), c.cfg, botaccount, token); err != nil {
		h.logger.Warn("signal account creation failed", "account", botaccount, "error", err)
		pg.Error = Describe(err, c.lang)
		h.render(c.w, statusOf(err), c.lang, formTemplate, pg)
		return
	}

	next := h.link(ActionVerify, c.sesskey, url.Values{"botaccount": {botaccount}, "returnurl": {c.returnRaw}})
	http.Redirect(c.w, c.r, next, http.StatusSeeOther)
}

func (h *connectHandler) verify(c *connectRequest) {
	botaccount, ok := h.adminAccountParam(c)
	if !ok {
		return
	}
	ctx := c.r.Context()

	pg := page{
		Title:   T(c.lang, "verifyaccount", nil),
		PostURL: h.link(ActionVerify, c.sesskey, url.Values{"botaccount": {botaccount}, "returnurl": {c.returnRaw}}),
		Hidden:  []hiddenField{{Name: "botaccount", Value: botaccount}},
		Field:   &formField{Name: "token", Label: T(c.lang, "verificationtoken", nil)},
		Submit:  T(c.lang, "confirm", nil),
		Cancel:  T(c.lang, "cancel", nil),
	}

	verified, cfg, err := h.manager.IsAccountVerified(ctx, c.cfg, botaccount)
	if err != nil {
		pg.Error = Describe(err, c.lang)
		h.render(c.w, statusOf(err), c.lang, formTemplate, pg)
		return
	}
	if verified {
		h.redirect(c, NoticeSuccess, "accountverified")
		return
	}

	if !c.isPost() {
		h.render(c.w, http.StatusOK, c.lang, formTemplate, pg)
		return
	}
	if c.r.PostForm.Has("cancel") {
		if _, err := h.manager.ClearAccount(ctx, cfg); err != nil {
			h.fail(c, err)
			return
		}
		http.Redirect(c.w, c.r, c.returnURL, http.StatusSeeOther)
		return
	}

	if _, err := h.manager.VerifyAccount(ctx, cfg, botaccount, c.r.PostForm.Get("token")); err != nil {
		h.logger.Warn("signal account verification failed", "account", botaccount, "error", err)
		pg.Error = T(c.lang, "verificationtokeninvalid", nil)
		h.render(c.w, http.StatusBadRequest, c.lang, formTemplate, pg)
		return
	}
	h.redirect(c, NoticeSuccess, "accountverified")
}

// userParam reads the optional userid parameter, defaulting to the actor.
func (h *connectHandler) userParam(c *connectRequest) (int64, bool) {
	raw := c.r.Form.Get("userid")
	if raw == "" {
		return c.actor.UserID, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.renderMessage(c.w, http.StatusBadRequest, c.lang, "invalid userid")
		return 0, false
	}
	return id, true
}

// adminAccountParam checks the actor is a site admin and reads the
// required botaccount parameter.
func (h *connectHandler) adminAccountParam(c *connectRequest) (string, bool) {
	if !c.actor.SiteAdmin {
		h.renderMessage(c.w, http.StatusForbidden, c.lang, T(c.lang, "adminrequired", nil))
		return "", false
	}
	botaccount := strings.TrimSpace(c.r.Form.Get("botaccount"))
	if botaccount == "" || ValidateNumber(botaccount) != nil {
		h.renderMessage(c.w, http.StatusBadRequest, c.lang, T(c.lang, "numberinvalid", nil))
		return "", false
	}
	return botaccount, true
}

// fail redirects with the error's message key, or renders a 500 page for
// unclassified errors.
func (h *connectHandler) fail(c *connectRequest, err error) {
	key := MessageKey(err)
	if key == "" {
		h.logger.Error("signal connect failed", "error", err)
		h.renderMessage(c.w, http.StatusInternalServerError, c.lang, http.StatusText(http.StatusInternalServerError))
		return
	}
	h.logger.Info("signal connect rejected", "key", key, "error", err)
	h.redirect(c, NoticeError, key)
}

func (h *connectHandler) redirect(c *connectRequest, level NoticeLevel, key string) {
	http.Redirect(c.w, c.r, withNotice(c.returnURL, level, key), http.StatusSeeOther)
}

// withNotice appends the notice to target's query.
func withNotice(target string, level NoticeLevel, key string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(paramNotice, key)
	q.Set(paramLevel, string(level))
	u.RawQuery = q.Encode()
	return u.String()
}

func (h *connectHandler) renderMessage(w http.ResponseWriter, status int, lang, text string) {
	lang = NormalizeLang(lang)
	h.render(w, status, lang, messageTemplate, page{Title: T(lang, "pluginname", nil), Error: text})
}

func (h *connectHandler) render(w http.ResponseWriter, status int, lang string, tmpl *template.Template, pg page) {
	pg.Lang = lang
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", pg); err != nil {
		h.logger.Error("signal connect: render page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func statusOf(err error) int {
	var coded interface{ HTTPStatus() int }
	if errors.As(err, &coded) {
		return coded.HTTPStatus()
	}
	return http.StatusInternalServerError
}
