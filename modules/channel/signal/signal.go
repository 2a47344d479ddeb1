package signal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/sigbridge/internal/channel"
	"github.com/flemzord/sigbridge/internal/core"
	"github.com/flemzord/sigbridge/internal/gateway"
	"github.com/flemzord/sigbridge/internal/metrics"
	"github.com/flemzord/sigbridge/internal/security"
	"github.com/flemzord/sigbridge/internal/store"
	"github.com/flemzord/sigbridge/internal/telemetry"
	"github.com/flemzord/sigbridge/pkg/message"
)

// ModuleID is the module identifier of the Signal channel.
const ModuleID = "channel.signal"

// ChannelName is the dispatcher name of the Signal channel.
const ChannelName = "signal"

func init() {
	core.RegisterModule(&Signal{})
}

// Compile-time interface guards.
var (
	_ channel.Channel        = (*Signal)(nil)
	_ gateway.RouteRegistrar = (*Signal)(nil)
	_ core.Configurable      = (*Signal)(nil)
	_ core.Provisioner       = (*Signal)(nil)
	_ core.Validator         = (*Signal)(nil)
	_ core.Starter           = (*Signal)(nil)
	_ core.HealthChecker     = (*Signal)(nil)
)

// Signal is the "channel.signal" module.
type Signal struct {
	config   Config
	logger   *slog.Logger
	appCtx   *core.AppContext
	client   *Client
	manager  *Manager
	signer   *security.SessionSigner
	audit    *security.AuditLogger
	receiver *WebhookReceiver
	connect  *connectHandler
}

// ModuleInfo implements core.Module.
func (s *Signal) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Signal{} },
	}
}

// Configure implements core.Configurable.
func (s *Signal) Configure(node *yaml.Node) error {
	if err := node.Decode(&s.config); err != nil {
		return fmt.Errorf("signal: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (s *Signal) Provision(ctx *core.AppContext) error {
	s.config.defaults()
	s.appCtx = ctx
	s.logger = ctx.Logger

	configs, ok := core.GetService[store.ConfigStore](ctx, store.ServiceConfig)
	if !ok {
		return errors.New("signal: store.config service not found (is a store module loaded?)")
	}
	prefs, ok := core.GetService[store.PreferenceStore](ctx, store.ServicePreferences)
	if !ok {
		return errors.New("signal: store.preferences service not found (is a store module loaded?)")
	}

	m, _ := core.GetService[*metrics.Metrics](ctx, metrics.ServiceName)
	s.audit, _ = core.GetService[*security.AuditLogger](ctx, security.ServiceAudit)

	if redactor, ok := core.GetService[*security.Redactor](ctx, security.ServiceRedactor); ok {
		redactor.AddLiteral(s.config.WebhookSecret)
		redactor.AddLiteral(s.config.SessionSecret)
	}

	s.client = NewClient(s.config.APIURL, &http.Client{Timeout: s.config.Timeout},
		WithTracer(telemetry.Tracer(ctx, "sigbridge/signal")),
		WithMetrics(m),
	)
	s.manager = NewManager(Deps{
		API:         s.client,
		Config:      configs,
		Preferences: prefs,
		Logger:      s.logger,
		Audit:       s.audit,
		Metrics:     m,
	})

	secret := []byte(s.config.SessionSecret)
	if len(secret) == 0 {
		s.logger.Warn("signal session_secret not set, connect links will not survive a restart")
		secret = security.RandomSecret()
	}
	signer, err := security.NewSessionSigner(secret, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("signal: %w", err)
	}
	s.signer = signer
	s.connect = newConnectHandler(s.manager, s.signer, s.logger, s.config)

	var allow *channel.AllowList
	if len(s.config.AllowSenders) > 0 || len(s.config.AllowGroups) > 0 {
		allow = channel.NewAllowList(s.config.AllowSenders, s.config.AllowGroups)
	}
	s.receiver = NewWebhookReceiver(allow, s.logger, m, ChannelName)

	ctx.RegisterService(gateway.ServiceRoutesPrefix+ModuleID, gateway.RouteRegistrar(s))
	ctx.RegisterService(core.HealthServicePrefix+ModuleID, core.HealthChecker(s))
	return channel.SharedDispatcher(ctx).Register(ChannelName, s)
}

// Validate implements core.Validator.
func (s *Signal) Validate() error {
	return s.config.validate()
}

// Start implements core.Starter. It mirrors api_url into the stored
// settings and registers the webhook receiver with the gateway.
func (s *Signal) Start() error {
	ctx := context.Background()

	cfg, err := s.manager.Load(ctx)
	if err != nil {
		return err
	}
	if cfg.APIURL != s.config.APIURL {
		next := cfg
		next.APIURL = s.config.APIURL
		if err := saveConfig(ctx, s.manager.config, next, KeyAPIURL); err != nil {
			return err
		}
		cfg = next
	}

	if d, ok := core.GetService[*gateway.WebhookDispatcher](s.appCtx, gateway.ServiceWebhookDispatcher); ok {
		d.Register(WebhookSource, s.receiver, s.config.WebhookSecret)
	} else {
		s.logger.Debug("signal webhook receiver not registered, no gateway loaded")
	}

	s.logger.Info("signal channel started",
		"api_url", s.config.APIURL,
		"state", StateOf(cfg, ""),
		"account", security.MaskNumber(cfg.Account),
	)
	return nil
}

// HealthCheck implements core.HealthChecker. It reports whether the
// settings can be read; the Signal API itself is not probed.
func (s *Signal) HealthCheck(ctx context.Context) error {
	_, err := s.manager.Load(ctx)
	return err
}

// Manager returns the account manager, for the CLI.
func (s *Signal) Manager() *Manager { return s.manager }

// Send implements channel.Channel.
func (s *Signal) Send(ctx context.Context, msg message.OutboundMessage) error {
	cfg, err := s.manager.Load(ctx)
	if err != nil {
		return err
	}

	params := maps.Clone(msg.Params)
	if msg.Recipient != "" {
		if params == nil {
			params = make(map[string]any, 1)
		}
		params["recipient"] = msg.Recipient
	}

	resp, err := s.manager.send(ctx, cfg, SendRequest{
		Message: msg.Text,
		Fields:  msg.Fields,
		UserID:  msg.UserID,
		Params:  params,
	})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return sendFailure(cfg, resp)
	}
	return nil
}
