package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/sigbridge/internal/core"
	"github.com/flemzord/sigbridge/internal/metrics"
	"github.com/flemzord/sigbridge/internal/security"
)

func init() {
	core.RegisterModule(&Gateway{})
}

var (
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)

// Gateway is the HTTP gateway module. It exposes health, status, admin,
// and webhook endpoints. It is a leaf module; channel modules reach it
// only through the service registry.
type Gateway struct {
	config     Config
	appCtx     *core.AppContext
	logger     *slog.Logger
	server     *http.Server
	dispatcher *WebhookDispatcher
	startedAt  time.Time
	addr       net.Addr

	// Resolved lazily at Start() via service registry.
	metrics *metrics.Metrics
	audit   *security.AuditLogger
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decode config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.config.defaults()

	secrets := make(map[string]string, len(g.config.Webhooks))
	for source, cfg := range g.config.Webhooks {
		if cfg.Secret != "" {
			secrets[source] = cfg.Secret
			g.logger.Info("webhook source configured", "source", source)
		}
	}
	g.dispatcher = NewWebhookDispatcher(g.logger, secrets, security.PayloadLimits{MaxSize: g.config.MaxBodyBytes})
	ctx.RegisterService(ServiceWebhookDispatcher, g.dispatcher)

	if r, ok := core.GetService[*security.Redactor](ctx, security.ServiceRedactor); ok {
		r.AddLiteral(g.config.Auth.BearerToken)
		r.AddLiteral(g.config.Auth.BasicPass)
		for _, s := range secrets {
			r.AddLiteral(s)
		}
	}
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	return g.config.validate()
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	g.metrics, _ = core.GetService[*metrics.Metrics](g.appCtx, metrics.ServiceName)
	g.audit, _ = core.GetService[*security.AuditLogger](g.appCtx, security.ServiceAudit)

	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:              g.config.Bind,
		Handler:           g.buildRouter(),
		ReadTimeout:       g.config.ReadTimeout,
		ReadHeaderTimeout: g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen failed: %w", err)
	}
	g.addr = ln.Addr()

	go func() {
		g.logger.Info("gateway listening", "addr", g.addr.String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// Addr returns the bound listener address once started.
func (g *Gateway) Addr() net.Addr {
	return g.addr
}

// routeRegistrars resolves the "http.routes.*" services in name order.
func (g *Gateway) routeRegistrars() []RouteRegistrar {
	var out []RouteRegistrar
	for _, name := range g.appCtx.ServicesWithPrefix(ServiceRoutesPrefix) {
		if reg, ok := core.GetService[RouteRegistrar](g.appCtx, name); ok {
			out = append(out, reg)
		}
	}
	return out
}
