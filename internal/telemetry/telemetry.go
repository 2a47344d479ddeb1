// Package telemetry implements the "telemetry.otel" module. It owns the
// OpenTelemetry tracer provider and exports spans over OTLP/HTTP.
//
// Consumers call Tracer, which falls back to a no-op tracer when the
// module is not configured.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/sigbridge/internal/core"
)

// ServiceTracerProvider is the service name of the trace.TracerProvider.
const ServiceTracerProvider = "telemetry.tracer_provider"

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module provides the tracer provider.
type Module struct {
	config   Config
	provider *sdktrace.TracerProvider
	logger   *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "telemetry.otel",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("telemetry: decode config: %w", err)
	}
	m.config.defaults()
	return m.config.validate()
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger
	m.config.defaults()

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", m.config.ServiceName),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(m.config.SampleRatio))),
	}

	if m.config.Endpoint != "" {
		exp, err := newExporter(context.Background(), m.config)
		if err != nil {
			return err
		}
		opts = append(opts, sdktrace.WithBatcher(exp, sdktrace.WithExportTimeout(m.config.ExportTimeout)))
	}

	m.provider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(m.provider)
	ctx.RegisterService(ServiceTracerProvider, trace.TracerProvider(m.provider))

	m.logger.Info("tracer provider ready",
		"endpoint", m.config.Endpoint,
		"sample_ratio", m.config.SampleRatio,
	)
	return nil
}

// Stop implements core.Stopper. It flushes pending spans.
func (m *Module) Stop(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	if err := m.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	return nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetry: invalid endpoint: %w", err)
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(u.Host),
		otlptracehttp.WithTimeout(cfg.ExportTimeout),
	}
	if u.Path != "" && u.Path != "/" {
		opts = append(opts, otlptracehttp.WithURLPath(u.Path))
	}
	if u.Scheme == "http" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}

	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}
	return exp, nil
}

// Tracer returns a named tracer from the registered provider, or a no-op
// tracer when no telemetry module is loaded.
func Tracer(ctx *core.AppContext, name string) trace.Tracer {
	if ctx != nil {
		if tp, ok := core.GetService[trace.TracerProvider](ctx, ServiceTracerProvider); ok {
			return tp.Tracer(name)
		}
	}
	return noop.NewTracerProvider().Tracer(name)
}
