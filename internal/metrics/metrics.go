// Package metrics holds the prometheus collectors sigbridge exports and
// the HTTP handler that serves them.
//
// All collectors live on a dedicated registry so tests and multiple App
// instances never collide on the global default registerer. Every method
// is safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServiceName is the AppContext service name of the shared *Metrics.
const ServiceName = "metrics"

// Metrics groups the sigbridge collectors.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests   *prometheus.CounterVec
	apiDuration   *prometheus.HistogramVec
	configChanges *prometheus.CounterVec
	messagesSent  *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec

	// Plain counters mirrored for the /status snapshot.
	sent         atomic.Int64
	sendFailures atomic.Int64
	webhooks     atomic.Int64
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigbridge_signal_api_requests_total",
				Help: "Signal REST API requests by method and HTTP status.",
			},
			[]string{"method", "status"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sigbridge_signal_api_request_duration_seconds",
				Help:    "Signal REST API request latency.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		configChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigbridge_config_changes_total",
				Help: "Bot setting changes by key and result.",
			},
			[]string{"key", "result"},
		),
		messagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigbridge_messages_sent_total",
				Help: "Outbound Signal messages by result.",
			},
			[]string{"result"},
		),
		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sigbridge_webhook_events_total",
				Help: "Inbound Signal webhook events by type.",
			},
			[]string{"type"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests,
		m.apiDuration,
		m.configChanges,
		m.messagesSent,
		m.webhookEvents,
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAPI records one Signal API call. status 0 means the request
// never produced a response.
func (m *Metrics) ObserveAPI(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.apiRequests.WithLabelValues(method, label).Inc()
	m.apiDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordConfigChange counts one settings change attempt.
func (m *Metrics) RecordConfigChange(key string, err error) {
	if m == nil {
		return
	}
	m.configChanges.WithLabelValues(key, result(err == nil)).Inc()
}

// RecordSend counts one outbound message.
func (m *Metrics) RecordSend(ok bool) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(result(ok)).Inc()
	if ok {
		m.sent.Add(1)
	} else {
		m.sendFailures.Add(1)
	}
}

// RecordWebhookEvent counts one inbound webhook event of the given type.
func (m *Metrics) RecordWebhookEvent(kind string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(kind).Inc()
	m.webhooks.Add(1)
}

// Snapshot returns a point-in-time view of the message counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		MessagesSent:  m.sent.Load(),
		SendFailures:  m.sendFailures.Load(),
		WebhookEvents: m.webhooks.Load(),
	}
}

// Snapshot is a serializable counters view.
type Snapshot struct {
	MessagesSent  int64 `json:"messages_sent"`
	SendFailures  int64 `json:"send_failures"`
	WebhookEvents int64 `json:"webhook_events"`
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
