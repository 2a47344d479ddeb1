package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flemzord/sigbridge/internal/metrics"
)

// maxResponseBytes bounds reads of API responses.
const maxResponseBytes = 1 << 20

// API is the subset of the Signal REST API the manager uses.
type API interface {
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string, body any) (*Response, error)
	Patch(ctx context.Context, path string, body any) (*Response, error)
	Delete(ctx context.Context, path string) (*Response, error)
}

// Response is a received API response, whatever its status.
type Response struct {
	StatusCode int
	// Body is the decoded JSON value, or the raw text when the body is not
	// JSON. Nil for an empty body.
	Body any
	Raw  []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Field returns the string field name of a JSON object body, or "".
func (r *Response) Field(name string) string {
	obj, ok := r.Body.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj[name].(string)
	return s
}

// ErrorText extracts the remote error description: the "error" or
// "body" field of a JSON object, else the raw text.
func (r *Response) ErrorText() string {
	if s := r.Field("error"); s != "" {
		return s
	}
	if s := r.Field("body"); s != "" {
		return s
	}
	if _, isText := r.Body.(string); isText {
		return strings.TrimSpace(string(r.Raw))
	}
	return ""
}

// Client is a thin HTTP wrapper around a signal-cli REST API server.
// It makes exactly one attempt per call.
type Client struct {
	baseURL string
	http    *http.Client
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

var _ API = (*Client)(nil)

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithTracer wraps every call in a client span from t.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithMetrics records every call in m.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for baseURL ("scheme://host:port"). A nil
// hc selects a client with a 30s timeout.
func NewClient(baseURL string, hc *http.Client, opts ...ClientOption) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		tracer:  noop.NewTracerProvider().Tracer("signal"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Get implements API.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post implements API.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Patch implements API.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPatch, path, body)
}

// Delete implements API.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (resp *Response, err error) {
	ctx, span := c.tracer.Start(ctx, "signal.api "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	start := time.Now()
	defer func() {
		status := 0
		if resp != nil {
			status = resp.StatusCode
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if !resp.OK() {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		span.End()
		c.metrics.ObserveAPI(method, status, time.Since(start))
	}()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("signal: marshal %s %s request: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("signal: create %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signal: %s %s: %w", method, path, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("signal: read %s %s response: %w", method, path, err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       decodeBody(raw),
		Raw:        raw,
	}, nil
}

func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
