package security

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ServiceAudit is the AppContext service name of the shared *AuditLogger.
const ServiceAudit = "security.audit"

// EventType categorizes audit events.
type EventType string

// Audit event types.
const (
	EventAuthSuccess    EventType = "auth_success"
	EventAuthFailure    EventType = "auth_failure"
	EventConfigChange   EventType = "config_change"
	EventAccountCreated EventType = "account_created"
	EventAccountDeleted EventType = "account_deleted"
	EventLinkSet        EventType = "link_set"
	EventLinkRemoved    EventType = "link_removed"
	EventSessionIssued  EventType = "session_issued"
)

// AuditEvent is a single audit log entry.
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	ActorID   int64             `json:"actor_id,omitempty"`
	UserID    int64             `json:"user_id,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditLoggerConfig configures the audit logger.
type AuditLoggerConfig struct {
	// Writer receives one JSON object per event. Optional.
	Writer io.Writer

	// Logger receives every event at info level under "audit". Optional.
	Logger *slog.Logger

	// Redactor, if non-nil, is applied to Detail and Metadata values.
	Redactor *Redactor

	// OnEvent, if non-nil, is called for every event (used in tests).
	OnEvent func(AuditEvent)

	// Now overrides time.Now for testing.
	Now func() time.Time
}

// AuditLogger records security-relevant actions with optional redaction.
// A nil *AuditLogger is valid and drops events.
type AuditLogger struct {
	writer   io.Writer
	logger   *slog.Logger
	redactor *Redactor
	onEvent  func(AuditEvent)
	now      func() time.Time
	mu       sync.Mutex
}

// NewAuditLogger creates an audit logger with the given configuration.
func NewAuditLogger(cfg AuditLoggerConfig) *AuditLogger {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &AuditLogger{
		writer:   cfg.Writer,
		logger:   cfg.Logger,
		redactor: cfg.Redactor,
		onEvent:  cfg.OnEvent,
		now:      now,
	}
}

// Log records event. ID and Timestamp are set automatically. The
// caller's Metadata map is never mutated.
func (l *AuditLogger) Log(event AuditEvent) {
	if l == nil {
		return
	}

	event.ID = uuid.NewString()
	event.Timestamp = l.now()
	event.Metadata = maps.Clone(event.Metadata)

	if l.redactor != nil {
		event.Detail = l.redactor.Redact(event.Detail)
		for k, v := range event.Metadata {
			event.Metadata[k] = l.redactor.Redact(v)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.onEvent != nil {
		l.onEvent(event)
	}

	if l.writer != nil {
		_ = json.NewEncoder(l.writer).Encode(event)
	}

	if l.logger != nil {
		l.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit",
			slog.String("event", string(event.Type)),
			slog.String("audit_id", event.ID),
			slog.Int64("actor_id", event.ActorID),
			slog.Int64("user_id", event.UserID),
			slog.String("detail", event.Detail),
		)
	}
}
