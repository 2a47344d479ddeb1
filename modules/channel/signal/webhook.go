package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/flemzord/sigbridge/internal/channel"
	"github.com/flemzord/sigbridge/internal/metrics"
	"github.com/flemzord/sigbridge/internal/security"
	"github.com/flemzord/sigbridge/pkg/message"
)

// WebhookSource is the gateway webhook source of the Signal channel.
const WebhookSource = "signal"

// webhookPayload is a signal-cli-rest-api callback. JSON-RPC wrapped
// payloads carry the same fields under params.
type webhookPayload struct {
	Envelope *envelope      `json:"envelope"`
	Account  string         `json:"account"`
	Params   *webhookParams `json:"params"`
}

type webhookParams struct {
	Envelope *envelope `json:"envelope"`
	Account  string    `json:"account"`
}

type envelope struct {
	Source         string          `json:"source"`
	SourceNumber   string          `json:"sourceNumber"`
	SourceUUID     string          `json:"sourceUuid"`
	SourceName     string          `json:"sourceName"`
	Timestamp      int64           `json:"timestamp"`
	DataMessage    *dataMessage    `json:"dataMessage"`
	ReceiptMessage json.RawMessage `json:"receiptMessage"`
	TypingMessage  json.RawMessage `json:"typingMessage"`
	SyncMessage    json.RawMessage `json:"syncMessage"`
}

type dataMessage struct {
	Message   *string         `json:"message"`
	GroupInfo *groupInfo      `json:"groupInfo"`
	Reaction  json.RawMessage `json:"reaction"`
}

type groupInfo struct {
	GroupID string `json:"groupId"`
}

// WebhookReceiver handles inbound Signal events. It implements
// gateway.WebhookHandler.
type WebhookReceiver struct {
	allowList   *channel.AllowList
	logger      *slog.Logger
	metrics     *metrics.Metrics
	channelName string
}

// NewWebhookReceiver creates a receiver. A nil allowList accepts every
// sender.
func NewWebhookReceiver(allowList *channel.AllowList, logger *slog.Logger, m *metrics.Metrics, channelName string) *WebhookReceiver {
	return &WebhookReceiver{
		allowList:   allowList,
		logger:      logger,
		metrics:     m,
		channelName: channelName,
	}
}

// HandleWebhook parses and records one event. Consent replies are not
// acted upon.
func (w *WebhookReceiver) HandleWebhook(_ context.Context, _ string, body []byte, _ http.Header) error {
	msg, err := parseInbound(body, w.channelName)
	if err != nil {
		return err
	}
	w.metrics.RecordWebhookEvent(string(msg.Kind))

	if w.allowList != nil && !w.allowList.IsAllowed(msg) {
		w.logger.Debug("signal event denied by allow list",
			"sender", security.MaskNumber(msg.Sender.ID),
			"chat", msg.Chat.ID,
		)
		return nil
	}

	w.logger.Debug("signal event received",
		"kind", msg.Kind,
		"sender", security.MaskNumber(msg.Sender.ID),
		"group", msg.IsGroup(),
		"has_text", msg.HasText(),
	)
	return nil
}

// parseInbound converts a webhook body into an InboundMessage.
func parseInbound(body []byte, channelName string) (message.InboundMessage, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return message.InboundMessage{}, fmt.Errorf("signal: invalid webhook JSON: %w", err)
	}
	env, account := p.Envelope, p.Account
	if env == nil && p.Params != nil {
		env, account = p.Params.Envelope, p.Params.Account
	}
	if env == nil {
		return message.InboundMessage{}, fmt.Errorf("signal: webhook payload has no envelope")
	}

	sender := env.Source
	if sender == "" {
		sender = env.SourceNumber
	}

	msg := message.InboundMessage{
		Kind:    envelopeKind(env),
		Channel: channelName,
		Account: account,
		Sender: message.Sender{
			ID:          sender,
			UUID:        env.SourceUUID,
			DisplayName: env.SourceName,
		},
		Chat: message.Chat{ID: sender, Type: message.ChatDM},
		Raw:  json.RawMessage(body),
	}
	if env.Timestamp > 0 {
		msg.Timestamp = time.UnixMilli(env.Timestamp)
	}
	if dm := env.DataMessage; dm != nil {
		if dm.Message != nil {
			msg.Text = *dm.Message
		}
		if dm.GroupInfo != nil && dm.GroupInfo.GroupID != "" {
			msg.Chat = message.Chat{ID: dm.GroupInfo.GroupID, Type: message.ChatGroup}
		}
	}
	return msg, nil
}

func envelopeKind(env *envelope) message.InboundKind {
	switch {
	case env.DataMessage != nil && present(env.DataMessage.Reaction) && env.DataMessage.Message == nil:
		return message.KindReaction
	case env.DataMessage != nil:
		return message.KindMessage
	case present(env.ReceiptMessage):
		return message.KindReceipt
	case present(env.TypingMessage):
		return message.KindTyping
	case present(env.SyncMessage):
		return message.KindSync
	default:
		return message.KindUnknown
	}
}

// present reports whether an optional JSON member was sent and not null.
func present(r json.RawMessage) bool {
	return len(r) > 0 && string(r) != "null"
}
