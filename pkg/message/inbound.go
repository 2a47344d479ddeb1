package message

import (
	"encoding/json"
	"time"
)

// InboundKind classifies inbound platform events.
type InboundKind string

// Known inbound kinds.
const (
	KindMessage  InboundKind = "message"
	KindReceipt  InboundKind = "receipt"
	KindTyping   InboundKind = "typing"
	KindSync     InboundKind = "sync"
	KindReaction InboundKind = "reaction"
	KindUnknown  InboundKind = "unknown"
)

// InboundMessage is an event received from a channel's webhook.
type InboundMessage struct {
	Kind      InboundKind     `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Channel   string          `json:"channel"`
	Account   string          `json:"account,omitempty"`
	Sender    Sender          `json:"sender"`
	Chat      Chat            `json:"chat"`
	Text      string          `json:"text,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// HasText reports whether the event carries message text.
func (m *InboundMessage) HasText() bool {
	return m.Text != ""
}

// IsGroup reports whether the event was sent in a group chat.
func (m *InboundMessage) IsGroup() bool {
	return m.Chat.IsGroup()
}
