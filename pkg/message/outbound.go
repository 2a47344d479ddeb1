package message

import "strings"

// OutboundMessage is a notification to deliver through a channel.
//
// Either UserID or Recipient addresses the message. When UserID is set the
// channel resolves the recipient from the user's linked account.
type OutboundMessage struct {
	Channel   string `json:"channel"`
	UserID    int64  `json:"user_id,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Text      string `json:"message,omitempty"`

	// Fields is a structured payload merged under Params.
	Fields map[string]any `json:"fields,omitempty"`

	// Params are passed to the platform API as-is and win over Fields.
	Params map[string]any `json:"params,omitempty"`
}

// NewTextMessage creates an outbound text message for a linked user.
func NewTextMessage(channel string, userID int64, text string) OutboundMessage {
	return OutboundMessage{
		Channel: channel,
		UserID:  userID,
		Text:    text,
	}
}

// IsAddressed reports whether the message names a user or a recipient.
func (m *OutboundMessage) IsAddressed() bool {
	return m.UserID != 0 || strings.TrimSpace(m.Recipient) != ""
}
