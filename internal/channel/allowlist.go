package channel

import (
	"strings"

	"github.com/flemzord/sigbridge/pkg/message"
)

// AllowList controls which senders and groups may reach a channel's
// inbound handler. An empty or nil AllowList denies everyone.
type AllowList struct {
	users  map[string]struct{}
	groups map[string]struct{}
}

// NewAllowList creates an AllowList. Keys are trimmed and lowercased at
// construction time so that IsAllowed can use direct map lookups.
func NewAllowList(users, groups []string) *AllowList {
	a := &AllowList{
		users:  make(map[string]struct{}, len(users)),
		groups: make(map[string]struct{}, len(groups)),
	}
	for _, u := range users {
		a.users[normalize(u)] = struct{}{}
	}
	for _, g := range groups {
		a.groups[normalize(g)] = struct{}{}
	}
	return a
}

// IsAllowed reports whether the sender or chat is permitted. A sender
// matches on its number or its UUID.
func (a *AllowList) IsAllowed(msg message.InboundMessage) bool {
	if a == nil || (len(a.users) == 0 && len(a.groups) == 0) {
		return false
	}

	if _, ok := a.users[normalize(msg.Sender.ID)]; ok && msg.Sender.ID != "" {
		return true
	}
	if _, ok := a.users[normalize(msg.Sender.UUID)]; ok && msg.Sender.UUID != "" {
		return true
	}
	if msg.Chat.IsGroup() {
		if _, ok := a.groups[normalize(msg.Chat.ID)]; ok {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
