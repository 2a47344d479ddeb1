package signal

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/flemzord/sigbridge/internal/store"
)

// Component is the config store component of the bot settings.
const Component = "message_signal"

// Setting keys under Component.
const (
	KeyAPIURL     = "signalapiurl"
	KeyBotAccount = "botaccount"
	KeyBotName    = "botname"
	KeyBotAbout   = "botabout"
	KeyWebhook    = "webhook"
	KeyVerified   = "verified"
)

// PrefChatID is the user preference holding a user's Signal number.
const PrefChatID = "message_processor_signal_chatid"

// BotConfig is an immutable snapshot of the bot settings.
type BotConfig struct {
	APIURL   string `json:"signalapiurl"`
	Account  string `json:"botaccount"`
	Name     string `json:"botname"`
	About    string `json:"botabout"`
	Webhook  string `json:"webhook"`
	Verified bool   `json:"verified"`
}

// value returns the stored string form of key.
func (c BotConfig) value(key string) string {
	switch key {
	case KeyAPIURL:
		return c.APIURL
	case KeyBotAccount:
		return c.Account
	case KeyBotName:
		return c.Name
	case KeyBotAbout:
		return c.About
	case KeyWebhook:
		return c.Webhook
	case KeyVerified:
		if c.Verified {
			return "1"
		}
		return "0"
	}
	return ""
}

func configFromValues(v map[string]string) BotConfig {
	return BotConfig{
		APIURL:   v[KeyAPIURL],
		Account:  v[KeyBotAccount],
		Name:     v[KeyBotName],
		About:    v[KeyBotAbout],
		Webhook:  v[KeyWebhook],
		Verified: parseBool(v[KeyVerified]),
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// LoadConfig reads the current snapshot from s.
func LoadConfig(ctx context.Context, s store.ConfigStore) (BotConfig, error) {
	values, err := s.Load(ctx, Component)
	if err != nil {
		return BotConfig{}, fmt.Errorf("signal: load settings: %w", err)
	}
	return configFromValues(values), nil
}

// saveConfig writes the listed keys of next in one Save.
func saveConfig(ctx context.Context, s store.ConfigStore, next BotConfig, keys ...string) error {
	values := make(map[string]string, len(keys))
	for _, k := range keys {
		values[k] = next.value(k)
	}
	if err := s.Save(ctx, Component, values); err != nil {
		return fmt.Errorf("signal: save settings: %w", err)
	}
	return nil
}

// State is the provisioning state of the bot account.
type State string

// Account states.
const (
	StateUnconfigured State = "unconfigured"
	StatePending      State = "pending"
	StateCreated      State = "created"
	StateVerified     State = "verified"
)

// StateOf derives the account state from a snapshot. pending is the
// candidate number of an unfinished captcha step, if any.
func StateOf(cfg BotConfig, pending string) State {
	switch {
	case cfg.Account != "" && cfg.Verified:
		return StateVerified
	case cfg.Account != "":
		return StateCreated
	case pending != "":
		return StatePending
	default:
		return StateUnconfigured
	}
}

// maxBotNameStem keeps the name within Signal's 32 character limit once
// "Bot" is appended.
const maxBotNameStem = 29

// DefaultBotName derives a bot name from the site URL:
// "https://moodle.th-luebeck.de" gives "th-luebeckBot".
func DefaultBotName(siteURL string) string {
	host := siteURL
	if u, err := url.Parse(siteURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	if i := strings.LastIndex(host, "."); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndex(host, "."); i >= 0 {
		host = host[i+1:]
	}
	if len(host) > maxBotNameStem {
		host = host[:maxBotNameStem]
	}
	return host + "Bot"
}
