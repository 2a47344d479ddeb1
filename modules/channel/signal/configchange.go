package signal

import (
	"context"
	"fmt"
	"strings"

	"github.com/flemzord/sigbridge/internal/security"
)

// NoticeLevel is the severity of a Notice.
type NoticeLevel string

// Notice levels.
const (
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a localizable message shown after a settings change.
type Notice struct {
	Level NoticeLevel `json:"level"`
	Key   string      `json:"key"`
}

// Text renders the notice in lang.
func (n Notice) Text(lang string) string { return T(lang, n.Key, nil) }

// ActionCaptcha is the connect action asking for a registration captcha.
const ActionCaptcha = "captcha"

// Redirect asks the caller to continue in the connect endpoint.
type Redirect struct {
	Action  string `json:"action"`
	Account string `json:"botaccount"`
}

// Outcome is the result of a settings change.
type Outcome struct {
	Config   BotConfig `json:"config"`
	Notice   *Notice   `json:"notice,omitempty"`
	Redirect *Redirect `json:"redirect,omitempty"`
}

func success(cfg BotConfig, key string) Outcome {
	return Outcome{Config: cfg, Notice: &Notice{Level: NoticeSuccess, Key: key}}
}

// OnConfigChange applies a new value for a bot setting, performing the
// remote calls it implies. On error the returned Outcome still carries
// the snapshot as it stands after any partial change.
func (m *Manager) OnConfigChange(ctx context.Context, cfg BotConfig, key, value string) (out Outcome, err error) {
	defer func() {
		m.metrics.RecordConfigChange(key, err)
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.audit.Log(security.AuditEvent{
			Type:     security.EventConfigChange,
			Detail:   key,
			Metadata: map[string]string{"key": key, "result": result},
		})
	}()

	value = strings.TrimSpace(value)
	switch key {
	case KeyBotAccount:
		return m.changeAccount(ctx, cfg, value)
	case KeyBotName, KeyBotAbout:
		return m.changeProfile(ctx, cfg, key, value)
	case KeyWebhook:
		return m.changeWebhook(ctx, cfg, value)
	case KeyAPIURL:
		return Outcome{Config: cfg}, fmt.Errorf("%w: %s is set by the module configuration", ErrUnknownSetting, key)
	default:
		return Outcome{Config: cfg}, fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
}

func (m *Manager) changeAccount(ctx context.Context, cfg BotConfig, value string) (Outcome, error) {
	if value == cfg.Account {
		return Outcome{Config: cfg}, nil
	}
	if ValidateNumber(value) != nil {
		return Outcome{Config: cfg}, ErrInvalidNumber
	}

	previous := cfg.Account
	cleared, err := m.ClearAccount(ctx, cfg)
	if err != nil {
		return Outcome{Config: cfg}, err
	}

	if value == "" {
		next, err := m.DeleteAccount(ctx, cleared, previous)
		if err != nil {
			return Outcome{Config: cleared}, err
		}
		return success(next, "accountdeleted"), nil
	}

	verified, next, err := m.IsAccountVerified(ctx, cleared, value)
	if err != nil {
		return Outcome{Config: next}, err
	}
	if !verified {
		return Outcome{Config: next, Redirect: &Redirect{Action: ActionCaptcha, Account: value}}, nil
	}

	next.Account = value
	if err := saveConfig(ctx, m.config, next, KeyBotAccount); err != nil {
		return Outcome{Config: cleared}, err
	}
	return success(next, "accountcreated"), nil
}

// changeProfile updates the bot name or about text. A failed update
// clears the bot account when the account turns out to be unverified.
func (m *Manager) changeProfile(ctx context.Context, cfg BotConfig, key, value string) (Outcome, error) {
	if cfg.Account == "" {
		return Outcome{Config: cfg, Notice: &Notice{Level: NoticeWarning, Key: "setaccountfirst"}}, nil
	}
	if value == "" && cfg.value(key) == "" {
		return Outcome{Config: cfg}, nil
	}

	next := cfg
	var name, about *string
	noticeKey := "nameupdated"
	if key == KeyBotName {
		name = &value
		next.Name = value
	} else {
		about = &value
		next.About = value
		noticeKey = "aboutupdated"
	}

	if err := m.UpdateAccountInfo(ctx, cfg, name, about); err != nil {
		if value == "" {
			return Outcome{Config: cfg}, err
		}
		return m.rollbackUnverified(ctx, cfg, err)
	}

	if err := saveConfig(ctx, m.config, next, key); err != nil {
		return Outcome{Config: cfg}, err
	}
	return success(next, noticeKey), nil
}

func (m *Manager) rollbackUnverified(ctx context.Context, cfg BotConfig, cause error) (Outcome, error) {
	verified, next, err := m.IsAccountVerified(ctx, cfg, "")
	if err != nil {
		m.logger.Warn("signal verification check after failed update", "error", err)
		return Outcome{Config: next}, cause
	}
	if verified {
		return Outcome{Config: next}, cause
	}
	cleared, err := m.ClearAccount(ctx, next)
	if err != nil {
		m.logger.Warn("signal clearing unverified account", "error", err)
		return Outcome{Config: next}, cause
	}
	return Outcome{Config: cleared}, cause
}

func (m *Manager) changeWebhook(ctx context.Context, cfg BotConfig, value string) (Outcome, error) {
	if value == "" {
		if cfg.Webhook == "" {
			return Outcome{Config: cfg}, nil
		}
		next, err := m.DeleteWebhook(ctx, cfg)
		if err != nil {
			return Outcome{Config: cfg}, err
		}
		return success(next, "webhookdeleted"), nil
	}

	if !strings.HasPrefix(value, "https:") {
		return Outcome{Config: cfg}, ErrRequireHTTPS
	}
	if cfg.Account == "" {
		return Outcome{Config: cfg}, ErrNotConfigured
	}

	next, err := m.CreateWebhook(ctx, cfg, value)
	if err != nil {
		return Outcome{Config: cfg}, err
	}
	return success(next, "webhookcreated"), nil
}
