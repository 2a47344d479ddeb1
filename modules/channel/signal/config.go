package signal

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config holds the Signal channel configuration.
type Config struct {
	// APIURL is the signal-cli REST API root, mirrored into the
	// signalapiurl setting at start.
	APIURL string `yaml:"api_url"`
	// SiteURL is the platform the bridge serves. Return URLs must share
	// its host.
	SiteURL string `yaml:"site_url"`
	// ReturnURL is where connect flows land by default.
	ReturnURL string `yaml:"return_url"`
	// PublicURL is the gateway root as reached by browsers, used to build
	// connect links. Links are relative when empty.
	PublicURL     string        `yaml:"public_url"`
	Timeout       time.Duration `yaml:"timeout"`
	WebhookSecret string        `yaml:"webhook_secret"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	AllowSenders  []string      `yaml:"allow_senders"`
	AllowGroups   []string      `yaml:"allow_groups"`
}

func (c *Config) defaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 30 * time.Minute
	}
	if c.ReturnURL == "" {
		c.ReturnURL = c.SiteURL
	}
}

func (c *Config) validate() error {
	var errs []error

	if c.APIURL == "" {
		errs = append(errs, errors.New("signal: api_url is required"))
	} else if !isHTTPURL(c.APIURL) {
		errs = append(errs, fmt.Errorf("signal: api_url must be a valid http/https URL, got %q", c.APIURL))
	}

	if c.SiteURL == "" {
		errs = append(errs, errors.New("signal: site_url is required"))
	} else if !isHTTPURL(c.SiteURL) {
		errs = append(errs, fmt.Errorf("signal: site_url must be a valid http/https URL, got %q", c.SiteURL))
	}

	if c.ReturnURL != "" && !isHTTPURL(c.ReturnURL) {
		errs = append(errs, fmt.Errorf("signal: return_url must be a valid http/https URL, got %q", c.ReturnURL))
	}
	if c.PublicURL != "" && !isHTTPURL(c.PublicURL) {
		errs = append(errs, fmt.Errorf("signal: public_url must be a valid http/https URL, got %q", c.PublicURL))
	}

	if c.Timeout < time.Second || c.Timeout > 5*time.Minute {
		errs = append(errs, fmt.Errorf("signal: timeout must be 1s-5m, got %s", c.Timeout))
	}
	if c.SessionTTL < time.Minute || c.SessionTTL > 24*time.Hour {
		errs = append(errs, fmt.Errorf("signal: session_ttl must be 1m-24h, got %s", c.SessionTTL))
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("signal: session_secret must be at least 32 bytes"))
	}

	return errors.Join(errs...)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
