package telemetry

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config holds the "telemetry.otel" module configuration.
type Config struct {
	// Endpoint is the OTLP/HTTP collector URL, e.g. http://otel:4318.
	// Empty disables export; spans are still created and dropped.
	Endpoint string `yaml:"endpoint"`

	// Headers are sent with each export request (auth tokens).
	Headers map[string]string `yaml:"headers"`

	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of root spans sampled, 0 < r <= 1.
	SampleRatio float64 `yaml:"sample_ratio"`

	ExportTimeout time.Duration `yaml:"export_timeout"`
}

func (c *Config) defaults() {
	if c.ServiceName == "" {
		c.ServiceName = "sigbridge"
	}
	if c.SampleRatio == 0 {
		c.SampleRatio = 1
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample_ratio %v out of range (0,1]", c.SampleRatio)
	}
	if c.Endpoint == "" {
		return nil
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("telemetry: invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("telemetry: endpoint scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("telemetry: endpoint must include a host")
	}
	return nil
}
