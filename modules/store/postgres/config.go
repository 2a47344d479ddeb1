package postgres

import (
	"errors"
	"time"
)

// Config holds the PostgreSQL store module configuration.
type Config struct {
	// DSN is a postgres:// URL or key=value connection string.
	DSN string `yaml:"dsn"`

	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

func (c *Config) defaults() {
	if c.MaxConns <= 0 {
		c.MaxConns = 4
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = 10 * time.Minute
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}

func (c *Config) validate() error {
	if c.DSN == "" {
		return errors.New("postgres: dsn is required")
	}
	if c.MinConns > c.MaxConns {
		return errors.New("postgres: min_conns must not exceed max_conns")
	}
	return nil
}
