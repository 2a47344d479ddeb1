// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for sigbridge.
package config

import "gopkg.in/yaml.v3"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Logging configures the process-wide logger.
	Logging LoggingConfig `yaml:"logging"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.signal").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LoggingConfig selects log level, format and an optional rotated file.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`

	// Format is text, json or auto. Auto picks text on a terminal.
	Format string `yaml:"format"`

	// File, when set, receives log output instead of stderr.
	File string `yaml:"file"`

	// MaxSizeMB is the size at which File is rotated. Defaults to 50.
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept. Defaults to 5.
	MaxBackups int `yaml:"max_backups"`

	// MaxAgeDays deletes rotated files older than this. Zero keeps them.
	MaxAgeDays int `yaml:"max_age_days"`
}
