// Package logging builds the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/flemzord/sigbridge/internal/config"
	"github.com/flemzord/sigbridge/internal/security"
)

const (
	defaultMaxSizeMB  = 50
	defaultMaxBackups = 5
)

// Options configures New.
type Options struct {
	Config config.LoggingConfig

	// Level, when non-nil, overrides Config.Level (e.g. from a CLI flag).
	Level *slog.Level

	// Redactor masks secrets in every record. Nil disables redaction.
	Redactor *security.Redactor

	// Output replaces stderr when Config.File is empty. Used by tests.
	Output io.Writer
}

// New returns a logger and a closer for the underlying file, if any.
// The closer is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Config.Level)
	if err != nil {
		return nil, nil, err
	}
	if opts.Level != nil {
		level = *opts.Level
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	var closer io.Closer = nopCloser{}

	if opts.Config.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Config.File), 0o750); err != nil {
			return nil, nil, fmt.Errorf("logging: create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.Config.File,
			MaxSize:    orDefault(opts.Config.MaxSizeMB, defaultMaxSizeMB),
			MaxBackups: orDefault(opts.Config.MaxBackups, defaultMaxBackups),
			MaxAge:     opts.Config.MaxAgeDays,
			Compress:   true,
			LocalTime:  true,
		}
		out = rotator
		closer = rotator
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if useJSON(opts.Config.Format, out) {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	if opts.Redactor != nil {
		handler = security.NewRedactingHandler(handler, opts.Redactor)
	}

	return slog.New(handler), closer, nil
}

// ParseLevel maps a config level name to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", s)
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func useJSON(format string, out io.Writer) bool {
	switch strings.ToLower(format) {
	case "json":
		return true
	case "text":
		return false
	}
	return !isTerminal(out)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
