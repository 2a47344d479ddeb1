// Package app provides the shared entry point of the sigbridge binary.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/flemzord/sigbridge/internal/config"
	"github.com/flemzord/sigbridge/internal/core"
	"github.com/flemzord/sigbridge/internal/logging"
	"github.com/flemzord/sigbridge/internal/metrics"
	"github.com/flemzord/sigbridge/internal/security"
)

// EnvConfig names the environment variable holding the config path.
const EnvConfig = "SIGBRIDGE_CONFIG"

// RunParams configures Setup and Run.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string

	// LogLevel, when non-nil, overrides the configured log level.
	LogLevel *slog.Level

	// Namespaces restricts loading to modules of these namespaces, e.g.
	// {"store", "channel"} for CLI commands that must not bind the
	// gateway port. Empty loads every configured module.
	Namespaces []string

	// LogOutput replaces stderr when no log file is configured.
	LogOutput io.Writer
}

// Runtime is a provisioned application ready to start.
type Runtime struct {
	App        *core.App
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
	Metrics    *metrics.Metrics

	logCloser io.Closer
}

// Setup loads and validates the configuration, builds the logger and the
// shared services, then provisions the configured modules.
func Setup(params RunParams) (*Runtime, error) {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	redactor := security.NewRedactor()
	logger, closer, err := logging.New(logging.Options{
		Config:   cfg.Logging,
		Level:    params.LogLevel,
		Redactor: redactor,
		Output:   params.LogOutput,
	})
	if err != nil {
		return nil, err
	}

	auditLogger := security.NewAuditLogger(security.AuditLoggerConfig{
		Logger:   logger.With("component", "audit"),
		Redactor: redactor,
	})
	m := metrics.New()

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)
	appCtx.RegisterService(security.ServiceRedactor, redactor)
	appCtx.RegisterService(security.ServiceAudit, auditLogger)
	appCtx.RegisterService(metrics.ServiceName, m)
	appCtx.RegisterService(core.ServiceVersion, params.Version)

	ids := filterNamespaces(config.Resolve(cfg), params.Namespaces)

	application := core.NewApp(appCtx)
	if err := application.LoadModules(ids); err != nil {
		_ = closer.Close()
		return nil, err
	}

	logger.Debug("configuration loaded", "path", cfgPath, "modules", len(ids), "version", params.Version)
	return &Runtime{
		App:        application,
		Config:     cfg,
		ConfigPath: cfgPath,
		Logger:     logger,
		Metrics:    m,
		logCloser:  closer,
	}, nil
}

// Close releases the log file, if any. Modules are stopped by the App.
func (r *Runtime) Close() error {
	return r.logCloser.Close()
}

// Module returns the loaded module of type T with the given ID.
func Module[T core.Module](r *Runtime, id string) (T, error) {
	var zero T
	mod, ok := r.App.Module(id)
	if !ok {
		return zero, fmt.Errorf("module %s is not configured", id)
	}
	typed, ok := mod.(T)
	if !ok {
		return zero, fmt.Errorf("module %s has unexpected type %T", id, mod)
	}
	return typed, nil
}

// Run starts every configured module and blocks until ctx is done or a
// shutdown signal is received.
func Run(ctx context.Context, params RunParams) error {
	rt, err := Setup(params)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Logger.Info("sigbridge starting", "version", params.Version, "commit", params.Commit, "config", rt.ConfigPath)
	return rt.App.Run(ctx)
}

func filterNamespaces(ids, namespaces []string) []string {
	if len(namespaces) == 0 {
		return ids
	}
	out := ids[:0:0]
	for _, id := range ids {
		if slices.Contains(namespaces, core.ModuleID(id).Namespace()) {
			out = append(out, id)
		}
	}
	return out
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $SIGBRIDGE_CONFIG → ./sigbridge.yaml →
// $XDG_CONFIG_HOME/sigbridge/sigbridge.yaml (or ~/.config/sigbridge/sigbridge.yaml).
func ResolveConfigPath() (string, error) {
	if path, ok := os.LookupEnv(EnvConfig); ok && path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%s: %w", EnvConfig, err)
		}
		return path, nil
	}

	candidates := []string{"sigbridge.yaml"}
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "sigbridge", "sigbridge.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "sigbridge", "sigbridge.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/sigbridge if set, otherwise ~/.local/share/sigbridge.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "sigbridge")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "sigbridge")
}
