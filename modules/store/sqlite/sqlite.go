// Package sqlite implements the "store.sqlite" module: config and user
// preference storage on modernc.org/sqlite (pure Go, no CGO) in WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/sigbridge/internal/core"
	"github.com/flemzord/sigbridge/internal/store"

	_ "modernc.org/sqlite" // SQLite driver registration
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ store.ConfigStore     = (*Store)(nil)
	_ store.PreferenceStore = (*Store)(nil)
	_ core.Configurable     = (*Module)(nil)
	_ core.Provisioner      = (*Module)(nil)
	_ core.Validator        = (*Module)(nil)
	_ core.Stopper          = (*Module)(nil)
	_ core.HealthChecker    = (*Module)(nil)
)

// Module provides store.ConfigStore and store.PreferenceStore backed by a
// single SQLite database.
type Module struct {
	config Config
	db     *sql.DB
	logger *slog.Logger
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	s, db, err := Open(context.Background(), m.config)
	if err != nil {
		return err
	}

	m.db = db
	m.store = s

	ctx.RegisterService(store.ServiceConfig, s)
	ctx.RegisterService(store.ServicePreferences, s)
	ctx.RegisterService(core.HealthServicePrefix+"store.sqlite", m)

	m.logger.Info("sqlite store provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.db.PingContext(context.Background()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// HealthCheck implements core.HealthChecker.
func (m *Module) HealthCheck(ctx context.Context) error {
	if m.db == nil {
		return store.ErrClosed
	}
	return m.db.PingContext(ctx)
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}
	m.logger.Info("sqlite store stopping")
	return m.db.Close()
}

// Store returns the store implementation.
func (m *Module) Store() *Store {
	return m.store
}

// Open opens (creating if needed) the database described by cfg, applies
// the pragmas and migrates the schema. The caller closes the *sql.DB.
func Open(ctx context.Context, cfg Config) (*Store, *sql.DB, error) {
	cfg.defaults()

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}

	// One connection so PRAGMAs apply to every statement.
	db.SetMaxOpenConns(1)

	if cfg.walEnabled() {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return &Store{db: db}, db, nil
}
