// Package postgres implements the "store.postgres" module: config and
// user preference storage on PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/sigbridge/internal/core"
	"github.com/flemzord/sigbridge/internal/store"
)

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ store.ConfigStore     = (*Store)(nil)
	_ store.PreferenceStore = (*Store)(nil)
	_ core.Configurable     = (*Module)(nil)
	_ core.Provisioner      = (*Module)(nil)
	_ core.Stopper          = (*Module)(nil)
	_ core.HealthChecker    = (*Module)(nil)
)

// Module provides the stores backed by PostgreSQL.
type Module struct {
	config Config
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.postgres",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("postgres: decode config: %w", err)
	}
	m.config.defaults()
	return m.config.validate()
}

// Provision implements core.Provisioner. It connects, pings and migrates.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.logger = ctx.Logger

	s, pool, err := Open(context.Background(), m.config)
	if err != nil {
		return err
	}
	m.pool = pool

	ctx.RegisterService(store.ServiceConfig, s)
	ctx.RegisterService(store.ServicePreferences, s)
	ctx.RegisterService(core.HealthServicePrefix+"store.postgres", m)

	stat := pool.Stat()
	m.logger.Info("postgres store provisioned",
		"max_conns", stat.MaxConns(),
		"total_conns", stat.TotalConns(),
	)
	return nil
}

// HealthCheck implements core.HealthChecker.
func (m *Module) HealthCheck(ctx context.Context) error {
	if m.pool == nil {
		return store.ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return m.pool.Ping(ctx)
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.pool != nil {
		m.pool.Close()
		m.logger.Info("postgres store closed")
	}
	return nil
}

// Open builds a pool from cfg, verifies connectivity and migrates the
// schema. The caller closes the pool.
func Open(ctx context.Context, cfg Config) (*Store, *pgxpool.Pool, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return &Store{pool: pool}, pool, nil
}
