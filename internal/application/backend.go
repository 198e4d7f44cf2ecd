// Package application wires configuration into the collaborators shared by
// the server and the CLI: the lead store and the token revocation list.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/leadbook/internal/auth"
	"github.com/JonMunkholm/leadbook/internal/config"
	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/JonMunkholm/leadbook/internal/store/memory"
	"github.com/JonMunkholm/leadbook/internal/store/postgres"
	"github.com/JonMunkholm/leadbook/internal/store/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Backend is an opened lead store.
type Backend struct {
	Store core.Store

	// Ping checks connectivity. Always non-nil.
	Ping func(ctx context.Context) error

	close func()
}

// Close releases the store's connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// OpenStore opens the store selected by cfg.Database.Driver. For postgres,
// pending migrations are applied first when AutoMigrate is set.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (*Backend, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return openPostgres(ctx, cfg)
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("opened sqlite store", "path", cfg.SQLitePath)
		return &Backend{Store: s, Ping: s.Ping, close: func() { _ = s.Close() }}, nil
	case config.DriverMemory:
		slog.Warn("using in-memory store; data is lost on exit")
		return &Backend{Store: memory.New(), Ping: func(context.Context) error { return nil }}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Backend, error) {
	if cfg.AutoMigrate {
		if err := postgres.MigrateUp(cfg.URL); err != nil {
			return nil, err
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("connected to database", "name", databaseName(cfg.URL))
	s := postgres.New(pool)
	return &Backend{Store: s, Ping: s.Ping, close: pool.Close}, nil
}

func databaseName(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// OpenRevocationList returns the Redis-backed list when cfg.RedisURL is set
// and a process-local one otherwise. The returned close func is never nil.
func OpenRevocationList(ctx context.Context, cfg config.AuthConfig) (auth.RevocationList, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("token revocations kept in memory")
		return auth.NewMemoryRevocationList(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	slog.Info("token revocations kept in redis", "addr", opts.Addr)
	return auth.NewRedisRevocationList(client), func() { _ = client.Close() }, nil
}

// NewService builds the core service with the configured import limits.
func NewService(store core.Store, cfg config.ImportConfig, opts ...core.Option) *core.Service {
	limiter := core.NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime)
	return core.NewService(store, append([]core.Option{core.WithImportLimiter(limiter)}, opts...)...)
}
