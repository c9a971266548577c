package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolSize bounds the connection pool. Zero values keep the defaults.
type PoolSize struct {
	Max int32
	Min int32
}

func Connect(ctx context.Context, databaseURL string, size PoolSize, logger *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	if size.Max > 0 {
		cfg.MaxConns = size.Max
	}
	if size.Min > 0 && size.Min <= cfg.MaxConns {
		cfg.MinConns = size.Min
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if logger != nil {
		logger.Info("db pool ready",
			"host", cfg.ConnConfig.Host,
			"database", cfg.ConnConfig.Database,
			"max_conns", cfg.MaxConns,
			"min_conns", cfg.MinConns,
		)
	}
	return pool, nil
}
