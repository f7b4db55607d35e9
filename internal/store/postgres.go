// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

// Package store owns the PostgreSQL connection pool and the embedded schema
// migrations for the account database.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Pool defaults.
const (
	DefaultMaxConns        int32         = 10
	DefaultConnectAttempts uint64        = 5
	DefaultRetryBase       time.Duration = 200 * time.Millisecond
	DefaultConnectTimeout  time.Duration = 5 * time.Second
)

// PoolConfig tunes Connect. Zero values select the defaults above.
type PoolConfig struct {
	MaxConns        int32
	ConnectAttempts uint64
	RetryBase       time.Duration
	ConnectTimeout  time.Duration
	Logger          *slog.Logger
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxConns <= 0 {
		c.MaxConns = DefaultMaxConns
	}
	if c.ConnectAttempts == 0 {
		c.ConnectAttempts = DefaultConnectAttempts
	}
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Connect opens a pgx pool for dsn and waits until the database answers a
// ping, retrying with exponential backoff. The caller owns the returned pool.
func Connect(ctx context.Context, dsn string, cfg PoolConfig) (*pgxpool.Pool, error) {
	cfg = cfg.withDefaults()

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse dsn").Wrap(err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxRetries(cfg.ConnectAttempts-1, retry.NewExponential(cfg.RetryBase))
	if err := pingWithRetry(ctx, pool.Ping, backoff, cfg.Logger); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// pingWithRetry calls ping until it succeeds, the backoff is exhausted or
// ctx is done.
func pingWithRetry(ctx context.Context, ping func(context.Context) error, backoff retry.Backoff, logger *slog.Logger) error {
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := ping(ctx); err != nil {
			logger.Warn("database not ready",
				"attempt", attempt,
				"error", err.Error(),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}
