// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Default connection retry settings.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 500 * time.Millisecond
	maxConnectBackoff      = 10 * time.Second
)

// RetryConfig controls how long Connect keeps trying to reach the database.
type RetryConfig struct {
	Attempts uint64        // total attempts, at least 1
	Backoff  time.Duration // initial delay, doubled per attempt
}

func (c RetryConfig) backoff() retry.Backoff {
	attempts := c.Attempts
	if attempts == 0 {
		attempts = 1
	}
	base := c.Backoff
	if base <= 0 {
		base = DefaultConnectBackoff
	}
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(maxConnectBackoff, b)
	return retry.WithMaxRetries(attempts-1, b)
}

// Connect opens a pool for databaseURL and waits until the database answers
// a ping. A malformed URL fails immediately; unreachable databases are
// retried with exponential backoff.
func Connect(ctx context.Context, databaseURL string, cfg RetryConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "parse database url").Wrap(err)
	}

	var attempt int
	pool, err := withRetry(ctx, cfg, func(ctx context.Context) (*pgxpool.Pool, error) {
		attempt++
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg.Copy())
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			slog.WarnContext(ctx, "database not reachable yet",
				"attempt", attempt,
				"host", poolCfg.ConnConfig.Host,
				"error", err)
			return nil, err
		}
		return pool, nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "connect to database").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}

// withRetry runs fn until it succeeds, the retry budget is spent or ctx ends.
// Every failure from fn is treated as retryable.
func withRetry[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := retry.Do(ctx, cfg.backoff(), func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		out = v
		return nil
	})
	return out, err
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessProbe returns a check that reports whether db answers a ping
// within timeout.
func ReadinessProbe(db Pinger, timeout time.Duration) func() bool {
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return db.Ping(ctx) == nil
	}
}
