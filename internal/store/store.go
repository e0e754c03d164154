// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store opens the account databases and applies their schema.
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	// Register the pure-Go "sqlite" database/sql driver.
	_ "modernc.org/sqlite"
)

// Connection retry defaults for startup.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 500 * time.Millisecond
	maxConnectBackoff      = 5 * time.Second
)

// ConnectOptions controls startup connection retries.
type ConnectOptions struct {
	Attempts uint64
	Backoff  time.Duration
	Logger   *slog.Logger
}

func (o ConnectOptions) withDefaults() ConnectOptions {
	if o.Attempts == 0 {
		o.Attempts = DefaultConnectAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultConnectBackoff
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func (o ConnectOptions) backoff() retry.Backoff {
	b := retry.NewExponential(o.Backoff)
	b = retry.WithCappedDuration(maxConnectBackoff, b)
	// Attempts counts the first try; WithMaxRetries counts retries.
	return retry.WithMaxRetries(o.Attempts-1, b)
}

// OpenPostgres creates a pgx pool and waits until the database answers a ping.
// Only the initial connection is retried.
func OpenPostgres(ctx context.Context, dsn string, opts ConnectOptions) (*pgxpool.Pool, error) {
	opts = opts.withDefaults()

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("driver", "postgres").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("driver", "postgres").Wrap(err)
	}

	attempt := 0
	err = retry.Do(ctx, opts.backoff(), func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			opts.Logger.Warn("database not ready", "driver", "postgres", "attempt", attempt, "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("driver", "postgres").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}

// SQLiteDSN returns the modernc DSN used for path, with WAL journaling and a
// busy timeout so concurrent writers wait instead of failing.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// OpenSQLite opens the SQLite database at path. Writes are serialised
// through a single connection.
func OpenSQLite(ctx context.Context, path string, opts ConnectOptions) (*sql.DB, error) {
	opts = opts.withDefaults()

	if path == "" {
		return nil, oops.Code("DB_CONFIG_INVALID").With("driver", "sqlite").Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite", SQLiteDSN(path))
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("driver", "sqlite").Wrap(err)
	}
	db.SetMaxOpenConns(1)

	err = retry.Do(ctx, opts.backoff(), func(ctx context.Context) error {
		if pingErr := db.PingContext(ctx); pingErr != nil {
			opts.Logger.Warn("database not ready", "driver", "sqlite", "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("driver", "sqlite").
			With("path", path).
			Wrap(err)
	}
	return db, nil
}
