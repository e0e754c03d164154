// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/codenest/codenest/internal/auth"
	"github.com/codenest/codenest/internal/auth/memory"
	"github.com/codenest/codenest/internal/auth/postgres"
	"github.com/codenest/codenest/internal/auth/sqlite"
	"github.com/codenest/codenest/internal/config"
	"github.com/codenest/codenest/internal/store"
	"github.com/codenest/codenest/internal/xdg"
)

// accountStore is an account repository together with its connection
// lifecycle.
type accountStore struct {
	repo  auth.AccountRepository
	ping  func(ctx context.Context) error
	close func()
}

// openAccountStore connects the configured driver and brings its schema up
// to date.
func openAccountStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*accountStore, error) {
	connect := store.ConnectOptions{Logger: logger}

	switch cfg.DB.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory account store; accounts are lost on restart")
		return &accountStore{
			repo:  memory.NewAccountRepository(),
			ping:  func(context.Context) error { return nil },
			close: func() {},
		}, nil

	case config.DriverSQLite:
		if err := xdg.EnsureParent(cfg.DB.Path); err != nil {
			return nil, err //nolint:wrapcheck // xdg errors carry codes
		}
		if err := migrateUp(func() (*store.Migrator, error) { return store.NewSQLiteMigrator(cfg.DB.Path) }, logger); err != nil {
			return nil, err
		}
		db, err := store.OpenSQLite(ctx, cfg.DB.Path, connect)
		if err != nil {
			return nil, oops.With("operation", "open sqlite").Wrap(err)
		}
		return &accountStore{
			repo: sqlite.NewAccountRepository(db),
			ping: db.PingContext,
			close: func() {
				if err := db.Close(); err != nil {
					logger.Warn("error closing sqlite database", "error", err)
				}
			},
		}, nil

	case config.DriverPostgres:
		pool, err := store.OpenPostgres(ctx, cfg.DB.URL, connect)
		if err != nil {
			return nil, oops.With("operation", "open postgres").Wrap(err)
		}
		if err := migrateUp(func() (*store.Migrator, error) { return store.NewMigrator(cfg.DB.URL) }, logger); err != nil {
			pool.Close()
			return nil, err
		}
		return &accountStore{
			repo:  postgres.NewAccountRepository(pool),
			ping:  pool.Ping,
			close: pool.Close,
		}, nil

	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("field", "db.driver").
			Errorf("unsupported db driver %q", cfg.DB.Driver)
	}
}

func migrateUp(open func() (*store.Migrator, error), logger *slog.Logger) error {
	migrator, err := open()
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	pending, err := migrator.PendingMigrations()
	if err != nil {
		return oops.With("operation", "list pending migrations").Wrap(err)
	}
	if len(pending) == 0 {
		logger.Debug("database schema up to date", "dialect", string(migrator.Dialect()))
		return nil
	}

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("applied database migrations",
		"dialect", string(migrator.Dialect()),
		"count", len(pending),
	)
	return nil
}
