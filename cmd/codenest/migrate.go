// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/codenest/codenest/internal/config"
	"github.com/codenest/codenest/internal/store"
	"github.com/codenest/codenest/internal/xdg"
)

// NewMigrateCmd creates the migrate subcommand and its children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the account database schema",
		Long: `Apply, roll back or inspect schema migrations for the configured
PostgreSQL or SQLite account store.`,
	}
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())
	cmd.AddCommand(newMigrateVersionCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateForceCmd())
	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Up(); err != nil {
					return oops.With("operation", "migrate up").Wrap(err)
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	var (
		steps int
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (one step by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !all && steps < 1 {
				return oops.Code("INVALID_STEPS").With("steps", steps).Errorf("steps must be at least 1")
			}
			return withMigrator(cmd, func(m *store.Migrator) error {
				var err error
				if all {
					err = m.Down()
				} else {
					err = m.Steps(-steps)
				}
				if err != nil {
					return oops.With("operation", "migrate down").Wrap(err)
				}
				cmd.Println("Rollback completed successfully")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.Flags().BoolVar(&all, "all", false, "roll back every migration (drops all data)")
	return cmd
}

func newMigrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return oops.With("operation", "read version").Wrap(err)
				}
				cmd.Println(formatVersion(v, dirty))
				return nil
			})
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *store.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return oops.With("operation", "read version").Wrap(err)
				}
				applied, err := m.AppliedMigrations()
				if err != nil {
					return err //nolint:wrapcheck // already wrapped with operation
				}
				pending, err := m.PendingMigrations()
				if err != nil {
					return err //nolint:wrapcheck // already wrapped with operation
				}

				cmd.Println(formatVersion(v, dirty))
				for _, line := range migrationLines(m.Dialect(), "applied", applied) {
					cmd.Println(line)
				}
				for _, line := range migrationLines(m.Dialect(), "pending", pending) {
					cmd.Println(line)
				}
				return nil
			})
		},
	}
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force VERSION",
		Short: "Set the schema version without running migrations",
		Long: `Set the recorded schema version and clear the dirty flag. Use only
after repairing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, func(m *store.Migrator) error {
				if err := m.Force(v); err != nil {
					return oops.With("operation", "force version").Wrap(err)
				}
				cmd.Printf("Forced schema version to %d\n", v)
				return nil
			})
		},
	}
}

// withMigrator opens a migrator for the configured driver, runs fn and
// closes it.
func withMigrator(cmd *cobra.Command, fn func(*store.Migrator) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(m)
}

// newMigrator picks the migration set for cfg's driver.
func newMigrator(cfg *config.Config) (*store.Migrator, error) {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		if cfg.DB.URL == "" {
			return nil, oops.Code("CONFIG_INVALID").With("field", "db.url").
				Errorf("db.url is required for the postgres driver (set CODENEST_DB_URL)")
		}
		return store.NewMigrator(cfg.DB.URL) //nolint:wrapcheck // store errors carry codes
	case config.DriverSQLite:
		if cfg.DB.Path != "" {
			if err := xdg.EnsureParent(cfg.DB.Path); err != nil {
				return nil, err //nolint:wrapcheck // xdg errors carry codes
			}
		}
		return store.NewSQLiteMigrator(cfg.DB.Path) //nolint:wrapcheck // store errors carry codes
	default:
		return nil, oops.Code("MIGRATION_UNSUPPORTED").
			With("driver", cfg.DB.Driver).
			Errorf("driver %q has no schema to migrate", cfg.DB.Driver)
	}
}

// parseForceVersion reads a leading integer from s.
func parseForceVersion(s string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrapf(err, "invalid migration version %q", s)
	}
	return v, nil
}

func formatVersion(v uint, dirty bool) string {
	if v == 0 {
		return "Schema version: none"
	}
	if dirty {
		return fmt.Sprintf("Schema version: %d (dirty)", v)
	}
	return fmt.Sprintf("Schema version: %d", v)
}

func migrationLines(dialect store.Dialect, state string, versions []uint) []string {
	lines := make([]string, 0, len(versions))
	for _, v := range versions {
		name, err := store.MigrationName(dialect, v)
		if err != nil || name == "" {
			name = fmt.Sprintf("%06d", v)
		}
		lines = append(lines, fmt.Sprintf("  %-8s %s", state, strings.TrimSpace(name)))
	}
	return lines
}
