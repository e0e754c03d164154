// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/codenest/codenest/internal/config"
	"github.com/codenest/codenest/internal/xdg"
)

// Global flags available to all subcommands.
var (
	configFile string
	envFile    string
)

// NewRootCmd creates the root command for the codenest CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codenest",
		Short: "codenest - accounts and sessions for the concept catalogue",
		Long: `codenest registers accounts, checks passwords and issues signed
session cookies that gate access to the concept catalogue.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file (default: $CODENEST_ENV_FILE or .env)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHashPasswordCmd())

	return cmd
}

// loadConfig resolves configuration for cmd from the global flags, the
// environment and cmd's own flags. Without --config, the XDG config file is
// used when present.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := envFile
	if path == "" {
		path = config.DotEnvPath()
	}
	file := configFile
	if file == "" {
		file, _ = xdg.DefaultConfigFile()
	}
	//nolint:wrapcheck // config errors already carry codes
	return config.Load(config.LoadOptions{
		ConfigFile: file,
		EnvFile:    path,
		Flags:      cmd.Flags(),
	})
}
