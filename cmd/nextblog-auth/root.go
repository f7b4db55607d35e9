// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/nextblog/nextblog-auth/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the nextblog-auth CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmdWithDeps(nil)
}

func newRootCmdWithDeps(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "nextblog-auth",
		Short: "NextBlog account service",
		Long: `nextblog-auth registers blog readers, signs them in with bearer tokens,
tracks the devices they log in from and resets forgotten passwords with
one-time email codes.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default $XDG_CONFIG_HOME/nextblog-auth/config.yaml)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(deps))
	cmd.AddCommand(NewMigrateCmd(deps))
	cmd.AddCommand(NewPruneCmd(deps))

	return cmd
}

// loadConfig reads the config file named by --config (or the XDG default
// when present), explicitly set flags and the environment.
func loadConfig(cmd *cobra.Command, deps *Deps) (*config.Config, error) {
	path := configFile
	if path == "" {
		path = config.DefaultFile(deps.Getenv)
	}
	cfg, err := config.Load(path, cmd.Flags(), deps.Getenv)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// requireDatabaseURL is the only check needed by commands that touch the
// database without serving requests.
func requireDatabaseURL(cfg *config.Config) (string, error) {
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").
			Errorf("database URL is required (set %s or --database-url)", config.EnvDatabaseURL)
	}
	return cfg.Database.URL, nil
}
