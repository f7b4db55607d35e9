// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/nextblog/nextblog-auth/internal/auth"
	"github.com/nextblog/nextblog-auth/internal/auth/postgres"
	"github.com/nextblog/nextblog-auth/internal/logging"
	"github.com/nextblog/nextblog-auth/internal/mail"
	"github.com/nextblog/nextblog-auth/internal/store"
)

// NewPruneCmd creates the prune subcommand.
func NewPruneCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete expired password-reset codes",
		Long: `Delete one-time codes whose expiry has passed. Expired codes are already
refused at verification time; this only reclaims the rows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrune(cmd, deps)
		},
	}
}

func runPrune(cmd *cobra.Command, deps *Deps) error {
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd, deps)
	if err != nil {
		return err
	}
	databaseURL, err := requireDatabaseURL(cfg)
	if err != nil {
		return err
	}
	logger := logging.Setup(serviceName, version, cfg.Log.Format, cfg.Log.Level, cmd.ErrOrStderr())

	pool, err := deps.PoolFactory(cmd.Context(), databaseURL, store.PoolConfig{
		MaxConns:        1,
		ConnectAttempts: cfg.Database.ConnectAttempts,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	resets, err := auth.NewPasswordResetService(
		postgres.NewAccountRepository(pool),
		postgres.NewOneTimeCodeRepository(pool),
		auth.NewBcryptHasher(),
		mail.NewLogMessenger(logger),
		auth.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	removed, err := resets.PruneExpired(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Removed %d expired code(s)\n", removed)
	return nil
}
