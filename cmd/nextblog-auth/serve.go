// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/nextblog/nextblog-auth/internal/auth"
	"github.com/nextblog/nextblog-auth/internal/auth/postgres"
	"github.com/nextblog/nextblog-auth/internal/config"
	"github.com/nextblog/nextblog-auth/internal/errutil"
	"github.com/nextblog/nextblog-auth/internal/logging"
	"github.com/nextblog/nextblog-auth/internal/mail"
	"github.com/nextblog/nextblog-auth/internal/observability"
	"github.com/nextblog/nextblog-auth/internal/store"
	"github.com/nextblog/nextblog-auth/internal/web"
)

const serviceName = "nextblog-auth"

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the account HTTP API",
		Long: `Start the HTTP API for registration, login, profiles and password
reset, plus the metrics and health server when metrics.addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, deps)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cmd, cfg, deps)
		},
	}
}

// runServe runs the API until ctx is cancelled, SIGINT/SIGTERM arrives or a
// server fails.
func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, deps *Deps) error {
	deps = deps.withDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, cfg.Log.Level)
	logger.Info("starting nextblog-auth",
		"addr", cfg.Server.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"mail_enabled", cfg.Mail.Enabled,
	)

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(deps, cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, store.PoolConfig{
		MaxConns:        cfg.Database.MaxConns,
		ConnectAttempts: cfg.Database.ConnectAttempts,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	messenger, err := newMessenger(cfg.Mail, logger)
	if err != nil {
		return err
	}
	accounts, resets, err := newServices(cfg, pool, messenger, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	}

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, pool.Ping)
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	}
	stopObservability := func() {
		if obsServer == nil {
			return
		}
		sctx, scancel := shutdownCtx()
		defer scancel()
		if stopErr := obsServer.Stop(sctx); stopErr != nil {
			logger.Warn("error stopping observability server", "error", stopErr)
		}
	}

	api, err := web.NewServer(accounts, resets, web.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SecureCookies:  cfg.Server.SecureCookies,
		TokenTTL:       cfg.Token.TTL,
	}, web.WithLogger(logger), web.WithMetrics(metrics))
	if err != nil {
		stopObservability()
		return err
	}

	listener, err := deps.ListenerFactory("tcp", cfg.Server.Addr)
	if err != nil {
		stopObservability()
		return oops.Code("LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}

	httpSrv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	cmd.Printf("nextblog-auth listening on %s\n", listener.Addr())
	logger.Info("api ready", "addr", listener.Addr().String())

	var runErr error
	select {
	case serveErr := <-errChan:
		runErr = oops.Code("SERVE_FAILED").With("addr", cfg.Server.Addr).Wrap(serveErr)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	sctx, scancel := shutdownCtx()
	defer scancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	stopObservability()

	logger.Info("shutdown complete")
	return runErr
}

// newServices wires the postgres repositories into the account services.
func newServices(cfg *config.Config, db postgres.DB, messenger auth.Messenger, logger *slog.Logger) (*auth.Service, *auth.PasswordResetService, error) {
	hasher, err := auth.NewBcryptHasherWithCost(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, nil, err
	}
	signer, err := auth.NewJWTSigner(auth.TokenConfig{
		Secret: []byte(cfg.Token.Secret),
		Issuer: cfg.Token.Issuer,
	})
	if err != nil {
		return nil, nil, err
	}

	accountRepo := postgres.NewAccountRepository(db)

	accounts, err := auth.NewAuthService(
		accountRepo,
		postgres.NewLoginSessionRepository(db),
		hasher,
		signer,
		auth.Config{TokenTTL: cfg.Token.TTL, DeviceCap: cfg.Auth.DeviceCap},
		auth.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}

	resets, err := auth.NewPasswordResetService(
		accountRepo,
		postgres.NewOneTimeCodeRepository(db),
		hasher,
		messenger,
		auth.WithLogger(logger),
		auth.WithCodeTTL(cfg.Auth.CodeTTL),
	)
	if err != nil {
		return nil, nil, err
	}
	return accounts, resets, nil
}

// newMessenger returns the SMTP messenger, or a log messenger when mail is disabled.
func newMessenger(cfg config.MailConfig, logger *slog.Logger) (auth.Messenger, error) {
	if !cfg.Enabled {
		logger.Warn("mail disabled, reset codes will be written to the log")
		return mail.NewLogMessenger(logger), nil
	}
	return mail.NewSMTPMessenger(mail.SMTPConfig{
		Host:      cfg.Host,
		Port:      cfg.Port,
		Username:  cfg.Username,
		Password:  cfg.Password,
		From:      cfg.From,
		TLSPolicy: cfg.TLSPolicy,
	})
}

// autoMigrate applies pending migrations before the pool is opened.
func autoMigrate(deps *Deps, databaseURL string, logger *slog.Logger) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			errutil.LogError(logger, "failed to close migrator", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "auto-migrate").Wrap(err)
	}
	logger.Info("database schema up to date")
	return nil
}

// monitorServerErrors cancels ctx when a server reports an error.
// It exits when an error arrives, the channel closes or ctx is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
