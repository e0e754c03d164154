// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/codenest/codenest/internal/auth"
	"github.com/codenest/codenest/internal/config"
	"github.com/codenest/codenest/internal/content"
	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/internal/observability"
	"github.com/codenest/codenest/internal/web"
	"github.com/codenest/codenest/pkg/errutil"
)

// shutdownTimeout bounds graceful shutdown of both listeners.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API: registration, login, logout and the session-gated
concept catalogue. Pending database migrations are applied on startup.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cmd, cfg)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := logging.SetDefault(logging.Options{
		Service: "codenest",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	})

	if err := cfg.Validate(logger); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	gin.SetMode(ginMode(cfg.Mode))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting codenest",
		"mode", cfg.Mode,
		"http_addr", cfg.HTTP.Addr,
		"db_driver", cfg.DB.Driver,
	)

	accounts, err := openAccountStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer accounts.close()

	hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Time:    cfg.Argon2.Time,
		Memory:  cfg.Argon2.Memory,
		Threads: cfg.Argon2.Threads,
	})

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: []byte(cfg.Session.Secret),
		TTL:    cfg.Session.TTL,
		Issuer: cfg.Session.Issuer,
	})
	if err != nil {
		return oops.With("operation", "create token manager").Wrap(err)
	}

	svc, err := auth.NewServiceWithLogger(accounts.repo, hasher, tokens, logger)
	if err != nil {
		return oops.With("operation", "create auth service").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, accounts.ping, logger)
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			return oops.With("operation", "start observability server").Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		metrics = obsServer.Metrics()
	}

	sameSite, err := config.ParseSameSite(cfg.Cookie.SameSite)
	if err != nil {
		return err
	}

	webServer, err := web.NewServer(web.Options{
		Auth:     svc,
		Concepts: content.DefaultCatalog(),
		Cookie: web.CookieOptions{
			Name:     cfg.Cookie.Name,
			Domain:   cfg.Cookie.Domain,
			Secure:   cfg.Cookie.Secure,
			SameSite: sameSite,
			MaxAge:   tokens.TTL(),
		},
		Origins: cfg.CORS.Origins,
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		stopServer(obsServer, logger)
		return oops.With("operation", "create http server").Wrap(err)
	}

	httpErrCh, err := webServer.Start(cfg.HTTP.Addr)
	if err != nil {
		stopServer(obsServer, logger)
		return oops.With("operation", "start http server").Wrap(err)
	}

	cmd.Println("codenest listening on " + webServer.Addr())

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down", "reason", context.Cause(ctx))
	case err, ok := <-httpErrCh:
		if ok && err != nil {
			serveErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
			errutil.LogError(logger, "http server failed", serveErr)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return serveErr
}

func ginMode(mode string) string {
	switch mode {
	case config.ModeRelease:
		return gin.ReleaseMode
	case config.ModeTest:
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

func stopServer(s *observability.Server, logger *slog.Logger) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
