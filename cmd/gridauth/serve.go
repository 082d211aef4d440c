// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridauth/gridauth/internal/auth"
	"github.com/gridauth/gridauth/internal/config"
	"github.com/gridauth/gridauth/internal/httpapi"
	"github.com/gridauth/gridauth/internal/logging"
	"github.com/gridauth/gridauth/internal/mail"
	"github.com/gridauth/gridauth/internal/observability"
)

// appName signs the reset emails.
const appName = "Gridauth"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP auth server",
		Long: `Start the HTTP auth server, which handles user registration,
login, and the two-phase password-reset flow against MongoDB.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().String("listen-addr", ":8080", "HTTP listen address")
	cmd.Flags().String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("public-url", "", "origin for reset links (default: request Origin header)")
	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().StringSlice("cors-origins", nil, "allowed CORS origins")
	cmd.Flags().String("mongo.url", "", "MongoDB connection string")
	cmd.Flags().String("mongo.database", "gridauth", "MongoDB database name")
	cmd.Flags().String("mail.sender", "", "From address for reset emails")
	cmd.Flags().String("mail.smtp-addr", "localhost:25", "SMTP server address")
	cmd.Flags().Bool("mail.disabled", false, "log reset links instead of emailing them")

	return cmd
}

// runServeWithDeps starts the auth server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	// Set up default factories
	if deps.StoreFactory == nil {
		deps.StoreFactory = defaultStoreFactory
	}
	if deps.MailerFactory == nil {
		deps.MailerFactory = func(mc config.MailConfig) auth.ResetMailer {
			if mc.Disabled {
				return mail.NewLogSender(slog.Default())
			}
			return mail.NewSMTPSender(mc.SMTPAddr, mc.Sender, appName, mc.Username, mc.Password)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, ready)
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("gridauth", version, cfg.LogFormat)

	slog.Info("starting auth server",
		"listen_addr", cfg.ListenAddr,
		"log_format", cfg.LogFormat,
	)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, closeStore, err := deps.StoreFactory(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if closeErr := closeStore(closeCtx); closeErr != nil {
			slog.Warn("error closing store connection", "error", closeErr)
		}
	}()

	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	slog.Info("store ready", "database", cfg.Mongo.Database)

	tokens, err := auth.NewTokenService(cfg.Tokens.Keys())
	if err != nil {
		return err
	}

	svc, err := auth.NewService(store, auth.NewBcryptHasher(), tokens, deps.MailerFactory(cfg.Mail))
	if err != nil {
		return err
	}

	// Start observability server if configured
	var metrics *observability.Metrics
	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		// Ready once we reach this point: the store answered a ping and
		// indexes exist.
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, func() bool { return true })
		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			return obsErr
		}
		// Monitor observability server errors - cancel context on error
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	api, err := httpapi.NewServer(httpapi.Options{
		Service:     svc,
		PublicURL:   cfg.PublicURL,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     metrics,
		Logger:      slog.Default(),
	})
	if err != nil {
		return err
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		if serveErr := api.Start(cfg.ListenAddr); serveErr != nil {
			errChan <- serveErr
		}
	}()

	cmd.Println("Auth server started")
	slog.Info("auth server ready", "listen_addr", cfg.ListenAddr)

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		return err
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping HTTP server", "error", err)
	}

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// This ensures that server failures trigger graceful shutdown of the entire process.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
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
		// Context cancelled, exit monitoring
	}
}
