// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/estatehub/estatehub/internal/auth"
	authpg "github.com/estatehub/estatehub/internal/auth/postgres"
	"github.com/estatehub/estatehub/internal/config"
	"github.com/estatehub/estatehub/internal/listing"
	listingpg "github.com/estatehub/estatehub/internal/listing/postgres"
	"github.com/estatehub/estatehub/internal/logging"
	"github.com/estatehub/estatehub/internal/observability"
	"github.com/estatehub/estatehub/internal/store"
	"github.com/estatehub/estatehub/internal/web"
)

const readinessTimeout = 2 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API and, unless --metrics-addr is empty, the metrics
and health server. SIGINT or SIGTERM drains in-flight requests and exits.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deps = deps.withDefaults()

	cfg, err := config.Load(configFile, cmd.Flags(), deps.Getenv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.SetDefault(logging.Options{
		Service: "estatehub",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   logging.ParseLevel(cfg.Log.Level),
		Writer:  cmd.ErrOrStderr(),
	})

	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").With("key", config.EnvDatabaseURL).
			Errorf("%s environment variable is required", config.EnvDatabaseURL)
	}
	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("key", config.EnvJWTSecret).Wrap(err)
	}

	logger.Info("starting estatehub",
		"env", cfg.Env,
		"addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
	)

	db, err := deps.PoolFactory(ctx, store.PoolConfig{
		URL:            cfg.Database.URL,
		MaxConns:       cfg.Database.MaxConns,
		ConnectTimeout: cfg.Database.ConnectTimeout,
	}, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	srv, err := buildServer(ctx, cfg, db, tokens, deps, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = srv.obs
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	webErrCh, err := srv.web.Start(cfg.HTTP.Addr, cfg.HTTP.ReadHeaderTimeout)
	if err != nil {
		stopObservability(obsServer, cfg.HTTP.ShutdownTimeout, logger)
		return err
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "http")

	cmd.Println("EstateHub started on " + srv.web.Addr())

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.web.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
	}
	stopObservability(obsServer, cfg.HTTP.ShutdownTimeout, logger)

	logger.Info("shutdown complete")
	return nil
}

type servers struct {
	web *web.Server
	obs ObservabilityServer
}

// buildServer wires repositories, services and the HTTP adapter.
func buildServer(ctx context.Context, cfg *config.Config, db Database, tokens *auth.TokenService, deps *ServeDeps, logger *slog.Logger) (*servers, error) {
	authSvc, err := auth.NewService(
		authpg.NewUserRepository(db),
		auth.NewArgon2idHasher(),
		tokens,
		auth.WithLogger(logger),
		auth.WithStoreTimeout(cfg.Store.Timeout),
		auth.WithUsernameOptional(cfg.Auth.UsernameOptional),
	)
	if err != nil {
		return nil, err
	}
	listingSvc, err := listing.NewService(
		listingpg.NewListingRepository(db),
		listing.WithLimits(cfg.Listing),
		listing.WithLogger(logger),
		listing.WithStoreTimeout(cfg.Store.Timeout),
	)
	if err != nil {
		return nil, err
	}
	guard, err := auth.NewGuard(tokens)
	if err != nil {
		return nil, err
	}

	var sso auth.IdentityProvider
	if cfg.SSO.Enabled {
		sso, err = deps.IdentityProviderFactory(ctx, auth.OIDCConfig{
			Issuer:       cfg.SSO.Issuer,
			ClientID:     cfg.SSO.ClientID,
			ClientSecret: cfg.SSO.ClientSecret,
			RedirectURL:  cfg.SSO.RedirectURL,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("sso enabled", "issuer", cfg.SSO.Issuer)
	}

	cors, err := web.NewCORS(cfg.CORS.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	out := &servers{}
	opts := web.Options{
		Auth:          authSvc,
		Listings:      listingSvc,
		Guard:         guard,
		SSO:           sso,
		SSOSuccessURL: cfg.SSO.SuccessURL,
		SecureCookies: cfg.Production(),
		CORS:          cors,
		Logger:        logger,
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
	}
	if cfg.Metrics.Addr != "" {
		out.obs = deps.ObservabilityServerFactory(cfg.Metrics.Addr, observability.PingReadiness(db, readinessTimeout), logger)
		opts.Metrics = out.obs.Metrics()
	}

	out.web, err = web.New(opts)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func stopObservability(obs ObservabilityServer, timeout time.Duration, logger *slog.Logger) {
	if obs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := obs.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
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
