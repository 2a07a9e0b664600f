// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/estatehub/estatehub/internal/auth"
	"github.com/estatehub/estatehub/internal/observability"
	"github.com/estatehub/estatehub/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, cfg store.PoolConfig, logger *slog.Logger) (Database, error)

	// IdentityProviderFactory creates the SSO provider when SSO is enabled.
	// Default: auth.NewOIDCProvider
	IdentityProviderFactory func(ctx context.Context, cfg auth.OIDCConfig) (auth.IdentityProvider, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// Getenv reads secrets.
	// Default: os.Getenv
	Getenv func(string) string
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.PoolFactory == nil {
		out.PoolFactory = func(ctx context.Context, cfg store.PoolConfig, logger *slog.Logger) (Database, error) {
			pool, err := store.Connect(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if out.IdentityProviderFactory == nil {
		out.IdentityProviderFactory = func(ctx context.Context, cfg auth.OIDCConfig) (auth.IdentityProvider, error) {
			provider, err := auth.NewOIDCProvider(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return provider, nil
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, logger)
		}
	}
	if out.Getenv == nil {
		out.Getenv = os.Getenv
	}
	return &out
}

// Database is the pool surface serve needs. *pgxpool.Pool satisfies it.
type Database interface {
	store.DB
	store.Pinger
	Close()
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Status() (store.MigrationStatus, error)
	Close() error
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory opens a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// Getenv reads DATABASE_URL.
	// Default: os.Getenv
	Getenv func(string) string
}

func (d *MigrateDeps) withDefaults() *MigrateDeps {
	out := MigrateDeps{}
	if d != nil {
		out = *d
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = func(databaseURL string) (Migrator, error) {
			m, err := store.NewMigrator(databaseURL)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if out.Getenv == nil {
		out.Getenv = os.Getenv
	}
	return &out
}
