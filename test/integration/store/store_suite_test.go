// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

//go:build integration

package store_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/estatehub/estatehub/internal/auth"
	authpg "github.com/estatehub/estatehub/internal/auth/postgres"
	"github.com/estatehub/estatehub/internal/listing"
	listingpg "github.com/estatehub/estatehub/internal/listing/postgres"
	"github.com/estatehub/estatehub/internal/store"
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Integration Suite")
}

// testEnv holds the container and everything wired on top of it.
type testEnv struct {
	ctx       context.Context
	pool      *pgxpool.Pool
	container testcontainers.Container
	connStr   string

	Users    *authpg.UserRepository
	Listings *listingpg.ListingRepository
	Auth     *auth.Service
	Listing  *listing.Service
}

var env *testEnv

var _ = BeforeSuite(func() {
	var err error
	env, err = setupTestEnv()
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if env != nil {
		env.cleanup()
	}
})

func setupTestEnv() (*testEnv, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("estatehub_test"),
		postgres.WithUsername("estatehub"),
		postgres.WithPassword("estatehub"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	_ = migrator.Close()

	pool, err := store.Connect(ctx, store.PoolConfig{URL: connStr, ConnectTimeout: 10 * time.Second}, slog.Default())
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	tokens, err := auth.NewTokenService([]byte("integration-secret-0123456789abcdef"), time.Hour)
	if err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	users := authpg.NewUserRepository(pool)
	listings := listingpg.NewListingRepository(pool)
	hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1})

	authSvc, err := auth.NewService(users, hasher, tokens)
	if err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	listingSvc, err := listing.NewService(listings)
	if err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &testEnv{
		ctx:       ctx,
		pool:      pool,
		container: container,
		connStr:   connStr,
		Users:     users,
		Listings:  listings,
		Auth:      authSvc,
		Listing:   listingSvc,
	}, nil
}

func (e *testEnv) cleanup() {
	if e.pool != nil {
		e.pool.Close()
	}
	if e.container != nil {
		_ = e.container.Terminate(e.ctx)
	}
}

// cleanupTables empties the tables between specs.
func cleanupTables(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, "TRUNCATE listings, users CASCADE")
	Expect(err).NotTo(HaveOccurred())
}

func migrationStatus() store.MigrationStatus {
	GinkgoHelper()
	migrator, err := store.NewMigrator(env.connStr)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = migrator.Close() }()

	status, err := migrator.Status()
	Expect(err).NotTo(HaveOccurred())
	return status
}
