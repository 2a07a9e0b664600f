// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

// Package store holds the PostgreSQL plumbing shared by the repositories:
// the pool, the schema migrations and the mapping of driver failures onto
// the errutil taxonomy.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultTimeout bounds a single store call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// DB is the query surface the repositories need. *pgxpool.Pool and
// pgxmock.PgxPoolIface both satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WithTimeout derives the context for one store call. The call keeps the
// values of ctx but not its cancellation, so a write that has started
// finishes or times out on its own even if the request goes away.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
