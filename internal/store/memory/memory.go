// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

// Package memory provides in-process repositories. They enforce the same
// uniqueness rules as the PostgreSQL schema and are safe for concurrent use.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/estatehub/estatehub/internal/auth"
	"github.com/estatehub/estatehub/internal/listing"
	"github.com/estatehub/estatehub/internal/store"
)

// Store holds users and listings behind one lock so that deleting a user
// removes their listings atomically, as the foreign key does in PostgreSQL.
type Store struct {
	mu       sync.RWMutex
	users    map[ulid.ULID]*auth.User
	listings map[ulid.ULID]*listing.Listing
	now      func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:    make(map[ulid.ULID]*auth.User),
		listings: make(map[ulid.ULID]*listing.Listing),
		now:      time.Now,
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// Listings returns the listing repository view of the store.
func (s *Store) Listings() *ListingRepository {
	return &ListingRepository{s: s}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

func checkContext(ctx context.Context) error {
	return store.Classify(ctx.Err(), nil)
}
