// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/estatehub/internal/auth"
	"github.com/estatehub/estatehub/internal/listing"
	"github.com/estatehub/estatehub/internal/store/memory"
	"github.com/estatehub/estatehub/pkg/errutil"
)

func ptr[T any](v T) *T { return &v }

func seedUser(t *testing.T, repo *memory.UserRepository, username, email string) *auth.User {
	t.Helper()
	u := &auth.User{ID: ulid.Make(), Username: username, Email: email, PasswordHash: "digest"}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository_Uniqueness(t *testing.T) {
	ctx := context.Background()
	users := memory.New().Users()
	alice := seedUser(t, users, "alice", "a@x.com")

	t.Run("create with taken username", func(t *testing.T) {
		err := users.Create(ctx, &auth.User{ID: ulid.Make(), Username: "alice", Email: "other@x.com"})
		errutil.AssertErrorKind(t, err, errutil.ErrDuplicateField)
		assert.Equal(t, "username", errutil.FieldOf(err))
	})

	t.Run("create with taken email", func(t *testing.T) {
		err := users.Create(ctx, &auth.User{ID: ulid.Make(), Username: "other", Email: "a@x.com"})
		errutil.AssertErrorKind(t, err, errutil.ErrDuplicateField)
		assert.Equal(t, "email", errutil.FieldOf(err))
	})

	t.Run("empty values are not unique", func(t *testing.T) {
		seedUser(t, users, "", "one@x.com")
		seedUser(t, users, "", "two@x.com")
	})

	t.Run("update into a taken username", func(t *testing.T) {
		bob := seedUser(t, users, "bob", "b@x.com")
		_, err := users.Update(ctx, bob.ID, auth.UserChanges{Username: ptr("alice")})
		errutil.AssertErrorKind(t, err, errutil.ErrDuplicateField)

		stored, err := users.GetByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, "bob", stored.Username, "failed update must not be partially applied")
	})

	t.Run("collision on both fields reports username", func(t *testing.T) {
		seedUser(t, users, "carol", "c@x.com")
		dave := seedUser(t, users, "dave", "d@x.com")
		// Enough rounds that random map order would surface either field.
		for range 50 {
			_, err := users.Update(ctx, dave.ID, auth.UserChanges{Username: ptr("alice"), Email: ptr("c@x.com")})
			errutil.AssertErrorKind(t, err, errutil.ErrDuplicateField)
			require.Equal(t, "username", errutil.FieldOf(err))
		}
	})

	t.Run("update keeping own values", func(t *testing.T) {
		updated, err := users.Update(ctx, alice.ID, auth.UserChanges{Username: ptr("alice"), Avatar: ptr("https://img/a.png")})
		require.NoError(t, err)
		assert.Equal(t, "https://img/a.png", updated.Avatar)
	})

	t.Run("empty lookup finds nothing", func(t *testing.T) {
		_, err := users.GetByUsername(ctx, "")
		errutil.AssertErrorKind(t, err, errutil.ErrNotFound)
	})
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	users := memory.New().Users()
	u := seedUser(t, users, "carol", "c@x.com")

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	got.Username = "mutated"

	again, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", again.Username)
}

func TestUserRepository_MissingUser(t *testing.T) {
	ctx := context.Background()
	users := memory.New().Users()
	id := ulid.Make()

	_, err := users.GetByID(ctx, id)
	errutil.AssertErrorKind(t, err, errutil.ErrNotFound)
	_, err = users.Update(ctx, id, auth.UserChanges{Avatar: ptr("x")})
	errutil.AssertErrorKind(t, err, errutil.ErrNotFound)
	errutil.AssertErrorKind(t, users.Delete(ctx, id), errutil.ErrNotFound)
}

func TestUserRepository_ExpiredContext(t *testing.T) {
	users := memory.New().Users()
	ctx, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	_, err := users.GetByEmail(ctx, "a@x.com")
	errutil.AssertErrorKind(t, err, errutil.ErrStoreUnavailable)
}

func sampleListing(owner ulid.ULID, created time.Time) *listing.Listing {
	return &listing.Listing{
		ID: ulid.Make(), OwnerID: owner, Name: "Sunny two bed flat", Description: "d", Address: "a",
		Type: listing.TypeRent, Bedrooms: 2, Bathrooms: 1, RegularPrice: 1200,
		ImageURLs: []string{"https://img/1.jpg"}, CreatedAt: created,
	}
}

func TestListingRepository(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	users, listings := s.Users(), s.Listings()
	owner := seedUser(t, users, "owner", "o@x.com")
	other := seedUser(t, users, "other", "x@x.com")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := sampleListing(owner.ID, base)
	newer := sampleListing(owner.ID, base.Add(time.Hour))
	require.NoError(t, listings.Create(ctx, older))
	require.NoError(t, listings.Create(ctx, newer))
	require.NoError(t, listings.Create(ctx, sampleListing(other.ID, base)))

	t.Run("create requires an existing owner", func(t *testing.T) {
		err := listings.Create(ctx, sampleListing(ulid.Make(), base))
		errutil.AssertErrorKind(t, err, errutil.ErrNotFound)
	})

	t.Run("list by owner is newest first", func(t *testing.T) {
		got, err := listings.ListByOwner(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, newer.ID, got[0].ID)
		assert.Equal(t, older.ID, got[1].ID)
	})

	t.Run("update refuses a changed owner", func(t *testing.T) {
		hijack := older.Clone()
		hijack.OwnerID = other.ID
		_, err := listings.Update(ctx, hijack)
		errutil.AssertErrorKind(t, err, errutil.ErrNotFound)
	})

	t.Run("update keeps created at", func(t *testing.T) {
		next := older.Clone()
		next.Name = "Renovated two bed flat"
		next.CreatedAt = time.Time{}
		got, err := listings.Update(ctx, next)
		require.NoError(t, err)
		assert.Equal(t, base, got.CreatedAt)
		assert.Equal(t, "Renovated two bed flat", got.Name)
	})

	t.Run("deleting the owner removes their listings", func(t *testing.T) {
		require.NoError(t, users.Delete(ctx, owner.ID))
		got, err := listings.ListByOwner(ctx, owner.ID)
		require.NoError(t, err)
		assert.Empty(t, got)
		_, err = listings.Get(ctx, newer.ID)
		errutil.AssertErrorKind(t, err, errutil.ErrNotFound)
	})
}
