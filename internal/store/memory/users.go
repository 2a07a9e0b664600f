// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package memory

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/estatehub/estatehub/internal/auth"
	"github.com/estatehub/estatehub/pkg/errutil"
)

// UserRepository implements auth.UserRepository in memory.
type UserRepository struct {
	s *Store
}

var _ auth.UserRepository = (*UserRepository)(nil)

func userNotFound(key, value string) error {
	return oops.Code("USER_NOT_FOUND").With(key, value).Wrap(errutil.NotFound("user not found"))
}

// Create stores a copy of user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.ID]; exists {
		return oops.Code("USER_CREATE_FAILED").With("user_id", user.ID.String()).Errorf("user already exists")
	}
	if err := r.conflict(user.ID, user.Username, user.Email); err != nil {
		return err
	}
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, userNotFound("user_id", id.String())
	}
	found := *u
	return &found, nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.find(ctx, "username", func(u *auth.User) bool { return u.Username == username }, username)
}

// GetByEmail retrieves a user by exact email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.find(ctx, "email", func(u *auth.User) bool { return u.Email == email }, email)
}

func (r *UserRepository) find(ctx context.Context, key string, match func(*auth.User) bool, value string) (*auth.User, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	// Empty values are never indexed.
	if value == "" {
		return nil, userNotFound(key, value)
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			found := *u
			return &found, nil
		}
	}
	return nil, userNotFound(key, value)
}

// Update applies changes under the write lock, so the uniqueness check and
// the write cannot interleave with another update.
func (r *UserRepository) Update(ctx context.Context, id ulid.ULID, changes auth.UserChanges) (*auth.User, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, userNotFound("user_id", id.String())
	}
	next := *u
	if changes.Username != nil {
		next.Username = *changes.Username
	}
	if changes.Email != nil {
		next.Email = *changes.Email
	}
	if changes.PasswordHash != nil {
		next.PasswordHash = *changes.PasswordHash
	}
	if changes.Avatar != nil {
		next.Avatar = *changes.Avatar
	}
	if err := r.conflict(id, next.Username, next.Email); err != nil {
		return nil, err
	}
	next.UpdatedAt = r.s.now().UTC()
	r.s.users[id] = &next

	updated := next
	return &updated, nil
}

// Delete removes a user and their listings.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return userNotFound("user_id", id.String())
	}
	delete(r.s.users, id)
	for lid, l := range r.s.listings {
		if l.OwnerID == id {
			delete(r.s.listings, lid)
		}
	}
	return nil
}

// conflict reports a non-empty username or email held by a user other than
// self. Usernames are checked across all users before emails, so a change
// colliding on both reports "username". Callers hold the write lock.
func (r *UserRepository) conflict(self ulid.ULID, username, email string) error {
	if r.taken(self, username, func(u *auth.User) string { return u.Username }) {
		return oops.Code("USER_DUPLICATE").With("field", "username").Wrap(errutil.DuplicateField("username"))
	}
	if r.taken(self, email, func(u *auth.User) string { return u.Email }) {
		return oops.Code("USER_DUPLICATE").With("field", "email").Wrap(errutil.DuplicateField("email"))
	}
	return nil
}

func (r *UserRepository) taken(self ulid.ULID, value string, field func(*auth.User) string) bool {
	if value == "" {
		return false
	}
	for id, u := range r.s.users {
		if id != self && field(u) == value {
			return true
		}
	}
	return false
}
