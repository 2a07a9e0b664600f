// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package auth

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/estatehub/estatehub/pkg/errutil"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MaxEmailLength    = 254
	MinPasswordLength = 6
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, dots, dashes and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]*$`)

// User is a stored account. PasswordHash never leaves this package's
// callers; use Public for anything that crosses the transport boundary.
type User struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	Avatar       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the outward representation of a User.
type PublicUser struct {
	ID        ulid.ULID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public strips the password digest.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserChanges is a staged diff. Nil fields are left untouched by the store.
type UserChanges struct {
	Username     *string
	Email        *string
	PasswordHash *string
	Avatar       *string
}

// IsEmpty reports whether nothing is staged.
func (c UserChanges) IsEmpty() bool {
	return c.Username == nil && c.Email == nil && c.PasswordHash == nil && c.Avatar == nil
}

// Fields lists the staged field names, digest reported as "password".
func (c UserChanges) Fields() []string {
	var fields []string
	if c.Username != nil {
		fields = append(fields, "username")
	}
	if c.Email != nil {
		fields = append(fields, "email")
	}
	if c.PasswordHash != nil {
		fields = append(fields, "password")
	}
	if c.Avatar != nil {
		fields = append(fields, "avatar")
	}
	return fields
}

// ValidateUsername validates a non-empty username.
func ValidateUsername(username string) error {
	if username == "" {
		return errutil.Validation("username", "username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return errutil.Validation("username", "username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return errutil.Validation("username", "username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return errutil.Validation("username",
			"username must start with a letter and contain only letters, numbers, dots, dashes and underscores")
	}
	return nil
}

// ValidateEmail validates a non-empty email address.
func ValidateEmail(email string) error {
	if email == "" {
		return errutil.Validation("email", "email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return errutil.Validation("email", "email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errutil.Validation("email", "email is not a valid address")
	}
	return nil
}

// ValidatePassword validates a plaintext password before hashing.
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return errutil.Validation("password", "password cannot be empty")
	}
	if len(password) < MinPasswordLength {
		return errutil.Validation("password", "password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// UserRepository manages user persistence.
//
// Implementations enforce uniqueness of non-empty usernames and emails and
// report a violation as errutil.DuplicateField, so a lost check-then-act race
// surfaces the same way as a failed pre-check.
type UserRepository interface {
	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by exact email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update applies changes atomically and returns the post-update snapshot.
	Update(ctx context.Context, id ulid.ULID, changes UserChanges) (*User, error)

	// Delete removes a user.
	Delete(ctx context.Context, id ulid.ULID) error
}
