// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

// Package postgres implements auth.UserRepository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/estatehub/estatehub/internal/auth"
	"github.com/estatehub/estatehub/internal/store"
	"github.com/estatehub/estatehub/pkg/errutil"
)

// userConstraints maps the partial unique indexes to payload fields.
var userConstraints = store.ConstraintFields{
	"users_username_key": "username",
	"users_email_key":    "email",
}

const userColumns = `id, username, email, password_hash, avatar, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db store.DB
}

var _ auth.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db store.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Avatar,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("user_id", user.ID.String()).
			Wrap(store.Classify(err, userConstraints))
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	return r.getOne(row, "user_id", id.String())
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 AND username <> ''`, username)
	return r.getOne(row, "username", username)
}

// GetByEmail retrieves a user by exact email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 AND email <> ''`, email)
	return r.getOne(row, "email", email)
}

func (r *UserRepository) getOne(row pgx.Row, key, value string) (*auth.User, error) {
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With(key, value).Wrap(errutil.NotFound("user not found"))
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").With(key, value).Wrap(store.Classify(err, nil))
	}
	return user, nil
}

// Update applies the staged fields in one statement. Unstaged fields are
// passed as NULL and keep their value.
func (r *UserRepository) Update(ctx context.Context, id ulid.ULID, changes auth.UserChanges) (*auth.User, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE users SET
			username = COALESCE($2, username),
			email = COALESCE($3, email),
			password_hash = COALESCE($4, password_hash),
			avatar = COALESCE($5, avatar),
			updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id.String(),
		changes.Username,
		changes.Email,
		changes.PasswordHash,
		changes.Avatar,
	)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("user_id", id.String()).Wrap(errutil.NotFound("user not found"))
	}
	if err != nil {
		return nil, oops.Code("USER_UPDATE_FAILED").
			With("user_id", id.String()).
			With("fields", changes.Fields()).
			Wrap(store.Classify(err, userConstraints))
	}
	return user, nil
}

// Delete removes a user. Their listings go with them.
func (r *UserRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").With("user_id", id.String()).Wrap(store.Classify(err, nil))
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("user_id", id.String()).Wrap(errutil.NotFound("user not found"))
	}
	return nil
}

// scanUser scans one row. pgx.ErrNoRows is returned unwrapped.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr     string
		user      auth.User
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&idStr, &user.Username, &user.Email, &user.PasswordHash, &user.Avatar, &createdAt, &updatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").With("id", idStr).Wrap(err)
	}
	user.ID = id
	user.CreatedAt = createdAt.UTC()
	user.UpdatedAt = updatedAt.UTC()
	return &user, nil
}
