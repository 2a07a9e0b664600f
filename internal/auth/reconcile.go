// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package auth

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/estatehub/estatehub/internal/patch"
	"github.com/estatehub/estatehub/internal/store"
	"github.com/estatehub/estatehub/pkg/errutil"
)

// UserPatch is a profile update payload. Absent keys leave the stored value
// alone; an empty string is a real value that clears the field.
type UserPatch struct {
	Username patch.Field[string] `json:"username"`
	Email    patch.Field[string] `json:"email"`
	Password patch.Field[string] `json:"password"`
	Avatar   patch.Field[string] `json:"avatar"`
}

// UpdateUser reconciles p against the stored user id on behalf of actor.
//
// The pipeline is Authorize, Load, Diff, Validate-Unique, Hash, Apply,
// Sanitize. Any stage failing ends it before the store is written.
func (s *Service) UpdateUser(ctx context.Context, actor, id ulid.ULID, p UserPatch) (PublicUser, error) {
	if err := RequireOwner(actor, id); err != nil {
		return PublicUser{}, err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return PublicUser{}, err
	}

	changes, err := s.diff(ctx, current, p)
	if err != nil {
		return PublicUser{}, err
	}
	if changes.IsEmpty() {
		return PublicUser{}, oops.Code("USER_NO_CHANGES").With("user_id", id.String()).Wrap(errutil.NoChanges())
	}

	updated, err := s.apply(ctx, id, changes)
	if err != nil {
		return PublicUser{}, err
	}

	s.logger.InfoContext(ctx, "user updated", "user_id", id.String(), "fields", changes.Fields())
	return updated.Public(), nil
}

func (s *Service) load(ctx context.Context, id ulid.ULID) (*User, error) {
	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	user, err := s.users.GetByID(sctx, id)
	if err != nil {
		return nil, oops.Code("USER_LOAD_FAILED").With("user_id", id.String()).Wrap(classify(err))
	}
	return user, nil
}

// diff stages every present field whose value differs from current.
func (s *Service) diff(ctx context.Context, current *User, p UserPatch) (UserChanges, error) {
	var changes UserChanges

	if patch.Changed(p.Username, current.Username) {
		username := p.Username.Value
		if username != "" {
			if err := ValidateUsername(username); err != nil {
				return UserChanges{}, oops.Code("USER_UPDATE_INVALID").Wrap(err)
			}
			if err := s.ensureUnique(ctx, "username", username, current.ID, s.users.GetByUsername); err != nil {
				return UserChanges{}, err
			}
		}
		changes.Username = &username
	}

	if patch.Changed(p.Email, current.Email) {
		email := p.Email.Value
		if email != "" {
			if err := ValidateEmail(email); err != nil {
				return UserChanges{}, oops.Code("USER_UPDATE_INVALID").Wrap(err)
			}
			if err := s.ensureUnique(ctx, "email", email, current.ID, s.users.GetByEmail); err != nil {
				return UserChanges{}, err
			}
		}
		changes.Email = &email
	}

	if patch.Changed(p.Avatar, current.Avatar) {
		avatar := p.Avatar.Value
		changes.Avatar = &avatar
	}

	// A blank password means "keep the current one".
	if p.Password.Set && strings.TrimSpace(p.Password.Value) != "" {
		if err := ValidatePassword(p.Password.Value); err != nil {
			return UserChanges{}, oops.Code("USER_UPDATE_INVALID").Wrap(err)
		}
		digest, err := s.hasher.Hash(p.Password.Value)
		if err != nil {
			return UserChanges{}, oops.Code("USER_UPDATE_FAILED").With("operation", "hash password").Wrap(err)
		}
		changes.PasswordHash = &digest
	}

	return changes, nil
}

func (s *Service) apply(ctx context.Context, id ulid.ULID, changes UserChanges) (*User, error) {
	sctx, cancel := store.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	updated, err := s.users.Update(sctx, id, changes)
	if err != nil {
		return nil, oops.Code("USER_UPDATE_FAILED").
			With("user_id", id.String()).
			With("fields", changes.Fields()).
			Wrap(classify(err))
	}
	return updated, nil
}
