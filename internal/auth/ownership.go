// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package auth

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/estatehub/estatehub/pkg/errutil"
)

// RequireOwner fails with Forbidden unless actor is exactly owner.
// IDs are compared as 16-byte values, never through their text form.
func RequireOwner(actor, owner ulid.ULID) error {
	if actor == owner {
		return nil
	}
	return oops.Code("NOT_OWNER").
		With("actor_id", actor.String()).
		With("owner_id", owner.String()).
		Wrap(errutil.Forbidden("you can only modify your own resources", nil))
}
