// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package auth

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/estatehub/estatehub/pkg/errutil"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "access_token"

// TokenVerifier verifies a session token and returns its owner.
type TokenVerifier interface {
	Verify(token string) (ulid.ULID, error)
}

// Rejection reasons reported by Guard, suitable as metric labels.
const (
	ReasonMissingToken = "missing_token"
	ReasonInvalidToken = "invalid_token"
	ReasonExpiredToken = "expired_token"
	ReasonBadSignature = "bad_signature"
)

// Guard turns a raw session cookie into an authenticated identity.
type Guard struct {
	tokens TokenVerifier
}

// NewGuard creates a Guard.
func NewGuard(tokens TokenVerifier) (*Guard, error) {
	if tokens == nil {
		return nil, oops.Code("GUARD_INVALID_CONFIG").Errorf("token verifier is required")
	}
	return &Guard{tokens: tokens}, nil
}

// Authenticate returns the owner of the session token.
//
// A missing token fails with Unauthorized. A token that fails verification
// for any reason fails with Forbidden wrapping the token-specific kind.
func (g *Guard) Authenticate(rawToken string) (ulid.ULID, error) {
	if rawToken == "" {
		return ulid.ULID{}, oops.Code("AUTH_TOKEN_MISSING").
			Wrap(errutil.Unauthorized("unauthorized - no token provided"))
	}
	id, err := g.tokens.Verify(rawToken)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_TOKEN_REJECTED").
			With("reason", RejectionReason(err)).
			Wrap(errutil.Forbidden("forbidden - invalid token", err))
	}
	return id, nil
}

// RejectionReason classifies a Guard failure for logs and metrics.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, errutil.ErrUnauthorized):
		return ReasonMissingToken
	case errors.Is(err, errutil.ErrExpiredToken):
		return ReasonExpiredToken
	case errors.Is(err, errutil.ErrBadSignature):
		return ReasonBadSignature
	default:
		return ReasonInvalidToken
	}
}

type identityKey struct{}

// WithIdentity attaches the authenticated user ID to ctx.
func WithIdentity(ctx context.Context, id ulid.ULID) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the authenticated user ID attached by WithIdentity.
func IdentityFromContext(ctx context.Context) (ulid.ULID, bool) {
	id, ok := ctx.Value(identityKey{}).(ulid.ULID)
	return id, ok
}
