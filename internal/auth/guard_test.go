// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/estatehub/internal/auth"
	"github.com/estatehub/estatehub/pkg/errutil"
)

func TestNewGuard_RequiresVerifier(t *testing.T) {
	g, err := auth.NewGuard(nil)
	require.Error(t, err)
	assert.Nil(t, g)
	errutil.AssertErrorCode(t, err, "GUARD_INVALID_CONFIG")
}

func TestGuard_Authenticate(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	tokens := newTokenService(t, clock)
	guard, err := auth.NewGuard(tokens)
	require.NoError(t, err)

	owner := ulid.Make()
	valid, _, err := tokens.Issue(owner)
	require.NoError(t, err)

	t.Run("valid token yields owner", func(t *testing.T) {
		got, err := guard.Authenticate(valid)
		require.NoError(t, err)
		assert.Equal(t, owner, got)
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		_, err := guard.Authenticate("")
		errutil.AssertErrorKind(t, err, errutil.ErrUnauthorized)
		assert.Equal(t, auth.ReasonMissingToken, auth.RejectionReason(err))
	})

	rejected := []struct {
		name   string
		token  func() string
		cause  error
		reason string
	}{
		{"garbage", func() string { return "garbage" }, errutil.ErrInvalidToken, auth.ReasonInvalidToken},
		{"tampered", func() string { return valid[:len(valid)-2] + "xx" }, errutil.ErrBadSignature, auth.ReasonBadSignature},
		{"expired", func() string {
			clock.Advance(2 * time.Hour)
			return valid
		}, errutil.ErrExpiredToken, auth.ReasonExpiredToken},
	}
	for _, tt := range rejected {
		t.Run(tt.name+" token is forbidden", func(t *testing.T) {
			_, err := guard.Authenticate(tt.token())
			errutil.AssertErrorKind(t, err, errutil.ErrForbidden)
			assert.ErrorIs(t, err, tt.cause, "token kind stays visible for logs and metrics")
			assert.Equal(t, tt.reason, auth.RejectionReason(err))
		})
	}
}

func TestIdentityContext(t *testing.T) {
	_, ok := auth.IdentityFromContext(context.Background())
	assert.False(t, ok)

	id := ulid.Make()
	got, ok := auth.IdentityFromContext(auth.WithIdentity(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
