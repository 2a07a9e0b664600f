// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package auth

import (
	"crypto/hmac"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/estatehub/estatehub/pkg/errutil"
)

// MinTokenSecretLength is the shortest accepted HMAC secret, in bytes.
const MinTokenSecretLength = 32

// DefaultTokenTTL is how long an issued session token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// Claims are the session token claims. UserID duplicates the subject under
// the key browsers of the previous API generation expect.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// TokenService issues and verifies stateless HS256 session tokens.
// It holds no per-session state: a token is valid exactly when its signature
// matches the current secret and it has not expired.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService. The secret is copied.
func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < MinTokenSecretLength {
		return nil, oops.Code("TOKEN_SECRET_TOO_SHORT").
			With("min_length", MinTokenSecretLength).
			Errorf("token secret must be at least %d bytes", MinTokenSecretLength)
	}
	if ttl <= 0 {
		return nil, oops.Code("TOKEN_TTL_INVALID").With("ttl", ttl.String()).Errorf("token ttl must be positive")
	}

	s := &TokenService{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for ownerID and returns it with its expiry.
func (s *TokenService) Issue(ownerID ulid.ULID) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: ownerID.String(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("TOKEN_SIGN_FAILED").With("user_id", ownerID.String()).Wrap(err)
	}
	// NumericDate drops sub-second precision; report what the token carries.
	return signed, expiresAt.Truncate(jwt.TimePrecision), nil
}

// Verify checks a token and returns the owner it was issued for.
//
// The signature is checked against the raw header and payload before any
// claim is decoded, so a token altered anywhere reports ErrBadSignature
// rather than whatever its garbled contents happen to decode to.
func (s *TokenService) Verify(token string) (ulid.ULID, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID").
			With("segments", len(parts)).
			Wrap(errutil.ErrInvalidToken)
	}

	if !s.signatureMatches(parts[0]+"."+parts[1], parts[2]) {
		return ulid.ULID{}, oops.Code("TOKEN_BAD_SIGNATURE").Wrap(errutil.ErrBadSignature)
	}

	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ulid.ULID{}, oops.Code("TOKEN_EXPIRED").
			With("expired_at", expiry(claims)).
			Wrap(errutil.ErrExpiredToken)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ulid.ULID{}, oops.Code("TOKEN_BAD_SIGNATURE").With("cause", err.Error()).Wrap(errutil.ErrBadSignature)
	case err != nil:
		return ulid.ULID{}, oops.Code("TOKEN_INVALID").With("cause", err.Error()).Wrap(errutil.ErrInvalidToken)
	}

	subject := claims.Subject
	if subject == "" {
		subject = claims.UserID
	}
	id, err := ulid.Parse(subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID").With("subject", subject).Wrap(errutil.ErrInvalidToken)
	}
	return id, nil
}

func (s *TokenService) signatureMatches(signingString, signature string) bool {
	expected, err := jwt.SigningMethodHS256.Sign(signingString, s.secret)
	if err != nil {
		return false
	}
	// Compare the encoded form so non-canonical base64 of the right bytes is rejected too.
	return hmac.Equal([]byte(base64.RawURLEncoding.EncodeToString(expected)), []byte(signature))
}

func expiry(c *Claims) string {
	if c.ExpiresAt == nil {
		return ""
	}
	return c.ExpiresAt.UTC().Format(time.RFC3339)
}
