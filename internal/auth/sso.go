// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"unicode"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"golang.org/x/oauth2"

	"github.com/estatehub/estatehub/pkg/errutil"
)

// GoogleIssuer is the OIDC issuer for Google accounts.
const GoogleIssuer = "https://accounts.google.com"

// ExternalProfile is the identity asserted by a verified ID token.
type ExternalProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// IdentityProvider runs the authorization-code flow of an external provider.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (ExternalProfile, error)
}

// OIDCConfig configures an OIDCProvider.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OIDCProvider is an IdentityProvider backed by OpenID Connect discovery.
type OIDCProvider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewOIDCProvider discovers the issuer's endpoints and keys.
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	if cfg.Issuer == "" {
		cfg.Issuer = GoogleIssuer
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, oops.Code("SSO_INVALID_CONFIG").Errorf("client id and client secret are required")
	}
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, oops.Code("SSO_DISCOVERY_FAILED").With("issuer", cfg.Issuer).Wrap(err)
	}
	return &OIDCProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *OIDCProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a verified profile.
func (p *OIDCProvider) Exchange(ctx context.Context, code string) (ExternalProfile, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return ExternalProfile{}, oops.Code("SSO_EXCHANGE_FAILED").Wrap(err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return ExternalProfile{}, oops.Code("SSO_ID_TOKEN_MISSING").Errorf("token response has no id_token")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return ExternalProfile{}, oops.Code("SSO_ID_TOKEN_INVALID").Wrap(errutil.Forbidden("identity provider token rejected", err))
	}
	var profile ExternalProfile
	if err := idToken.Claims(&profile); err != nil {
		return ExternalProfile{}, oops.Code("SSO_CLAIMS_INVALID").Wrap(err)
	}
	return profile, nil
}

// SignInWithProfile signs in the account matching the profile's email,
// creating one when none exists.
func (s *Service) SignInWithProfile(ctx context.Context, profile ExternalProfile) (Session, error) {
	if profile.Email == "" || !profile.EmailVerified {
		return Session{}, oops.Code("SSO_EMAIL_UNVERIFIED").
			With("subject", profile.Subject).
			Wrap(errutil.InvalidCredentials())
	}

	user, err := s.getByEmail(ctx, profile.Email)
	switch {
	case errors.Is(err, errutil.ErrNotFound):
		user, err = s.createFromProfile(ctx, profile)
		if err != nil {
			return Session{}, err
		}
	case err != nil:
		return Session{}, oops.Code("SSO_SIGNIN_FAILED").With("operation", "get user by email").Wrap(err)
	}

	return s.openSession(ctx, user)
}

func (s *Service) createFromProfile(ctx context.Context, profile ExternalProfile) (*User, error) {
	// The account never signs in with a password unless the owner sets one.
	secret := make([]byte, 16)
	if _, err := rand.Read(secret); err != nil {
		return nil, oops.Code("SSO_SIGNIN_FAILED").With("operation", "generate password").Wrap(err)
	}
	digest, err := s.hasher.Hash(hex.EncodeToString(secret))
	if err != nil {
		return nil, oops.Code("SSO_SIGNIN_FAILED").With("operation", "hash password").Wrap(err)
	}

	now := s.now().UTC()
	user := &User{
		ID:           ulid.Make(),
		Username:     UsernameFromName(profile.Name, secret[:2]),
		Email:        profile.Email,
		PasswordHash: digest,
		Avatar:       profile.Picture,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user created from external profile", "user_id", user.ID.String())
	return user, nil
}

// UsernameFromName derives a valid username from a display name: letters
// and digits lowercased, spaces dropped, a hex suffix appended.
func UsernameFromName(name string, suffix []byte) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if base == "" || !unicode.IsLetter(rune(base[0])) {
		base = "user" + base
	}
	tail := hex.EncodeToString(suffix)
	if limit := MaxUsernameLength - len(tail); len(base) > limit {
		base = base[:limit]
	}
	return base + tail
}
