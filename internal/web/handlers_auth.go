// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/samber/oops"

	"github.com/estatehub/estatehub/internal/auth"
	"github.com/estatehub/estatehub/pkg/errutil"
)

var errNotFoundRoute = errutil.NotFound("route not found")

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in auth.SignupInput
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.auth.Signup(r.Context(), in); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageBody{Message: "User created successfully"})
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var in signinRequest
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.auth.Signin(r.Context(), in.Email, in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setSessionCookie(w, session.Token, session.ExpiresAt)
	writeJSON(w, http.StatusOK, session.User)
}

func (s *Server) handleSignout(w http.ResponseWriter, _ *http.Request) {
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, MessageBody{Message: "User has been logged out"})
}

func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	if s.sso == nil {
		s.writeError(w, r, oops.Code("SSO_DISABLED").Wrap(errNotFoundRoute))
		return
	}
	state, err := newState()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setStateCookie(w, state)
	http.Redirect(w, r, s.sso.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.sso == nil {
		s.writeError(w, r, oops.Code("SSO_DISABLED").Wrap(errNotFoundRoute))
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		s.writeError(w, r, oops.Code("SSO_STATE_MISMATCH").Wrap(errutil.Validation("state", "invalid state")))
		return
	}
	s.clearStateCookie(w)

	code := r.URL.Query().Get("code")
	if code == "" {
		s.writeError(w, r, oops.Code("SSO_CODE_MISSING").Wrap(errutil.Validation("code", "authorization code is required")))
		return
	}

	profile, err := s.sso.Exchange(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.auth.SignInWithProfile(r.Context(), profile)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setSessionCookie(w, session.Token, session.ExpiresAt)
	http.Redirect(w, r, s.ssoSuccessURL, http.StatusFound)
}

func newState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("SSO_STATE_FAILED").Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
