// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/estatehub/estatehub/internal/auth"
	"github.com/estatehub/estatehub/internal/listing"
)

// DefaultMaxBodyBytes caps request bodies when Options leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// Options wires a Server.
type Options struct {
	Auth     *auth.Service
	Listings *listing.Service
	Guard    *auth.Guard

	// SSO enables the Google sign-in routes when non-nil.
	SSO auth.IdentityProvider
	// SSOSuccessURL is where the browser is sent after SSO sign-in.
	SSOSuccessURL string

	// SecureCookies marks cookies Secure; set in production.
	SecureCookies bool
	CORS          *CORS
	Metrics       Metrics
	Logger        *slog.Logger
	MaxBodyBytes  int64
}

// Server is the HTTP API.
type Server struct {
	auth          *auth.Service
	listings      *listing.Service
	guard         *auth.Guard
	sso           auth.IdentityProvider
	ssoSuccessURL string
	secureCookies bool
	cors          *CORS
	metrics       Metrics
	logger        *slog.Logger
	maxBodyBytes  int64

	httpServer *http.Server
	listener   net.Listener
	running    atomic.Bool
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	switch {
	case opts.Auth == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("auth service is required")
	case opts.Listings == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("listing service is required")
	case opts.Guard == nil:
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("session guard is required")
	}

	s := &Server{
		auth:          opts.Auth,
		listings:      opts.Listings,
		guard:         opts.Guard,
		sso:           opts.SSO,
		ssoSuccessURL: opts.SSOSuccessURL,
		secureCookies: opts.SecureCookies,
		cors:          opts.CORS,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		maxBodyBytes:  opts.MaxBodyBytes,
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = DefaultMaxBodyBytes
	}
	if s.ssoSuccessURL == "" {
		s.ssoSuccessURL = "/"
	}
	return s, nil
}

// Handler returns the root handler with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.route(pattern, h))
	}

	handle("POST /api/auth/signup", s.handleSignup)
	handle("POST /api/auth/signin", s.handleSignin)
	handle("GET /api/auth/signout", s.handleSignout)
	handle("POST /api/auth/signout", s.handleSignout)
	handle("GET /api/auth/google", s.handleGoogle)
	handle("GET /api/auth/google/callback", s.handleGoogleCallback)

	handle("POST /api/user/update/{id}", s.requireAuth(s.handleUpdateUser))
	handle("DELETE /api/user/delete/{id}", s.requireAuth(s.handleDeleteUser))
	handle("GET /api/user/{id}", s.requireAuth(s.handleGetUser))

	handle("POST /api/listing/create", s.requireAuth(s.handleCreateListing))
	handle("POST /api/listing/update/{id}", s.requireAuth(s.handleUpdateListing))
	handle("DELETE /api/listing/delete/{id}", s.requireAuth(s.handleDeleteListing))
	handle("GET /api/listing/get/{id}", s.handleGetListing)
	handle("GET /api/listing/user-listings/{id}", s.requireAuth(s.handleUserListings))

	handle("/api/", s.handleNotFound)

	var h http.Handler = mux
	if s.cors != nil {
		h = s.cors.Middleware(h)
	}
	return withRequestID(h)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, oops.Code("ROUTE_NOT_FOUND").
		With("path", r.URL.Path).
		Wrap(errNotFoundRoute))
}

// Start listens on addr and serves in the background. The returned channel
// receives a serve failure and is closed when the server stops.
func (s *Server) Start(addr string, readHeaderTimeout time.Duration) (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("WEB_RUNNING").Errorf("http server already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("http server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.Code("WEB_SHUTDOWN_FAILED").Wrap(err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
