// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/estatehub/estatehub/internal/auth"
	"github.com/estatehub/estatehub/internal/listing"
	"github.com/estatehub/estatehub/internal/store/memory"
	"github.com/estatehub/estatehub/internal/web"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeMetrics struct {
	mu         sync.Mutex
	requests   map[string]int
	rejections map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{requests: map[string]int{}, rejections: map[string]int{}}
}

func (m *fakeMetrics) ObserveRequest(route, method string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[route+" "+http.StatusText(status)]++
}

func (m *fakeMetrics) RecordAuthRejection(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[reason]++
}

func (m *fakeMetrics) rejected(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejections[reason]
}

type testEnv struct {
	handler http.Handler
	store   *memory.Store
	tokens  *auth.TokenService
	metrics *fakeMetrics
}

type envOption func(*web.Options)

func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	st := memory.New()
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1})

	authSvc, err := auth.NewService(st.Users(), hasher, tokens)
	require.NoError(t, err)
	listingSvc, err := listing.NewService(st.Listings())
	require.NoError(t, err)
	guard, err := auth.NewGuard(tokens)
	require.NoError(t, err)

	metrics := newFakeMetrics()
	o := web.Options{
		Auth:     authSvc,
		Listings: listingSvc,
		Guard:    guard,
		Metrics:  metrics,
		Logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	srv, err := web.New(o)
	require.NoError(t, err)

	return &testEnv{handler: srv.Handler(), store: st, tokens: tokens, metrics: metrics}
}

// do sends body as JSON; a string body is sent verbatim.
func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// signup registers an account and signs it in.
func (e *testEnv) signup(t *testing.T, username, email string) (auth.PublicUser, *http.Cookie) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": "secret-pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    email,
		"password": "secret-pw",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user auth.PublicUser
	decode(t, rec, &user)
	return user, sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	return findCookie(t, rec, auth.SessionCookieName)
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	require.FailNow(t, "cookie not set", name)
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) web.ErrorBody {
	t.Helper()
	var body web.ErrorBody
	decode(t, rec, &body)
	return body
}
