// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package web_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/estatehub/internal/web"
	"github.com/estatehub/estatehub/pkg/errutil"
)

func TestCORS_Allowed(t *testing.T) {
	cors, err := web.NewCORS([]string{"http://localhost:5173", "https://*.estatehub.example/"})
	require.NoError(t, err)

	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:5173", true},
		{"http://localhost:3000", false},
		{"https://app.estatehub.example", true},
		{"https://a.b.estatehub.example", false},
		{"https://estatehub.example.evil.test", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, cors.Allowed(tt.origin))
		})
	}
}

func TestNewCORS_InvalidPattern(t *testing.T) {
	_, err := web.NewCORS([]string{"https://[a-"})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CORS_INVALID_ORIGIN")
}

func TestCORS_Middleware(t *testing.T) {
	cors, err := web.NewCORS([]string{"http://localhost:5173"})
	require.NoError(t, err)
	env := newEnv(t, func(o *web.Options) { o.CORS = cors })

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/auth/signin", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	})

	t.Run("other origin is not decorated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/signout", nil)
		req.Header.Set("Origin", "https://evil.test")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
