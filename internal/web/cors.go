// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package web

import (
	"net/http"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// CORS allows credentialed requests from origins matching a glob list.
type CORS struct {
	patterns []glob.Glob
}

// NewCORS compiles the allowed origin patterns, e.g. "https://*.example.com".
func NewCORS(origins []string) (*CORS, error) {
	c := &CORS{}
	for _, o := range origins {
		g, err := glob.Compile(strings.TrimSuffix(o, "/"), '.', ':', '/')
		if err != nil {
			return nil, oops.Code("CORS_INVALID_ORIGIN").With("origin", o).Wrap(err)
		}
		c.patterns = append(c.patterns, g)
	}
	return c, nil
}

// Allowed reports whether origin matches any pattern.
func (c *CORS) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, g := range c.patterns {
		if g.Match(origin) {
			return true
		}
	}
	return false
}

// Middleware answers preflight requests and decorates responses for allowed
// origins. Requests from other origins pass through undecorated.
func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := c.Allowed(origin)
		if allowed {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				h.Set("Access-Control-Max-Age", "600")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
