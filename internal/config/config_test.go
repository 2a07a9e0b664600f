// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estatehub/estatehub/internal/config"
	"github.com/estatehub/estatehub/pkg/errutil"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "estatehub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", nil, env(nil))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.Production())
}

func TestLoad_LayersFileFlagsAndSecrets(t *testing.T) {
	path := writeConfig(t, `
env: production
http:
  addr: ":8080"
log:
  format: text
store:
  timeout: 2s
auth:
  token_ttl: 1h
  username_optional: true
cors:
  allowed_origins:
    - https://*.estatehub.dev
listing:
  max_images: 8
`)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-format=json", "--metrics-addr="}))

	cfg, err := config.Load(path, fs, env(map[string]string{
		config.EnvDatabaseURL: "postgres://u:p@db:5432/estatehub",
		config.EnvJWTSecret:   "0123456789abcdef0123456789abcdef",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, ":8080", cfg.HTTP.Addr, "from file; --addr was not set")
	assert.Equal(t, "json", cfg.Log.Format, "flag beats file")
	assert.Empty(t, cfg.Metrics.Addr, "explicit empty flag disables metrics")
	assert.Equal(t, "info", cfg.Log.Level, "default kept")
	assert.Equal(t, 2*time.Second, cfg.Store.Timeout)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Auth.UsernameOptional)
	assert.Equal(t, []string{"https://*.estatehub.dev"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 8, cfg.Listing.MaxImages)
	assert.Equal(t, 62, cfg.Listing.MaxNameLength, "unset limit keeps default")
	assert.Equal(t, "postgres://u:p@db:5432/estatehub", cfg.Database.URL)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Auth.JWTSecret)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EmptyOriginListReplacesDefault(t *testing.T) {
	path := writeConfig(t, "cors:\n  allowed_origins: []\n")

	cfg, err := config.Load(path, nil, env(nil))
	require.NoError(t, err)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"unknown key", "htpp:\n  addr: ':1'\n", "CONFIG_SCHEMA_MISMATCH"},
		{"secret in file", "database:\n  url: postgres://x\n", "CONFIG_SCHEMA_MISMATCH"},
		{"bad enum", "log:\n  format: xml\n", "CONFIG_SCHEMA_MISMATCH"},
		{"wrong type", "listing:\n  max_rooms: lots\n", "CONFIG_SCHEMA_MISMATCH"},
		{"not yaml", "http: [\n", "CONFIG_YAML_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.body)
			_, err := config.Load(path, nil, env(nil))
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
			errutil.AssertErrorContext(t, err, "path", path)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil, env(nil))
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "CONFIG_READ_FAILED")
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		key    string
	}{
		{"bad env", func(c *config.Config) { c.Env = "staging" }, "env"},
		{"bad log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty addr", func(c *config.Config) { c.HTTP.Addr = "" }, "http.addr"},
		{"addr without port", func(c *config.Config) { c.HTTP.Addr = "localhost" }, "http.addr"},
		{"bad metrics addr", func(c *config.Config) { c.Metrics.Addr = "nope" }, "metrics.addr"},
		{"zero body limit", func(c *config.Config) { c.HTTP.MaxBodyBytes = 0 }, "http.max_body_bytes"},
		{"zero store timeout", func(c *config.Config) { c.Store.Timeout = 0 }, "store.timeout"},
		{"zero ttl", func(c *config.Config) { c.Auth.TokenTTL = 0 }, "auth.token_ttl"},
		{"sso without client", func(c *config.Config) { c.SSO.Enabled = true; c.SSO.RedirectURL = "http://x/cb" }, "sso.client_id"},
		{"sso without redirect", func(c *config.Config) { c.SSO.Enabled = true; c.SSO.ClientID = "id" }, "sso.redirect_url"},
		{"inverted name bounds", func(c *config.Config) { c.Listing.MaxNameLength = 5 }, "listing"},
		{"no images", func(c *config.Config) { c.Listing.MaxImages = 0 }, "listing.max_images"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "key", tt.key)
		})
	}

	t.Run("metrics may be disabled", func(t *testing.T) {
		cfg := config.Default()
		cfg.Metrics.Addr = ""
		assert.NoError(t, cfg.Validate())
	})
}
