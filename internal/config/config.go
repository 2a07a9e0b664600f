// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EstateHub Contributors

// Package config loads the server configuration.
//
// Layers, later ones winning: built-in defaults, the YAML file named by
// --config, command-line flags that were set explicitly, and secrets from
// the environment. Secrets are never read from the file.
package config

import (
	"net"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/estatehub/estatehub/internal/listing"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Secret environment variables.
const (
	EnvDatabaseURL     = "DATABASE_URL"
	EnvJWTSecret       = "ESTATEHUB_JWT_SECRET"
	EnvSSOClientSecret = "ESTATEHUB_SSO_CLIENT_SECRET"
)

// Config is the full server configuration.
type Config struct {
	Env      string         `koanf:"env" json:"env,omitempty" jsonschema:"enum=development,enum=production"`
	HTTP     HTTPConfig     `koanf:"http" json:"http,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Store    StoreConfig    `koanf:"store" json:"store,omitempty"`
	Auth     AuthConfig     `koanf:"auth" json:"auth,omitempty"`
	CORS     CORSConfig     `koanf:"cors" json:"cors,omitempty"`
	SSO      SSOConfig      `koanf:"sso" json:"sso,omitempty"`
	Listing  listing.Limits `koanf:"listing" json:"listing,omitempty"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr" json:"addr,omitempty"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" json:"read_header_timeout,omitempty" jsonschema:"type=string"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout,omitempty" jsonschema:"type=string"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes" json:"max_body_bytes,omitempty" jsonschema:"minimum=1"`
}

// MetricsConfig configures the metrics and health listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// DatabaseConfig configures the PostgreSQL pool. URL comes from DATABASE_URL.
type DatabaseConfig struct {
	URL            string        `koanf:"-" json:"-"`
	MaxConns       int32         `koanf:"max_conns" json:"max_conns,omitempty" jsonschema:"minimum=1"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" json:"connect_timeout,omitempty" jsonschema:"type=string"`
}

// StoreConfig bounds individual store calls.
type StoreConfig struct {
	Timeout time.Duration `koanf:"timeout" json:"timeout,omitempty" jsonschema:"type=string"`
}

// AuthConfig configures sessions. JWTSecret comes from ESTATEHUB_JWT_SECRET.
type AuthConfig struct {
	JWTSecret        string        `koanf:"-" json:"-"`
	TokenTTL         time.Duration `koanf:"token_ttl" json:"token_ttl,omitempty" jsonschema:"type=string"`
	UsernameOptional bool          `koanf:"username_optional" json:"username_optional,omitempty"`
}

// CORSConfig lists the browser origins allowed to call the API. Entries are
// glob patterns such as https://*.example.com.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins" json:"allowed_origins,omitempty"`
}

// SSOConfig configures Google sign-in. ClientSecret comes from
// ESTATEHUB_SSO_CLIENT_SECRET.
type SSOConfig struct {
	Enabled      bool   `koanf:"enabled" json:"enabled,omitempty"`
	Issuer       string `koanf:"issuer" json:"issuer,omitempty"`
	ClientID     string `koanf:"client_id" json:"client_id,omitempty"`
	ClientSecret string `koanf:"-" json:"-"`
	RedirectURL  string `koanf:"redirect_url" json:"redirect_url,omitempty"`
	// SuccessURL is where the browser lands after a successful sign-in.
	SuccessURL string `koanf:"success_url" json:"success_url,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Env: EnvDevelopment,
		HTTP: HTTPConfig{
			Addr:              ":3000",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			MaxBodyBytes:      1 << 20,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Database: DatabaseConfig{
			MaxConns:       10,
			ConnectTimeout: 30 * time.Second,
		},
		Store: StoreConfig{Timeout: 5 * time.Second},
		Auth:  AuthConfig{TokenTTL: 24 * time.Hour},
		CORS:  CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		SSO: SSOConfig{
			Issuer:     "https://accounts.google.com",
			SuccessURL: "/",
		},
		Listing: listing.DefaultLimits,
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"env":          "env",
	"addr":         "http.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// RegisterFlags adds the flags that Load understands to fs. Their defaults
// are informational; only flags set on the command line override the file.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("env", d.Env, "environment (development or production)")
	fs.String("addr", d.HTTP.Addr, "API listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// Load builds the configuration. path may be empty; fs may be nil; getenv
// defaults to os.Getenv.
func Load(path string, fs *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateSchema(data); err != nil {
			return nil, oops.Code("CONFIG_SCHEMA_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if k.Exists("cors.allowed_origins") {
		// Decoding over a non-empty slice would keep trailing defaults.
		cfg.CORS.AllowedOrigins = nil
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}

	cfg.Database.URL = getenv(EnvDatabaseURL)
	cfg.Auth.JWTSecret = getenv(EnvJWTSecret)
	cfg.SSO.ClientSecret = getenv(EnvSSOClientSecret)

	return cfg, nil
}

// Production reports whether cookies must be Secure.
func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

// Validate checks the configuration. Secrets are checked by the components
// that consume them.
func (c *Config) Validate() error {
	switch {
	case c.Env != EnvDevelopment && c.Env != EnvProduction:
		return invalid("env", "env must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	case c.Log.Format != "json" && c.Log.Format != "text":
		return invalid("log.format", "log format must be 'json' or 'text', got %q", c.Log.Format)
	case c.HTTP.Addr == "":
		return invalid("http.addr", "http address is required")
	case c.HTTP.MaxBodyBytes <= 0:
		return invalid("http.max_body_bytes", "max body size must be positive")
	case c.Store.Timeout <= 0:
		return invalid("store.timeout", "store timeout must be positive")
	case c.Auth.TokenTTL <= 0:
		return invalid("auth.token_ttl", "token ttl must be positive")
	}

	if err := validateAddr("http.addr", c.HTTP.Addr); err != nil {
		return err
	}
	if c.Metrics.Addr != "" {
		if err := validateAddr("metrics.addr", c.Metrics.Addr); err != nil {
			return err
		}
	}

	if c.SSO.Enabled {
		switch {
		case c.SSO.Issuer == "":
			return invalid("sso.issuer", "sso issuer is required when sso is enabled")
		case c.SSO.ClientID == "":
			return invalid("sso.client_id", "sso client id is required when sso is enabled")
		case c.SSO.RedirectURL == "":
			return invalid("sso.redirect_url", "sso redirect url is required when sso is enabled")
		}
	}

	lim := c.Listing
	switch {
	case lim.MinNameLength < 1 || lim.MaxNameLength < lim.MinNameLength:
		return invalid("listing", "listing name bounds are inconsistent")
	case lim.MaxRooms < 1:
		return invalid("listing.max_rooms", "max rooms must be at least 1")
	case lim.MinRegularPrice < 0 || lim.MaxPrice < lim.MinRegularPrice:
		return invalid("listing", "listing price bounds are inconsistent")
	case lim.MaxImages < 1:
		return invalid("listing.max_images", "max images must be at least 1")
	}
	return nil
}

func validateAddr(key, addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", key).Wrapf(err, "invalid address %q", addr)
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
}
