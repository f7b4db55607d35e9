// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

// Package config loads nextblog-auth settings from a YAML file, command-line
// flags and a few environment variables, in that order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/nextblog/nextblog-auth/internal/auth"
)

// Environment variables that override file and flag values. Secrets are
// expected to arrive this way rather than through the config file.
const (
	EnvDatabaseURL  = "DATABASE_URL"
	EnvTokenSecret  = "NEXTBLOG_TOKEN_SECRET"
	EnvSMTPPassword = "NEXTBLOG_SMTP_PASSWORD"
)

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Token    TokenConfig    `koanf:"token"`
	Auth     AuthConfig     `koanf:"auth"`
	Mail     MailConfig     `koanf:"mail"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	SecureCookies   bool          `koanf:"secure_cookies"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL             string `koanf:"url"`
	MaxConns        int32  `koanf:"max_conns"`
	ConnectAttempts uint64 `koanf:"connect_attempts"`
	AutoMigrate     bool   `koanf:"auto_migrate"`
}

// TokenConfig configures access-token signing.
type TokenConfig struct {
	Secret string        `koanf:"secret"`
	Issuer string        `koanf:"issuer"`
	TTL    time.Duration `koanf:"ttl"`
}

// AuthConfig tunes the account services.
type AuthConfig struct {
	DeviceCap  int           `koanf:"device_cap"`
	CodeTTL    time.Duration `koanf:"code_ttl"`
	BcryptCost int           `koanf:"bcrypt_cost"`
}

// MailConfig configures reset-code delivery. With Enabled false, codes are
// written to the log instead of being sent.
type MailConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Host      string `koanf:"host"`
	Port      int    `koanf:"port"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
	From      string `koanf:"from"`
	TLSPolicy string `koanf:"tls_policy"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the configuration used for any key not set elsewhere.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"http://localhost:3000"},
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			ConnectAttempts: 5,
		},
		Token: TokenConfig{
			Issuer: "nextblog-auth",
			TTL:    auth.DefaultTokenTTL,
		},
		Auth: AuthConfig{
			DeviceCap:  auth.DefaultDeviceCap,
			CodeTTL:    auth.DefaultCodeTTL,
			BcryptCost: auth.DefaultBcryptCost,
		},
		Mail: MailConfig{
			Port:      587,
			TLSPolicy: "mandatory",
		},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9100",
		},
	}
}

// flagKeys maps command-line flag names to config keys. Only flags listed
// here feed the config, and only when set explicitly.
var flagKeys = map[string]string{
	"addr":         "server.addr",
	"database-url": "database.url",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"metrics-addr": "metrics.addr",
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.Server.Addr, "HTTP API listen address")
	fs.String("database-url", "", "PostgreSQL connection string (overridden by "+EnvDatabaseURL+")")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
}

// Load builds a Config from defaults, the YAML file at path (optional),
// explicitly set flags in fs (optional) and the environment read through
// getenv (os.Getenv when nil).
func Load(path string, fs *pflag.FlagSet, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read config file").
				With("path", path).
				Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("operation", "decode config").
			Wrap(err)
	}

	applyEnv(cfg, getenv)
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvDatabaseURL)); v != "" {
		cfg.Database.URL = v
	}
	if v := getenv(EnvTokenSecret); v != "" {
		cfg.Token.Secret = v
	}
	if v := getenv(EnvSMTPPassword); v != "" {
		cfg.Mail.Password = v
	}
}
