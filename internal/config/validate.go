// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/nextblog/nextblog-auth/internal/auth"
)

var (
	logFormats  = []string{"json", "text"}
	logLevels   = []string{"debug", "info", "warn", "error"}
	tlsPolicies = []string{"mandatory", "opportunistic", "none"}
)

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Addr == "" {
		add("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("server.shutdown_timeout must be positive")
	}
	if c.Database.URL == "" {
		add("database.url is required (or set %s)", EnvDatabaseURL)
	}
	if len(c.Token.Secret) < auth.MinSecretLength {
		add("token.secret must be at least %d bytes (set %s)", auth.MinSecretLength, EnvTokenSecret)
	}
	if c.Token.TTL <= 0 {
		add("token.ttl must be positive")
	}
	if c.Auth.DeviceCap < 1 {
		add("auth.device_cap must be at least 1, got %d", c.Auth.DeviceCap)
	}
	if c.Auth.CodeTTL <= 0 {
		add("auth.code_ttl must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		add("auth.bcrypt_cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}
	if c.Mail.Enabled {
		if c.Mail.Host == "" {
			add("mail.host is required when mail is enabled")
		}
		if c.Mail.From == "" {
			add("mail.from is required when mail is enabled")
		}
		if !slices.Contains(tlsPolicies, c.Mail.TLSPolicy) {
			add("mail.tls_policy must be one of %v, got %q", tlsPolicies, c.Mail.TLSPolicy)
		}
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		add("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		add("log.level must be one of %v, got %q", logLevels, c.Log.Level)
	}

	if len(errs) > 0 {
		return oops.Code("CONFIG_INVALID").Wrap(errors.Join(errs...))
	}
	return nil
}
