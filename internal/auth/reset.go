// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"strconv"
	"time"

	"github.com/samber/oops"
)

// One-time code configuration.
const (
	CodeMin        = 100000
	CodeMax        = 999999
	CodeLength     = 6
	DefaultCodeTTL = 10 * time.Minute
)

// OneTimeCode is the single active reset code for an email.
type OneTimeCode struct {
	Email     string
	Code      string
	Verified  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewOneTimeCode creates an unverified code record expiring ttl after now.
func NewOneTimeCode(email, code string, now time.Time, ttl time.Duration) (*OneTimeCode, error) {
	if email == "" {
		return nil, oops.Code("OTP_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if len(code) != CodeLength {
		return nil, oops.Code("OTP_INVALID_CODE").With("length", len(code)).Errorf("code must be %d digits", CodeLength)
	}
	if ttl <= 0 {
		return nil, oops.Code("OTP_INVALID_TTL").With("ttl", ttl).Errorf("code ttl must be positive")
	}

	return &OneTimeCode{
		Email:     email,
		Code:      code,
		Verified:  false,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpiredAt returns true if the code is past its expiry at t.
func (c *OneTimeCode) IsExpiredAt(t time.Time) bool {
	return t.After(c.ExpiresAt)
}

// Matches compares the supplied code in constant time.
func (c *OneTimeCode) Matches(code string) bool {
	return subtle.ConstantTimeCompare([]byte(c.Code), []byte(code)) == 1
}

// GenerateCode returns a uniformly random numeric code in [CodeMin, CodeMax].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(CodeMax-CodeMin+1))
	if err != nil {
		return "", oops.Code("OTP_GENERATE_FAILED").
			With("operation", "crypto/rand.Int").
			Wrap(err)
	}
	return strconv.FormatInt(n.Int64()+CodeMin, 10), nil
}

// OneTimeCodeRepository manages one-time code persistence. Records are keyed by email.
type OneTimeCodeRepository interface {
	// GetByEmail retrieves the code record for email.
	// Returns ErrNotFound if none exists.
	GetByEmail(ctx context.Context, email string) (*OneTimeCode, error)

	// Upsert stores code, replacing any existing record for the same email.
	Upsert(ctx context.Context, code *OneTimeCode) error

	// MarkVerified sets the verified flag on the record for email.
	MarkVerified(ctx context.Context, email string) error

	// Delete removes the record for email.
	// Returns ErrNotFound if none exists.
	Delete(ctx context.Context, email string) error

	// DeleteExpired removes records that expired before t and returns the count.
	DeleteExpired(ctx context.Context, t time.Time) (int64, error)
}
