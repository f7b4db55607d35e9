// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is the authorization role of an account.
type Role string

// Account roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// MaxNameLength bounds the display name.
const MaxNameLength = 100

// Account represents a registered user identity keyed by email.
type Account struct {
	ID             ulid.ULID
	Email          string
	PasswordHash   string
	Name           string
	Active         bool
	Verified       bool
	Role           Role
	LastLoginAt    *time.Time
	LastDeviceName string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Profile is the password-free view of an account.
type Profile struct {
	ID             ulid.ULID  `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name,omitempty"`
	Active         bool       `json:"isActive"`
	Verified       bool       `json:"isVerified"`
	Role           Role       `json:"role"`
	LastLoginAt    *time.Time `json:"lastLogin,omitempty"`
	LastDeviceName string     `json:"loginDeviceName,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Profile returns the account without its password hash.
func (a *Account) Profile() Profile {
	return Profile{
		ID:             a.ID,
		Email:          a.Email,
		Name:           a.Name,
		Active:         a.Active,
		Verified:       a.Verified,
		Role:           a.Role,
		LastLoginAt:    a.LastLoginAt,
		LastDeviceName: a.LastDeviceName,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// RecordLogin stamps the last-login metadata.
func (a *Account) RecordLogin(at time.Time, deviceName string) {
	loginAt := at
	a.LastLoginAt = &loginAt
	a.LastDeviceName = deviceName
	a.UpdatedAt = at
}

// NewAccount creates a validated Account with the default role.
// The email is normalized; name may be empty.
func NewAccount(email, name, passwordHash string, now time.Time) (*Account, error) {
	normalized, err := ValidateEmail(email)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if len(name) > MaxNameLength {
		return nil, validationError("name", "name must be at most %d characters", MaxNameLength)
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, oops.Code("ACCOUNT_INVALID_PASSWORD_HASH").Errorf("password hash cannot be empty")
	}

	return &Account{
		ID:           ulid.Make(),
		Email:        normalized,
		PasswordHash: passwordHash,
		Name:         name,
		Active:       true,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail normalizes email and checks that it is a bare address.
func ValidateEmail(email string) (string, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return "", validationError("email", "email is required")
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", validationError("email", "email %q is not a valid address", email)
	}
	return normalized, nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account.
	// Returns ErrDuplicate if the email is already taken.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by normalized email.
	// Returns ErrNotFound if no account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// RecordLogin stamps only the last-login time and device name.
	RecordLogin(ctx context.Context, id ulid.ULID, at time.Time, deviceName string) error

	// UpdateName replaces only the display name.
	UpdateName(ctx context.Context, id ulid.ULID, name string, updatedAt time.Time) error

	// UpdatePassword replaces only the password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string, updatedAt time.Time) error

	// MarkVerified flags the account owning email as verified.
	MarkVerified(ctx context.Context, email string, updatedAt time.Time) error
}
