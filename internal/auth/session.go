// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Defaults applied to login snapshots when the caller supplies nothing.
const (
	UnknownDevice  = "Unknown Device"
	UnknownType    = "Unknown Type"
	UnknownIP      = "Unknown IP"
	UnknownCountry = "Unknown Country"
	UnknownCity    = "Unknown City"
)

// DefaultDeviceCap is the number of tracked login sessions an account may hold.
const DefaultDeviceCap = 2

// Location is the approximate origin of a login.
type Location struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
	City    string `json:"city"`
}

// WithDefaults fills each empty field with its "Unknown" placeholder.
func (l Location) WithDefaults() Location {
	return Location{
		IP:      orDefault(l.IP, UnknownIP),
		Country: orDefault(l.Country, UnknownCountry),
		City:    orDefault(l.City, UnknownCity),
	}
}

// LoginSession is an append-only record of one successful credential check.
type LoginSession struct {
	ID         ulid.ULID `json:"id"`
	AccountID  ulid.ULID `json:"userId"`
	Name       string    `json:"name,omitempty"`
	Email      string    `json:"email"`
	DeviceName string    `json:"deviceName"`
	DeviceType string    `json:"deviceType"`
	Location   Location  `json:"location"`
	LoginAt    time.Time `json:"lastLogin"`
}

// NewLoginSession snapshots account and device details into a new record.
// Device name and type fall back to their placeholders; location fields default independently.
func NewLoginSession(account *Account, deviceName, deviceType string, location Location, at time.Time) (*LoginSession, error) {
	if account == nil || account.ID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if at.IsZero() {
		return nil, oops.Code("SESSION_INVALID_TIME").Errorf("login time cannot be zero")
	}

	return &LoginSession{
		ID:         ulid.Make(),
		AccountID:  account.ID,
		Name:       account.Name,
		Email:      account.Email,
		DeviceName: orDefault(deviceName, UnknownDevice),
		DeviceType: orDefault(deviceType, UnknownType),
		Location:   location.WithDefaults(),
		LoginAt:    at,
	}, nil
}

// ResolveDeviceName picks the explicit device name, then the request's device
// identifier (usually the User-Agent), then UnknownDevice.
func ResolveDeviceName(explicit, requestIdentifier string) string {
	if name := strings.TrimSpace(explicit); name != "" {
		return name
	}
	return orDefault(requestIdentifier, UnknownDevice)
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// LoginSessionRepository manages login history persistence.
type LoginSessionRepository interface {
	// Create appends a login record.
	Create(ctx context.Context, session *LoginSession) error

	// CountByAccount returns how many login records reference the account.
	CountByAccount(ctx context.Context, accountID ulid.ULID) (int, error)

	// ListByAccount returns the newest login records for the account, at most limit.
	ListByAccount(ctx context.Context, accountID ulid.ULID, limit int) ([]*LoginSession, error)
}
