// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned by repositories when a uniqueness constraint rejects a write.
var ErrDuplicate = errors.New("duplicate")

// Kind classifies an error returned by the services so callers can map it
// to a transport status without inspecting messages.
type Kind int

// Error kinds.
const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuth
	KindNotFound
	KindExpired
	KindMismatch
	KindState
	KindExternal
)

var kindNames = map[Kind]string{
	KindInternal:   "internal",
	KindValidation: "validation",
	KindConflict:   "conflict",
	KindAuth:       "auth",
	KindNotFound:   "not_found",
	KindExpired:    "expired",
	KindMismatch:   "mismatch",
	KindState:      "state",
	KindExternal:   "external",
}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error codes returned by the services.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeAccountExists      = "ACCOUNT_EXISTS"
	CodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAccountDisabled    = "AUTH_ACCOUNT_DISABLED"
	CodeDeviceLimit        = "AUTH_DEVICE_LIMIT"
	CodeNotLoggedIn        = "AUTH_NOT_LOGGED_IN"
	CodeTokenInvalid       = "AUTH_TOKEN_INVALID"
	CodeCodeNotFound       = "OTP_NOT_FOUND"
	CodeCodeExpired        = "OTP_EXPIRED"
	CodeCodeMismatch       = "OTP_MISMATCH"
	CodeCodeNotVerified    = "OTP_NOT_VERIFIED"
	CodeDeliveryFailed     = "OTP_DELIVERY_FAILED"
)

var codeKinds = map[string]Kind{
	CodeValidation:         KindValidation,
	CodeAccountExists:      KindConflict,
	CodeAccountNotFound:    KindNotFound,
	CodeInvalidCredentials: KindAuth,
	CodeAccountDisabled:    KindAuth,
	CodeDeviceLimit:        KindAuth,
	CodeNotLoggedIn:        KindAuth,
	CodeTokenInvalid:       KindAuth,
	CodeCodeNotFound:       KindNotFound,
	CodeCodeExpired:        KindExpired,
	CodeCodeMismatch:       KindMismatch,
	CodeCodeNotVerified:    KindState,
	CodeDeliveryFailed:     KindExternal,
}

// KindOf classifies err by its oops code. Plain errors and unknown codes are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindInternal
	}
	if kind, ok := codeKinds[fmt.Sprint(oopsErr.Code())]; ok {
		return kind
	}
	return KindInternal
}

// validationError builds a KindValidation error for a missing or malformed field.
func validationError(field, format string, args ...any) error {
	return oops.Code(CodeValidation).With("field", field).Errorf(format, args...)
}
