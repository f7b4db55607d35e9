// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
)

// ResetCodeSubject is the subject line of the reset-code message.
const ResetCodeSubject = "Your NextBlog password reset code"

// PasswordResetService handles the one-time-code password reset flow.
type PasswordResetService struct {
	accounts  AccountRepository
	codes     OneTimeCodeRepository
	hasher    PasswordHasher
	messenger Messenger
	codeTTL   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(
	accounts AccountRepository,
	codes OneTimeCodeRepository,
	hasher PasswordHasher,
	messenger Messenger,
	opts ...ServiceOption,
) (*PasswordResetService, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if codes == nil {
		return nil, oops.Errorf("one-time code repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if messenger == nil {
		return nil, oops.Errorf("messenger is required")
	}

	o := applyOptions(opts)
	return &PasswordResetService{
		accounts:  accounts,
		codes:     codes,
		hasher:    hasher,
		messenger: messenger,
		codeTTL:   o.codeTTL,
		logger:    o.logger,
		now:       o.now,
	}, nil
}

// RequestCode generates a fresh code for the account owning email, replaces
// any previous code and sends it to that address.
func (s *PasswordResetService) RequestCode(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return validationError("email", "email is required")
	}
	email = NormalizeEmail(email)

	if _, err := s.accounts.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeAccountNotFound).With("email", email).Errorf("account not found")
		}
		return oops.Code("OTP_REQUEST_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	code, err := GenerateCode()
	if err != nil {
		return oops.Code("OTP_REQUEST_FAILED").
			With("operation", "generate code").
			Wrap(err)
	}

	record, err := NewOneTimeCode(email, code, s.now(), s.codeTTL)
	if err != nil {
		return oops.Code("OTP_REQUEST_FAILED").
			With("operation", "new one-time code").
			Wrap(err)
	}
	if err := s.codes.Upsert(ctx, record); err != nil {
		return oops.Code("OTP_REQUEST_FAILED").
			With("operation", "upsert code").
			Wrap(err)
	}

	body := fmt.Sprintf("Your password reset code is %s. It expires in %s.", code, s.codeTTL)
	if err := s.messenger.Send(ctx, email, ResetCodeSubject, body); err != nil {
		return oops.Code(CodeDeliveryFailed).
			With("email", email).
			Errorf("failed to deliver reset code: %s", err.Error())
	}
	return nil
}

// VerifyCode checks a code against the stored record. Expired records are
// removed; a mismatch leaves the record in place so the caller may retry.
func (s *PasswordResetService) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, validationError("email", "email is required")
	}
	if strings.TrimSpace(code) == "" {
		return false, validationError("code", "code is required")
	}
	email = NormalizeEmail(email)

	record, err := s.codes.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, oops.Code(CodeCodeNotFound).With("email", email).Errorf("no code requested for this email")
		}
		return false, oops.Code("OTP_VERIFY_FAILED").
			With("operation", "get code by email").
			Wrap(err)
	}

	if record.IsExpiredAt(s.now()) {
		if err := s.codes.Delete(ctx, email); err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.Warn("best-effort expired code cleanup failed",
				"event", "code_cleanup_failed",
				"email", email,
				"operation", "delete_expired_code",
				"error", err.Error(),
			)
		}
		return false, oops.Code(CodeCodeExpired).With("email", email).Errorf("code has expired")
	}

	if !record.Matches(strings.TrimSpace(code)) {
		return false, oops.Code(CodeCodeMismatch).With("email", email).Errorf("code does not match")
	}

	if err := s.codes.MarkVerified(ctx, email); err != nil {
		return false, oops.Code("OTP_VERIFY_FAILED").
			With("operation", "mark code verified").
			Wrap(err)
	}

	if err := s.accounts.MarkVerified(ctx, email, s.now()); err != nil {
		s.logger.Warn("best-effort account verification failed",
			"event", "account_verify_failed",
			"email", email,
			"operation", "mark_account_verified",
			"error", err.Error(),
		)
	}

	return true, nil
}

// ResetPassword replaces the password of the account owning email. It
// requires a verified code and consumes it.
func (s *PasswordResetService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if strings.TrimSpace(email) == "" {
		return validationError("email", "email is required")
	}
	if newPassword == "" {
		return validationError("password", "new password is required")
	}
	email = NormalizeEmail(email)

	record, err := s.codes.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "get code by email").
			Wrap(err)
	}
	if record == nil || !record.Verified {
		return oops.Code(CodeCodeNotVerified).With("email", email).Errorf("OTP not verified")
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeAccountNotFound).With("email", email).Errorf("account not found")
		}
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.accounts.UpdatePassword(ctx, account.ID, hash, s.now()); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "update password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	// Deleting the record is what makes the code single-use.
	if err := s.codes.Delete(ctx, email); err != nil {
		return oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "delete code").
			With("email", email).
			Wrap(err)
	}
	return nil
}

// PruneExpired removes every code record that has expired and returns how many were deleted.
func (s *PasswordResetService) PruneExpired(ctx context.Context) (int64, error) {
	n, err := s.codes.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("OTP_PRUNE_FAILED").
			With("operation", "delete expired codes").
			Wrap(err)
	}
	return n, nil
}
