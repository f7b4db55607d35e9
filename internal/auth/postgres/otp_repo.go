// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/nextblog/nextblog-auth/internal/auth"
)

// OneTimeCodeRepository implements auth.OneTimeCodeRepository using PostgreSQL.
type OneTimeCodeRepository struct {
	db DB
}

// NewOneTimeCodeRepository creates a new OneTimeCodeRepository.
func NewOneTimeCodeRepository(db DB) *OneTimeCodeRepository {
	return &OneTimeCodeRepository{db: db}
}

// GetByEmail retrieves the code record for email.
func (r *OneTimeCodeRepository) GetByEmail(ctx context.Context, email string) (*auth.OneTimeCode, error) {
	var code auth.OneTimeCode
	err := r.db.QueryRow(ctx, `
		SELECT email, code, verified, created_at, expires_at
		FROM one_time_codes
		WHERE email = $1
	`, email).Scan(&code.Email, &code.Code, &code.Verified, &code.CreatedAt, &code.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("OTP_ROW_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("OTP_GET_FAILED").
			With("operation", "get code by email").
			With("email", email).
			Wrap(err)
	}
	return &code, nil
}

// Upsert stores code, replacing any record for the same email.
func (r *OneTimeCodeRepository) Upsert(ctx context.Context, code *auth.OneTimeCode) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO one_time_codes (email, code, verified, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			code = EXCLUDED.code,
			verified = EXCLUDED.verified,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, code.Email, code.Code, code.Verified, code.CreatedAt, code.ExpiresAt)
	if err != nil {
		return oops.Code("OTP_UPSERT_FAILED").
			With("operation", "upsert code").
			With("email", code.Email).
			Wrap(err)
	}
	return nil
}

// MarkVerified sets the verified flag on the record for email.
func (r *OneTimeCodeRepository) MarkVerified(ctx context.Context, email string) error {
	result, err := r.db.Exec(ctx, `
		UPDATE one_time_codes SET verified = TRUE WHERE email = $1
	`, email)
	if err != nil {
		return oops.Code("OTP_MARK_VERIFIED_FAILED").
			With("operation", "mark code verified").
			With("email", email).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("OTP_ROW_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes the record for email.
func (r *OneTimeCodeRepository) Delete(ctx context.Context, email string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM one_time_codes WHERE email = $1`, email)
	if err != nil {
		return oops.Code("OTP_DELETE_FAILED").
			With("operation", "delete code").
			With("email", email).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("OTP_ROW_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes records that expired before t.
func (r *OneTimeCodeRepository) DeleteExpired(ctx context.Context, t time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM one_time_codes WHERE expires_at < $1`, t)
	if err != nil {
		return 0, oops.Code("OTP_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired codes").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.OneTimeCodeRepository = (*OneTimeCodeRepository)(nil)
