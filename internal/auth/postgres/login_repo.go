// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/nextblog/nextblog-auth/internal/auth"
)

// LoginSessionRepository implements auth.LoginSessionRepository using PostgreSQL.
type LoginSessionRepository struct {
	db DB
}

// NewLoginSessionRepository creates a new LoginSessionRepository.
func NewLoginSessionRepository(db DB) *LoginSessionRepository {
	return &LoginSessionRepository{db: db}
}

// Create appends a login record.
func (r *LoginSessionRepository) Create(ctx context.Context, session *auth.LoginSession) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_sessions (
			id, account_id, name, email, device_name, device_type,
			ip, country, city, login_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		session.ID.String(),
		session.AccountID.String(),
		session.Name,
		session.Email,
		session.DeviceName,
		session.DeviceType,
		session.Location.IP,
		session.Location.Country,
		session.Location.City,
		session.LoginAt,
	)
	if err != nil {
		return oops.Code("LOGIN_SESSION_CREATE_FAILED").
			With("operation", "insert login session").
			With("account_id", session.AccountID.String()).
			Wrap(err)
	}
	return nil
}

// CountByAccount returns how many login records reference the account.
func (r *LoginSessionRepository) CountByAccount(ctx context.Context, accountID ulid.ULID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT count(*) FROM login_sessions WHERE account_id = $1
	`, accountID.String()).Scan(&count)
	if err != nil {
		return 0, oops.Code("LOGIN_SESSION_COUNT_FAILED").
			With("operation", "count login sessions").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return count, nil
}

// ListByAccount returns the newest login records for the account.
func (r *LoginSessionRepository) ListByAccount(ctx context.Context, accountID ulid.ULID, limit int) ([]*auth.LoginSession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, name, email, device_name, device_type,
		       ip, country, city, login_at
		FROM login_sessions
		WHERE account_id = $1
		ORDER BY login_at DESC, id DESC
		LIMIT $2
	`, accountID.String(), limit)
	if err != nil {
		return nil, oops.Code("LOGIN_SESSION_LIST_FAILED").
			With("operation", "list login sessions").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var sessions []*auth.LoginSession
	for rows.Next() {
		session, err := scanLoginSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("LOGIN_SESSION_LIST_FAILED").
			With("operation", "iterate login sessions").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return sessions, nil
}

func scanLoginSession(row pgx.Row) (*auth.LoginSession, error) {
	var (
		idStr        string
		accountIDStr string
		session      auth.LoginSession
	)
	if err := row.Scan(
		&idStr,
		&accountIDStr,
		&session.Name,
		&session.Email,
		&session.DeviceName,
		&session.DeviceType,
		&session.Location.IP,
		&session.Location.Country,
		&session.Location.City,
		&session.LoginAt,
	); err != nil {
		return nil, oops.Code("LOGIN_SESSION_SCAN_FAILED").
			With("operation", "scan login session").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("LOGIN_SESSION_INVALID_ID").With("id", idStr).Wrap(err)
	}
	accountID, err := ulid.Parse(accountIDStr)
	if err != nil {
		return nil, oops.Code("LOGIN_SESSION_INVALID_ACCOUNT_ID").With("account_id", accountIDStr).Wrap(err)
	}
	session.ID = id
	session.AccountID = accountID
	return &session, nil
}

// Compile-time interface check.
var _ auth.LoginSessionRepository = (*LoginSessionRepository)(nil)
