// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextblog/nextblog-auth/internal/auth"
	"github.com/nextblog/nextblog-auth/internal/auth/postgres"
)

func createAccount(t *testing.T, email string) *auth.Account {
	t.Helper()
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	account, err := auth.NewAccount(email, "A", "$2a$10$hash", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, account))

	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM login_sessions WHERE account_id = $1`, account.ID.String())
		_, _ = testPool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, account.ID.String())
	})
	return account
}

func TestAccountRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	t.Run("round trips an account", func(t *testing.T) {
		account := createAccount(t, "roundtrip@x.com")

		stored, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.Email, stored.Email)
		assert.Equal(t, auth.RoleUser, stored.Role)
		assert.True(t, stored.Active)
		assert.Nil(t, stored.LastLoginAt)
	})

	t.Run("email uniqueness ignores case", func(t *testing.T) {
		createAccount(t, "dup@x.com")

		other, err := auth.NewAccount("dup@x.com", "B", "h", time.Now())
		require.NoError(t, err)
		other.Email = "DUP@x.com"
		err = repo.Create(ctx, other)
		assert.ErrorIs(t, err, auth.ErrDuplicate)
	})

	t.Run("persists last login", func(t *testing.T) {
		account := createAccount(t, "login@x.com")
		require.NoError(t, repo.UpdateName(ctx, account.ID, "Renamed", time.Now()))
		account.RecordLogin(time.Now().UTC().Truncate(time.Microsecond), "Laptop")
		require.NoError(t, repo.RecordLogin(ctx, account.ID, *account.LastLoginAt, "Laptop"))

		stored, err := repo.GetByEmail(ctx, "LOGIN@x.com")
		require.NoError(t, err)
		require.NotNil(t, stored.LastLoginAt)
		assert.True(t, account.LastLoginAt.Equal(*stored.LastLoginAt))
		assert.Equal(t, "Laptop", stored.LastDeviceName)
		assert.Equal(t, "Renamed", stored.Name)
	})

	t.Run("update password and verify", func(t *testing.T) {
		account := createAccount(t, "pw@x.com")
		require.NoError(t, repo.UpdatePassword(ctx, account.ID, "$2a$10$new", time.Now()))
		require.NoError(t, repo.MarkVerified(ctx, "pw@x.com", time.Now()))

		stored, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "$2a$10$new", stored.PasswordHash)
		assert.True(t, stored.Verified)
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := repo.GetByID(ctx, ulid.Make())
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.ErrorIs(t, repo.UpdateName(ctx, ulid.Make(), "x", time.Now()), auth.ErrNotFound)
	})
}

func TestLoginSessionRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewLoginSessionRepository(testPool)
	account := createAccount(t, "sessions@x.com")

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		session, err := auth.NewLoginSession(account, fmt.Sprintf("device-%d", i), "", auth.Location{}, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, session))
	}

	count, err := repo.CountByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	history, err := repo.ListByAccount(ctx, account.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "device-2", history[0].DeviceName)
	assert.Equal(t, auth.UnknownIP, history[0].Location.IP)
}

func TestOneTimeCodeRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewOneTimeCodeRepository(testPool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM one_time_codes WHERE email LIKE '%@otp.test'`)
	})

	first, err := auth.NewOneTimeCode("a@otp.test", "111111", now, time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, first))
	require.NoError(t, repo.MarkVerified(ctx, "a@otp.test"))

	second, err := auth.NewOneTimeCode("a@otp.test", "222222", now, time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, second))

	stored, err := repo.GetByEmail(ctx, "a@otp.test")
	require.NoError(t, err)
	assert.Equal(t, "222222", stored.Code)
	assert.False(t, stored.Verified, "upsert resets the verified flag")

	stale, err := auth.NewOneTimeCode("b@otp.test", "333333", now.Add(-time.Hour), time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, stale))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, "a@otp.test"))
	assert.ErrorIs(t, repo.Delete(ctx, "a@otp.test"), auth.ErrNotFound)
}
