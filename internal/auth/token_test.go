// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextblog/nextblog-auth/internal/auth"
)

var testSecret = []byte(strings.Repeat("s", auth.MinSecretLength))

func newTestSigner(t *testing.T) *auth.JWTSigner {
	t.Helper()
	signer, err := auth.NewJWTSigner(auth.TokenConfig{Secret: testSecret, Issuer: "nextblog-test"})
	require.NoError(t, err)
	return signer
}

func TestNewJWTSigner(t *testing.T) {
	t.Run("rejects short secret", func(t *testing.T) {
		_, err := auth.NewJWTSigner(auth.TokenConfig{Secret: []byte("short")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least")
	})

	t.Run("accepts secret of minimum length", func(t *testing.T) {
		signer, err := auth.NewJWTSigner(auth.TokenConfig{Secret: testSecret})
		require.NoError(t, err)
		assert.NotNil(t, signer)
	})
}

func TestJWTSigner_RoundTrip(t *testing.T) {
	signer := newTestSigner(t)
	payload := auth.TokenPayload{
		AccountID: ulid.Make().String(),
		Email:     "a@x.com",
		Role:      auth.RoleUser,
	}

	token, err := signer.Sign(payload, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(token, ".")))

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, payload, claims.TokenPayload)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestJWTSigner_Sign(t *testing.T) {
	signer := newTestSigner(t)

	t.Run("rejects empty account ID", func(t *testing.T) {
		_, err := signer.Sign(auth.TokenPayload{Email: "a@x.com"}, time.Hour)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		_, err := signer.Sign(auth.TokenPayload{AccountID: "id"}, 0)
		assert.Error(t, err)
	})
}

func TestJWTSigner_Verify(t *testing.T) {
	signer := newTestSigner(t)

	t.Run("rejects empty token", func(t *testing.T) {
		_, err := signer.Verify("")
		require.Error(t, err)
		assert.Equal(t, auth.KindAuth, auth.KindOf(err))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := signer.Verify("not.a.token")
		require.Error(t, err)
		assert.Equal(t, auth.KindAuth, auth.KindOf(err))
	})

	t.Run("rejects token signed with another key", func(t *testing.T) {
		other, err := auth.NewJWTSigner(auth.TokenConfig{
			Secret: []byte(strings.Repeat("o", auth.MinSecretLength)),
			Issuer: "nextblog-test",
		})
		require.NoError(t, err)
		token, err := other.Sign(auth.TokenPayload{AccountID: "id"}, time.Hour)
		require.NoError(t, err)

		_, err = signer.Verify(token)
		assert.Error(t, err)
	})

	t.Run("rejects token from another issuer", func(t *testing.T) {
		other, err := auth.NewJWTSigner(auth.TokenConfig{Secret: testSecret, Issuer: "elsewhere"})
		require.NoError(t, err)
		token, err := other.Sign(auth.TokenPayload{AccountID: "id"}, time.Hour)
		require.NoError(t, err)

		_, err = signer.Verify(token)
		assert.Error(t, err)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		claims := jwt.MapClaims{
			"accountId": "id",
			"iss":       "nextblog-test",
			"exp":       time.Now().Add(-time.Minute).Unix(),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)

		_, err = signer.Verify(token)
		require.Error(t, err)
		assert.Equal(t, auth.KindAuth, auth.KindOf(err))
	})

	t.Run("rejects none algorithm", func(t *testing.T) {
		claims := jwt.MapClaims{
			"accountId": "id",
			"iss":       "nextblog-test",
			"exp":       time.Now().Add(time.Hour).Unix(),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = signer.Verify(token)
		assert.Error(t, err)
	})
}
