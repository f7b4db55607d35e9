// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// DefaultTokenTTL is how long an issued access token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// MinSecretLength is the shortest accepted HMAC signing key.
const MinSecretLength = 32

// TokenPayload is the contract carried inside every access token.
type TokenPayload struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

// TokenClaims is a verified token payload with its expiry.
type TokenClaims struct {
	TokenPayload
	ExpiresAt time.Time
}

// TokenSigner issues and verifies access tokens.
type TokenSigner interface {
	// Sign returns a token carrying payload that expires after ttl.
	Sign(payload TokenPayload, ttl time.Duration) (string, error)

	// Verify parses a token and returns its claims, or an error if invalid or expired.
	Verify(token string) (*TokenClaims, error)
}

// TokenConfig holds the signing key and issuer for JWTSigner.
type TokenConfig struct {
	Secret []byte
	Issuer string
}

// jwtClaims is the wire form of TokenPayload.
type jwtClaims struct {
	TokenPayload
	jwt.RegisteredClaims
}

// JWTSigner implements TokenSigner with HS256 JSON Web Tokens.
type JWTSigner struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTSigner creates a JWTSigner from cfg.
func NewJWTSigner(cfg TokenConfig) (*JWTSigner, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, oops.Code("TOKEN_INVALID_SECRET").
			With("min_length", MinSecretLength).
			Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	return &JWTSigner{secret: secret, issuer: cfg.Issuer, now: time.Now}, nil
}

// Sign returns an HS256 token for payload valid for ttl.
func (s *JWTSigner) Sign(payload TokenPayload, ttl time.Duration) (string, error) {
	if payload.AccountID == "" {
		return "", oops.Code("TOKEN_SIGN_FAILED").Errorf("account ID cannot be empty")
	}
	if ttl <= 0 {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("ttl", ttl).Errorf("ttl must be positive")
	}

	now := s.now()
	claims := jwtClaims{
		TokenPayload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   payload.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").With("operation", "sign jwt").Wrap(err)
	}
	return token, nil
}

// Verify parses and validates an HS256 token.
func (s *JWTSigner) Verify(token string) (*TokenClaims, error) {
	if token == "" {
		return nil, oops.Code(CodeTokenInvalid).Errorf("token cannot be empty")
	}

	claims := &jwtClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code(CodeTokenInvalid).With("reason", "expired").Wrap(err)
		}
		return nil, oops.Code(CodeTokenInvalid).Wrap(err)
	}
	if !parsed.Valid || claims.AccountID == "" {
		return nil, oops.Code(CodeTokenInvalid).Errorf("token is not valid")
	}

	return &TokenClaims{
		TokenPayload: claims.TokenPayload,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}
