// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultHistoryLimit is the number of login records returned when no limit is given.
const DefaultHistoryLimit = 20

// Config holds the tunables of the authentication service.
type Config struct {
	// TokenTTL is how long issued access tokens stay valid.
	TokenTTL time.Duration
	// DeviceCap is the maximum number of login records an account may hold
	// before further logins are refused.
	DeviceCap int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{TokenTTL: DefaultTokenTTL, DeviceCap: DefaultDeviceCap}
}

type serviceOptions struct {
	logger  *slog.Logger
	now     func() time.Time
	codeTTL time.Duration
}

// ServiceOption configures Service and PasswordResetService.
type ServiceOption func(*serviceOptions)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCodeTTL sets the lifetime of one-time codes. Only PasswordResetService reads it.
func WithCodeTTL(ttl time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		if ttl > 0 {
			o.codeTTL = ttl
		}
	}
}

func applyOptions(opts []ServiceOption) serviceOptions {
	o := serviceOptions{
		logger:  slog.Default(),
		now:     time.Now,
		codeTTL: DefaultCodeTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
}

// LoginRequest carries credentials and the device snapshot of a login.
type LoginRequest struct {
	Email      string
	Password   string
	DeviceName string
	DeviceType string
	// UserAgent is the request-supplied device identifier used when DeviceName is empty.
	UserAgent string
	Location  Location
}

// AccountSummary is the non-sensitive account view returned on login.
type AccountSummary struct {
	ID          ulid.ULID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	Role        Role       `json:"role"`
	LastLoginAt *time.Time `json:"lastLogin,omitempty"`
	DeviceName  string     `json:"deviceName"`
	DeviceType  string     `json:"deviceType"`
	Location    Location   `json:"location"`
}

// LoginResult is a successful login.
type LoginResult struct {
	Token           string         `json:"token"`
	ExpiresAt       time.Time      `json:"expiresAt"`
	LoginDeviceName string         `json:"loginDeviceName"`
	Account         AccountSummary `json:"account"`
}

// Service provides account and login operations.
type Service struct {
	accounts AccountRepository
	sessions LoginSessionRepository
	hasher   PasswordHasher
	signer   TokenSigner
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new Service. Zero Config fields take their defaults.
func NewAuthService(
	accounts AccountRepository,
	sessions LoginSessionRepository,
	hasher PasswordHasher,
	signer TokenSigner,
	cfg Config,
	opts ...ServiceOption,
) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("login session repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if signer == nil {
		return nil, oops.Errorf("token signer is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.DeviceCap <= 0 {
		cfg.DeviceCap = DefaultDeviceCap
	}

	o := applyOptions(opts)
	return &Service{
		accounts: accounts,
		sessions: sessions,
		hasher:   hasher,
		signer:   signer,
		cfg:      cfg,
		logger:   o.logger,
		now:      o.now,
	}, nil
}

// dummyPasswordHash is verified against when no account matches so that both
// paths cost one bcrypt comparison. It matches no password.
//
//nolint:gosec // G101: not a credential
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Register creates a new account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Profile, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, validationError("email", "email is required")
	}
	if req.Password == "" {
		return nil, validationError("password", "password is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, validationError("name", "name is required")
	}
	email, err := ValidateEmail(req.Email)
	if err != nil {
		return nil, err
	}

	_, err = s.accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, accountExistsError(email)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(email, req.Name, hash, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, accountExistsError(email)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	profile := account.Profile()
	return &profile, nil
}

func accountExistsError(email string) error {
	return oops.Code(CodeAccountExists).With("email", email).Errorf("account already exists")
}

func invalidCredentialsError() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid email or password")
}

// Login checks credentials, records the login, enforces the device cap and
// issues an access token. Unknown emails and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, validationError("email", "email is required")
	}
	if req.Password == "" {
		return nil, validationError("password", "password is required")
	}
	email := NormalizeEmail(req.Email)

	account, lookupErr := s.accounts.GetByEmail(ctx, email)

	var targetHash string
	var accountExists bool
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get account by email").
				Wrap(lookupErr)
		}
		targetHash = dummyPasswordHash
	} else {
		targetHash = account.PasswordHash
		accountExists = true
	}

	// Always verify so unknown emails take as long as wrong passwords.
	valid, verifyErr := s.hasher.Verify(req.Password, targetHash)
	if verifyErr != nil {
		if !accountExists {
			return nil, invalidCredentialsError()
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}
	if !accountExists || !valid {
		return nil, invalidCredentialsError()
	}

	if !account.Active {
		return nil, oops.Code(CodeAccountDisabled).
			With("account_id", account.ID.String()).
			Errorf("account is disabled")
	}

	now := s.now()
	deviceName := ResolveDeviceName(req.DeviceName, req.UserAgent)

	if err := s.accounts.RecordLogin(ctx, account.ID, now, deviceName); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "persist last login").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	account.RecordLogin(now, deviceName)

	s.upgradeHash(ctx, account, req.Password)

	session, err := NewLoginSession(account, deviceName, req.DeviceType, req.Location, now)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create login session").
			Wrap(err)
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "persist login session").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	// The record above counts toward the cap even when this login is refused.
	count, err := s.sessions.CountByAccount(ctx, account.ID)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "count login sessions").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	if count > s.cfg.DeviceCap {
		return nil, oops.Code(CodeDeviceLimit).
			With("account_id", account.ID.String()).
			With("sessions", count).
			With("cap", s.cfg.DeviceCap).
			Errorf("too many concurrent devices")
	}

	token, err := s.signer.Sign(TokenPayload{
		AccountID: account.ID.String(),
		Email:     account.Email,
		Role:      account.Role,
	}, s.cfg.TokenTTL)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "sign token").
			Wrap(err)
	}

	return &LoginResult{
		Token:           token,
		ExpiresAt:       now.Add(s.cfg.TokenTTL),
		LoginDeviceName: session.DeviceName,
		Account: AccountSummary{
			ID:          account.ID,
			Email:       account.Email,
			Name:        account.Name,
			Role:        account.Role,
			LastLoginAt: account.LastLoginAt,
			DeviceName:  session.DeviceName,
			DeviceType:  session.DeviceType,
			Location:    session.Location,
		},
	}, nil
}

// upgradeHash rehashes the password at the current cost when the stored hash differs.
func (s *Service) upgradeHash(ctx context.Context, account *Account, password string) {
	if !s.hasher.NeedsUpgrade(account.PasswordHash) {
		return
	}
	newHash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.accounts.UpdatePassword(ctx, account.ID, newHash, s.now())
	}
	if err != nil {
		s.logger.Warn("best-effort password hash upgrade failed",
			"event", "hash_upgrade_failed",
			"account_id", account.ID.String(),
			"operation", "upgrade_hash",
			"error", err.Error(),
		)
		return
	}
	account.PasswordHash = newHash
}

// GetProfile returns the account without its password hash.
func (s *Service) GetProfile(ctx context.Context, accountID ulid.ULID) (*Profile, error) {
	account, err := s.getAccount(ctx, accountID, "get profile")
	if err != nil {
		return nil, err
	}
	profile := account.Profile()
	return &profile, nil
}

// UpdateProfile replaces the display name and returns the updated profile.
func (s *Service) UpdateProfile(ctx context.Context, accountID ulid.ULID, name string) (*Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, validationError("name", "name must be at most %d characters", MaxNameLength)
	}

	now := s.now()
	if err := s.accounts.UpdateName(ctx, accountID, name, now); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, accountNotFoundError(accountID)
		}
		return nil, oops.Code("PROFILE_UPDATE_FAILED").
			With("operation", "update name").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	return s.GetProfile(ctx, accountID)
}

// Logout ends a client session. Tokens are stateless, so this only checks
// that a valid token was presented; the caller discards it.
func (s *Service) Logout(_ context.Context, token string) error {
	if token == "" {
		return oops.Code(CodeNotLoggedIn).Errorf("already logged out")
	}
	if _, err := s.signer.Verify(token); err != nil {
		return oops.Code(CodeNotLoggedIn).With("reason", err.Error()).Errorf("already logged out")
	}
	return nil
}

// Authenticate verifies an access token and returns its claims.
func (s *Service) Authenticate(_ context.Context, token string) (*TokenClaims, error) {
	if token == "" {
		return nil, oops.Code(CodeTokenInvalid).Errorf("invalid token")
	}
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, oops.Code(CodeTokenInvalid).With("reason", err.Error()).Errorf("invalid token")
	}
	return claims, nil
}

// LoginHistory returns the newest login records of an account.
// A non-positive limit selects DefaultHistoryLimit.
func (s *Service) LoginHistory(ctx context.Context, accountID ulid.ULID, limit int) ([]*LoginSession, error) {
	if _, err := s.getAccount(ctx, accountID, "login history"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	sessions, err := s.sessions.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, oops.Code("LOGIN_HISTORY_FAILED").
			With("operation", "list login sessions").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return sessions, nil
}

func (s *Service) getAccount(ctx context.Context, accountID ulid.ULID, operation string) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, accountNotFoundError(accountID)
		}
		return nil, oops.Code("ACCOUNT_LOOKUP_FAILED").
			With("operation", operation).
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return account, nil
}

func accountNotFoundError(accountID ulid.ULID) error {
	return oops.Code(CodeAccountNotFound).
		With("account_id", accountID.String()).
		Errorf("account not found")
}
