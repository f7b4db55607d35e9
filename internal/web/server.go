// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

// Package web exposes the account services over a JSON HTTP API.
//
// Every response uses the envelope {"status", "msg", "data"} where status is
// "success", "fail" (client error) or "error" (server error).
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/rs/cors"
	"github.com/samber/oops"

	"github.com/nextblog/nextblog-auth/internal/auth"
	"github.com/nextblog/nextblog-auth/internal/observability"
)

// AccountService is the account surface used by the API.
type AccountService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.Profile, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResult, error)
	GetProfile(ctx context.Context, accountID ulid.ULID) (*auth.Profile, error)
	UpdateProfile(ctx context.Context, accountID ulid.ULID, name string) (*auth.Profile, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*auth.TokenClaims, error)
	LoginHistory(ctx context.Context, accountID ulid.ULID, limit int) ([]*auth.LoginSession, error)
}

// ResetService is the password-reset surface used by the API.
type ResetService interface {
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (bool, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
}

var (
	_ AccountService = (*auth.Service)(nil)
	_ ResetService   = (*auth.PasswordResetService)(nil)
)

// Config tunes the HTTP layer.
type Config struct {
	// AllowedOrigins lists the front-end origins permitted by CORS.
	AllowedOrigins []string
	// SecureCookies marks the token cookie Secure.
	SecureCookies bool
	// TokenTTL is the lifetime of the token cookie.
	TokenTTL time.Duration
}

// Server routes API requests to the account services.
type Server struct {
	accounts AccountService
	resets   ResetService
	cfg      Config
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records request and account-event metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates the API server.
func NewServer(accounts AccountService, resets ResetService, cfg Config, opts ...Option) (*Server, error) {
	if accounts == nil {
		return nil, oops.Errorf("account service is required")
	}
	if resets == nil {
		return nil, oops.Errorf("reset service is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = auth.DefaultTokenTTL
	}

	s := &Server{
		accounts: accounts,
		resets:   resets,
		cfg:      cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.observe)
	r.Use(s.recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", headerClientCountry, headerClientCity},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFail(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeFail(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", s.handleWelcome)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Get("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Get("/user-profile", s.handleProfile)
				r.Put("/profile-update", s.handleProfileUpdate)
				r.Get("/login-history", s.handleLoginHistory)
			})
		})

		r.Route("/forget", func(r chi.Router) {
			r.Post("/send-otp", s.handleSendCode)
			r.Post("/verify-otp", s.handleVerifyCode)
			r.Post("/reset-password", s.handleResetPassword)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAuth, requireRole(auth.RoleAdmin))
			r.Get("/accounts/{id}", s.handleAdminProfile)
			r.Get("/accounts/{id}/logins", s.handleAdminLoginHistory)
		})
	})

	return r
}

func (s *Server) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "Welcome to the NextBlog auth API", nil)
}
