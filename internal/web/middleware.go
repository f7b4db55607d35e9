// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package web

import (
	"context"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nextblog/nextblog-auth/internal/auth"
)

// TokenCookie is the cookie carrying the access token.
const TokenCookie = "token"

// Optional headers a front-end or edge proxy may set with geo data.
const (
	headerClientCountry = "X-Client-Country"
	headerClientCity    = "X-Client-City"
)

type claimsKey struct{}

// ClaimsFrom returns the verified token claims stored by the auth middleware.
func ClaimsFrom(ctx context.Context) (*auth.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.TokenClaims)
	return claims, ok
}

// tokenFromRequest reads a bearer token, falling back to the token cookie.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// requireAuth rejects requests without a valid access token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.accounts.Authenticate(r.Context(), tokenFromRequest(r))
		if err != nil {
			s.logger.DebugContext(r.Context(), "request rejected: unauthenticated",
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()),
			)
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// requireRole rejects authenticated requests whose token lacks role.
func requireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok || claims.Role != role {
				writeFail(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// observe records the route pattern, status and latency of every request.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		elapsed := time.Since(start)

		s.metrics.ObserveHTTP(route, r.Method, status, elapsed)
		s.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// recoverer turns a handler panic into a 500 envelope.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.ErrorContext(r.Context(), "handler panic",
				"panic", rec,
				"path", r.URL.Path,
				"request_id", middleware.GetReqID(r.Context()),
				"stack", string(debug.Stack()),
			)
			writeFail(w, http.StatusInternalServerError, "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// clientIP picks the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// requestLocation builds the login location from headers, with body values
// as a fallback for country and city.
func requestLocation(r *http.Request, bodyCountry, bodyCity string) auth.Location {
	loc := auth.Location{
		IP:      clientIP(r),
		Country: r.Header.Get(headerClientCountry),
		City:    r.Header.Get(headerClientCity),
	}
	if strings.TrimSpace(loc.Country) == "" {
		loc.Country = bodyCountry
	}
	if strings.TrimSpace(loc.City) == "" {
		loc.City = bodyCity
	}
	return loc
}
