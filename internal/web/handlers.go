// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/nextblog/nextblog-auth/internal/auth"
)

// Account event names recorded in metrics.
const (
	eventRegister      = "register"
	eventLogin         = "login"
	eventLogout        = "logout"
	eventRequestCode   = "request_code"
	eventVerifyCode    = "verify_code"
	eventResetPassword = "reset_password"
)

type registerBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginBody struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceName string `json:"deviceName"`
	DeviceType string `json:"deviceType"`
	Location   struct {
		Country string `json:"country"`
		City    string `json:"city"`
	} `json:"location"`
}

type profileUpdateBody struct {
	Name string `json:"name"`
}

type emailBody struct {
	Email string `json:"email"`
}

type verifyCodeBody struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// resetPasswordBody accepts newPassword as an alias of password.
type resetPasswordBody struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

func (b resetPasswordBody) password() string {
	if b.Password != "" {
		return b.Password
	}
	return b.NewPassword
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if !decodeBody(w, r, &body) {
		return
	}

	profile, err := s.accounts.Register(r.Context(), auth.RegisterRequest{
		Email:    body.Email,
		Password: body.Password,
		Name:     body.Name,
	})
	s.metrics.RecordAuthEvent(eventRegister, err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "User registered successfully", profile)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := s.accounts.Login(r.Context(), auth.LoginRequest{
		Email:      body.Email,
		Password:   body.Password,
		DeviceName: body.DeviceName,
		DeviceType: body.DeviceType,
		UserAgent:  r.UserAgent(),
		Location:   requestLocation(r, body.Location.Country, body.Location.City),
	})
	s.metrics.RecordAuthEvent(eventLogin, err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, s.tokenCookie(result.Token, result.ExpiresAt))
	writeJSON(w, http.StatusOK, Envelope{
		Status: StatusSuccess,
		Msg:    "Login successful",
		Token:  result.Token,
		Data:   result,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	err := s.accounts.Logout(r.Context(), tokenFromRequest(r))
	s.metrics.RecordAuthEvent(eventLogout, err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, s.expiredCookie())
	writeSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := s.callerID(w, r)
	if !ok {
		return
	}
	profile, err := s.accounts.GetProfile(r.Context(), accountID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User profile", profile)
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	accountID, ok := s.callerID(w, r)
	if !ok {
		return
	}
	var body profileUpdateBody
	if !decodeBody(w, r, &body) {
		return
	}

	profile, err := s.accounts.UpdateProfile(r.Context(), accountID, body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Profile updated successfully", profile)
}

func (s *Server) handleLoginHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := s.callerID(w, r)
	if !ok {
		return
	}
	s.writeLoginHistory(w, r, accountID)
}

func (s *Server) handleAdminProfile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	profile, err := s.accounts.GetProfile(r.Context(), accountID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Account profile", profile)
}

func (s *Server) handleAdminLoginHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r)
	if !ok {
		return
	}
	s.writeLoginHistory(w, r, accountID)
}

func (s *Server) writeLoginHistory(w http.ResponseWriter, r *http.Request, accountID ulid.ULID) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeFail(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := s.accounts.LoginHistory(r.Context(), accountID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*auth.LoginSession{}
	}
	writeSuccess(w, http.StatusOK, "Login history", sessions)
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var body emailBody
	if !decodeBody(w, r, &body) {
		return
	}

	err := s.resets.RequestCode(r.Context(), body.Email)
	s.metrics.RecordAuthEvent(eventRequestCode, err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "OTP sent to email", nil)
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var body verifyCodeBody
	if !decodeBody(w, r, &body) {
		return
	}

	verified, err := s.resets.VerifyCode(r.Context(), body.Email, body.OTP)
	s.metrics.RecordAuthEvent(eventVerifyCode, err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "OTP verified successfully", map[string]bool{"otpVerify": verified})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body resetPasswordBody
	if !decodeBody(w, r, &body) {
		return
	}

	err := s.resets.ResetPassword(r.Context(), body.Email, body.password())
	s.metrics.RecordAuthEvent(eventResetPassword, err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password reset successfully", nil)
}

// callerID returns the account id of the authenticated caller.
func (s *Server) callerID(w http.ResponseWriter, r *http.Request) (ulid.ULID, bool) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		writeFail(w, http.StatusUnauthorized, "invalid token")
		return ulid.ULID{}, false
	}
	id, err := ulid.Parse(claims.AccountID)
	if err != nil {
		writeFail(w, http.StatusUnauthorized, "invalid token")
		return ulid.ULID{}, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (ulid.ULID, bool) {
	id, err := ulid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "invalid account id")
		return ulid.ULID{}, false
	}
	return id, true
}

func (s *Server) tokenCookie(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(s.cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}

func (s *Server) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}
