// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

//go:build integration

package accounts_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"regexp"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/nextblog/nextblog-auth/internal/auth"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type envelope struct {
	Status string          `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

func call(method, path string, body any, token string) (int, envelope) {
	var payload bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&payload).Encode(body)).To(Succeed())
	}
	req, err := http.NewRequest(method, env.API.URL+path, &payload)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := env.API.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var out envelope
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	return resp.StatusCode, out
}

func lastCode() string {
	messages := env.Messenger.Messages()
	Expect(messages).NotTo(BeEmpty())
	code := codePattern.FindString(messages[len(messages)-1].Body)
	Expect(code).NotTo(BeEmpty())
	return code
}

var _ = Describe("Account lifecycle", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		resetTables(ctx)
	})

	Describe("registration", func() {
		It("treats email addresses case-insensitively", func() {
			_, err := env.Auth.Register(ctx, auth.RegisterRequest{
				Email: "Reader@Example.com", Password: "s3cret", Name: "Reader",
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = env.Auth.Register(ctx, auth.RegisterRequest{
				Email: "reader@example.com", Password: "other", Name: "Other",
			})
			Expect(auth.KindOf(err)).To(Equal(auth.KindConflict))
		})

		It("never stores the plaintext password", func() {
			_, err := env.Auth.Register(ctx, auth.RegisterRequest{
				Email: "reader@example.com", Password: "s3cret", Name: "Reader",
			})
			Expect(err).NotTo(HaveOccurred())

			var stored string
			Expect(env.pool.QueryRow(ctx,
				`SELECT password_hash FROM accounts WHERE email = $1`, "reader@example.com").Scan(&stored)).To(Succeed())
			Expect(stored).NotTo(ContainSubstring("s3cret"))
			Expect(stored).To(HavePrefix("$2"))
		})
	})

	Describe("login", func() {
		BeforeEach(func() {
			_, err := env.Auth.Register(ctx, auth.RegisterRequest{
				Email: "reader@example.com", Password: "s3cret", Name: "Reader",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("records each login with defaults for missing device data", func() {
			result, err := env.Auth.Login(ctx, auth.LoginRequest{
				Email: "reader@example.com", Password: "s3cret",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Token).NotTo(BeEmpty())
			Expect(result.Account.DeviceName).To(Equal(auth.UnknownDevice))
			Expect(result.Account.Location.Country).To(Equal(auth.UnknownCountry))

			history, err := env.Auth.LoginHistory(ctx, result.Account.ID, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].Email).To(Equal("reader@example.com"))

			profile, err := env.Auth.GetProfile(ctx, result.Account.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.LastLoginAt).NotTo(BeNil())
		})

		It("refuses logins beyond the device cap and still records them", func() {
			var accountID string
			for range auth.DefaultDeviceCap {
				result, err := env.Auth.Login(ctx, auth.LoginRequest{Email: "reader@example.com", Password: "s3cret"})
				Expect(err).NotTo(HaveOccurred())
				accountID = result.Account.ID.String()
			}

			_, err := env.Auth.Login(ctx, auth.LoginRequest{Email: "reader@example.com", Password: "s3cret"})
			Expect(auth.KindOf(err)).To(Equal(auth.KindAuth))

			var count int
			Expect(env.pool.QueryRow(ctx,
				`SELECT count(*) FROM login_sessions WHERE account_id = $1`, accountID).Scan(&count)).To(Succeed())
			Expect(count).To(Equal(auth.DefaultDeviceCap + 1))
		})

		It("rejects a wrong password without recording a session", func() {
			_, err := env.Auth.Login(ctx, auth.LoginRequest{Email: "reader@example.com", Password: "nope"})
			Expect(auth.KindOf(err)).To(Equal(auth.KindAuth))

			var count int
			Expect(env.pool.QueryRow(ctx, `SELECT count(*) FROM login_sessions`).Scan(&count)).To(Succeed())
			Expect(count).To(BeZero())
		})
	})

	Describe("password reset", func() {
		BeforeEach(func() {
			_, err := env.Auth.Register(ctx, auth.RegisterRequest{
				Email: "reader@example.com", Password: "old-password", Name: "Reader",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("replaces the password once the code is verified", func() {
			Expect(env.Resets.RequestCode(ctx, "reader@example.com")).To(Succeed())

			ok, err := env.Resets.VerifyCode(ctx, "reader@example.com", lastCode())
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			Expect(env.Resets.ResetPassword(ctx, "reader@example.com", "new-password")).To(Succeed())

			_, err = env.Auth.Login(ctx, auth.LoginRequest{Email: "reader@example.com", Password: "old-password"})
			Expect(auth.KindOf(err)).To(Equal(auth.KindAuth))
			_, err = env.Auth.Login(ctx, auth.LoginRequest{Email: "reader@example.com", Password: "new-password"})
			Expect(err).NotTo(HaveOccurred())

			err = env.Resets.ResetPassword(ctx, "reader@example.com", "third-password")
			Expect(auth.KindOf(err)).To(Equal(auth.KindState))
		})

		It("keeps only the newest code per email", func() {
			Expect(env.Resets.RequestCode(ctx, "reader@example.com")).To(Succeed())
			first := lastCode()
			Expect(env.Resets.RequestCode(ctx, "reader@example.com")).To(Succeed())
			second := lastCode()

			var rows int
			Expect(env.pool.QueryRow(ctx, `SELECT count(*) FROM one_time_codes`).Scan(&rows)).To(Succeed())
			Expect(rows).To(Equal(1))

			if first != second {
				_, err := env.Resets.VerifyCode(ctx, "reader@example.com", first)
				Expect(auth.KindOf(err)).To(Equal(auth.KindMismatch))
			}
			_, err := env.Resets.VerifyCode(ctx, "reader@example.com", second)
			Expect(err).NotTo(HaveOccurred())
		})

		It("prunes expired codes", func() {
			Expect(env.Resets.RequestCode(ctx, "reader@example.com")).To(Succeed())
			_, err := env.pool.Exec(ctx, `UPDATE one_time_codes SET expires_at = now() - interval '1 minute'`)
			Expect(err).NotTo(HaveOccurred())

			removed, err := env.Resets.PruneExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(int64(1)))
		})
	})

	Describe("HTTP API", func() {
		It("runs register, login, profile and logout end to end", func() {
			status, body := call(http.MethodPost, "/api/auth/register", map[string]string{
				"email": "api@example.com", "password": "s3cret", "name": "API Reader",
			}, "")
			Expect(status).To(Equal(http.StatusCreated))
			Expect(body.Status).To(Equal("success"))

			status, body = call(http.MethodPost, "/api/auth/login", map[string]any{
				"email": "api@example.com", "password": "s3cret",
				"deviceName": "Laptop", "deviceType": "desktop",
				"location": map[string]string{"country": "Kenya", "city": "Nairobi"},
			}, "")
			Expect(status).To(Equal(http.StatusOK))
			var login auth.LoginResult
			Expect(json.Unmarshal(body.Data, &login)).To(Succeed())
			Expect(login.Account.Location.City).To(Equal("Nairobi"))

			status, body = call(http.MethodGet, "/api/auth/user-profile", nil, login.Token)
			Expect(status).To(Equal(http.StatusOK))
			var profile auth.Profile
			Expect(json.Unmarshal(body.Data, &profile)).To(Succeed())
			Expect(profile.Email).To(Equal("api@example.com"))
			Expect(profile.LastDeviceName).To(Equal("Laptop"))

			status, _ = call(http.MethodGet, "/api/auth/logout", nil, login.Token)
			Expect(status).To(Equal(http.StatusOK))
		})

		It("runs the reset-code flow end to end", func() {
			status, _ := call(http.MethodPost, "/api/auth/register", map[string]string{
				"email": "forgot@example.com", "password": "old", "name": "Forgetful",
			}, "")
			Expect(status).To(Equal(http.StatusCreated))

			status, _ = call(http.MethodPost, "/api/forget/send-otp", map[string]string{"email": "forgot@example.com"}, "")
			Expect(status).To(Equal(http.StatusOK))

			status, _ = call(http.MethodPost, "/api/forget/verify-otp", map[string]string{
				"email": "forgot@example.com", "otp": lastCode(),
			}, "")
			Expect(status).To(Equal(http.StatusOK))

			status, _ = call(http.MethodPost, "/api/forget/reset-password", map[string]string{
				"email": "forgot@example.com", "password": "new",
			}, "")
			Expect(status).To(Equal(http.StatusOK))

			status, _ = call(http.MethodPost, "/api/auth/login", map[string]string{
				"email": "forgot@example.com", "password": "new",
			}, "")
			Expect(status).To(Equal(http.StatusOK))
		})
	})
})
