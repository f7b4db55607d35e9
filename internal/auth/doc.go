// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

// Package auth provides the account, login and password-reset core of NextBlog.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewAccount - creates an Account with a normalized email and default role
//   - NewLoginSession - snapshots an account and device into a login record
//   - NewOneTimeCode - creates an unverified reset code with an expiry
//
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
//   - Service - register, login, profile, logout, login history
//   - PasswordResetService - request, verify and consume one-time codes
//
// Services return errors carrying a stable oops code. KindOf maps any error
// to a Kind so transports can choose a status without inspecting messages.
package auth
