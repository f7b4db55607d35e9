// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

// Package authtest provides in-memory implementations of the auth
// repositories and collaborators for tests.
package authtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/nextblog/nextblog-auth/internal/auth"
)

// AccountStore is an in-memory AccountRepository.
// Set the *Err fields to make the matching method fail.
type AccountStore struct {
	mu       sync.Mutex
	accounts map[ulid.ULID]auth.Account

	RecordLoginErr  error
	MarkVerifiedErr error
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{accounts: make(map[ulid.ULID]auth.Account)}
}

// Create implements auth.AccountRepository.
func (s *AccountStore) Create(_ context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Email == account.Email {
			return auth.ErrDuplicate
		}
	}
	s.accounts[account.ID] = *account
	return nil
}

// GetByID implements auth.AccountRepository.
func (s *AccountStore) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &account, nil
}

// GetByEmail implements auth.AccountRepository.
func (s *AccountStore) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.accounts {
		if account.Email == email {
			return &account, nil
		}
	}
	return nil, auth.ErrNotFound
}

// RecordLogin implements auth.AccountRepository.
func (s *AccountStore) RecordLogin(_ context.Context, id ulid.ULID, at time.Time, deviceName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RecordLoginErr != nil {
		return s.RecordLoginErr
	}
	account, ok := s.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	account.RecordLogin(at, deviceName)
	s.accounts[id] = account
	return nil
}

// UpdateName implements auth.AccountRepository.
func (s *AccountStore) UpdateName(_ context.Context, id ulid.ULID, name string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	account.Name = name
	account.UpdatedAt = updatedAt
	s.accounts[id] = account
	return nil
}

// UpdatePassword implements auth.AccountRepository.
func (s *AccountStore) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return auth.ErrNotFound
	}
	account.PasswordHash = passwordHash
	account.UpdatedAt = updatedAt
	s.accounts[id] = account
	return nil
}

// MarkVerified implements auth.AccountRepository.
func (s *AccountStore) MarkVerified(_ context.Context, email string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MarkVerifiedErr != nil {
		return s.MarkVerifiedErr
	}
	for id, account := range s.accounts {
		if account.Email == email {
			account.Verified = true
			account.UpdatedAt = updatedAt
			s.accounts[id] = account
			return nil
		}
	}
	return auth.ErrNotFound
}

// Len returns the number of stored accounts.
func (s *AccountStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

// Put stores account as-is, bypassing uniqueness checks.
func (s *AccountStore) Put(account *auth.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = *account
}

// SessionStore is an in-memory LoginSessionRepository.
type SessionStore struct {
	mu       sync.Mutex
	sessions []auth.LoginSession
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// Create implements auth.LoginSessionRepository.
func (s *SessionStore) Create(_ context.Context, session *auth.LoginSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, *session)
	return nil
}

// CountByAccount implements auth.LoginSessionRepository.
func (s *SessionStore) CountByAccount(_ context.Context, accountID ulid.ULID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, session := range s.sessions {
		if session.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// ListByAccount implements auth.LoginSessionRepository.
func (s *SessionStore) ListByAccount(_ context.Context, accountID ulid.ULID, limit int) ([]*auth.LoginSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*auth.LoginSession
	for i := range s.sessions {
		if s.sessions[i].AccountID == accountID {
			session := s.sessions[i]
			out = append(out, &session)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LoginAt.After(out[j].LoginAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CodeStore is an in-memory OneTimeCodeRepository.
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]auth.OneTimeCode

	DeleteErr error
}

// NewCodeStore creates an empty CodeStore.
func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[string]auth.OneTimeCode)}
}

// GetByEmail implements auth.OneTimeCodeRepository.
func (s *CodeStore) GetByEmail(_ context.Context, email string) (*auth.OneTimeCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &code, nil
}

// Upsert implements auth.OneTimeCodeRepository.
func (s *CodeStore) Upsert(_ context.Context, code *auth.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Email] = *code
	return nil
}

// MarkVerified implements auth.OneTimeCodeRepository.
func (s *CodeStore) MarkVerified(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[email]
	if !ok {
		return auth.ErrNotFound
	}
	code.Verified = true
	s.codes[email] = code
	return nil
}

// Delete implements auth.OneTimeCodeRepository.
func (s *CodeStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	if _, ok := s.codes[email]; !ok {
		return auth.ErrNotFound
	}
	delete(s.codes, email)
	return nil
}

// DeleteExpired implements auth.OneTimeCodeRepository.
func (s *CodeStore) DeleteExpired(_ context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for email, code := range s.codes {
		if code.IsExpiredAt(t) {
			delete(s.codes, email)
			n++
		}
	}
	return n, nil
}

// Expire moves the expiry of the code for email into the past.
func (s *CodeStore) Expire(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code, ok := s.codes[email]; ok {
		code.ExpiresAt = code.CreatedAt.Add(-time.Second)
		s.codes[email] = code
	}
}

// Message is a message captured by RecordingMessenger.
type Message struct {
	To      string
	Subject string
	Body    string
}

// RecordingMessenger is a Messenger that records every message.
// Set Err to make Send fail.
type RecordingMessenger struct {
	mu       sync.Mutex
	messages []Message

	Err error
}

// Send implements auth.Messenger.
func (m *RecordingMessenger) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.messages = append(m.messages, Message{To: to, Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of the recorded messages.
func (m *RecordingMessenger) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a Clock starting at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Verify interfaces are satisfied.
var (
	_ auth.AccountRepository      = (*AccountStore)(nil)
	_ auth.LoginSessionRepository = (*SessionStore)(nil)
	_ auth.OneTimeCodeRepository  = (*CodeStore)(nil)
	_ auth.Messenger              = (*RecordingMessenger)(nil)
)
