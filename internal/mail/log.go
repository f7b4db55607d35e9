// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package mail

import (
	"context"
	"log/slog"

	"github.com/nextblog/nextblog-auth/internal/auth"
)

// LogMessenger writes messages to a logger instead of sending them. It is
// meant for local development where no SMTP relay is available.
type LogMessenger struct {
	logger *slog.Logger
}

var _ auth.Messenger = (*LogMessenger)(nil)

// NewLogMessenger returns a LogMessenger writing to logger, or slog.Default when nil.
func NewLogMessenger(logger *slog.Logger) *LogMessenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMessenger{logger: logger}
}

// Send logs the message at INFO. It never fails.
func (m *LogMessenger) Send(ctx context.Context, to, subject, body string) error {
	m.logger.InfoContext(ctx, "mail delivery disabled, logging message",
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}
