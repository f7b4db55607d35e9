// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NextBlog Contributors

package auth

import "context"

// Messenger delivers a plain-text message to an email address.
type Messenger interface {
	Send(ctx context.Context, to, subject, body string) error
}
