// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

package auth

import "context"

// ResetMailer delivers a password-reset link to a user. The core only
// depends on the fire-and-forget success/failure signal; composition
// and transport live in internal/mail.
type ResetMailer interface {
	SendResetLink(ctx context.Context, recipient, link string) error
}
