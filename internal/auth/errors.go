// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

package auth

import "errors"

// Sentinel errors forming the failure taxonomy. Callers classify
// failures with errors.Is; the transport layer maps each kind to an
// HTTP status.
var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when registering an email that already
	// has a record.
	ErrConflict = errors.New("already registered")

	// ErrInvalidCredentials is returned when a password does not match
	// the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalid is returned for any reset token failure. The
	// signature-vs-expiry distinction is deliberately not exposed.
	ErrTokenInvalid = errors.New("invalid or expired token")
)
