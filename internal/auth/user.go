// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

package auth

import (
	"context"
	"net/mail"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User represents a registered account. Exactly one record exists per
// email; the password hash is never empty once the record exists.
type User struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SanitizedUser is a user record with all credential material stripped.
// It is the only user shape that ever leaves this package.
type SanitizedUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUser creates a User with a fresh ULID and timestamps.
func NewUser(email, passwordHash string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_EMPTY_HASH").Errorf("password hash cannot be empty")
	}
	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Sanitized returns the user without the password hash.
func (u *User) Sanitized() SanitizedUser {
	return SanitizedUser{
		ID:        u.ID.String(),
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// ValidateEmail validates an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("email", email).
			Errorf("invalid email address")
	}
	return nil
}

// UserRepository manages user persistence. Emails are matched exactly,
// case-sensitively, as stored.
type UserRepository interface {
	// Create stores a new user. Returns ErrConflict if the email is
	// already taken; the store's unique index is the arbiter for
	// concurrent registrations.
	Create(ctx context.Context, user *User) error

	// GetByEmail retrieves a user by email.
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the password hash for the user with the
	// given email. Returns ErrNotFound if the user does not exist.
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}
