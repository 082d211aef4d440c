// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"
)

// Service orchestrates registration, login, and the password-reset
// state machine. All state in the reset flow lives in the tokens the
// caller holds; the two transition edges independently re-verify their
// token's signature and expiry.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	tokens *TokenService
	mailer ResetMailer
}

// NewService creates a Service, validating dependencies.
func NewService(users UserRepository, hasher PasswordHasher, tokens *TokenService, mailer ResetMailer) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token service is required")
	}
	if mailer == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("reset mailer is required")
	}
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		mailer: mailer,
	}, nil
}

// Register creates a new account and returns the sanitized record.
// Returns ErrConflict if the email is already registered. The
// check-then-create is not atomic; the store's unique index decides
// concurrent duplicates, and the loser still surfaces ErrConflict.
//
// No session token is issued on registration; the caller is expected
// to log in.
func (s *Service) Register(ctx context.Context, email, password string) (SanitizedUser, error) {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return SanitizedUser{}, oops.Code("AUTH_ALREADY_REGISTERED").
			With("email", email).
			Wrap(ErrConflict)
	}
	if !errors.Is(err, ErrNotFound) {
		return SanitizedUser{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return SanitizedUser{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(email, hash)
	if err != nil {
		return SanitizedUser{}, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			// Lost the race against a concurrent registration.
			return SanitizedUser{}, oops.Code("AUTH_ALREADY_REGISTERED").
				With("email", email).
				Wrap(err)
		}
		return SanitizedUser{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	return user.Sanitized(), nil
}

// Login authenticates a user and issues a session token. An unknown
// email fails with ErrNotFound and a wrong password with
// ErrInvalidCredentials; the two are deliberately distinguishable.
func (s *Service) Login(ctx context.Context, email, password string) (SanitizedUser, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return SanitizedUser{}, "", oops.Code("AUTH_USER_NOT_FOUND").
				With("email", email).
				Wrap(err)
		}
		return SanitizedUser{}, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return SanitizedUser{}, "", oops.Code("AUTH_INVALID_CREDENTIALS").
			Wrap(ErrInvalidCredentials)
	}

	sanitized := user.Sanitized()
	token, err := s.tokens.IssueSession(sanitized)
	if err != nil {
		return SanitizedUser{}, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue session token").
			Wrap(err)
	}

	return sanitized, token, nil
}

// RequestPasswordReset starts the reset flow: it issues a
// reset-request token bound to the email, embeds it in a link under
// origin, and dispatches the link via the mailer. Returns ErrNotFound
// if the email has no record.
func (s *Service) RequestPasswordReset(ctx context.Context, email, origin string) error {
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_USER_NOT_FOUND").
				With("email", email).
				Wrap(err)
		}
		return oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, err := s.tokens.IssueResetRequest(email)
	if err != nil {
		return oops.Code("AUTH_RESET_REQUEST_FAILED").
			With("operation", "issue reset-request token").
			Wrap(err)
	}

	link := strings.TrimSuffix(origin, "/") + "/reset-password/" + token
	if err := s.mailer.SendResetLink(ctx, email, link); err != nil {
		return oops.Code("AUTH_RESET_DISPATCH_FAILED").
			With("operation", "send reset link").
			Wrap(err)
	}

	return nil
}

// VerifyPasswordResetRequest exchanges a valid reset-request token for
// a reset-confirm token. Any verification failure surfaces as
// ErrTokenInvalid; callers should only ever learn "link expired".
func (s *Service) VerifyPasswordResetRequest(_ context.Context, token string) (string, error) {
	confirm, err := s.tokens.ExchangeResetRequest(token)
	if err != nil {
		return "", err
	}
	return confirm, nil
}

// ResetPassword completes the flow: it verifies the reset-confirm
// token, replaces the stored hash for that email, re-reads the record
// to confirm it still exists, and returns the sanitized record with a
// fresh session token. Concurrent completions for the same email both
// succeed; last write wins.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (SanitizedUser, string, error) {
	email, err := s.tokens.VerifyResetConfirm(token)
	if err != nil {
		return SanitizedUser{}, "", err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return SanitizedUser{}, "", oops.Code("AUTH_RESET_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, email, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return SanitizedUser{}, "", oops.Code("AUTH_USER_NOT_FOUND").
				With("email", email).
				Wrap(err)
		}
		return SanitizedUser{}, "", oops.Code("AUTH_RESET_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Account vanished between the update and the re-read.
			return SanitizedUser{}, "", oops.Code("AUTH_USER_NOT_FOUND").
				With("email", email).
				Wrap(err)
		}
		return SanitizedUser{}, "", oops.Code("AUTH_RESET_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	sanitized := user.Sanitized()
	session, err := s.tokens.IssueSession(sanitized)
	if err != nil {
		return SanitizedUser{}, "", oops.Code("AUTH_RESET_FAILED").
			With("operation", "issue session token").
			Wrap(err)
	}

	return sanitized, session, nil
}
