// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

package auth

import (
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Token lifetimes for the two-phase reset flow. The request token
// outlives the confirm token so a link opened near the end of its
// window still leaves time to submit a new password.
const (
	ResetRequestTokenTTL = 11 * time.Minute
	ResetConfirmTokenTTL = 10 * time.Minute
)

// validMethods restricts verification to HS256. Tokens signed with any
// other method (including "none") are rejected outright.
var validMethods = []string{jwt.SigningMethodHS256.Alg()}

// TokenKeys holds the three independent signing keys. Capability is
// partitioned by key: a leaked reset-request key cannot forge a
// reset-confirm token or a session token.
type TokenKeys struct {
	Session      []byte
	ResetRequest []byte
	ResetConfirm []byte
}

// Validate checks that all keys are present and pairwise distinct.
func (k TokenKeys) Validate() error {
	if len(k.Session) == 0 || len(k.ResetRequest) == 0 || len(k.ResetConfirm) == 0 {
		return oops.Code("TOKEN_KEYS_MISSING").Errorf("all three signing keys are required")
	}
	if equalKeys(k.Session, k.ResetRequest) ||
		equalKeys(k.Session, k.ResetConfirm) ||
		equalKeys(k.ResetRequest, k.ResetConfirm) {
		return oops.Code("TOKEN_KEYS_REUSED").Errorf("signing keys must be pairwise distinct")
	}
	return nil
}

func equalKeys(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// SessionClaims are the claims carried by a session token: the
// sanitized user record, never the hash.
type SessionClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ResetClaims are the claims carried by both reset-flow tokens.
type ResetClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the signed bearer tokens. Tokens are
// stateless; signature validity and the expiry embedded at signing time
// are their only lifecycle controls.
type TokenService struct {
	keys       TokenKeys
	requestTTL time.Duration
	confirmTTL time.Duration
}

// NewTokenService creates a TokenService with the default reset-token
// lifetimes.
func NewTokenService(keys TokenKeys) (*TokenService, error) {
	return NewTokenServiceWithTTLs(keys, ResetRequestTokenTTL, ResetConfirmTokenTTL)
}

// NewTokenServiceWithTTLs creates a TokenService with explicit
// reset-token lifetimes.
func NewTokenServiceWithTTLs(keys TokenKeys, requestTTL, confirmTTL time.Duration) (*TokenService, error) {
	if err := keys.Validate(); err != nil {
		return nil, err
	}
	return &TokenService{
		keys:       keys,
		requestTTL: requestTTL,
		confirmTTL: confirmTTL,
	}, nil
}

// IssueSession issues a long-lived session token bound to the sanitized
// user. Session tokens carry no expiry; they are valid by signature
// alone.
func (s *TokenService) IssueSession(user SanitizedUser) (string, error) {
	claims := SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.keys.Session)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("purpose", "session").
			Wrap(err)
	}
	return signed, nil
}

// VerifySession verifies a session token and returns its claims.
func (s *TokenService) VerifySession(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.keys.Session, nil },
		jwt.WithValidMethods(validMethods),
	)
	if err != nil || !parsed.Valid {
		return nil, oops.Code("TOKEN_INVALID").
			With("purpose", "session").
			Wrap(ErrTokenInvalid)
	}
	return claims, nil
}

// IssueResetRequest issues a reset-request token bound to the email.
func (s *TokenService) IssueResetRequest(email string) (string, error) {
	return s.issueReset(email, s.keys.ResetRequest, s.requestTTL, "reset-request")
}

// ExchangeResetRequest verifies a reset-request token and mints the
// reset-confirm token for the same email. This is the only producer of
// reset-confirm tokens.
func (s *TokenService) ExchangeResetRequest(token string) (string, error) {
	email, err := s.verifyReset(token, s.keys.ResetRequest, "reset-request")
	if err != nil {
		return "", err
	}
	return s.issueReset(email, s.keys.ResetConfirm, s.confirmTTL, "reset-confirm")
}

// VerifyResetConfirm verifies a reset-confirm token and returns the
// email it is bound to.
func (s *TokenService) VerifyResetConfirm(token string) (string, error) {
	return s.verifyReset(token, s.keys.ResetConfirm, "reset-confirm")
}

func (s *TokenService) issueReset(email string, key []byte, ttl time.Duration, purpose string) (string, error) {
	now := time.Now()
	claims := ResetClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("purpose", purpose).
			Wrap(err)
	}
	return signed, nil
}

// verifyReset collapses every failure mode (bad signature, wrong key,
// expiry, malformed token) into ErrTokenInvalid.
func (s *TokenService) verifyReset(token string, key []byte, purpose string) (string, error) {
	claims := &ResetClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods(validMethods),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.Email == "" {
		return "", oops.Code("TOKEN_INVALID").
			With("purpose", purpose).
			Wrap(ErrTokenInvalid)
	}
	return claims.Email, nil
}
