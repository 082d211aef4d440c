// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridauth/gridauth/internal/auth"
	"github.com/gridauth/gridauth/pkg/errutil"
)

func testKeys() auth.TokenKeys {
	return auth.TokenKeys{
		Session:      []byte("session-key-for-tests-0000000000"),
		ResetRequest: []byte("reset-request-key-for-tests-0000"),
		ResetConfirm: []byte("reset-confirm-key-for-tests-0000"),
	}
}

func newTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(testKeys())
	require.NoError(t, err)
	return svc
}

func TestTokenKeys_Validate(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	tests := []struct {
		name string
		keys auth.TokenKeys
		code string
	}{
		{
			name: "missing session key",
			keys: auth.TokenKeys{ResetRequest: key, ResetConfirm: []byte("other")},
			code: "TOKEN_KEYS_MISSING",
		},
		{
			name: "missing reset keys",
			keys: auth.TokenKeys{Session: key},
			code: "TOKEN_KEYS_MISSING",
		},
		{
			name: "session key reused for reset-request",
			keys: auth.TokenKeys{Session: key, ResetRequest: key, ResetConfirm: []byte("other")},
			code: "TOKEN_KEYS_REUSED",
		},
		{
			name: "reset keys identical",
			keys: auth.TokenKeys{Session: []byte("other"), ResetRequest: key, ResetConfirm: key},
			code: "TOKEN_KEYS_REUSED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewTokenService(tt.keys)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestTokenService_SessionRoundTrip(t *testing.T) {
	svc := newTokenService(t)

	user := auth.SanitizedUser{ID: "01J0000000000000000000TEST", Email: "a@example.com"}
	token, err := svc.IssueSession(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	// Session tokens carry no expiry; valid by signature alone.
	assert.Nil(t, claims.ExpiresAt)
}

func TestTokenService_ResetRequestExchange(t *testing.T) {
	svc := newTokenService(t)

	request, err := svc.IssueResetRequest("user@example.com")
	require.NoError(t, err)

	confirm, err := svc.ExchangeResetRequest(request)
	require.NoError(t, err)
	require.NotEmpty(t, confirm)
	assert.NotEqual(t, request, confirm)

	email, err := svc.VerifyResetConfirm(confirm)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)
}

func TestTokenService_CrossKeyVerificationFails(t *testing.T) {
	svc := newTokenService(t)

	request, err := svc.IssueResetRequest("user@example.com")
	require.NoError(t, err)

	// A reset-request token must never pass reset-confirm verification:
	// the two purposes are partitioned by signing key.
	_, err = svc.VerifyResetConfirm(request)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)

	// Nor can a request token be exchanged twice through the wrong door.
	_, err = svc.VerifySession(request)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestTokenService_ExpiredRequestToken(t *testing.T) {
	svc, err := auth.NewTokenServiceWithTTLs(testKeys(), -time.Minute, auth.ResetConfirmTokenTTL)
	require.NoError(t, err)

	request, err := svc.IssueResetRequest("user@example.com")
	require.NoError(t, err)

	_, err = svc.ExchangeResetRequest(request)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	errutil.AssertErrorCode(t, err, "TOKEN_INVALID")
}

func TestTokenService_ExpiredConfirmToken(t *testing.T) {
	svc, err := auth.NewTokenServiceWithTTLs(testKeys(), auth.ResetRequestTokenTTL, -time.Minute)
	require.NoError(t, err)

	request, err := svc.IssueResetRequest("user@example.com")
	require.NoError(t, err)
	confirm, err := svc.ExchangeResetRequest(request)
	require.NoError(t, err)

	_, err = svc.VerifyResetConfirm(confirm)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestTokenService_MalformedTokens(t *testing.T) {
	svc := newTokenService(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "not a jwt", token: "garbage"},
		{name: "truncated jwt", token: "eyJhbGciOiJIUzI1NiJ9.e30"},
		{name: "unsigned", token: "eyJhbGciOiJub25lIn0.eyJlbWFpbCI6ImFAYi5jIn0."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ExchangeResetRequest(tt.token)
			assert.ErrorIs(t, err, auth.ErrTokenInvalid)

			_, err = svc.VerifyResetConfirm(tt.token)
			assert.ErrorIs(t, err, auth.ErrTokenInvalid)
		})
	}
}

func TestTokenService_TamperedToken(t *testing.T) {
	svc := newTokenService(t)

	request, err := svc.IssueResetRequest("user@example.com")
	require.NoError(t, err)

	tampered := request[:len(request)-2] + "xx"
	_, err = svc.ExchangeResetRequest(tampered)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}
