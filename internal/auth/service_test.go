// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridauth/gridauth/internal/auth"
	"github.com/gridauth/gridauth/pkg/errutil"
)

// fakeUserRepo is an in-memory UserRepository with the same uniqueness
// semantics as the Mongo implementation.
type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]*auth.User
	failAll error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*auth.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	if _, ok := r.users[user.Email]; ok {
		return auth.ErrConflict
	}
	clone := *user
	r.users[user.Email] = &clone
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	user, ok := r.users[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, email, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	user, ok := r.users[email]
	if !ok {
		return auth.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now()
	return nil
}

// fakeMailer records dispatched reset links.
type fakeMailer struct {
	mu    sync.Mutex
	sent  []string
	links []string
	fail  error
}

func (m *fakeMailer) SendResetLink(_ context.Context, recipient, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, recipient)
	m.links = append(m.links, link)
	return nil
}

type serviceFixture struct {
	svc    *auth.Service
	repo   *fakeUserRepo
	mailer *fakeMailer
	tokens *auth.TokenService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	repo := newFakeUserRepo()
	mailer := &fakeMailer{}
	tokens := newTokenService(t)
	svc, err := auth.NewService(repo, auth.NewBcryptHasher(), tokens, mailer)
	require.NoError(t, err)
	return &serviceFixture{svc: svc, repo: repo, mailer: mailer, tokens: tokens}
}

func TestNewService_NilDependencies(t *testing.T) {
	repo := newFakeUserRepo()
	hasher := auth.NewBcryptHasher()
	tokens := newTokenService(t)
	mailer := &fakeMailer{}

	tests := []struct {
		name        string
		users       auth.UserRepository
		hasher      auth.PasswordHasher
		tokens      *auth.TokenService
		mailer      auth.ResetMailer
		expectError string
	}{
		{"nil user repository", nil, hasher, tokens, mailer, "user repository is required"},
		{"nil password hasher", repo, nil, tokens, mailer, "password hasher is required"},
		{"nil token service", repo, hasher, nil, mailer, "token service is required"},
		{"nil reset mailer", repo, hasher, tokens, nil, "reset mailer is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewService(tt.users, tt.hasher, tt.tokens, tt.mailer)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestService_RegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	user, err := f.svc.Register(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, user.ID)

	loggedIn, token, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, token)

	claims, err := f.tokens.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestService_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.Register(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "alice@example.com", "different")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrConflict)
	errutil.AssertErrorCode(t, err, "AUTH_ALREADY_REGISTERED")
}

func TestService_RegisterRaceLoserGetsConflict(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Register(ctx, "alice@example.com", "hunter22")
		}(i)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, auth.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
}

func TestService_RegisterInvalidEmail(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.Register(ctx, "not-an-email", "hunter22")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_EMAIL")
}

func TestService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.Register(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, "bob@example.com", "hunter22")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, "alice@example.com", "wrong")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		f.repo.failAll = assert.AnError
		defer func() { f.repo.failAll = nil }()
		_, _, err := f.svc.Login(ctx, "alice@example.com", "hunter22")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})
}

func TestService_RequestPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.Register(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	t.Run("dispatches link for known email", func(t *testing.T) {
		err := f.svc.RequestPasswordReset(ctx, "alice@example.com", "https://app.example.com/")
		require.NoError(t, err)
		require.Len(t, f.mailer.sent, 1)
		assert.Equal(t, "alice@example.com", f.mailer.sent[0])
		assert.Contains(t, f.mailer.links[0], "https://app.example.com/reset-password/")
	})

	t.Run("unknown email fails with not found", func(t *testing.T) {
		err := f.svc.RequestPasswordReset(ctx, "ghost@example.com", "https://app.example.com")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("mailer failure surfaces as dispatch failure", func(t *testing.T) {
		f.mailer.fail = assert.AnError
		defer func() { f.mailer.fail = nil }()
		err := f.svc.RequestPasswordReset(ctx, "alice@example.com", "https://app.example.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_RESET_DISPATCH_FAILED")
	})
}

func TestService_FullResetFlow(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.Register(ctx, "alice@example.com", "oldpassword")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@example.com", "https://app.example.com"))
	require.Len(t, f.mailer.links, 1)

	// Extract the reset-request token from the dispatched link.
	link := f.mailer.links[0]
	prefix := "https://app.example.com/reset-password/"
	require.Contains(t, link, prefix)
	requestToken := link[len(prefix):]

	confirmToken, err := f.svc.VerifyPasswordResetRequest(ctx, requestToken)
	require.NoError(t, err)

	user, session, err := f.svc.ResetPassword(ctx, confirmToken, "newpassword")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEmpty(t, session)

	// New password works, old one is invalid credentials.
	_, _, err = f.svc.Login(ctx, "alice@example.com", "newpassword")
	require.NoError(t, err)
	_, _, err = f.svc.Login(ctx, "alice@example.com", "oldpassword")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestService_VerifyResetRequestRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.svc.VerifyPasswordResetRequest(ctx, "garbage")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("confirm token is not a request token", func(t *testing.T) {
		request, err := f.tokens.IssueResetRequest("alice@example.com")
		require.NoError(t, err)
		confirm, err := f.tokens.ExchangeResetRequest(request)
		require.NoError(t, err)

		_, err = f.svc.VerifyPasswordResetRequest(ctx, confirm)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})
}

func TestService_ResetPasswordFailures(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	t.Run("request token cannot reset directly", func(t *testing.T) {
		request, err := f.tokens.IssueResetRequest("alice@example.com")
		require.NoError(t, err)

		_, _, err = f.svc.ResetPassword(ctx, request, "newpassword")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("account vanished", func(t *testing.T) {
		request, err := f.tokens.IssueResetRequest("ghost@example.com")
		require.NoError(t, err)
		confirm, err := f.tokens.ExchangeResetRequest(request)
		require.NoError(t, err)

		_, _, err = f.svc.ResetPassword(ctx, confirm, "newpassword")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}
