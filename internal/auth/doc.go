// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

// Package auth implements the registration, login, and password-reset
// protocol for gridauth.
//
// # Domain Types
//
// User records should be created through NewUser, which validates the
// email and password hash. Direct struct initialization bypasses
// validation and may create invalid state. Repository implementations
// receive pre-validated records from the constructor.
//
// # Services
//
// Service orchestrates the five operations: Register, Login,
// RequestPasswordReset, VerifyPasswordResetRequest, and ResetPassword.
// TokenService issues and verifies the signed bearer tokens that carry
// all reset-flow state; there is no server-side reset record. The two
// reset tokens are signed with distinct keys so a reset-request token
// alone can never authorize a password change.
package auth
