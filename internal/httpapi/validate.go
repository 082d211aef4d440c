// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

package httpapi

import "github.com/gridauth/gridauth/internal/auth"

// FieldError names a field that failed validation and why.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const minPasswordLength = 6

// Field checks return nil when the value is acceptable. Shapes are
// declared as lists of checks so each endpoint's contract reads as
// data, not control flow.
type fieldCheck func() *FieldError

func checkEmail(field, value string) fieldCheck {
	return func() *FieldError {
		if value == "" {
			return &FieldError{Field: field, Message: field + " is required"}
		}
		if err := auth.ValidateEmail(value); err != nil {
			return &FieldError{Field: field, Message: field + " must be a valid email address"}
		}
		return nil
	}
}

func checkRequired(field, value string) fieldCheck {
	return func() *FieldError {
		if value == "" {
			return &FieldError{Field: field, Message: field + " is required"}
		}
		return nil
	}
}

func checkPassword(field, value string) fieldCheck {
	return func() *FieldError {
		if len(value) < minPasswordLength {
			return &FieldError{Field: field, Message: field + " must be at least 6 characters"}
		}
		return nil
	}
}

func checkMatch(field, value, other string) fieldCheck {
	return func() *FieldError {
		if value != other {
			return &FieldError{Field: field, Message: field + " does not match password"}
		}
		return nil
	}
}

func runChecks(checks ...fieldCheck) []FieldError {
	var errs []FieldError
	for _, check := range checks {
		if fe := check(); fe != nil {
			errs = append(errs, *fe)
		}
	}
	return errs
}

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r registerRequest) validate() []FieldError {
	return runChecks(
		checkEmail("email", r.Email),
		checkPassword("password", r.Password),
		checkMatch("confirmPassword", r.ConfirmPassword, r.Password),
	)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) validate() []FieldError {
	return runChecks(
		checkEmail("email", r.Email),
		checkPassword("password", r.Password),
	)
}

type resetRequestRequest struct {
	Email string `json:"email"`
}

func (r resetRequestRequest) validate() []FieldError {
	return runChecks(
		checkEmail("email", r.Email),
	)
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r resetPasswordRequest) validate() []FieldError {
	return runChecks(
		checkRequired("token", r.Token),
		checkPassword("password", r.Password),
		checkMatch("confirmPassword", r.ConfirmPassword, r.Password),
	)
}
