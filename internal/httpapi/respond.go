// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gridauth/gridauth/internal/auth"
	"github.com/gridauth/gridauth/pkg/errutil"
)

// envelope is the JSON shape of every response body.
type envelope struct {
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

func okResponse(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, envelope{Message: message, Data: data})
}

func errorResponse(c echo.Context, status int, message string, fieldErrs []FieldError) error {
	return c.JSON(status, envelope{Message: message, Errors: fieldErrs})
}

// mapError translates the core error taxonomy to a status and a safe,
// human-readable message. Anything unrecognized is an upstream failure:
// it gets logged with full context and answered with the
// operation-specific fallback, never the raw error.
func (s *Server) mapError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, auth.ErrConflict):
		return errorResponse(c, http.StatusConflict,
			"You are registered already. Please login or reset your password to login", nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return errorResponse(c, http.StatusUnprocessableEntity, "Invalid credentials.", nil)
	case errors.Is(err, auth.ErrTokenInvalid):
		return errorResponse(c, http.StatusNotFound,
			"Link expired. Please request another password reset.", nil)
	case errors.Is(err, auth.ErrNotFound):
		return errorResponse(c, http.StatusNotFound,
			"Sorry, we could not find a user with that email.", nil)
	default:
		errutil.LogError(s.logger, "request failed", err)
		return errorResponse(c, http.StatusBadGateway, fallback, nil)
	}
}
