// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const validationMessage = "Some fields are missing"

func (s *Server) countRegistration(status string) {
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Server) countLogin(status string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Server) countReset(stage, status string) {
	if s.metrics != nil {
		s.metrics.ResetsTotal.WithLabelValues(stage, status).Inc()
	}
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusUnprocessableEntity, validationMessage, nil)
	}
	if errs := req.validate(); len(errs) > 0 {
		return errorResponse(c, http.StatusUnprocessableEntity, validationMessage, errs)
	}

	user, err := s.svc.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		s.countRegistration("failure")
		return s.mapError(c, err,
			"Sorry, we ran into trouble trying to register you. Please try again or contact support.")
	}

	s.countRegistration("success")
	return okResponse(c, http.StatusCreated, "Success", user)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusUnprocessableEntity, validationMessage, nil)
	}
	if errs := req.validate(); len(errs) > 0 {
		return errorResponse(c, http.StatusUnprocessableEntity, validationMessage, errs)
	}

	user, token, err := s.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		s.countLogin("failure")
		return s.mapError(c, err,
			"Sorry, we ran into trouble trying to log you in. Please try again or contact support.")
	}

	s.countLogin("success")
	c.Response().Header().Set(HeaderAuthToken, token)
	return okResponse(c, http.StatusOK, "Success", user)
}

func (s *Server) handleRequestPasswordReset(c echo.Context) error {
	var req resetRequestRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusUnprocessableEntity, validationMessage, nil)
	}
	if errs := req.validate(); len(errs) > 0 {
		return errorResponse(c, http.StatusUnprocessableEntity, validationMessage, errs)
	}

	origin := s.publicURL
	if origin == "" {
		origin = c.Request().Header.Get("Origin")
	}

	if err := s.svc.RequestPasswordReset(c.Request().Context(), req.Email, origin); err != nil {
		s.countReset("request", "failure")
		return s.mapError(c, err,
			"Sorry, we ran into trouble trying to send the reset token. Please try again or contact support.")
	}

	s.countReset("request", "success")
	return okResponse(c, http.StatusOK, "Password reset token sent to "+req.Email, nil)
}

func (s *Server) handleVerifyPasswordReset(c echo.Context) error {
	confirm, err := s.svc.VerifyPasswordResetRequest(c.Request().Context(), c.Param("token"))
	if err != nil {
		s.countReset("verify", "failure")
		return s.mapError(c, err,
			"Sorry, we ran into trouble verifying the reset link. Please try again or contact support.")
	}

	s.countReset("verify", "success")
	return okResponse(c, http.StatusOK, "Success", map[string]string{"token": confirm})
}

func (s *Server) handleResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusUnprocessableEntity, validationMessage, nil)
	}
	if errs := req.validate(); len(errs) > 0 {
		return errorResponse(c, http.StatusUnprocessableEntity, validationMessage, errs)
	}

	user, token, err := s.svc.ResetPassword(c.Request().Context(), req.Token, req.Password)
	if err != nil {
		s.countReset("confirm", "failure")
		return s.mapError(c, err,
			"Sorry, we ran into trouble trying to reset your password. Please try again or contact support.")
	}

	s.countReset("confirm", "success")
	c.Response().Header().Set(HeaderAuthToken, token)
	return okResponse(c, http.StatusOK, "Successfully changed password", user)
}
