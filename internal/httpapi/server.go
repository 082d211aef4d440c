// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

// Package httpapi exposes the auth flows over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"
	"golang.org/x/time/rate"

	"github.com/gridauth/gridauth/internal/auth"
	"github.com/gridauth/gridauth/internal/observability"
)

// HeaderAuthToken is the response header carrying the session token.
// The token rides out-of-band so it never lands in a cached body.
const HeaderAuthToken = "X-Auth-Token"

// Rate limits carried over from the original deployment: roughly one
// request per second app-wide, with tighter budgets on credential
// endpoints.
const (
	appRateLimit   = rate.Limit(1)
	appRateBurst   = 60
	loginRateLimit = rate.Limit(10.0 / 300.0) // 10 per 5 minutes
	loginRateBurst = 10
	resetRateLimit = rate.Limit(5.0 / 3600.0) // 5 per hour
	resetRateBurst = 5
)

// Options configures a Server.
type Options struct {
	Service *auth.Service

	// PublicURL is the reset-link origin. When empty the request's
	// Origin header is used instead.
	PublicURL string

	// CORSOrigins lists allowed origins; empty means same-origin only.
	CORSOrigins []string

	// Metrics is optional; when nil no counters are recorded.
	Metrics *observability.Metrics

	Logger *slog.Logger
}

// Server is the HTTP front of the auth service.
type Server struct {
	echo      *echo.Echo
	svc       *auth.Service
	metrics   *observability.Metrics
	publicURL string
	logger    *slog.Logger
}

// NewServer creates a Server with routes and middleware configured.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, oops.Code("HTTPAPI_INVALID").Errorf("auth service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		echo:      echo.New(),
		svc:       opts.Service,
		metrics:   opts.Metrics,
		publicURL: opts.PublicURL,
		logger:    logger,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     opts.CORSOrigins,
		AllowCredentials: true,
		ExposeHeaders:    []string{HeaderAuthToken},
	}))
	e.Use(requestLogger(logger))
	e.Use(rateLimiter(appRateLimit, appRateBurst))

	v1 := e.Group("/api/v1")
	v1.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	user := v1.Group("/user/auth")
	user.POST("/register", s.handleRegister)
	user.POST("/login", s.handleLogin, rateLimiter(loginRateLimit, loginRateBurst))
	user.POST("/request-password-reset", s.handleRequestPasswordReset, rateLimiter(resetRateLimit, resetRateBurst))
	user.GET("/verify-password-reset/:token", s.handleVerifyPasswordReset)
	user.POST("/password-reset", s.handleResetPassword, rateLimiter(resetRateLimit, resetRateBurst))

	// Reject everything outside /api/v1.
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.String(http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	return s, nil
}

// Handler returns the underlying http.Handler, used by tests and the
// serve command.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return oops.Code("HTTPAPI_SERVE_FAILED").With("addr", addr).Wrap(err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return oops.Code("HTTPAPI_STOP_FAILED").Wrap(err)
	}
	return nil
}

func rateLimiter(limit rate.Limit, burst int) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      limit,
			Burst:     burst,
			ExpiresIn: time.Hour,
		}),
	})
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)
			return nil
		},
	})
}
