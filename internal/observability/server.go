// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gridauth Contributors

// Package observability provides HTTP endpoints for metrics and health checks.
package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker returns whether the service is ready to accept requests.
type ReadinessChecker func() bool

// Metrics contains the custom Prometheus metrics for gridauth.
type Metrics struct {
	RegistrationsTotal *prometheus.CounterVec
	LoginsTotal        *prometheus.CounterVec
	ResetsTotal        *prometheus.CounterVec
}

// NewMetrics creates and registers the gridauth metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridauth_registrations_total",
				Help: "Total number of registration attempts by status",
			},
			[]string{"status"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridauth_logins_total",
				Help: "Total number of login attempts by status",
			},
			[]string{"status"},
		),
		ResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridauth_password_resets_total",
				Help: "Total number of password-reset steps by stage and status",
			},
			[]string{"stage", "status"},
		),
	}
	reg.MustRegister(m.RegistrationsTotal, m.LoginsTotal, m.ResetsTotal)
	return m
}

// Server serves /metrics, /healthz, and /readyz on its own listener,
// separate from the API so scrapes never compete with user traffic.
type Server struct {
	addr       string
	ready      ReadinessChecker
	registry   *prometheus.Registry
	metrics    *Metrics
	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a Server with a fresh registry carrying the Go and
// process collectors plus the gridauth metrics.
func NewServer(addr string, ready ReadinessChecker) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Server{
		addr:     addr,
		ready:    ready,
		registry: registry,
		metrics:  NewMetrics(registry),
	}
}

// Metrics returns the registered gridauth metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins listening. The returned channel yields the terminal
// serve error, if any.
func (s *Server) Start() (<-chan error, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, oops.Code("OBSERVABILITY_LISTEN_FAILED").
			With("addr", s.addr).
			Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok")) //nolint:errcheck // Best effort
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if s.ready != nil && !s.ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := s.httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			errChan <- serveErr
		}
		close(errChan)
	}()

	slog.Info("observability server listening", "addr", listener.Addr().String())
	return errChan, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return oops.Code("OBSERVABILITY_STOP_FAILED").Wrap(err)
	}
	return nil
}
