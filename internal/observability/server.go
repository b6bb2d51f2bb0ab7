// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SheetVault Contributors

// Package observability serves Prometheus metrics and health probes.
package observability

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/sheetvault/sheetvault/internal/access"
	"github.com/sheetvault/sheetvault/internal/character"
	"github.com/sheetvault/sheetvault/internal/sheet"
	"github.com/sheetvault/sheetvault/internal/store"
)

// PingTimeout bounds the database ping behind the readiness probe.
const PingTimeout = 2 * time.Second

// Metrics holds the SheetVault application metrics.
type Metrics struct {
	AccessDecisions   *prometheus.CounterVec
	VisibleCharacters *prometheus.HistogramVec
}

// NewMetrics creates and registers the application metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AccessDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheetvault_access_decisions_total",
				Help: "Total number of character access decisions by policy and outcome",
			},
			[]string{"policy", "outcome"},
		),
		VisibleCharacters: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sheetvault_visible_characters",
				Help:    "Number of characters returned by a home listing, by role",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
			},
			[]string{"role"},
		),
	}

	reg.MustRegister(m.AccessDecisions)
	reg.MustRegister(m.VisibleCharacters)

	return m
}

// RecordDecision counts one authorization outcome.
func (m *Metrics) RecordDecision(kind access.Kind, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.AccessDecisions.WithLabelValues(kind.String(), outcome).Inc()
}

// RecordVisible observes the size of a home listing.
func (m *Metrics) RecordVisible(role sheet.Role, count int) {
	m.VisibleCharacters.WithLabelValues(string(role)).Observe(float64(count))
}

var _ character.Recorder = (*Metrics)(nil)

// Server exposes the metrics registry and the health probes on one listener.
// Readiness follows the database: the probe answers 503 while a ping fails.
type Server struct {
	addr     string
	registry *prometheus.Registry
	metrics  *Metrics
	dbReady  func() bool

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
}

// NewServer creates a server for addr ("127.0.0.1:9100", ":0", ...). db may be
// nil, in which case readiness always succeeds.
func NewServer(addr string, db store.Pinger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	dbReady := func() bool { return true }
	if db != nil {
		dbReady = store.ReadinessProbe(db, PingTimeout)
	}

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		dbReady:  dbReady,
	}
}

// Metrics returns the application metrics. They implement character.Recorder.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start listens and serves in the background. Serve failures arrive on the
// returned channel, which is closed once the server has stopped.
func (s *Server) Start() (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.http != nil {
		return nil, oops.Code("OBSERVABILITY_RUNNING").With("addr", s.listener.Addr().String()).Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, oops.Code("OBSERVABILITY_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.listener = listener
	s.http = srv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- oops.Code("OBSERVABILITY_SERVE_FAILED").With("addr", listener.Addr().String()).Wrap(err)
		}
	}()

	slog.Info("observability server listening", "addr", listener.Addr().String())
	return errCh, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/healthz/liveness", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)
	return mux
}

// Stop shuts the server down. Stopping a server that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.http == nil {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil {
		return oops.Code("OBSERVABILITY_STOP_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.http = nil
	s.listener = nil
	slog.Info("observability server stopped")
	return nil
}

// Addr returns the bound address, or "" when the server is not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if !s.dbReady() {
		writeHealth(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeHealth(w, http.StatusOK, "ok")
}

func writeHealth(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body + "\n")) //nolint:errcheck // client may have gone away
}
