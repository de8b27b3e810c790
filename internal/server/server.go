// Package server exposes the demo registry, gateway and change oracle
// over HTTP and serves the browser viewer.
package server

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randomizedcoder/go-demo-viewer/internal/changes"
	"github.com/randomizedcoder/go-demo-viewer/internal/gateway"
	"github.com/randomizedcoder/go-demo-viewer/internal/metrics"
	"github.com/randomizedcoder/go-demo-viewer/internal/registry"
)

//go:embed web
var webFS embed.FS

// Config configures a Server.
type Config struct {
	Addr     string
	Registry *registry.Registry
	Gateway  *gateway.Gateway
	Oracle   *changes.Oracle

	Metrics  *metrics.Collector  // optional
	Gatherer prometheus.Gatherer // defaults to prometheus.DefaultGatherer
	Logger   *slog.Logger
}

// Server provides the JSON API, the web UI, Prometheus metrics and
// health checks.
type Server struct {
	addr     string
	registry *registry.Registry
	gateway  *gateway.Gateway
	oracle   *changes.Oracle
	metrics  *metrics.Collector
	logger   *slog.Logger

	handler  http.Handler
	server   *http.Server
	listener net.Listener
}

// New creates a server. Nothing is bound until Start.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		addr:     cfg.Addr,
		registry: cfg.Registry,
		gateway:  cfg.Gateway,
		oracle:   cfg.Oracle,
		metrics:  cfg.Metrics,
		logger:   logger,
	}

	mux := http.NewServeMux()

	// API
	mux.HandleFunc("GET /api/demos", s.handleDemos)
	mux.HandleFunc("GET /api/run/{id}", s.handleRun)
	mux.HandleFunc("GET /api/mtime/{id}", s.handleMTime)

	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Health check endpoint
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /healthz", healthHandler)

	// Ready check (same as health for now)
	mux.HandleFunc("GET /ready", healthHandler)
	mux.HandleFunc("GET /readyz", healthHandler)

	// Web UI
	static, _ := fs.Sub(webFS, "web")
	mux.Handle("GET /", http.FileServerFS(static))

	s.handler = s.logRequests(mux)

	// Writes must outlast the slowest run.
	writeTimeout := 10 * time.Second
	if cfg.Gateway != nil {
		writeTimeout += cfg.Gateway.Timeout()
	}
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  30 * time.Second,
	}
	return s
}

// Handler returns the full handler chain. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start binds the listening address and serves in a goroutine. A bind
// failure is returned to the caller; it is the only fatal condition.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.logger.Info("server_starting", "addr", ln.Addr().String())

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server_error", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("server_shutting_down")
	return s.server.Shutdown(ctx)
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// URL returns the http URL of the bound address.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}
