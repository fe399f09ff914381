package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/padsync-dev/padsync/pkg/middleware"
	"github.com/padsync-dev/padsync/pkg/registry"
)

// Server is the padsync HTTP/WebSocket server: the realtime gateway plus the
// read-only health and metrics surfaces.
type Server struct {
	config   *ServerConfig
	logger   *slog.Logger
	registry *registry.Registry
	gateway  *Gateway

	router     chi.Router
	httpServer *http.Server
	promReg    *prometheus.Registry
}

// New creates a Server over the given registry. A nil config uses defaults.
// The registry is injected rather than owned so tests (and eventually an
// external store) can swap it behind the same operation contract.
func New(config *ServerConfig, reg *registry.Registry, logger *slog.Logger) *Server {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	if err := config.Validate(); err != nil {
		logger.Error("config validation failed", "error", err)
	}

	promReg := prometheus.NewRegistry()
	metrics := NewMetrics(promReg, reg)

	s := &Server{
		config:   config,
		logger:   logger,
		registry: reg,
		gateway:  NewGateway(reg, config, logger, metrics),
		promReg:  promReg,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter assembles the chi router with the standard middleware stack.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	// Request metrics and spans cover the plain HTTP surfaces only; a
	// WebSocket lives for the whole visit and would poison the latency
	// histogram.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Metrics(middleware.WithRegistry(s.promReg)))
		r.Use(middleware.OpenTelemetry())

		r.Get("/", s.handleHealth)
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))
	})

	r.Get("/ws", s.gateway.HandleWebSocket)

	return r
}

// healthResponse is the health check payload: the same shape the original
// deployment reported, so existing probes keep working.
type healthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"activeSessions"`
	TotalUsers     int    `json:"totalUsers"`
}

// handleHealth reports active session and member counts. Read-only.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.registry.Stats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:         "padsync server running",
		ActiveSessions: stats.Active,
		TotalUsers:     stats.Members,
	})
}

// Handler returns the root http.Handler, for mounting in external routers
// and for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Gateway returns the realtime gateway.
func (s *Server) Gateway() *Gateway {
	return s.gateway
}

// Run starts the server and blocks until SIGINT/SIGTERM or a listen error.
func (s *Server) Run() error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server: live connections first, then
// the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.gateway.CloseAll()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}
