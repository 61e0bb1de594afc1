package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/brojonat/copywatch/service/config"
	"github.com/brojonat/copywatch/service/db"
	"github.com/brojonat/copywatch/service/metrics"
	"github.com/brojonat/copywatch/service/monitor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server for the copy-trading dashboard API.
type Server struct {
	addr     string
	cfg      *config.Config
	store    *db.Store
	manager  *monitor.Manager
	streamer *SignalStreamer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	server   *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The manager starts and stops wallet monitors as wallets are registered.
// The streamer is optional - if nil, SSE and WebSocket endpoints won't be available.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, cfg *config.Config, store *db.Store, manager *monitor.Manager, streamer *SignalStreamer, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		cfg:      cfg,
		store:    store,
		manager:  manager,
		streamer: streamer,
		metrics:  m,
		logger:   logger,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Wallet routes
	mux.Handle("POST /api/v1/wallets", s.instrument("/api/v1/wallets",
		handleRegisterWallet(s.store, s.manager, s.logger)))
	mux.Handle("DELETE /api/v1/wallets/{address}", s.instrument("/api/v1/wallets/{address}",
		handleUnregisterWallet(s.store, s.manager, s.logger)))
	mux.Handle("GET /api/v1/wallets", s.instrument("/api/v1/wallets",
		handleListWallets(s.store, s.manager, s.logger)))

	// Trade and position routes
	mux.Handle("GET /api/v1/trades", s.instrument("/api/v1/trades",
		handleListTrades(s.store, s.logger)))
	mux.Handle("GET /api/v1/positions/{address}", s.instrument("/api/v1/positions/{address}",
		handleGetPositions(s.store, s.logger)))
	mux.Handle("GET /api/v1/stats/{address}", s.instrument("/api/v1/stats/{address}",
		handleGetWalletStats(s.store, s.logger)))

	// Chart proxy route
	mux.Handle("GET /api/v1/chart/{mint}", s.instrument("/api/v1/chart/{mint}",
		handleChartProxy(s.cfg, s.metrics, s.logger)))

	// Signal streaming endpoints (if streamer is configured)
	if s.streamer != nil {
		mux.Handle("GET /api/v1/stream/signals/{address}", handleStreamSignals(s.streamer, s.metrics, s.logger))
		mux.Handle("GET /api/v1/stream/signals", handleStreamSignals(s.streamer, s.metrics, s.logger))
		mux.Handle("GET /api/v1/ws/signals/{address}", handleWebsocketSignals(s.streamer, s.metrics, s.logger))
		mux.Handle("GET /api/v1/ws/signals", handleWebsocketSignals(s.streamer, s.metrics, s.logger))
		s.logger.Info("signal streaming endpoints enabled")
	} else {
		s.logger.Warn("signal streamer not configured, streaming endpoints disabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	// Wrap mux with CORS middleware
	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// instrument wraps a handler with HTTP request metrics.
func (s *Server) instrument(name string, h http.Handler) http.Handler {
	if s.metrics == nil {
		return h
	}
	return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	// Close the streamer first (disconnects all stream clients)
	if s.streamer != nil {
		s.streamer.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
