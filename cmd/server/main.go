package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/copywatch/service/config"
	"github.com/brojonat/copywatch/service/db"
	"github.com/brojonat/copywatch/service/dex"
	"github.com/brojonat/copywatch/service/metrics"
	"github.com/brojonat/copywatch/service/monitor"
	natspkg "github.com/brojonat/copywatch/service/nats"
	"github.com/brojonat/copywatch/service/server"
	"github.com/brojonat/copywatch/service/solana"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// Verify database connection
	if err := dbPool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Apply schema migrations
	if err := db.ApplyMigrations(ctx, dbPool); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database store
	store := db.NewStore(dbPool)

	// Initialize metrics collector
	m := metrics.NewMetrics(nil)

	// Initialize Solana RPC client
	// Note: For premium RPC endpoints, include API key in the URL
	solanaRPC := solana.NewRPCClient(cfg.SolanaRPCURL)
	solanaClient := solana.NewClient(solanaRPC, m, logger)
	logger.Info("initialized solana RPC client", "url", cfg.SolanaRPCURL)

	// Initialize NATS publisher
	publisher, err := natspkg.NewPublisher(cfg.NATSURL, m, logger)
	if err != nil {
		logger.Error("failed to initialize NATS publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// Initialize signal streamer for SSE/WebSocket fan-out
	streamer, err := server.NewSignalStreamer(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to initialize signal streamer", "error", err)
		os.Exit(1)
	}

	// Every monitor delivers signals to the database and to NATS
	sinks := []monitor.SignalSink{
		db.NewTradeRecorder(store, logger),
		publisher,
	}

	registry := dex.DefaultRegistry()
	logger.Info("dex registry loaded", "dexes", registry.Names())

	// Initialize the monitor manager
	manager := monitor.NewManager(solanaClient, registry, sinks, monitor.Options{
		PollInterval: cfg.PollInterval,
		PageLimit:    cfg.SignaturePageLimit,
		Metrics:      m,
		Logger:       logger,
	}, logger)
	defer manager.StopAll()

	// Resume monitoring wallets that were registered before the restart
	if err := resumeWatchedWallets(ctx, store, manager, logger); err != nil {
		logger.Error("failed to resume watched wallets", "error", err)
		os.Exit(1)
	}

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, cfg, store, manager, streamer, m, logger)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// resumeWatchedWallets starts a monitor for every wallet already registered
// in the database, so a restart picks up where it left off.
func resumeWatchedWallets(ctx context.Context, store *db.Store, manager *monitor.Manager, logger *slog.Logger) error {
	wallets, err := store.ListWatchedWallets(ctx)
	if err != nil {
		return err
	}

	for _, wallet := range wallets {
		if err := manager.Watch(ctx, wallet.Address); err != nil {
			return err
		}
	}

	if len(wallets) > 0 {
		logger.Info("resumed watched wallets", "count", len(wallets))
	}
	return nil
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
