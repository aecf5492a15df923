package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"macrotrack/internal/config"
	"macrotrack/internal/logger"
	"macrotrack/internal/metrics"
	"macrotrack/internal/notifier"
	"macrotrack/internal/orchestrator/webhook"
	"macrotrack/internal/pgmq"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "", "Orchestrator mode: webhook")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address when set, e.g. :9090")
	flag.Parse()

	// Initialize logger
	logger := logger.New("orchestrator")

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Error loading config")
	}
	if cfg.DBConnectionString == "" {
		logger.Fatal().Msg("DATABASE_URL is required for the orchestrator")
	}

	// Initialize DB connection
	db, err := sql.Open("postgres", cfg.DBConnectionString)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open DB connection")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping DB")
	}
	logger.Info().Msg("Database connection established")

	// Initialize PGMQ client
	pgmqClient := pgmq.New(db)
	logger.Info().Msg("PGMQ client initialized")

	m := metrics.New()
	if *metricsAddr != "" {
		go func() {
			srv := &http.Server{Addr: *metricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
			if err := srv.ListenAndServe(); err != nil {
				logger.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Dispatch to the selected orchestrator
	var runErr error
	switch *mode {
	case "webhook":
		runErr = webhook.Run(ctx, logger, pgmqClient, notifier.NewHTTPNotifier(time.Duration(cfg.WebhookTimeoutSec)*time.Second), webhook.Options{
			Queue:           cfg.WebhookQueueName,
			PollSec:         cfg.WebhookPollTimeoutSec,
			MaxMessages:     cfg.WebhookPollMaxMsg,
			MaxRetries:      cfg.WebhookMaxRetries,
			InitialInterval: time.Duration(cfg.WebhookBackoffInitialSec) * time.Second,
			MaxInterval:     time.Duration(cfg.WebhookBackoffMaxSec) * time.Second,
			AttemptTimeout:  time.Duration(cfg.WebhookTimeoutSec) * time.Second,
			ReadErrorDelay:  time.Second,
		}, m)
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s orchestrator failed: %v", *mode, runErr)
	}

	logger.Info().Msgf("%s orchestrator stopped gracefully", *mode)
}
