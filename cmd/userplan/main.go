// Command userplan sets a user's billing plan. It stands in for the billing
// integration until one posts plan changes directly.
package main

import (
	"context"
	"flag"
	"time"

	"macrotrack/internal/config"
	"macrotrack/internal/logger"
	"macrotrack/internal/model"
	"macrotrack/internal/repository"
	"macrotrack/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	userID := flag.String("id", "", "User ID (auth subject)")
	plan := flag.String("plan", "", "Plan: free|paid")
	flag.Parse()

	logger := logger.New("userplan")

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Error loading config")
	}
	if *userID == "" {
		logger.Fatal().Msg("-id is required")
	}
	if cfg.DBConnectionString == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBConnectionString)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open DB pool")
	}
	defer pool.Close()

	users := service.NewUserService(repository.NewUserRepo(pool), logger)
	if err := users.SetPlan(ctx, *userID, model.Plan(*plan)); err != nil {
		logger.Fatal().Err(err).Str("user_id", *userID).Str("plan", *plan).Msg("Failed to set plan")
	}
}
