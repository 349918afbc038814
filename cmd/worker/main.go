package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"app/internal/config"
	"app/internal/logger"
	"app/internal/queue"
	"app/internal/repository"
	"app/internal/storage"
	"app/internal/worker"

	"github.com/joho/godotenv"
)

func main() {
	logger := logger.New()

	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := repository.Open(ctx, cfg.DBConnectionString)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer db.Close()
	logger.Info().Msg("Database connection established")

	store, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to create storage client: %v", err)
	}

	queueClient := queue.New(db)
	fileRepo := repository.NewFileRepo(db)
	userRepo := repository.NewUserRepo(db)
	runner := worker.NewExecRunner(cfg.FixerPath, time.Duration(cfg.FixerTimeoutSec)*time.Second)
	proc := worker.NewProcessor(fileRepo, userRepo, store, runner, os.TempDir(), logger)

	if err := worker.Run(ctx, cfg, queueClient, proc, logger); err != nil {
		logger.Fatal().Msgf("Worker failed: %v", err)
	}

	logger.Info().Msg("Worker stopped gracefully")
}
