package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"routine/internal/config"
	"routine/internal/database"
	"routine/internal/pkg/logging"
	"routine/internal/repository"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	cfg, err := config.LoadAuthRuntimeConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, os.Stdout)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	tx := database.NewTransactor(db, database.DialectOf(cfg.DatabaseURL), cfg.TxMaxAttempts)
	tokens := repository.NewRefreshTokenRepository(db, tx, cfg.MaxActiveTokens).WithLogger(logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := tokens.DeleteExpired(ctx)
	if err != nil {
		log.Fatalf("cleanup refresh_tokens failed: %v", err)
	}
	logger.Info("auth cleanup completed", "refresh_tokens", deleted)
}
