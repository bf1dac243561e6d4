package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rugsync/internal/api"
	"rugsync/internal/api/handlers"
	"rugsync/internal/config"
	"rugsync/internal/database"
	"rugsync/internal/logger"
	"rugsync/internal/runtracker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Initialize logger
	logger := logger.NewWithFile(cfg.LogLevel, filepath.Join(cfg.LogDir, "api.log"))
	defer logger.Sync()

	// Initialize database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tracker handlers.LastRunReader = runtracker.NewGormStore(db.DB)
	if cfg.RedisURL != "" {
		redisStore, err := runtracker.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to redis: %v", err)
		}
		defer redisStore.Close()
		tracker = redisStore
	}

	// Initialize API server
	server := api.New(cfg, logger, db, tracker)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
}
