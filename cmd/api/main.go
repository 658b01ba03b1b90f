package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/eckcutgo/internal/config"
	"github.com/xelth-com/eckcutgo/internal/database"
	"github.com/xelth-com/eckcutgo/internal/handlers"
	"github.com/xelth-com/eckcutgo/internal/importer"
	"github.com/xelth-com/eckcutgo/internal/logging"
	"github.com/xelth-com/eckcutgo/internal/services/imports"
	"github.com/xelth-com/eckcutgo/internal/store"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.MustNew(cfg.Log, cfg.IsDevelopment())
	defer logger.Sync()

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema
	logger.Info("Synchronizing database schema")
	if err := db.AutoMigrate(); err != nil {
		logger.Warn("Migration warning", zap.Error(err))
	} else {
		logger.Info("Schema synchronized successfully")
	}

	// 4. Services
	st := store.NewGormStore(db)
	importService, err := imports.NewService(st, cfg, importer.StandardCategorizer, logger)
	if err != nil {
		logger.Fatal("Failed to create import service", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	go importService.RunJanitor(ctx, time.Minute)

	// 5. Set up HTTP router
	router := handlers.NewRouter(importService, st, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("env", cfg.NodeEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Close database (this also stops embedded PostgreSQL)
	logger.Info("Closing database connection")
	if err := db.Close(); err != nil {
		logger.Error("Database close error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
