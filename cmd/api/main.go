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

	"github.com/P3chys/ustam-api/internal/config"
	"github.com/P3chys/ustam-api/internal/database"
	"github.com/P3chys/ustam-api/internal/logger"
	"github.com/P3chys/ustam-api/internal/metrics"
	"github.com/P3chys/ustam-api/internal/middleware"
	"github.com/P3chys/ustam-api/internal/router"
	"github.com/P3chys/ustam-api/internal/services"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	db, err := database.Connect(cfg.DatabaseURL, zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := database.RunMigrations(db, zl); err != nil {
		zl.Fatal("migrations failed", zap.Error(err))
	}
	if _, err := database.SeedCategories(db, zl); err != nil {
		zl.Fatal("failed to seed categories", zap.Error(err))
	}
	if err := database.SeedAdmin(db, cfg, zl); err != nil {
		zl.Fatal("failed to seed admin", zap.Error(err))
	}

	ctx := context.Background()

	storage, err := services.NewStorageService(ctx, cfg)
	if err != nil {
		zl.Warn("avatar storage unavailable", zap.Error(err))
		storage = nil
	}

	rateLimiter, err := middleware.NewRateLimiter(cfg.RedisURL)
	if err != nil {
		zl.Warn("redis unavailable, rate limiting and logout revocation disabled", zap.Error(err))
		rateLimiter = nil
	} else {
		defer rateLimiter.Close()
	}

	r := router.Setup(db, cfg, router.Deps{
		Logger:      zl,
		Metrics:     metrics.New(),
		Storage:     storage,
		Search:      services.NewSearchService(cfg, zl.Named("search")),
		Email:       services.NewEmailService(cfg),
		RateLimiter: rateLimiter,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("error during server shutdown", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
