package main

import (
	"context"
	"flag"
	"log"

	"github.com/P3chys/ustam-api/internal/config"
	"github.com/P3chys/ustam-api/internal/database"
	"github.com/P3chys/ustam-api/internal/logger"
	"github.com/P3chys/ustam-api/internal/repository"
	"github.com/P3chys/ustam-api/internal/services"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	seed := flag.Bool("seed", true, "insert default categories and the admin account")
	flag.Parse()

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

	zl.Info("starting migration")

	db, err := database.Connect(cfg.DatabaseURL, zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}

	reviews := services.NewReviewService(repository.NewGormStore(db), services.ReviewDeps{Logger: zl.Named("reviews")})
	migrate := func() error { return database.RunMigrations(db, zl) }
	if err := database.Upgrade(context.Background(), db, zl, migrate, reviews.RecomputeAll); err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}

	if *seed {
		if _, err := database.SeedCategories(db, zl); err != nil {
			zl.Fatal("failed to seed categories", zap.Error(err))
		}
		if err := database.SeedAdmin(db, cfg, zl); err != nil {
			zl.Fatal("failed to seed admin", zap.Error(err))
		}
	}

	verify(db, zl)
	zl.Info("migration completed successfully")
}

// verify logs reviews that point at quotes which are not completed. Those
// predate the completion rule and are left for manual review.
func verify(db *gorm.DB, zl *zap.Logger) {
	var orphaned int64
	db.Table("reviews").
		Joins("JOIN quotes ON quotes.id = reviews.quote_id").
		Where("quotes.status <> ?", "completed").
		Count(&orphaned)

	if orphaned > 0 {
		zl.Warn("reviews found on quotes that are not completed", zap.Int64("count", orphaned))
	}
}
