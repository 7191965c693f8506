package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/P3chys/ustam-api/internal/config"
	"github.com/P3chys/ustam-api/internal/database"
	"github.com/P3chys/ustam-api/internal/logger"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/repository"
	"github.com/P3chys/ustam-api/internal/services"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	reindex := flag.Bool("reindex", true, "push every craftsman to the search index afterwards")
	batchSize := flag.Int("batch", 100, "craftsmen per search index batch")
	flag.Parse()

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

	ctx := context.Background()

	// Side effects are skipped: the batch reindex below covers every profile
	reviews := services.NewReviewService(repository.NewGormStore(db), services.ReviewDeps{
		Logger: zl.Named("reviews"),
	})

	updated, err := reviews.RecomputeAll(ctx)
	if err != nil {
		zl.Fatal("failed to recompute ratings", zap.Int("updated", updated), zap.Error(err))
	}
	zl.Info("ratings recomputed", zap.Int("craftsmen", updated))

	if !*reindex {
		return
	}

	searchService := services.NewSearchService(cfg, zl.Named("search"))

	var dbCount int64
	if err := db.Model(&models.Craftsman{}).Count(&dbCount).Error; err != nil {
		zl.Fatal("failed to count craftsmen", zap.Error(err))
	}
	meiliCount, err := searchService.GetCraftsmanCount()
	if err != nil {
		zl.Warn("failed to count indexed craftsmen", zap.Error(err))
	}
	zl.Info("reindexing craftsmen", zap.Int64("in_db", dbCount), zap.Int64("in_index", meiliCount))

	offset := 0
	totalIndexed := 0
	for {
		var craftsmen []models.Craftsman
		err := db.Preload("Category").
			Order("created_at ASC").
			Limit(*batchSize).
			Offset(offset).
			Find(&craftsmen).Error
		if err != nil {
			zl.Fatal("failed to fetch craftsmen", zap.Int("offset", offset), zap.Error(err))
		}

		if len(craftsmen) == 0 {
			break
		}

		if err := searchService.IndexCraftsmen(craftsmen); err != nil {
			zl.Warn("failed to index batch", zap.Int("offset", offset), zap.Error(err))
		} else {
			totalIndexed += len(craftsmen)
		}

		offset += *batchSize
		time.Sleep(100 * time.Millisecond)
	}

	zl.Info("reindexing completed", zap.Int("indexed", totalIndexed))
}
