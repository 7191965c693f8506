package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DedupeLegacyReviews keeps the oldest review per quote on databases created
// before the unique index on reviews.quote_id, so that RunMigrations can
// build it. It returns the number of reviews removed and is a no-op on a
// fresh database or once the index exists.
func DedupeLegacyReviews(db *gorm.DB, log *zap.Logger) (int64, error) {
	var tableExists bool
	err := db.Raw("SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = CURRENT_SCHEMA() AND table_name = 'reviews')").
		Scan(&tableExists).Error
	if err != nil {
		return 0, fmt.Errorf("check reviews table: %w", err)
	}
	if !tableExists {
		return 0, nil
	}

	var indexExists bool
	err = db.Raw("SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE tablename = 'reviews' AND indexname = 'idx_reviews_quote_id')").
		Scan(&indexExists).Error
	if err != nil {
		return 0, fmt.Errorf("check review quote index: %w", err)
	}
	if indexExists {
		log.Debug("review quote index present, nothing to clean")
		return 0, nil
	}

	result := db.Exec(`
		DELETE FROM reviews r
		USING reviews older
		WHERE r.quote_id = older.quote_id
		  AND (r.created_at, r.id) > (older.created_at, older.id)
	`)
	if result.Error != nil {
		return 0, fmt.Errorf("delete duplicate reviews: %w", result.Error)
	}
	log.Info("removed duplicate reviews", zap.Int64("deleted", result.RowsAffected))
	return result.RowsAffected, nil
}

// Upgrade brings a database to the current schema. Duplicate reviews are
// removed before migrate builds the unique index, and ratings are recomputed
// afterwards when any review was removed.
func Upgrade(ctx context.Context, db *gorm.DB, log *zap.Logger, migrate func() error, recompute func(context.Context) (int, error)) error {
	deleted, err := DedupeLegacyReviews(db, log)
	if err != nil {
		return err
	}

	if err := migrate(); err != nil {
		return err
	}

	if deleted == 0 {
		return nil
	}
	done, err := recompute(ctx)
	if err != nil {
		return fmt.Errorf("recompute ratings: %w", err)
	}
	log.Info("ratings recomputed after review cleanup", zap.Int("craftsmen", done))
	return nil
}
