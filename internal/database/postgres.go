package database

import (
	"fmt"
	"time"

	"github.com/P3chys/ustam-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the PostgreSQL pool. Errors are translated so unique
// violations surface as gorm.ErrDuplicatedKey.
func Connect(dsn string, log *zap.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("database connected")
	return db, nil
}

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Craftsman{},
		&models.Quote{},
		&models.Review{},
		&models.Payment{},
		&models.Message{},
		&models.Activity{},
	}
}

// RunMigrations creates or updates the schema, including the unique index on
// reviews.quote_id and the rating check constraints.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	log.Info("running migrations")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
