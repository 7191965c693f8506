package services

import (
	"context"
	"encoding/json"

	"github.com/P3chys/ustam-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityService struct {
	db *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{
		db: db,
	}
}

// ActivityEntry is what callers hand to RecordActivity. CraftsmanID and
// QuoteID are optional.
type ActivityEntry struct {
	UserID      uuid.UUID
	Type        models.ActivityType
	CraftsmanID *uuid.UUID
	QuoteID     *uuid.UUID
	Metadata    map[string]interface{}
}

func (s *ActivityService) RecordActivity(ctx context.Context, entry ActivityEntry) error {
	activity := models.Activity{
		UserID:       entry.UserID,
		ActivityType: entry.Type,
		CraftsmanID:  entry.CraftsmanID,
		QuoteID:      entry.QuoteID,
		Metadata:     encodeMetadata(entry.Metadata),
	}

	return s.db.WithContext(ctx).Create(&activity).Error
}

func (s *ActivityService) GetRecentActivities(ctx context.Context, limit int, activityType string) ([]models.Activity, error) {
	var activities []models.Activity
	query := s.db.WithContext(ctx).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "full_name", "role")
		}).
		Preload("Craftsman", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "business_name", "city")
		}).
		Order("created_at desc").
		Limit(limit)
	if activityType != "" {
		query = query.Where("activity_type = ?", activityType)
	}
	err := query.Find(&activities).Error
	return activities, err
}

func encodeMetadata(metadata map[string]interface{}) string {
	if len(metadata) == 0 {
		return "{}"
	}
	bytes, err := json.Marshal(metadata)
	if err != nil {
		return "{}"
	}
	return string(bytes)
}
