package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityQuoteRequested ActivityType = "quote_requested"
	ActivityQuoteCompleted ActivityType = "quote_completed"
	ActivityReviewCreated  ActivityType = "review_created"
	ActivityReviewUpdated  ActivityType = "review_updated"
	ActivityReviewDeleted  ActivityType = "review_deleted"
)

type Activity struct {
	ID           uuid.UUID    `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID       uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	ActivityType ActivityType `gorm:"type:varchar(50);not null;index" json:"activity_type"`
	CraftsmanID  *uuid.UUID   `gorm:"type:uuid;index" json:"craftsman_id,omitempty"`
	QuoteID      *uuid.UUID   `gorm:"type:uuid;index" json:"quote_id,omitempty"`
	Metadata     string       `gorm:"type:jsonb;default:'{}'" json:"metadata,omitempty"`
	CreatedAt    time.Time    `gorm:"index" json:"created_at"`

	// Relations
	User      User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Craftsman *Craftsman `gorm:"foreignKey:CraftsmanID" json:"craftsman,omitempty"`
}

func (Activity) TableName() string {
	return "activities"
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	return nil
}
