package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a customer's assessment of one completed quote. The unique index
// on QuoteID is what keeps racing writers from creating a second review.
type Review struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CustomerID    uuid.UUID `gorm:"type:uuid;not null;index" json:"customer_id"`
	CraftsmanID   uuid.UUID `gorm:"type:uuid;not null;index" json:"craftsman_id"`
	QuoteID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_quote_id" json:"quote_id"`
	Rating        int       `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"`
	Comment       *string   `gorm:"type:text" json:"comment,omitempty"`
	Quality       *int      `gorm:"check:chk_reviews_quality,quality >= 1 AND quality <= 5" json:"quality,omitempty"`
	Communication *int      `gorm:"check:chk_reviews_communication,communication >= 1 AND communication <= 5" json:"communication,omitempty"`
	Punctuality   *int      `gorm:"check:chk_reviews_punctuality,punctuality >= 1 AND punctuality <= 5" json:"punctuality,omitempty"`
	Value         *int      `gorm:"check:chk_reviews_value,value >= 1 AND value <= 5" json:"value,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Relations
	Customer *User `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

func (Review) TableName() string {
	return "reviews"
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RatingSummary is the public view of a craftsman's aggregate rating.
type RatingSummary struct {
	CraftsmanID   uuid.UUID        `json:"craftsman_id"`
	AverageRating float64          `json:"average_rating"`
	TotalReviews  int              `json:"total_reviews"`
	Distribution  map[string]int64 `json:"rating_distribution"`
}
