package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Craftsman is the service-provider profile attached to a craftsman user.
// AverageRating and TotalReviews are maintained by the review service only.
type Craftsman struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CategoryID      uuid.UUID `gorm:"type:uuid;not null;index" json:"category_id"`
	BusinessName    string    `gorm:"size:200;not null" json:"business_name"`
	Bio             string    `gorm:"type:text" json:"bio,omitempty"`
	City            string    `gorm:"size:60;not null;index" json:"city"`
	District        string    `gorm:"size:60" json:"district,omitempty"`
	YearsExperience int       `gorm:"default:0" json:"years_experience"`
	HourlyRate      float64   `gorm:"type:numeric(10,2);default:0" json:"hourly_rate"`
	AvatarPath      string    `gorm:"size:500" json:"-"`
	IsVerified      bool      `gorm:"default:false" json:"is_verified"`
	AverageRating   float64   `gorm:"not null;default:0;index" json:"average_rating"`
	TotalReviews    int       `gorm:"not null;default:0" json:"total_reviews"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relations
	User     User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	// Computed
	HasAvatar bool `gorm:"-" json:"has_avatar"`
}

func (Craftsman) TableName() string {
	return "craftsmen"
}

func (c *Craftsman) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Craftsman) AfterFind(tx *gorm.DB) error {
	c.HasAvatar = c.AvatarPath != ""
	return nil
}
