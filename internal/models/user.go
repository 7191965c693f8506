package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleCustomer  UserRole = "customer"
	RoleCraftsman UserRole = "craftsman"
	RoleAdmin     UserRole = "admin"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         UserRole  `gorm:"type:varchar(20);not null;default:'customer';index" json:"role"`
	FullName     string    `gorm:"size:150" json:"full_name"`
	Phone        string    `gorm:"size:20" json:"phone,omitempty"`
	City         string    `gorm:"size:60" json:"city,omitempty"`
	Language     string    `gorm:"type:varchar(2);default:'tr'" json:"language"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
