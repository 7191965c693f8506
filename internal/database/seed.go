package database

import (
	"errors"

	"github.com/P3chys/ustam-api/internal/config"
	"github.com/P3chys/ustam-api/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultCategories are the trades offered on a fresh install.
var DefaultCategories = []models.Category{
	{Slug: "elektrik", NameTR: "Elektrik", NameEN: "Electrical", Icon: "bolt", OrderIndex: 1},
	{Slug: "tesisat", NameTR: "Su Tesisatı", NameEN: "Plumbing", Icon: "droplet", OrderIndex: 2},
	{Slug: "boya-badana", NameTR: "Boya Badana", NameEN: "Painting", Icon: "paint-roller", OrderIndex: 3},
	{Slug: "marangoz", NameTR: "Marangoz", NameEN: "Carpentry", Icon: "hammer", OrderIndex: 4},
	{Slug: "klima-kombi", NameTR: "Klima ve Kombi", NameEN: "Heating and Air Conditioning", Icon: "thermometer", OrderIndex: 5},
	{Slug: "temizlik", NameTR: "Temizlik", NameEN: "Cleaning", Icon: "sparkles", OrderIndex: 6},
	{Slug: "nakliyat", NameTR: "Nakliyat", NameEN: "Moving", Icon: "truck", OrderIndex: 7},
	{Slug: "cilingir", NameTR: "Çilingir", NameEN: "Locksmith", Icon: "key", OrderIndex: 8},
}

// SeedCategories inserts the default categories that are missing, matched by
// slug. Existing rows are left untouched.
func SeedCategories(db *gorm.DB, log *zap.Logger) (int, error) {
	created := 0
	for _, category := range DefaultCategories {
		var existing models.Category
		err := db.Where("slug = ?", category.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return created, err
		}

		category.IsActive = true
		if err := db.Create(&category).Error; err != nil {
			return created, err
		}
		created++
	}

	if created > 0 {
		log.Info("seeded categories", zap.Int("created", created))
	}
	return created, nil
}

// SeedAdmin creates the configured admin account if no admin exists
func SeedAdmin(db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Debug("admin user already exists, skipping seed")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:        cfg.AdminEmail,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleAdmin,
		FullName:     cfg.AdminName,
		Language:     "tr",
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Info("created default admin user", zap.String("email", cfg.AdminEmail))
	return nil
}
