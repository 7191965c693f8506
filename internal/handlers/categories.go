package handlers

import (
	"errors"
	"net/http"

	"github.com/P3chys/ustam-api/internal/apperrors"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateCategoryRequest defines the request body for creating a category
type CreateCategoryRequest struct {
	Slug        string `json:"slug" binding:"required,max=80"`
	NameTR      string `json:"name_tr" binding:"required,max=120"`
	NameEN      string `json:"name_en" binding:"omitempty,max=120"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Icon        string `json:"icon" binding:"omitempty,max=60"`
}

// UpdateCategoryRequest defines the request body for updating a category
type UpdateCategoryRequest struct {
	NameTR      *string `json:"name_tr" binding:"omitempty,max=120"`
	NameEN      *string `json:"name_en" binding:"omitempty,max=120"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Icon        *string `json:"icon" binding:"omitempty,max=60"`
	OrderIndex  *int    `json:"order_index"`
	IsActive    *bool   `json:"is_active"`
}

// ListCategories lists the active service categories
// GET /api/v1/categories
func ListCategories(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var categories []models.Category
		err := db.Where("is_active = ?", true).
			Order("order_index ASC, name_tr ASC").
			Find(&categories).Error
		if err != nil {
			respondError(c, err)
			return
		}

		respond(c, http.StatusOK, categories)
	}
}

// GetCategory returns a category by slug with its craftsman count
// GET /api/v1/categories/:slug
func GetCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var category models.Category
		if err := db.Where("slug = ?", c.Param("slug")).First(&category).Error; err != nil {
			respondError(c, dbError(err, apperrors.CodeNotFound, "Category not found"))
			return
		}

		var craftsmanCount int64
		db.Model(&models.Craftsman{}).Where("category_id = ?", category.ID).Count(&craftsmanCount)

		respond(c, http.StatusOK, gin.H{
			"category":        category,
			"craftsman_count": craftsmanCount,
		})
	}
}

// CreateCategory adds a service category (admin only)
// POST /api/v1/admin/categories
func CreateCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		// Append after the current last category
		var maxOrder int
		db.Model(&models.Category{}).Select("COALESCE(MAX(order_index), -1)").Scan(&maxOrder)

		category := models.Category{
			Slug:        req.Slug,
			NameTR:      req.NameTR,
			NameEN:      req.NameEN,
			Description: req.Description,
			Icon:        req.Icon,
			OrderIndex:  maxOrder + 1,
			IsActive:    true,
		}

		if err := db.Create(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				respondError(c, apperrors.Duplicate(apperrors.CodeConflict, "A category with this slug already exists"))
				return
			}
			respondError(c, err)
			return
		}

		respond(c, http.StatusCreated, category)
	}
}

// UpdateCategory edits a category (admin only)
// PUT /api/v1/admin/categories/:id
func UpdateCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		categoryID, ok := paramUUID(c, "id", apperrors.CodeNotFound, "Category not found")
		if !ok {
			return
		}

		var req UpdateCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		var category models.Category
		if err := db.First(&category, "id = ?", categoryID).Error; err != nil {
			respondError(c, dbError(err, apperrors.CodeNotFound, "Category not found"))
			return
		}

		updates := map[string]interface{}{}
		if req.NameTR != nil {
			updates["name_tr"] = *req.NameTR
		}
		if req.NameEN != nil {
			updates["name_en"] = *req.NameEN
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.Icon != nil {
			updates["icon"] = *req.Icon
		}
		if req.OrderIndex != nil {
			updates["order_index"] = *req.OrderIndex
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}

		if len(updates) > 0 {
			if err := db.Model(&category).Updates(updates).Error; err != nil {
				respondError(c, err)
				return
			}
		}

		respond(c, http.StatusOK, category)
	}
}
