package handlers

import (
	"net/http"
	"strconv"

	"github.com/P3chys/ustam-api/internal/apperrors"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UpdateCraftsmanRequest struct {
	BusinessName    *string  `json:"business_name" binding:"omitempty,min=2,max=200"`
	Bio             *string  `json:"bio" binding:"omitempty,max=2000"`
	City            *string  `json:"city" binding:"omitempty,min=2,max=60"`
	District        *string  `json:"district" binding:"omitempty,max=60"`
	YearsExperience *int     `json:"years_experience" binding:"omitempty,min=0,max=80"`
	HourlyRate      *float64 `json:"hourly_rate" binding:"omitempty,min=0"`
}

type VerifyCraftsmanRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

var craftsmanSorts = map[string]string{
	"rating":  "average_rating DESC, total_reviews DESC",
	"reviews": "total_reviews DESC, average_rating DESC",
	"newest":  "created_at DESC",
}

func publicUser(db *gorm.DB) *gorm.DB {
	return db.Select("id", "full_name", "city")
}

// ListCraftsmen lists craftsmen with optional filters
// GET /api/v1/craftsmen?category=&city=&min_rating=&verified=&sort=rating|reviews|newest&page=&per_page=
func ListCraftsmen(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := pageFromQuery(c)
		query := db.Model(&models.Craftsman{})

		if slug := c.Query("category"); slug != "" {
			query = query.Where("category_id = (?)", db.Model(&models.Category{}).Select("id").Where("slug = ?", slug))
		}
		if city := c.Query("city"); city != "" {
			query = query.Where("city ILIKE ?", city)
		}
		if raw := c.Query("min_rating"); raw != "" {
			minRating, err := strconv.ParseFloat(raw, 64)
			if err != nil || minRating < 0 || minRating > 5 {
				respondError(c, apperrors.Validation(apperrors.CodeValidation, "min_rating must be a number between 0 and 5", nil))
				return
			}
			query = query.Where("average_rating >= ?", minRating)
		}
		if c.Query("verified") == "true" {
			query = query.Where("is_verified = ?", true)
		}

		var total int64
		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			respondError(c, err)
			return
		}

		order, ok := craftsmanSorts[c.DefaultQuery("sort", "rating")]
		if !ok {
			order = craftsmanSorts["rating"]
		}

		craftsmen := []models.Craftsman{}
		err := query.
			Preload("Category").
			Order(order).
			Limit(page.PerPage).
			Offset(page.Offset()).
			Find(&craftsmen).Error
		if err != nil {
			respondError(c, err)
			return
		}

		respondList(c, craftsmen, page, total)
	}
}

// SearchCraftsmen runs a full-text search over craftsmen
// GET /api/v1/craftsmen/search?q=&city=&category=
func SearchCraftsmen(search *services.SearchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if search == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SEARCH_UNAVAILABLE",
					"message": "Search is temporarily unavailable",
				},
			})
			return
		}

		page := pageFromQuery(c)
		result, err := search.SearchCraftsmen(services.CraftsmanQuery{
			Query:    c.Query("q"),
			City:     c.Query("city"),
			Category: c.Query("category"),
			Limit:    page.PerPage,
			Offset:   page.Offset(),
		})
		if err != nil {
			respondError(c, err)
			return
		}

		respondList(c, result.Hits, page, result.EstimatedTotalHits)
	}
}

// GetCraftsman returns a craftsman profile
// GET /api/v1/craftsmen/:id
func GetCraftsman(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		craftsmanID, ok := paramUUID(c, "id", apperrors.CodeCraftsmanNotFound, "Craftsman not found")
		if !ok {
			return
		}

		var craftsman models.Craftsman
		err := db.Preload("Category").
			Preload("User", publicUser).
			First(&craftsman, "id = ?", craftsmanID).Error
		if err != nil {
			respondError(c, dbError(err, apperrors.CodeCraftsmanNotFound, "Craftsman not found"))
			return
		}

		respond(c, http.StatusOK, craftsman)
	}
}

// UpdateMyProfile edits the caller's craftsman profile
// PUT /api/v1/craftsmen/me
func UpdateMyProfile(db *gorm.DB, indexer services.CraftsmanIndexer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var req UpdateCraftsmanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		craftsman, err := craftsmanForUser(db, userID)
		if err != nil {
			respondError(c, err)
			return
		}

		updates := map[string]interface{}{}
		if req.BusinessName != nil {
			updates["business_name"] = *req.BusinessName
		}
		if req.Bio != nil {
			updates["bio"] = *req.Bio
		}
		if req.City != nil {
			updates["city"] = *req.City
		}
		if req.District != nil {
			updates["district"] = *req.District
		}
		if req.YearsExperience != nil {
			updates["years_experience"] = *req.YearsExperience
		}
		if req.HourlyRate != nil {
			updates["hourly_rate"] = *req.HourlyRate
		}

		if len(updates) > 0 {
			if err := db.Model(craftsman).Updates(updates).Error; err != nil {
				respondError(c, err)
				return
			}
		}

		db.Preload("Category").First(craftsman, "id = ?", craftsman.ID)
		reindexCraftsman(indexer, *craftsman)

		respond(c, http.StatusOK, craftsman)
	}
}

// VerifyCraftsman sets or clears the verified badge (admin only)
// POST /api/v1/admin/craftsmen/:id/verify
func VerifyCraftsman(db *gorm.DB, indexer services.CraftsmanIndexer) gin.HandlerFunc {
	return func(c *gin.Context) {
		craftsmanID, ok := paramUUID(c, "id", apperrors.CodeCraftsmanNotFound, "Craftsman not found")
		if !ok {
			return
		}

		var req VerifyCraftsmanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		var craftsman models.Craftsman
		if err := db.Preload("Category").First(&craftsman, "id = ?", craftsmanID).Error; err != nil {
			respondError(c, dbError(err, apperrors.CodeCraftsmanNotFound, "Craftsman not found"))
			return
		}

		if err := db.Model(&craftsman).Update("is_verified", *req.Verified).Error; err != nil {
			respondError(c, err)
			return
		}
		craftsman.IsVerified = *req.Verified
		reindexCraftsman(indexer, craftsman)

		respond(c, http.StatusOK, craftsman)
	}
}

// reindexCraftsman pushes the profile to the search index in the background.
func reindexCraftsman(indexer services.CraftsmanIndexer, craftsman models.Craftsman) {
	if indexer == nil {
		return
	}
	go func() {
		_ = indexer.IndexCraftsman(craftsman)
	}()
}
