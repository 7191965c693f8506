package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/P3chys/ustam-api/internal/apperrors"
	"github.com/P3chys/ustam-api/internal/config"
	"github.com/P3chys/ustam-api/internal/middleware"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/services"
	"github.com/P3chys/ustam-api/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required,max=150"`
	Phone    string `json:"phone" binding:"omitempty,max=20"`
	City     string `json:"city" binding:"omitempty,max=60"`
	Language string `json:"language" binding:"omitempty,oneof=tr en"`
	Role     string `json:"role" binding:"omitempty,oneof=customer craftsman"`

	// Craftsman profile, required when role is craftsman
	BusinessName    string  `json:"business_name" binding:"omitempty,max=200"`
	CategorySlug    string  `json:"category" binding:"omitempty,max=80"`
	District        string  `json:"district" binding:"omitempty,max=60"`
	Bio             string  `json:"bio" binding:"omitempty,max=2000"`
	YearsExperience int     `json:"years_experience" binding:"omitempty,min=0,max=80"`
	HourlyRate      float64 `json:"hourly_rate" binding:"omitempty,min=0"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	User         *models.User      `json:"user"`
	Craftsman    *models.Craftsman `json:"craftsman,omitempty"`
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
}

// TokenRevoker invalidates a token id until ttl passes.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

// Register creates a customer or craftsman account
// POST /api/v1/auth/register
func Register(db *gorm.DB, cfg *config.Config, indexer services.CraftsmanIndexer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))

		role := models.RoleCustomer
		if req.Role == string(models.RoleCraftsman) {
			role = models.RoleCraftsman
			if req.BusinessName == "" || req.CategorySlug == "" || req.City == "" {
				respondError(c, apperrors.Validation(apperrors.CodeValidation,
					"business_name, category and city are required for craftsmen", nil))
				return
			}
		}

		var existing models.User
		if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
			respondError(c, apperrors.Duplicate(apperrors.CodeConflict, "Email already exists"))
			return
		}

		hashedPassword, err := utils.HashPassword(req.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		user := models.User{
			Email:        req.Email,
			PasswordHash: hashedPassword,
			Role:         role,
			FullName:     req.FullName,
			Phone:        req.Phone,
			City:         req.City,
			Language:     req.Language,
		}
		if user.Language == "" {
			user.Language = "tr"
		}

		var craftsman *models.Craftsman
		err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			if role != models.RoleCraftsman {
				return nil
			}

			var category models.Category
			if err := tx.Where("slug = ? AND is_active = ?", req.CategorySlug, true).First(&category).Error; err != nil {
				return dbError(err, apperrors.CodeNotFound, "Category not found")
			}
			craftsman = &models.Craftsman{
				UserID:          user.ID,
				CategoryID:      category.ID,
				BusinessName:    req.BusinessName,
				Bio:             req.Bio,
				City:            req.City,
				District:        req.District,
				YearsExperience: req.YearsExperience,
				HourlyRate:      req.HourlyRate,
			}
			if err := tx.Omit(clause.Associations).Create(craftsman).Error; err != nil {
				return err
			}
			craftsman.Category = category
			return nil
		})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				err = apperrors.Duplicate(apperrors.CodeConflict, "Email already exists")
			}
			respondError(c, err)
			return
		}

		if craftsman != nil && indexer != nil {
			profile := *craftsman
			go func() {
				_ = indexer.IndexCraftsman(profile)
			}()
		}

		resp, err := issueTokens(cfg, &user)
		if err != nil {
			respondError(c, err)
			return
		}
		resp.Craftsman = craftsman

		respond(c, http.StatusCreated, resp)
	}
}

// Login exchanges credentials for tokens
// POST /api/v1/auth/login
func Login(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		var user models.User
		err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
		if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid credentials",
				},
			})
			return
		}

		resp, err := issueTokens(cfg, &user)
		if err != nil {
			respondError(c, err)
			return
		}

		respond(c, http.StatusOK, resp)
	}
}

// GetCurrentUser returns the authenticated user, with the craftsman profile
// for craftsmen
// GET /api/v1/auth/me
func GetCurrentUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			respondError(c, dbError(err, apperrors.CodeNotFound, "User not found"))
			return
		}

		resp := gin.H{"user": user}
		if user.Role == models.RoleCraftsman {
			var craftsman models.Craftsman
			if err := db.Preload("Category").Where("user_id = ?", user.ID).First(&craftsman).Error; err == nil {
				resp["craftsman"] = craftsman
			}
		}

		respond(c, http.StatusOK, resp)
	}
}

// Logout revokes the presented access token
// POST /api/v1/auth/logout
func Logout(revoker TokenRevoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenID := c.GetString("token_id")
		if revoker != nil && tokenID != "" {
			if err := revoker.Revoke(c.Request.Context(), tokenID, middleware.TokenExpiry(c)); err != nil {
				respondError(c, err)
				return
			}
		}
		c.Status(http.StatusNoContent)
	}
}

func issueTokens(cfg *config.Config, user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateToken(user.ID, user.Role, cfg.JWTSecret, cfg.JWTAccessExpiry)
	if err != nil {
		return nil, err
	}
	refreshToken, err := utils.GenerateToken(user.ID, user.Role, cfg.JWTSecret, cfg.JWTRefreshExpiry)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// craftsmanForUser loads the craftsman profile owned by userID.
func craftsmanForUser(db *gorm.DB, userID uuid.UUID) (*models.Craftsman, error) {
	var craftsman models.Craftsman
	if err := db.Where("user_id = ?", userID).First(&craftsman).Error; err != nil {
		return nil, dbError(err, apperrors.CodeCraftsmanNotFound, "Craftsman profile not found")
	}
	return &craftsman, nil
}
