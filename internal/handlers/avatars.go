package handlers

import (
	"context"
	"net/http"

	"github.com/P3chys/ustam-api/internal/apperrors"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func storageUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "STORAGE_UNAVAILABLE",
			"message": "File storage is temporarily unavailable",
		},
	})
}

// UploadAvatar replaces the caller's craftsman avatar
// POST /api/v1/craftsmen/me/avatar (multipart, field "avatar")
func UploadAvatar(db *gorm.DB, storage *services.StorageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if storage == nil {
			storageUnavailable(c)
			return
		}
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		craftsman, err := craftsmanForUser(db, userID)
		if err != nil {
			respondError(c, err)
			return
		}

		header, err := c.FormFile("avatar")
		if err != nil {
			respondError(c, apperrors.Validation(apperrors.CodeValidation, "avatar file is required", nil))
			return
		}
		if header.Size > services.MaxAvatarSize {
			respondError(c, apperrors.Validation(apperrors.CodeValidation, "avatar must be at most 5 MB", nil))
			return
		}

		contentType := header.Header.Get("Content-Type")
		key, err := services.AvatarObjectKey(craftsman.ID, contentType)
		if err != nil {
			respondError(c, apperrors.Validation(apperrors.CodeValidation, "avatar must be a JPEG, PNG or WebP image", nil))
			return
		}

		file, err := header.Open()
		if err != nil {
			respondError(c, err)
			return
		}
		defer file.Close()

		ctx := c.Request.Context()
		if err := storage.UploadFile(ctx, file, key, header.Size, contentType); err != nil {
			respondError(c, err)
			return
		}

		previous := craftsman.AvatarPath
		if err := db.Model(craftsman).Update("avatar_path", key).Error; err != nil {
			_ = storage.DeleteFile(ctx, key)
			respondError(c, err)
			return
		}
		if previous != "" {
			go func() {
				_ = storage.DeleteFile(context.Background(), previous)
			}()
		}

		respond(c, http.StatusOK, gin.H{"has_avatar": true})
	}
}

// GetAvatar streams a craftsman's avatar
// GET /api/v1/craftsmen/:id/avatar
func GetAvatar(db *gorm.DB, storage *services.StorageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if storage == nil {
			storageUnavailable(c)
			return
		}
		craftsmanID, ok := paramUUID(c, "id", apperrors.CodeCraftsmanNotFound, "Craftsman not found")
		if !ok {
			return
		}

		var craftsman models.Craftsman
		if err := db.Select("id", "avatar_path").First(&craftsman, "id = ?", craftsmanID).Error; err != nil {
			respondError(c, dbError(err, apperrors.CodeCraftsmanNotFound, "Craftsman not found"))
			return
		}
		if craftsman.AvatarPath == "" {
			respondError(c, apperrors.NotFound(apperrors.CodeNotFound, "Craftsman has no avatar"))
			return
		}

		object, err := storage.DownloadFile(c.Request.Context(), craftsman.AvatarPath)
		if err != nil {
			respondError(c, err)
			return
		}
		defer object.Close()

		info, err := object.Stat()
		if err != nil {
			respondError(c, err)
			return
		}

		c.Header("Cache-Control", "public, max-age=3600")
		c.DataFromReader(http.StatusOK, info.Size, info.ContentType, object, nil)
	}
}
