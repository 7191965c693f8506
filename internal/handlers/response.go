package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/P3chys/ustam-api/internal/apperrors"
	"github.com/P3chys/ustam-api/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	maxPage        = 100000
)

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondList(c *gin.Context, data interface{}, page repository.Page, total int64) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"meta": gin.H{
			"page":     page.Number,
			"per_page": page.PerPage,
			"total":    total,
		},
	})
}

// respondError writes err as the standard error envelope. Errors that are not
// *apperrors.Error are attached to the context for the request logger and
// reported as INTERNAL_ERROR without detail.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if appErr.Kind == apperrors.KindInternal {
		_ = c.Error(err)
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(apperrors.HTTPStatus(appErr), gin.H{
		"success": false,
		"error":   body,
	})
}

func respondBindError(c *gin.Context, err error) {
	respondError(c, apperrors.Validation(apperrors.CodeValidation, err.Error(), nil))
}

// dbError maps gorm's not-found to a NOT_FOUND error with message and passes
// everything else through as internal.
func dbError(err error, notFoundCode, notFoundMessage string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(notFoundCode, notFoundMessage)
	}
	return err
}

// paramUUID parses the named path parameter, responding with a not-found
// error when it is not a UUID.
func paramUUID(c *gin.Context, name, notFoundCode, notFoundMessage string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperrors.NotFound(notFoundCode, notFoundMessage))
		return uuid.Nil, false
	}
	return id, true
}

// currentUserID returns the authenticated user's id set by AuthRequired.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Invalid user",
			},
		})
		return uuid.Nil, false
	}
	return id, true
}

func currentRole(c *gin.Context) string {
	return c.GetString("role")
}

// pageFromQuery reads page and per_page, clamping page to maxPage and
// per_page to maxPerPage.
func pageFromQuery(c *gin.Context) repository.Page {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return repository.Page{Number: page, PerPage: perPage}
}
