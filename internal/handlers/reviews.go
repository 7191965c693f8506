package handlers

import (
	"net/http"

	"github.com/P3chys/ustam-api/internal/apperrors"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReviewRequest is the body for creating or updating a review. Range and
// length checks happen in the review service so that they report
// REVIEW_VALIDATION_ERROR.
type ReviewRequest struct {
	CraftsmanID   *string `json:"craftsman_id"`
	Rating        *int    `json:"rating"`
	Comment       *string `json:"comment"`
	Quality       *int    `json:"quality"`
	Communication *int    `json:"communication"`
	Punctuality   *int    `json:"punctuality"`
	Value         *int    `json:"value"`
}

// CreateReview reviews a completed quote as its customer
// POST /api/v1/quotes/:id/reviews
func CreateReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		quoteID, ok := paramUUID(c, "id", apperrors.CodeQuoteNotFound, "Quote not found")
		if !ok {
			return
		}

		var req ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		input := services.ReviewInput{
			Rating:        req.Rating,
			Comment:       req.Comment,
			Quality:       req.Quality,
			Communication: req.Communication,
			Punctuality:   req.Punctuality,
			Value:         req.Value,
		}
		if req.CraftsmanID != nil {
			craftsmanID, err := uuid.Parse(*req.CraftsmanID)
			if err != nil {
				respondError(c, apperrors.NotFound(apperrors.CodeCraftsmanNotFound, "Craftsman not found"))
				return
			}
			input.CraftsmanID = &craftsmanID
		}

		review, err := reviews.CreateReview(c.Request.Context(), userID, quoteID, input)
		if err != nil {
			respondError(c, err)
			return
		}

		respond(c, http.StatusCreated, review)
	}
}

// UpdateReview edits the caller's own review
// PUT /api/v1/reviews/:id
func UpdateReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		reviewID, ok := paramUUID(c, "id", apperrors.CodeReviewNotFound, "Review not found")
		if !ok {
			return
		}

		var req ReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		review, err := reviews.UpdateReview(c.Request.Context(), userID, reviewID, services.ReviewPatch{
			Rating:        req.Rating,
			Comment:       req.Comment,
			Quality:       req.Quality,
			Communication: req.Communication,
			Punctuality:   req.Punctuality,
			Value:         req.Value,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		respond(c, http.StatusOK, review)
	}
}

// DeleteReview removes the caller's review, or any review for admins
// DELETE /api/v1/reviews/:id
// DELETE /api/v1/admin/reviews/:id
func DeleteReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		reviewID, ok := paramUUID(c, "id", apperrors.CodeReviewNotFound, "Review not found")
		if !ok {
			return
		}

		isAdmin := currentRole(c) == string(models.RoleAdmin)
		if err := reviews.DeleteReview(c.Request.Context(), userID, isAdmin, reviewID); err != nil {
			respondError(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// GetReview returns a single review
// GET /api/v1/reviews/:id
func GetReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		reviewID, ok := paramUUID(c, "id", apperrors.CodeReviewNotFound, "Review not found")
		if !ok {
			return
		}

		review, err := reviews.GetReview(c.Request.Context(), reviewID)
		if err != nil {
			respondError(c, err)
			return
		}

		respond(c, http.StatusOK, review)
	}
}

// ListCraftsmanReviews lists a craftsman's reviews, newest first
// GET /api/v1/craftsmen/:id/reviews?page=&per_page=
func ListCraftsmanReviews(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		craftsmanID, ok := paramUUID(c, "id", apperrors.CodeCraftsmanNotFound, "Craftsman not found")
		if !ok {
			return
		}

		page := pageFromQuery(c)
		list, total, err := reviews.ListReviews(c.Request.Context(), craftsmanID, page)
		if err != nil {
			respondError(c, err)
			return
		}

		respondList(c, list, page, total)
	}
}

// GetRatingSummary returns a craftsman's average, count and star distribution
// GET /api/v1/craftsmen/:id/rating
func GetRatingSummary(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		craftsmanID, ok := paramUUID(c, "id", apperrors.CodeCraftsmanNotFound, "Craftsman not found")
		if !ok {
			return
		}

		summary, err := reviews.RatingSummary(c.Request.Context(), craftsmanID)
		if err != nil {
			respondError(c, err)
			return
		}

		respond(c, http.StatusOK, summary)
	}
}
