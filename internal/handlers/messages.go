package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/P3chys/ustam-api/internal/apperrors"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxMessageLength = 2000

type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// ListMessages lists a quote's messages oldest first and marks the other
// party's messages as read
// GET /api/v1/quotes/:id/messages
func ListMessages(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		quoteID, ok := paramUUID(c, "id", apperrors.CodeQuoteNotFound, "Quote not found")
		if !ok {
			return
		}

		// Messages are private to the two parties, admins included
		quote, _, err := loadQuoteForUser(db, quoteID, userID, "")
		if err != nil {
			respondError(c, err)
			return
		}

		messages := []models.Message{}
		err = db.Preload("Sender", publicUser).
			Where("quote_id = ?", quote.ID).
			Order("created_at ASC").
			Find(&messages).Error
		if err != nil {
			respondError(c, err)
			return
		}

		// Read receipts are best effort; the request logger reports failures
		err = db.Model(&models.Message{}).
			Where("quote_id = ? AND sender_id <> ? AND read_at IS NULL", quote.ID, userID).
			Update("read_at", time.Now()).Error
		if err != nil {
			_ = c.Error(fmt.Errorf("mark messages read: %w", err))
		}

		respond(c, http.StatusOK, messages)
	}
}

// SendMessage posts a message on a quote
// POST /api/v1/quotes/:id/messages
func SendMessage(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		quoteID, ok := paramUUID(c, "id", apperrors.CodeQuoteNotFound, "Quote not found")
		if !ok {
			return
		}

		var req SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		body := strings.TrimSpace(req.Body)
		if n := utf8.RuneCountInString(body); n == 0 || n > maxMessageLength {
			respondError(c, apperrors.Validation(apperrors.CodeValidation, "body must be between 1 and 2000 characters",
				map[string]string{"body": "must be between 1 and 2000 characters"}))
			return
		}

		quote, _, err := loadQuoteForUser(db, quoteID, userID, "")
		if err != nil {
			respondError(c, err)
			return
		}

		message := models.Message{
			QuoteID:  quote.ID,
			SenderID: userID,
			Body:     body,
		}
		if err := db.Omit(clause.Associations).Create(&message).Error; err != nil {
			respondError(c, err)
			return
		}

		respond(c, http.StatusCreated, message)
	}
}
