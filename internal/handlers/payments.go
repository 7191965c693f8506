package handlers

import (
	"net/http"
	"time"

	"github.com/P3chys/ustam-api/internal/apperrors"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreatePaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Method string  `json:"method" binding:"required,oneof=card cash bank_transfer"`
}

// payableStatuses are the quote statuses a payment may be recorded in.
var payableStatuses = map[models.QuoteStatus]bool{
	models.QuoteAccepted:   true,
	models.QuoteInProgress: true,
	models.QuoteCompleted:  true,
}

// CreatePayment records a payment for an accepted job
// POST /api/v1/quotes/:id/payments
func CreatePayment(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		quoteID, ok := paramUUID(c, "id", apperrors.CodeQuoteNotFound, "Quote not found")
		if !ok {
			return
		}

		var req CreatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		quote, party, err := loadQuoteForUser(db, quoteID, userID, "")
		if err != nil {
			respondError(c, err)
			return
		}
		if !party.customer {
			respondError(c, apperrors.AccessDenied(apperrors.CodeQuoteAccessDenied, "Only the customer can pay for a quote"))
			return
		}
		if !payableStatuses[quote.Status] {
			respondError(c, apperrors.InvalidState(apperrors.CodeQuoteStatusInvalid, "Payments can only be made for accepted jobs"))
			return
		}

		method := models.PaymentMethod(req.Method)
		payment := models.Payment{
			QuoteID:    quote.ID,
			CustomerID: userID,
			Amount:     req.Amount,
			Currency:   "TRY",
			Method:     method,
			Status:     models.PaymentPending,
		}
		// Card payments are settled immediately; cash and transfers are
		// confirmed later.
		if method == models.PaymentCard {
			now := time.Now()
			payment.Status = models.PaymentPaid
			payment.PaidAt = &now
		}

		if err := db.Create(&payment).Error; err != nil {
			respondError(c, err)
			return
		}

		respond(c, http.StatusCreated, payment)
	}
}

// ListPayments lists a quote's payments
// GET /api/v1/quotes/:id/payments
func ListPayments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		quoteID, ok := paramUUID(c, "id", apperrors.CodeQuoteNotFound, "Quote not found")
		if !ok {
			return
		}

		quote, _, err := loadQuoteForUser(db, quoteID, userID, currentRole(c))
		if err != nil {
			respondError(c, err)
			return
		}

		payments := []models.Payment{}
		if err := db.Where("quote_id = ?", quote.ID).Order("created_at DESC").Find(&payments).Error; err != nil {
			respondError(c, err)
			return
		}

		respond(c, http.StatusOK, payments)
	}
}
