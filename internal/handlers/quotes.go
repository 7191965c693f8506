package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/P3chys/ustam-api/internal/apperrors"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuoteNotifier e-mails the other party about quote events.
type QuoteNotifier interface {
	NotifyQuoteRequested(ctx context.Context, quoteID uuid.UUID) error
	NotifyQuoteStatus(ctx context.Context, quoteID uuid.UUID) error
}

// quoteEvents runs the best-effort side effects of a quote change. Failures
// are logged and never reach the caller.
type quoteEvents struct {
	activity services.ActivityRecorder
	notifier QuoteNotifier
	logger   *zap.Logger
}

func newQuoteEvents(activity services.ActivityRecorder, notifier QuoteNotifier, logger *zap.Logger) quoteEvents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return quoteEvents{activity: activity, notifier: notifier, logger: logger}
}

// publish records entry when non-nil, then calls notify when a notifier is
// configured.
func (e quoteEvents) publish(ctx context.Context, quoteID uuid.UUID, entry *services.ActivityEntry, notify func(context.Context, QuoteNotifier) error) {
	if e.activity != nil && entry != nil {
		if err := e.activity.RecordActivity(ctx, *entry); err != nil {
			e.logger.Warn("failed to record activity",
				zap.String("type", string(entry.Type)),
				zap.String("quote_id", quoteID.String()),
				zap.Error(err),
			)
		}
	}
	if e.notifier != nil && notify != nil {
		if err := notify(ctx, e.notifier); err != nil {
			e.logger.Warn("failed to send quote notification", zap.String("quote_id", quoteID.String()), zap.Error(err))
		}
	}
}

type CreateQuoteRequest struct {
	CraftsmanID   string     `json:"craftsman_id" binding:"required,uuid"`
	Title         string     `json:"title" binding:"required,min=3,max=200"`
	Description   string     `json:"description" binding:"required,min=10,max=5000"`
	Address       string     `json:"address" binding:"omitempty,max=300"`
	City          string     `json:"city" binding:"required,max=60"`
	PreferredDate *time.Time `json:"preferred_date"`
}

type AcceptQuoteRequest struct {
	OfferedPrice float64 `json:"offered_price" binding:"required,gt=0"`
}

// quoteParty records how the caller relates to a quote.
type quoteParty struct {
	customer  bool
	craftsman bool
	admin     bool
}

// loadQuoteForUser loads a quote the caller takes part in. Admins may read
// any quote.
func loadQuoteForUser(db *gorm.DB, quoteID, userID uuid.UUID, role string) (*models.Quote, quoteParty, error) {
	var quote models.Quote
	if err := db.Preload("Craftsman").First(&quote, "id = ?", quoteID).Error; err != nil {
		return nil, quoteParty{}, dbError(err, apperrors.CodeQuoteNotFound, "Quote not found")
	}

	party := quoteParty{
		customer:  quote.CustomerID == userID,
		craftsman: quote.Craftsman.UserID == userID,
		admin:     role == string(models.RoleAdmin),
	}
	if !party.customer && !party.craftsman && !party.admin {
		return nil, party, apperrors.AccessDenied(apperrors.CodeQuoteAccessDenied, "You are not part of this quote")
	}
	return &quote, party, nil
}

// authorizeTransition checks that the caller may move the quote to target
// and that the move is allowed from the current status. The customer may
// cancel; every other move belongs to the craftsman, who may also cancel an
// accepted job.
func authorizeTransition(quote *models.Quote, party quoteParty, target models.QuoteStatus) error {
	allowed := party.craftsman
	if target == models.QuoteCancelled {
		allowed = party.customer || (party.craftsman && quote.Status == models.QuoteAccepted)
	}
	if !allowed {
		return apperrors.AccessDenied(apperrors.CodeQuoteAccessDenied, "You cannot change this quote to "+string(target))
	}
	if !quote.Status.CanTransitionTo(target) {
		return apperrors.InvalidState(apperrors.CodeQuoteStatusInvalid,
			"Quote cannot move from "+string(quote.Status)+" to "+string(target))
	}
	return nil
}

// CreateQuote asks a craftsman for a quote
// POST /api/v1/quotes
func CreateQuote(db *gorm.DB, activity services.ActivityRecorder, notifier QuoteNotifier, logger *zap.Logger) gin.HandlerFunc {
	events := newQuoteEvents(activity, notifier, logger)
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		var req CreateQuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		var craftsman models.Craftsman
		if err := db.First(&craftsman, "id = ?", req.CraftsmanID).Error; err != nil {
			respondError(c, dbError(err, apperrors.CodeCraftsmanNotFound, "Craftsman not found"))
			return
		}
		if craftsman.UserID == userID {
			respondError(c, apperrors.Validation(apperrors.CodeValidation, "You cannot request a quote from yourself", nil))
			return
		}

		quote := models.Quote{
			CustomerID:    userID,
			CraftsmanID:   craftsman.ID,
			CategoryID:    craftsman.CategoryID,
			Title:         req.Title,
			Description:   req.Description,
			Address:       req.Address,
			City:          req.City,
			PreferredDate: req.PreferredDate,
			Status:        models.QuotePending,
		}
		if err := db.Omit(clause.Associations).Create(&quote).Error; err != nil {
			respondError(c, err)
			return
		}

		quoteID := quote.ID
		entry := &services.ActivityEntry{
			UserID:      userID,
			Type:        models.ActivityQuoteRequested,
			CraftsmanID: &craftsman.ID,
			QuoteID:     &quoteID,
		}
		go events.publish(context.Background(), quoteID, entry, func(ctx context.Context, n QuoteNotifier) error {
			return n.NotifyQuoteRequested(ctx, quoteID)
		})

		respond(c, http.StatusCreated, quote)
	}
}

// ListMyQuotes lists the caller's quotes, as customer or as craftsman
// GET /api/v1/quotes?status=&page=&per_page=
func ListMyQuotes(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}

		page := pageFromQuery(c)
		query := db.Model(&models.Quote{})
		if currentRole(c) == string(models.RoleCraftsman) {
			craftsman, err := craftsmanForUser(db, userID)
			if err != nil {
				respondError(c, err)
				return
			}
			query = query.Where("craftsman_id = ?", craftsman.ID)
		} else {
			query = query.Where("customer_id = ?", userID)
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		var total int64
		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			respondError(c, err)
			return
		}

		quotes := []models.Quote{}
		err := query.
			Preload("Customer", publicUser).
			Preload("Craftsman").
			Preload("Category").
			Order("created_at DESC").
			Limit(page.PerPage).
			Offset(page.Offset()).
			Find(&quotes).Error
		if err != nil {
			respondError(c, err)
			return
		}

		respondList(c, quotes, page, total)
	}
}

// GetQuote returns a quote to one of its parties
// GET /api/v1/quotes/:id
func GetQuote(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		quoteID, ok := paramUUID(c, "id", apperrors.CodeQuoteNotFound, "Quote not found")
		if !ok {
			return
		}

		if _, _, err := loadQuoteForUser(db, quoteID, userID, currentRole(c)); err != nil {
			respondError(c, err)
			return
		}

		var quote models.Quote
		err := db.Preload("Customer", publicUser).
			Preload("Craftsman").
			Preload("Category").
			First(&quote, "id = ?", quoteID).Error
		if err != nil {
			respondError(c, dbError(err, apperrors.CodeQuoteNotFound, "Quote not found"))
			return
		}

		respond(c, http.StatusOK, quote)
	}
}

// TransitionQuote moves a quote to target
// POST /api/v1/quotes/:id/accept|reject|start|complete|cancel
func TransitionQuote(db *gorm.DB, target models.QuoteStatus, activity services.ActivityRecorder, notifier QuoteNotifier, logger *zap.Logger) gin.HandlerFunc {
	events := newQuoteEvents(activity, notifier, logger)
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		quoteID, ok := paramUUID(c, "id", apperrors.CodeQuoteNotFound, "Quote not found")
		if !ok {
			return
		}

		var accept AcceptQuoteRequest
		if target == models.QuoteAccepted {
			if err := c.ShouldBindJSON(&accept); err != nil {
				respondBindError(c, err)
				return
			}
		}

		quote, party, err := loadQuoteForUser(db, quoteID, userID, "")
		if err != nil {
			respondError(c, err)
			return
		}
		if err := authorizeTransition(quote, party, target); err != nil {
			respondError(c, err)
			return
		}

		now := time.Now()
		updates := map[string]interface{}{"status": target}
		switch target {
		case models.QuoteAccepted:
			updates["offered_price"] = accept.OfferedPrice
			updates["accepted_at"] = now
		case models.QuoteInProgress:
			updates["started_at"] = now
		case models.QuoteCompleted:
			updates["completed_at"] = now
		case models.QuoteCancelled, models.QuoteRejected:
			updates["cancelled_at"] = now
		}

		// Guard on the status we authorised against so a concurrent move loses
		result := db.Model(&models.Quote{}).
			Where("id = ? AND status = ?", quote.ID, quote.Status).
			Updates(updates)
		if result.Error != nil {
			respondError(c, result.Error)
			return
		}
		if result.RowsAffected == 0 {
			respondError(c, apperrors.InvalidState(apperrors.CodeQuoteStatusInvalid, "Quote was changed by someone else"))
			return
		}

		var updated models.Quote
		if err := db.Preload("Craftsman").Preload("Category").First(&updated, "id = ?", quote.ID).Error; err != nil {
			respondError(c, err)
			return
		}

		var entry *services.ActivityEntry
		if target == models.QuoteCompleted {
			entry = &services.ActivityEntry{
				UserID:      userID,
				Type:        models.ActivityQuoteCompleted,
				CraftsmanID: &updated.CraftsmanID,
				QuoteID:     &updated.ID,
			}
		}
		// The customer is told about moves the craftsman makes
		var notify func(context.Context, QuoteNotifier) error
		if party.craftsman {
			notify = func(ctx context.Context, n QuoteNotifier) error {
				return n.NotifyQuoteStatus(ctx, updated.ID)
			}
		}
		go events.publish(context.Background(), updated.ID, entry, notify)

		respond(c, http.StatusOK, updated)
	}
}
