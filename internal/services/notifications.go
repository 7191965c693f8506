package services

import (
	"context"
	"fmt"

	"github.com/P3chys/ustam-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Mailer sends transactional e-mails about quotes and reviews, looking up
// recipients and names from the database.
type Mailer struct {
	db    *gorm.DB
	email *EmailService
}

func NewMailer(db *gorm.DB, email *EmailService) *Mailer {
	return &Mailer{db: db, email: email}
}

func (m *Mailer) loadQuote(ctx context.Context, quoteID uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := m.db.WithContext(ctx).
		Preload("Customer").
		Preload("Craftsman.User").
		First(&quote, "id = ?", quoteID).Error
	if err != nil {
		return nil, fmt.Errorf("load quote %s: %w", quoteID, err)
	}
	return &quote, nil
}

// NotifyNewReview e-mails the reviewed craftsman.
func (m *Mailer) NotifyNewReview(ctx context.Context, review models.Review) error {
	quote, err := m.loadQuote(ctx, review.QuoteID)
	if err != nil {
		return err
	}

	data := NotificationData{
		BusinessName: quote.Craftsman.BusinessName,
		CustomerName: quote.Customer.FullName,
		QuoteTitle:   quote.Title,
		Rating:       review.Rating,
		Link:         m.email.Link("/craftsmen/%s#review-%s", review.CraftsmanID, review.ID),
	}
	if review.Comment != nil {
		data.Comment = *review.Comment
	}

	recipient := quote.Craftsman.User
	return m.email.SendNewReviewEmail(recipient.Email, recipient.Language, data)
}

// NotifyQuoteRequested e-mails the craftsman a customer asked for a quote.
func (m *Mailer) NotifyQuoteRequested(ctx context.Context, quoteID uuid.UUID) error {
	quote, err := m.loadQuote(ctx, quoteID)
	if err != nil {
		return err
	}

	recipient := quote.Craftsman.User
	return m.email.SendNewQuoteEmail(recipient.Email, recipient.Language, NotificationData{
		BusinessName: quote.Craftsman.BusinessName,
		CustomerName: quote.Customer.FullName,
		QuoteTitle:   quote.Title,
		City:         quote.City,
		Link:         m.email.Link("/quotes/%s", quote.ID),
	})
}

// NotifyQuoteStatus e-mails the customer after the craftsman moved the quote.
func (m *Mailer) NotifyQuoteStatus(ctx context.Context, quoteID uuid.UUID) error {
	quote, err := m.loadQuote(ctx, quoteID)
	if err != nil {
		return err
	}

	return m.email.SendQuoteStatusEmail(quote.Customer.Email, quote.Customer.Language, NotificationData{
		CustomerName: quote.Customer.FullName,
		QuoteTitle:   quote.Title,
		Status:       string(quote.Status),
		Link:         m.email.Link("/quotes/%s", quote.ID),
	})
}
