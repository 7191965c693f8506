package repository

import (
	"context"
	"errors"
	"math"

	"github.com/P3chys/ustam-api/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Page selects a window of a list, 1-based.
type Page struct {
	Number  int
	PerPage int
}

// Offset saturates at math.MaxInt instead of overflowing.
func (p Page) Offset() int {
	if p.Number <= 1 || p.PerPage <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.PerPage {
		return math.MaxInt
	}
	return (p.Number - 1) * p.PerPage
}

// ReviewRepository is the persistence contract of the review lifecycle.
// Every lookup returns ErrNotFound rather than a zero value when nothing
// matches.
type ReviewRepository interface {
	GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	GetCraftsman(ctx context.Context, id uuid.UUID) (*models.Craftsman, error)
	// LockCraftsman loads the craftsman and holds a row lock on it until the
	// surrounding transaction ends.
	LockCraftsman(ctx context.Context, id uuid.UUID) (*models.Craftsman, error)
	ListCraftsmanIDs(ctx context.Context) ([]uuid.UUID, error)

	GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error)
	GetReviewByQuote(ctx context.Context, quoteID uuid.UUID) (*models.Review, error)
	// CreateReview returns ErrDuplicate if a review already exists for the quote.
	CreateReview(ctx context.Context, review *models.Review) error
	SaveReview(ctx context.Context, review *models.Review) error
	DeleteReview(ctx context.Context, id uuid.UUID) error
	ListReviewsByCraftsman(ctx context.Context, craftsmanID uuid.UUID, page Page) ([]models.Review, int64, error)

	CraftsmanRatings(ctx context.Context, craftsmanID uuid.UUID) ([]int, error)
	RatingDistribution(ctx context.Context, craftsmanID uuid.UUID) (map[int]int64, error)
	SetCraftsmanRating(ctx context.Context, craftsmanID uuid.UUID, average float64, count int) error
}

// Store hands out repositories, either bound to the shared connection or to
// a transaction.
type Store interface {
	Reviews() ReviewRepository
	// InTx runs fn in a transaction. The transaction commits if fn returns nil
	// and rolls back otherwise.
	InTx(ctx context.Context, fn func(repo ReviewRepository) error) error
}
