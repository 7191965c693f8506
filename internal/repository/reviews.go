package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/P3chys/ustam-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the PostgreSQL-backed Store. The *gorm.DB must be opened with
// TranslateError enabled so unique violations surface as gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Reviews() ReviewRepository {
	return &gormReviewRepository{db: s.db}
}

func (s *GormStore) InTx(ctx context.Context, fn func(repo ReviewRepository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormReviewRepository{db: tx})
	})
}

type gormReviewRepository struct {
	db *gorm.DB
}

func translate(err error, what string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func (r *gormReviewRepository) GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	if err := r.db.WithContext(ctx).First(&quote, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get quote")
	}
	return &quote, nil
}

func (r *gormReviewRepository) GetCraftsman(ctx context.Context, id uuid.UUID) (*models.Craftsman, error) {
	var craftsman models.Craftsman
	if err := r.db.WithContext(ctx).Preload("Category").First(&craftsman, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get craftsman")
	}
	return &craftsman, nil
}

func (r *gormReviewRepository) LockCraftsman(ctx context.Context, id uuid.UUID) (*models.Craftsman, error) {
	var craftsman models.Craftsman
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&craftsman, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "lock craftsman")
	}
	return &craftsman, nil
}

func (r *gormReviewRepository) ListCraftsmanIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.Craftsman{}).Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, translate(err, "list craftsman ids")
	}
	return ids, nil
}

func (r *gormReviewRepository) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get review")
	}
	return &review, nil
}

func (r *gormReviewRepository) GetReviewByQuote(ctx context.Context, quoteID uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "quote_id = ?", quoteID).Error; err != nil {
		return nil, translate(err, "get review by quote")
	}
	return &review, nil
}

func (r *gormReviewRepository) CreateReview(ctx context.Context, review *models.Review) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error; err != nil {
		return translate(err, "insert review")
	}
	return nil
}

func (r *gormReviewRepository) SaveReview(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).Model(review).
		Select("rating", "comment", "quality", "communication", "punctuality", "value", "updated_at").
		Updates(review).Error
	if err != nil {
		return translate(err, "update review")
	}
	return nil
}

func (r *gormReviewRepository) DeleteReview(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error, "delete review")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormReviewRepository) ListReviewsByCraftsman(ctx context.Context, craftsmanID uuid.UUID, page Page) ([]models.Review, int64, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&models.Review{}).Where("craftsman_id = ?", craftsmanID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count reviews")
	}

	reviews := []models.Review{}
	err := r.db.WithContext(ctx).
		Preload("Customer", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "full_name", "city")
		}).
		Where("craftsman_id = ?", craftsmanID).
		Order("created_at DESC").
		Limit(page.PerPage).
		Offset(page.Offset()).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, translate(err, "list reviews")
	}

	return reviews, total, nil
}

func (r *gormReviewRepository) CraftsmanRatings(ctx context.Context, craftsmanID uuid.UUID) ([]int, error) {
	var ratings []int
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("craftsman_id = ?", craftsmanID).
		Pluck("rating", &ratings).Error
	if err != nil {
		return nil, translate(err, "fetch ratings")
	}
	return ratings, nil
}

func (r *gormReviewRepository) RatingDistribution(ctx context.Context, craftsmanID uuid.UUID) (map[int]int64, error) {
	var rows []struct {
		Rating int
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Select("rating, COUNT(*) as count").
		Where("craftsman_id = ?", craftsmanID).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "rating distribution")
	}

	dist := make(map[int]int64, len(rows))
	for _, row := range rows {
		dist[row.Rating] = row.Count
	}
	return dist, nil
}

func (r *gormReviewRepository) SetCraftsmanRating(ctx context.Context, craftsmanID uuid.UUID, average float64, count int) error {
	result := r.db.WithContext(ctx).Model(&models.Craftsman{}).
		Where("id = ?", craftsmanID).
		Updates(map[string]interface{}{
			"average_rating": average,
			"total_reviews":  count,
		})
	if result.Error != nil {
		return translate(result.Error, "update craftsman rating")
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
