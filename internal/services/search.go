package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/P3chys/ustam-api/internal/config"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const craftsmenIndex = "craftsmen"

// CraftsmanDocument is the flattened craftsman record stored in Meilisearch.
type CraftsmanDocument struct {
	ID            string  `json:"id"`
	BusinessName  string  `json:"business_name"`
	Bio           string  `json:"bio"`
	City          string  `json:"city"`
	District      string  `json:"district"`
	CategoryID    string  `json:"category_id"`
	CategorySlug  string  `json:"category_slug"`
	CategoryName  string  `json:"category_name"`
	IsVerified    bool    `json:"is_verified"`
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int     `json:"total_reviews"`
	HourlyRate    float64 `json:"hourly_rate"`
	CreatedAt     int64   `json:"created_at"`
}

func NewCraftsmanDocument(c models.Craftsman) CraftsmanDocument {
	return CraftsmanDocument{
		ID:            c.ID.String(),
		BusinessName:  c.BusinessName,
		Bio:           c.Bio,
		City:          c.City,
		District:      c.District,
		CategoryID:    c.CategoryID.String(),
		CategorySlug:  c.Category.Slug,
		CategoryName:  c.Category.NameTR,
		IsVerified:    c.IsVerified,
		AverageRating: c.AverageRating,
		TotalReviews:  c.TotalReviews,
		HourlyRate:    c.HourlyRate,
		CreatedAt:     c.CreatedAt.Unix(),
	}
}

// CraftsmanQuery narrows a full-text craftsman search.
type CraftsmanQuery struct {
	Query    string
	City     string
	Category string
	Limit    int
	Offset   int
}

type SearchService struct {
	client *meilisearch.Client
	index  string
	logger *zap.Logger
}

func NewSearchService(cfg *config.Config, logger *zap.Logger) *SearchService {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   cfg.MeiliURL,
		APIKey: cfg.MeiliAPIKey,
	})

	s := &SearchService{
		client: client,
		index:  craftsmenIndex,
		logger: logger,
	}
	s.ensureIndex()
	return s
}

// ensureIndex creates and configures the craftsmen index (best effort).
func (s *SearchService) ensureIndex() {
	if _, err := s.client.GetIndex(s.index); err == nil {
		return
	}

	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	if err != nil {
		s.logger.Warn("failed to create meilisearch index", zap.String("index", s.index), zap.Error(err))
	}

	index := s.client.Index(s.index)
	if _, err := index.UpdateFilterableAttributes(&[]string{"city", "category_slug", "category_id", "is_verified", "average_rating"}); err != nil {
		s.logger.Warn("failed to update filterable attributes", zap.Error(err))
	}
	if _, err := index.UpdateSortableAttributes(&[]string{"average_rating", "total_reviews", "created_at"}); err != nil {
		s.logger.Warn("failed to update sortable attributes", zap.Error(err))
	}
	if _, err := index.UpdateSearchableAttributes(&[]string{"business_name", "category_name", "bio", "district", "city"}); err != nil {
		s.logger.Warn("failed to update searchable attributes", zap.Error(err))
	}
}

func (s *SearchService) IndexCraftsman(c models.Craftsman) error {
	_, err := s.client.Index(s.index).AddDocuments([]CraftsmanDocument{NewCraftsmanDocument(c)})
	return err
}

func (s *SearchService) IndexCraftsmen(craftsmen []models.Craftsman) error {
	if len(craftsmen) == 0 {
		return nil
	}
	docs := make([]CraftsmanDocument, 0, len(craftsmen))
	for _, c := range craftsmen {
		docs = append(docs, NewCraftsmanDocument(c))
	}
	_, err := s.client.Index(s.index).AddDocuments(docs)
	return err
}

func (s *SearchService) DeleteCraftsman(craftsmanID string) error {
	_, err := s.client.Index(s.index).DeleteDocument(craftsmanID)
	return err
}

func (s *SearchService) SearchCraftsmen(q CraftsmanQuery) (*meilisearch.SearchResponse, error) {
	request := &meilisearch.SearchRequest{
		Limit:  int64(q.Limit),
		Offset: int64(q.Offset),
		Sort:   []string{"average_rating:desc"},
	}
	if request.Limit <= 0 {
		request.Limit = 20
	}
	if filter := CraftsmanFilter(q.City, q.Category); filter != "" {
		request.Filter = filter
	}

	return s.client.Index(s.index).Search(q.Query, request)
}

func (s *SearchService) GetCraftsmanCount() (int64, error) {
	stats, err := s.client.Index(s.index).GetStats()
	if err != nil {
		return 0, err
	}
	return stats.NumberOfDocuments, nil
}

// CraftsmanFilter builds a Meilisearch filter expression for the optional
// city and category slug.
func CraftsmanFilter(city, category string) string {
	var parts []string
	if city != "" {
		parts = append(parts, fmt.Sprintf("city = %s", strconv.Quote(city)))
	}
	if category != "" {
		parts = append(parts, fmt.Sprintf("category_slug = %s", strconv.Quote(category)))
	}
	return strings.Join(parts, " AND ")
}
