package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/repository"
	"github.com/google/uuid"
)

// Store is an in-memory repository.Store. Transactions are serialised by a
// single mutex and rolled back by restoring a snapshot, so the quote
// uniqueness of reviews holds under concurrent use.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

type dataset struct {
	quotes     map[uuid.UUID]models.Quote
	craftsmen  map[uuid.UUID]models.Craftsman
	reviews    map[uuid.UUID]models.Review
	byQuote    map[uuid.UUID]uuid.UUID
	failRating error
}

func New() *Store {
	return &Store{data: &dataset{
		quotes:    map[uuid.UUID]models.Quote{},
		craftsmen: map[uuid.UUID]models.Craftsman{},
		reviews:   map[uuid.UUID]models.Review{},
		byQuote:   map[uuid.UUID]uuid.UUID{},
	}}
}

// PutQuote inserts or replaces a quote.
func (s *Store) PutQuote(q models.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	s.data.quotes[q.ID] = q
}

// PutCraftsman inserts or replaces a craftsman profile.
func (s *Store) PutCraftsman(c models.Craftsman) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.data.craftsmen[c.ID] = c
}

// FailRatingWrites makes every SetCraftsmanRating call return err until it is
// called again with nil.
func (s *Store) FailRatingWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.failRating = err
}

// ReviewCount returns the number of stored reviews.
func (s *Store) ReviewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.reviews)
}

func (s *Store) Reviews() repository.ReviewRepository {
	return &lockedRepo{store: s}
}

func (s *Store) InTx(ctx context.Context, fn func(repo repository.ReviewRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&txRepo{data: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		quotes:     make(map[uuid.UUID]models.Quote, len(d.quotes)),
		craftsmen:  make(map[uuid.UUID]models.Craftsman, len(d.craftsmen)),
		reviews:    make(map[uuid.UUID]models.Review, len(d.reviews)),
		byQuote:    make(map[uuid.UUID]uuid.UUID, len(d.byQuote)),
		failRating: d.failRating,
	}
	for k, v := range d.quotes {
		c.quotes[k] = v
	}
	for k, v := range d.craftsmen {
		c.craftsmen[k] = v
	}
	for k, v := range d.reviews {
		c.reviews[k] = v
	}
	for k, v := range d.byQuote {
		c.byQuote[k] = v
	}
	return c
}

// txRepo operates on the dataset directly; the caller holds the store lock.
type txRepo struct {
	data *dataset
}

func (r *txRepo) GetQuote(_ context.Context, id uuid.UUID) (*models.Quote, error) {
	q, ok := r.data.quotes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (r *txRepo) GetCraftsman(_ context.Context, id uuid.UUID) (*models.Craftsman, error) {
	c, ok := r.data.craftsmen[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *txRepo) LockCraftsman(ctx context.Context, id uuid.UUID) (*models.Craftsman, error) {
	return r.GetCraftsman(ctx, id)
}

func (r *txRepo) ListCraftsmanIDs(_ context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(r.data.craftsmen))
	for id := range r.data.craftsmen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (r *txRepo) GetReview(_ context.Context, id uuid.UUID) (*models.Review, error) {
	rv, ok := r.data.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rv, nil
}

func (r *txRepo) GetReviewByQuote(ctx context.Context, quoteID uuid.UUID) (*models.Review, error) {
	id, ok := r.data.byQuote[quoteID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetReview(ctx, id)
}

func (r *txRepo) CreateReview(_ context.Context, review *models.Review) error {
	if _, exists := r.data.byQuote[review.QuoteID]; exists {
		return repository.ErrDuplicate
	}
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}
	review.UpdatedAt = review.CreatedAt
	r.data.reviews[review.ID] = *review
	r.data.byQuote[review.QuoteID] = review.ID
	return nil
}

func (r *txRepo) SaveReview(_ context.Context, review *models.Review) error {
	if _, ok := r.data.reviews[review.ID]; !ok {
		return repository.ErrNotFound
	}
	review.UpdatedAt = time.Now()
	r.data.reviews[review.ID] = *review
	return nil
}

func (r *txRepo) DeleteReview(_ context.Context, id uuid.UUID) error {
	rv, ok := r.data.reviews[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.data.reviews, id)
	delete(r.data.byQuote, rv.QuoteID)
	return nil
}

func (r *txRepo) ListReviewsByCraftsman(_ context.Context, craftsmanID uuid.UUID, page repository.Page) ([]models.Review, int64, error) {
	var all []models.Review
	for _, rv := range r.data.reviews {
		if rv.CraftsmanID == craftsmanID {
			all = append(all, rv)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := page.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if page.PerPage >= 0 && page.PerPage < end-start {
		end = start + page.PerPage
	}
	return append([]models.Review{}, all[start:end]...), total, nil
}

func (r *txRepo) CraftsmanRatings(_ context.Context, craftsmanID uuid.UUID) ([]int, error) {
	var ratings []int
	for _, rv := range r.data.reviews {
		if rv.CraftsmanID == craftsmanID {
			ratings = append(ratings, rv.Rating)
		}
	}
	return ratings, nil
}

func (r *txRepo) RatingDistribution(_ context.Context, craftsmanID uuid.UUID) (map[int]int64, error) {
	dist := map[int]int64{}
	for _, rv := range r.data.reviews {
		if rv.CraftsmanID == craftsmanID {
			dist[rv.Rating]++
		}
	}
	return dist, nil
}

func (r *txRepo) SetCraftsmanRating(_ context.Context, craftsmanID uuid.UUID, average float64, count int) error {
	if r.data.failRating != nil {
		return r.data.failRating
	}
	c, ok := r.data.craftsmen[craftsmanID]
	if !ok {
		return repository.ErrNotFound
	}
	c.AverageRating = average
	c.TotalReviews = count
	r.data.craftsmen[craftsmanID] = c
	return nil
}

// lockedRepo takes the store lock around each call, for use outside InTx.
type lockedRepo struct {
	store *Store
}

func (r *lockedRepo) with(fn func(repo *txRepo) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(&txRepo{data: r.store.data})
}

func (r *lockedRepo) GetQuote(ctx context.Context, id uuid.UUID) (q *models.Quote, err error) {
	err = r.with(func(repo *txRepo) error { q, err = repo.GetQuote(ctx, id); return err })
	return q, err
}

func (r *lockedRepo) GetCraftsman(ctx context.Context, id uuid.UUID) (c *models.Craftsman, err error) {
	err = r.with(func(repo *txRepo) error { c, err = repo.GetCraftsman(ctx, id); return err })
	return c, err
}

func (r *lockedRepo) LockCraftsman(ctx context.Context, id uuid.UUID) (*models.Craftsman, error) {
	return r.GetCraftsman(ctx, id)
}

func (r *lockedRepo) ListCraftsmanIDs(ctx context.Context) (ids []uuid.UUID, err error) {
	err = r.with(func(repo *txRepo) error { ids, err = repo.ListCraftsmanIDs(ctx); return err })
	return ids, err
}

func (r *lockedRepo) GetReview(ctx context.Context, id uuid.UUID) (rv *models.Review, err error) {
	err = r.with(func(repo *txRepo) error { rv, err = repo.GetReview(ctx, id); return err })
	return rv, err
}

func (r *lockedRepo) GetReviewByQuote(ctx context.Context, quoteID uuid.UUID) (rv *models.Review, err error) {
	err = r.with(func(repo *txRepo) error { rv, err = repo.GetReviewByQuote(ctx, quoteID); return err })
	return rv, err
}

func (r *lockedRepo) CreateReview(ctx context.Context, review *models.Review) error {
	return r.with(func(repo *txRepo) error { return repo.CreateReview(ctx, review) })
}

func (r *lockedRepo) SaveReview(ctx context.Context, review *models.Review) error {
	return r.with(func(repo *txRepo) error { return repo.SaveReview(ctx, review) })
}

func (r *lockedRepo) DeleteReview(ctx context.Context, id uuid.UUID) error {
	return r.with(func(repo *txRepo) error { return repo.DeleteReview(ctx, id) })
}

func (r *lockedRepo) ListReviewsByCraftsman(ctx context.Context, craftsmanID uuid.UUID, page repository.Page) (reviews []models.Review, total int64, err error) {
	err = r.with(func(repo *txRepo) error {
		reviews, total, err = repo.ListReviewsByCraftsman(ctx, craftsmanID, page)
		return err
	})
	return reviews, total, err
}

func (r *lockedRepo) CraftsmanRatings(ctx context.Context, craftsmanID uuid.UUID) (ratings []int, err error) {
	err = r.with(func(repo *txRepo) error { ratings, err = repo.CraftsmanRatings(ctx, craftsmanID); return err })
	return ratings, err
}

func (r *lockedRepo) RatingDistribution(ctx context.Context, craftsmanID uuid.UUID) (dist map[int]int64, err error) {
	err = r.with(func(repo *txRepo) error { dist, err = repo.RatingDistribution(ctx, craftsmanID); return err })
	return dist, err
}

func (r *lockedRepo) SetCraftsmanRating(ctx context.Context, craftsmanID uuid.UUID, average float64, count int) error {
	return r.with(func(repo *txRepo) error { return repo.SetCraftsmanRating(ctx, craftsmanID, average, count) })
}
