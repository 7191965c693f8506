package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateReviewRejectsSecondReviewForQuote(t *testing.T) {
	store := New()
	ctx := context.Background()
	quoteID := uuid.New()

	first := &models.Review{QuoteID: quoteID, CraftsmanID: uuid.New(), Rating: 5}
	require.NoError(t, store.Reviews().CreateReview(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID)

	second := &models.Review{QuoteID: quoteID, CraftsmanID: first.CraftsmanID, Rating: 3}
	err := store.Reviews().CreateReview(ctx, second)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.Equal(t, 1, store.ReviewCount())
}

func TestStore_InTxRollsBackOnError(t *testing.T) {
	store := New()
	ctx := context.Background()
	craftsman := models.Craftsman{ID: uuid.New(), BusinessName: "Usta Elektrik"}
	store.PutCraftsman(craftsman)

	boom := errors.New("boom")
	err := store.InTx(ctx, func(repo repository.ReviewRepository) error {
		require.NoError(t, repo.CreateReview(ctx, &models.Review{QuoteID: uuid.New(), CraftsmanID: craftsman.ID, Rating: 4}))
		require.NoError(t, repo.SetCraftsmanRating(ctx, craftsman.ID, 4, 1))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.ReviewCount())
	got, err := store.Reviews().GetCraftsman(ctx, craftsman.ID)
	require.NoError(t, err)
	assert.Zero(t, got.AverageRating)
	assert.Zero(t, got.TotalReviews)
}

func TestStore_InTxCommits(t *testing.T) {
	store := New()
	ctx := context.Background()
	craftsman := models.Craftsman{ID: uuid.New()}
	store.PutCraftsman(craftsman)

	err := store.InTx(ctx, func(repo repository.ReviewRepository) error {
		return repo.SetCraftsmanRating(ctx, craftsman.ID, 4.5, 2)
	})
	require.NoError(t, err)

	got, err := store.Reviews().GetCraftsman(ctx, craftsman.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.AverageRating)
	assert.Equal(t, 2, got.TotalReviews)
}

func TestStore_LookupsReturnNotFound(t *testing.T) {
	store := New()
	ctx := context.Background()
	repo := store.Reviews()

	_, err := repo.GetQuote(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetCraftsman(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetReview(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetReviewByQuote(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteReview(ctx, uuid.New()), repository.ErrNotFound)
	assert.ErrorIs(t, repo.SetCraftsmanRating(ctx, uuid.New(), 1, 1), repository.ErrNotFound)
}

func TestStore_ListReviewsByCraftsmanPaginatesNewestFirst(t *testing.T) {
	store := New()
	ctx := context.Background()
	craftsmanID := uuid.New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Reviews().CreateReview(ctx, &models.Review{
			QuoteID:     uuid.New(),
			CraftsmanID: craftsmanID,
			Rating:      i + 1,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, store.Reviews().CreateReview(ctx, &models.Review{QuoteID: uuid.New(), CraftsmanID: uuid.New(), Rating: 1}))

	firstPage, total, err := store.Reviews().ListReviewsByCraftsman(ctx, craftsmanID, repository.Page{Number: 1, PerPage: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, firstPage, 2)
	assert.Equal(t, 5, firstPage[0].Rating)
	assert.Equal(t, 4, firstPage[1].Rating)

	lastPage, _, err := store.Reviews().ListReviewsByCraftsman(ctx, craftsmanID, repository.Page{Number: 3, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, lastPage, 1)
	assert.Equal(t, 1, lastPage[0].Rating)

	beyond, _, err := store.Reviews().ListReviewsByCraftsman(ctx, craftsmanID, repository.Page{Number: 9, PerPage: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond)

	huge, _, err := store.Reviews().ListReviewsByCraftsman(ctx, craftsmanID, repository.Page{Number: math.MaxInt, PerPage: 100})
	require.NoError(t, err)
	assert.Empty(t, huge)

	dist, err := store.Reviews().RatingDistribution(ctx, craftsmanID)
	require.NoError(t, err)
	assert.Equal(t, map[int]int64{1: 1, 2: 1, 3: 1, 4: 1, 5: 1}, dist)
}
