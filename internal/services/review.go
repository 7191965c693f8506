package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/P3chys/ustam-api/internal/apperrors"
	"github.com/P3chys/ustam-api/internal/metrics"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/repository"
	"github.com/P3chys/ustam-api/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CraftsmanIndexer keeps the search index in step with craftsman ratings.
type CraftsmanIndexer interface {
	IndexCraftsman(c models.Craftsman) error
}

type ActivityRecorder interface {
	RecordActivity(ctx context.Context, entry ActivityEntry) error
}

type ReviewNotifier interface {
	NotifyNewReview(ctx context.Context, review models.Review) error
}

// ReviewDeps are the collaborators of ReviewService. Everything except Logger
// may be nil.
type ReviewDeps struct {
	Indexer  CraftsmanIndexer
	Activity ActivityRecorder
	Notifier ReviewNotifier
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	// Background runs post-commit side effects. Defaults to a new goroutine.
	Background func(fn func())
}

// ReviewInput is the body of a review creation request. CraftsmanID is
// optional; when present it must name the quote's craftsman.
type ReviewInput struct {
	CraftsmanID   *uuid.UUID
	Rating        *int
	Comment       *string
	Quality       *int
	Communication *int
	Punctuality   *int
	Value         *int
}

// ReviewPatch is a partial update. Nil fields keep their current value; an
// empty Comment clears it.
type ReviewPatch struct {
	Rating        *int
	Comment       *string
	Quality       *int
	Communication *int
	Punctuality   *int
	Value         *int
}

type ReviewService struct {
	store      repository.Store
	indexer    CraftsmanIndexer
	activity   ActivityRecorder
	notifier   ReviewNotifier
	metrics    *metrics.Metrics
	logger     *zap.Logger
	background func(fn func())
}

func NewReviewService(store repository.Store, deps ReviewDeps) *ReviewService {
	s := &ReviewService{
		store:      store,
		indexer:    deps.Indexer,
		activity:   deps.Activity,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		background: deps.Background,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.background == nil {
		s.background = func(fn func()) { go fn() }
	}
	return s
}

// CreateReview records customerID's review of a completed quote and refreshes
// the craftsman's aggregate rating in the same transaction.
func (s *ReviewService) CreateReview(ctx context.Context, customerID, quoteID uuid.UUID, in ReviewInput) (*models.Review, error) {
	var created *models.Review
	var avg float64
	var count int

	err := s.store.InTx(ctx, func(repo repository.ReviewRepository) error {
		quote, err := repo.GetQuote(ctx, quoteID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound(apperrors.CodeQuoteNotFound, "Quote not found")
		}
		if err != nil {
			return err
		}
		if quote.CustomerID != customerID {
			return apperrors.AccessDenied(apperrors.CodeQuoteAccessDenied, "You can only review your own quotes")
		}
		if quote.Status != models.QuoteCompleted {
			return apperrors.InvalidState(apperrors.CodeQuoteStatusInvalid, "Only completed jobs can be reviewed")
		}

		if _, err := repo.GetReviewByQuote(ctx, quoteID); err == nil {
			return reviewExists()
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		fields := validation.ReviewFields{
			Rating:        in.Rating,
			Comment:       in.Comment,
			Quality:       in.Quality,
			Communication: in.Communication,
			Punctuality:   in.Punctuality,
			Value:         in.Value,
		}
		if violations := validation.ValidateReview(fields); len(violations) > 0 {
			return reviewValidationError(violations)
		}

		// A craftsman other than the quote's is reported as unknown.
		if in.CraftsmanID != nil && *in.CraftsmanID != quote.CraftsmanID {
			return craftsmanNotFound()
		}

		if _, err := repo.LockCraftsman(ctx, quote.CraftsmanID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return craftsmanNotFound()
			}
			return err
		}

		review := &models.Review{
			CustomerID:    customerID,
			CraftsmanID:   quote.CraftsmanID,
			QuoteID:       quote.ID,
			Rating:        *in.Rating,
			Comment:       validation.NormalizeComment(in.Comment),
			Quality:       in.Quality,
			Communication: in.Communication,
			Punctuality:   in.Punctuality,
			Value:         in.Value,
		}
		if err := repo.CreateReview(ctx, review); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return reviewExists()
			}
			return err
		}

		avg, count, err = s.recompute(ctx, repo, review.CraftsmanID)
		if err != nil {
			return err
		}
		created = review
		return nil
	})
	s.observe("create", err)
	if err != nil {
		return nil, wrapUnexpected("create review", err)
	}

	s.logger.Info("review created",
		zap.String("review_id", created.ID.String()),
		zap.String("quote_id", created.QuoteID.String()),
		zap.String("craftsman_id", created.CraftsmanID.String()),
		zap.Int("rating", created.Rating),
		zap.Float64("average_rating", avg),
		zap.Int("total_reviews", count),
	)

	review := *created
	s.afterCommit(ctx, review.CraftsmanID, ActivityEntry{
		UserID:      customerID,
		Type:        models.ActivityReviewCreated,
		CraftsmanID: &review.CraftsmanID,
		QuoteID:     &review.QuoteID,
		Metadata:    map[string]interface{}{"review_id": review.ID.String(), "rating": review.Rating},
	}, func(bg context.Context) {
		if s.notifier == nil {
			return
		}
		if err := s.notifier.NotifyNewReview(bg, review); err != nil {
			s.logger.Warn("failed to send review notification", zap.String("review_id", review.ID.String()), zap.Error(err))
		}
	})

	return created, nil
}

// UpdateReview applies patch to a review written by userID. The aggregate is
// recomputed whenever the patch carries a rating, even an unchanged one.
func (s *ReviewService) UpdateReview(ctx context.Context, userID, reviewID uuid.UUID, patch ReviewPatch) (*models.Review, error) {
	var updated *models.Review

	err := s.store.InTx(ctx, func(repo repository.ReviewRepository) error {
		review, err := repo.GetReview(ctx, reviewID)
		if errors.Is(err, repository.ErrNotFound) {
			return reviewNotFound()
		}
		if err != nil {
			return err
		}
		if review.CustomerID != userID {
			return apperrors.AccessDenied(apperrors.CodeReviewAccessDenied, "You can only edit your own reviews")
		}

		merged := mergePatch(*review, patch)
		fields := validation.ReviewFields{
			Rating:        &merged.Rating,
			Comment:       merged.Comment,
			Quality:       merged.Quality,
			Communication: merged.Communication,
			Punctuality:   merged.Punctuality,
			Value:         merged.Value,
		}
		if violations := validation.ValidateReview(fields); len(violations) > 0 {
			return reviewValidationError(violations)
		}
		merged.Comment = validation.NormalizeComment(merged.Comment)

		if patch.Rating != nil {
			if _, err := repo.LockCraftsman(ctx, merged.CraftsmanID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return craftsmanNotFound()
				}
				return err
			}
		}

		if err := repo.SaveReview(ctx, &merged); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return reviewNotFound()
			}
			return err
		}

		if patch.Rating != nil {
			if _, _, err := s.recompute(ctx, repo, merged.CraftsmanID); err != nil {
				return err
			}
		}
		updated = &merged
		return nil
	})
	s.observe("update", err)
	if err != nil {
		return nil, wrapUnexpected("update review", err)
	}

	s.logger.Info("review updated",
		zap.String("review_id", updated.ID.String()),
		zap.Bool("rating_changed", patch.Rating != nil),
	)

	s.afterCommit(ctx, updated.CraftsmanID, ActivityEntry{
		UserID:      userID,
		Type:        models.ActivityReviewUpdated,
		CraftsmanID: &updated.CraftsmanID,
		QuoteID:     &updated.QuoteID,
		Metadata:    map[string]interface{}{"review_id": updated.ID.String(), "rating": updated.Rating},
	}, nil)

	return updated, nil
}

// DeleteReview removes a review. Only its author or an admin may do so.
func (s *ReviewService) DeleteReview(ctx context.Context, userID uuid.UUID, isAdmin bool, reviewID uuid.UUID) error {
	var deleted *models.Review

	err := s.store.InTx(ctx, func(repo repository.ReviewRepository) error {
		review, err := repo.GetReview(ctx, reviewID)
		if errors.Is(err, repository.ErrNotFound) {
			return reviewNotFound()
		}
		if err != nil {
			return err
		}
		if !isAdmin && review.CustomerID != userID {
			return apperrors.AccessDenied(apperrors.CodeReviewAccessDenied, "You can only delete your own reviews")
		}

		if _, err := repo.LockCraftsman(ctx, review.CraftsmanID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := repo.DeleteReview(ctx, review.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return reviewNotFound()
			}
			return err
		}
		if _, _, err := s.recompute(ctx, repo, review.CraftsmanID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		deleted = review
		return nil
	})
	s.observe("delete", err)
	if err != nil {
		return wrapUnexpected("delete review", err)
	}

	s.logger.Info("review deleted",
		zap.String("review_id", deleted.ID.String()),
		zap.String("deleted_by", userID.String()),
		zap.Bool("admin", isAdmin),
	)

	s.afterCommit(ctx, deleted.CraftsmanID, ActivityEntry{
		UserID:      userID,
		Type:        models.ActivityReviewDeleted,
		CraftsmanID: &deleted.CraftsmanID,
		QuoteID:     &deleted.QuoteID,
		Metadata:    map[string]interface{}{"review_id": deleted.ID.String()},
	}, nil)

	return nil
}

// RecomputeAggregate rewrites the craftsman's average rating and review count
// from the reviews currently stored. Running it twice changes nothing.
func (s *ReviewService) RecomputeAggregate(ctx context.Context, craftsmanID uuid.UUID) (float64, int, error) {
	var avg float64
	var count int
	err := s.store.InTx(ctx, func(repo repository.ReviewRepository) error {
		if _, err := repo.LockCraftsman(ctx, craftsmanID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return craftsmanNotFound()
			}
			return err
		}
		var err error
		avg, count, err = s.recompute(ctx, repo, craftsmanID)
		return err
	})
	if err != nil {
		return 0, 0, wrapUnexpected("recompute aggregate", err)
	}
	return avg, count, nil
}

// RecomputeAll recomputes every craftsman, each in its own transaction, and
// returns how many succeeded. Failures are logged and joined.
func (s *ReviewService) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.store.Reviews().ListCraftsmanIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list craftsmen: %w", err)
	}

	var errs []error
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		avg, count, err := s.RecomputeAggregate(ctx, id)
		if err != nil {
			s.logger.Error("failed to recompute rating", zap.String("craftsman_id", id.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("craftsman %s: %w", id, err))
			continue
		}
		s.logger.Debug("rating recomputed",
			zap.String("craftsman_id", id.String()),
			zap.Float64("average_rating", avg),
			zap.Int("total_reviews", count),
		)
		done++
	}
	return done, errors.Join(errs...)
}

func (s *ReviewService) GetReview(ctx context.Context, reviewID uuid.UUID) (*models.Review, error) {
	review, err := s.store.Reviews().GetReview(ctx, reviewID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, reviewNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// ListReviews returns one page of a craftsman's reviews, newest first, and
// the total number of reviews.
func (s *ReviewService) ListReviews(ctx context.Context, craftsmanID uuid.UUID, page repository.Page) ([]models.Review, int64, error) {
	repo := s.store.Reviews()
	if _, err := repo.GetCraftsman(ctx, craftsmanID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, 0, craftsmanNotFound()
		}
		return nil, 0, fmt.Errorf("get craftsman: %w", err)
	}

	reviews, total, err := repo.ListReviewsByCraftsman(ctx, craftsmanID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

// RatingSummary reports the stored aggregate together with a per-star
// distribution that always has keys "1" through "5".
func (s *ReviewService) RatingSummary(ctx context.Context, craftsmanID uuid.UUID) (*models.RatingSummary, error) {
	repo := s.store.Reviews()
	craftsman, err := repo.GetCraftsman(ctx, craftsmanID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, craftsmanNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("get craftsman: %w", err)
	}

	counts, err := repo.RatingDistribution(ctx, craftsmanID)
	if err != nil {
		return nil, fmt.Errorf("rating distribution: %w", err)
	}

	dist := make(map[string]int64, validation.MaxRating)
	for star := validation.MinRating; star <= validation.MaxRating; star++ {
		dist[strconv.Itoa(star)] = counts[star]
	}

	return &models.RatingSummary{
		CraftsmanID:   craftsman.ID,
		AverageRating: craftsman.AverageRating,
		TotalReviews:  craftsman.TotalReviews,
		Distribution:  dist,
	}, nil
}

// ComputeAggregate returns the unrounded arithmetic mean of ratings and their
// count, or 0 and 0 for no ratings.
func ComputeAggregate(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings)), len(ratings)
}

func (s *ReviewService) recompute(ctx context.Context, repo repository.ReviewRepository, craftsmanID uuid.UUID) (float64, int, error) {
	ratings, err := repo.CraftsmanRatings(ctx, craftsmanID)
	if err != nil {
		return 0, 0, err
	}
	avg, count := ComputeAggregate(ratings)
	if err := repo.SetCraftsmanRating(ctx, craftsmanID, avg, count); err != nil {
		return 0, 0, err
	}
	s.metrics.RatingRecomputed()
	return avg, count, nil
}

// afterCommit runs the best-effort side effects of a committed mutation:
// search re-indexing, the activity feed and an optional notification.
func (s *ReviewService) afterCommit(ctx context.Context, craftsmanID uuid.UUID, entry ActivityEntry, notify func(context.Context)) {
	bg := context.WithoutCancel(ctx)
	s.background(func() {
		if s.indexer != nil {
			craftsman, err := s.store.Reviews().GetCraftsman(bg, craftsmanID)
			if err == nil {
				err = s.indexer.IndexCraftsman(*craftsman)
			}
			if err != nil {
				s.logger.Warn("failed to reindex craftsman", zap.String("craftsman_id", craftsmanID.String()), zap.Error(err))
			}
		}
		if s.activity != nil {
			if err := s.activity.RecordActivity(bg, entry); err != nil {
				s.logger.Warn("failed to record activity", zap.String("type", string(entry.Type)), zap.Error(err))
			}
		}
		if notify != nil {
			notify(bg)
		}
	})
}

func (s *ReviewService) observe(operation string, err error) {
	switch {
	case err == nil:
		s.metrics.ReviewOperation(operation, metrics.OutcomeSuccess)
	case isBusinessError(err):
		s.metrics.ReviewOperation(operation, metrics.OutcomeRejected)
	default:
		s.metrics.ReviewOperation(operation, metrics.OutcomeError)
	}
}

func mergePatch(review models.Review, patch ReviewPatch) models.Review {
	if patch.Rating != nil {
		review.Rating = *patch.Rating
	}
	if patch.Comment != nil {
		review.Comment = patch.Comment
	}
	if patch.Quality != nil {
		review.Quality = patch.Quality
	}
	if patch.Communication != nil {
		review.Communication = patch.Communication
	}
	if patch.Punctuality != nil {
		review.Punctuality = patch.Punctuality
	}
	if patch.Value != nil {
		review.Value = patch.Value
	}
	return review
}

func isBusinessError(err error) bool {
	var appErr *apperrors.Error
	return errors.As(err, &appErr) && appErr.Kind != apperrors.KindInternal
}

// wrapUnexpected passes business errors through untouched and adds context
// to everything else.
func wrapUnexpected(op string, err error) error {
	if isBusinessError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func reviewValidationError(violations []validation.Violation) error {
	details := make(map[string]string, len(violations))
	for _, v := range violations {
		if _, seen := details[v.Field]; !seen {
			details[v.Field] = v.Message
		}
	}
	return apperrors.Validation(apperrors.CodeReviewValidation, violations[0].Error(), details)
}

func reviewExists() error {
	return apperrors.Duplicate(apperrors.CodeReviewExists, "A review already exists for this quote")
}

func reviewNotFound() error {
	return apperrors.NotFound(apperrors.CodeReviewNotFound, "Review not found")
}

func craftsmanNotFound() error {
	return apperrors.NotFound(apperrors.CodeCraftsmanNotFound, "Craftsman not found")
}
