package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/P3chys/ustam-api/internal/apperrors"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// A writer that commits between the existence check and the insert trips the
// unique index on reviews.quote_id.
func TestCreateReview_UniqueIndexRaceIsReviewExists(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	customerID := uuid.New()
	craftsmanID := uuid.New()
	quoteID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "quotes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "craftsman_id", "status"}).
			AddRow(quoteID.String(), customerID.String(), craftsmanID.String(), string(models.QuoteCompleted)))
	mock.ExpectQuery(`SELECT \* FROM "reviews"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "craftsmen" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(craftsmanID.String()))
	mock.ExpectQuery(`INSERT INTO "reviews"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_reviews_quote_id"})
	mock.ExpectRollback()

	svc := NewReviewService(repository.NewGormStore(db), ReviewDeps{Background: func(fn func()) { fn() }})

	review, err := svc.CreateReview(context.Background(), customerID, quoteID, rating(4))

	assert.Nil(t, review)
	assertCode(t, err, apperrors.CodeReviewExists)
	assert.Equal(t, apperrors.KindDuplicate, apperrors.From(err).Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}
