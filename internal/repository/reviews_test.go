package repository

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	return NewGormStore(db), mock
}

func TestGormStore_GetQuoteNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "quotes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Reviews().GetQuote(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_GetQuoteFound(t *testing.T) {
	store, mock := newMockStore(t)
	quoteID := uuid.New()
	customerID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "quotes"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "status"}).
			AddRow(quoteID.String(), customerID.String(), string(models.QuoteCompleted)))

	quote, err := store.Reviews().GetQuote(context.Background(), quoteID)

	require.NoError(t, err)
	assert.Equal(t, quoteID, quote.ID)
	assert.Equal(t, customerID, quote.CustomerID)
	assert.Equal(t, models.QuoteCompleted, quote.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_QueryFailureIsWrapped(t *testing.T) {
	store, mock := newMockStore(t)
	dbErr := errors.New("connection reset")

	mock.ExpectQuery(`SELECT \* FROM "reviews"`).WillReturnError(dbErr)

	_, err := store.Reviews().GetReview(context.Background(), uuid.New())

	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "get review")
}

func TestGormStore_InTxRollsBackWhenCallbackFails(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(repo ReviewRepository) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_InTxCommits(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(repo ReviewRepository) error {
		return nil
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_UniqueViolationOnInsertIsDuplicate(t *testing.T) {
	store, mock := newMockStore(t)
	review := &models.Review{QuoteID: uuid.New(), CraftsmanID: uuid.New(), CustomerID: uuid.New(), Rating: 4}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "reviews"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_reviews_quote_id"})
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(repo ReviewRepository) error {
		return repo.CreateReview(context.Background(), review)
	})

	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ForeignKeyViolationIsNotDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "reviews"`).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	err := store.Reviews().CreateReview(context.Background(), &models.Review{QuoteID: uuid.New(), Rating: 4})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "insert review")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound, "x"), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey, "x"), ErrDuplicate)

	other := errors.New("timeout")
	got := translate(other, "insert review")
	assert.ErrorIs(t, got, other)
	assert.EqualError(t, got, "insert review: timeout")
}

func TestPage_Offset(t *testing.T) {
	assert.Equal(t, 0, Page{Number: 0, PerPage: 20}.Offset())
	assert.Equal(t, 0, Page{Number: 1, PerPage: 20}.Offset())
	assert.Equal(t, 40, Page{Number: 3, PerPage: 20}.Offset())
	assert.Equal(t, 0, Page{Number: 5, PerPage: 0}.Offset())
	assert.Equal(t, math.MaxInt, Page{Number: math.MaxInt, PerPage: 100}.Offset())
}
