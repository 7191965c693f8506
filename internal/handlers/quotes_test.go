package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/P3chys/ustam-api/internal/apperrors"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingActivity struct{ calls int }

func (f *failingActivity) RecordActivity(context.Context, services.ActivityEntry) error {
	f.calls++
	return errors.New("activities table locked")
}

type failingQuoteNotifier struct{ calls int }

func (f *failingQuoteNotifier) NotifyQuoteRequested(context.Context, uuid.UUID) error {
	f.calls++
	return errors.New("smtp timeout")
}

func (f *failingQuoteNotifier) NotifyQuoteStatus(context.Context, uuid.UUID) error {
	f.calls++
	return errors.New("smtp timeout")
}

func TestQuoteEvents_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	activity := &failingActivity{}
	notifier := &failingQuoteNotifier{}
	events := newQuoteEvents(activity, notifier, zap.New(core))
	quoteID := uuid.New()

	events.publish(context.Background(), quoteID,
		&services.ActivityEntry{UserID: uuid.New(), Type: models.ActivityQuoteRequested, QuoteID: &quoteID},
		func(ctx context.Context, n QuoteNotifier) error { return n.NotifyQuoteRequested(ctx, quoteID) },
	)

	assert.Equal(t, 1, activity.calls)
	assert.Equal(t, 1, notifier.calls)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "failed to record activity", logs.All()[0].Message)
	assert.Equal(t, "failed to send quote notification", logs.All()[1].Message)
	assert.Equal(t, quoteID.String(), logs.All()[1].ContextMap()["quote_id"])
}

func TestQuoteEvents_SkipsWhatIsNotRequested(t *testing.T) {
	activity := &failingActivity{}
	notifier := &failingQuoteNotifier{}
	events := newQuoteEvents(activity, notifier, nil)

	events.publish(context.Background(), uuid.New(), nil, nil)

	assert.Zero(t, activity.calls)
	assert.Zero(t, notifier.calls)
}

func TestAuthorizeTransition(t *testing.T) {
	customer := quoteParty{customer: true}
	craftsman := quoteParty{craftsman: true}
	admin := quoteParty{admin: true}

	tests := []struct {
		name     string
		from     models.QuoteStatus
		party    quoteParty
		target   models.QuoteStatus
		wantCode string
	}{
		{"craftsman accepts pending", models.QuotePending, craftsman, models.QuoteAccepted, ""},
		{"craftsman rejects pending", models.QuotePending, craftsman, models.QuoteRejected, ""},
		{"craftsman starts accepted", models.QuoteAccepted, craftsman, models.QuoteInProgress, ""},
		{"craftsman completes job", models.QuoteInProgress, craftsman, models.QuoteCompleted, ""},
		{"customer cancels pending", models.QuotePending, customer, models.QuoteCancelled, ""},
		{"customer cancels accepted", models.QuoteAccepted, customer, models.QuoteCancelled, ""},
		{"craftsman cancels accepted", models.QuoteAccepted, craftsman, models.QuoteCancelled, ""},
		{"craftsman cannot cancel pending", models.QuotePending, craftsman, models.QuoteCancelled, apperrors.CodeQuoteAccessDenied},
		{"customer cannot accept", models.QuotePending, customer, models.QuoteAccepted, apperrors.CodeQuoteAccessDenied},
		{"customer cannot complete", models.QuoteInProgress, customer, models.QuoteCompleted, apperrors.CodeQuoteAccessDenied},
		{"admin cannot drive quotes", models.QuotePending, admin, models.QuoteAccepted, apperrors.CodeQuoteAccessDenied},
		{"cannot skip to completed", models.QuoteAccepted, craftsman, models.QuoteCompleted, apperrors.CodeQuoteStatusInvalid},
		{"completed is terminal", models.QuoteCompleted, craftsman, models.QuoteInProgress, apperrors.CodeQuoteStatusInvalid},
		{"cannot cancel in progress", models.QuoteInProgress, customer, models.QuoteCancelled, apperrors.CodeQuoteStatusInvalid},
		{"cannot reopen rejected", models.QuoteRejected, craftsman, models.QuoteAccepted, apperrors.CodeQuoteStatusInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authorizeTransition(&models.Quote{Status: tt.from}, tt.party, tt.target)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.From(err).Code)
		})
	}
}
