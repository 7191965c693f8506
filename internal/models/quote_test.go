package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from QuoteStatus
		to   QuoteStatus
		want bool
	}{
		{QuotePending, QuoteAccepted, true},
		{QuotePending, QuoteRejected, true},
		{QuotePending, QuoteCancelled, true},
		{QuotePending, QuoteCompleted, false},
		{QuotePending, QuoteInProgress, false},
		{QuoteAccepted, QuoteInProgress, true},
		{QuoteAccepted, QuoteCancelled, true},
		{QuoteAccepted, QuoteCompleted, false},
		{QuoteInProgress, QuoteCompleted, true},
		{QuoteInProgress, QuoteCancelled, false},
		{QuoteCompleted, QuotePending, false},
		{QuoteCancelled, QuoteAccepted, false},
		{QuoteRejected, QuoteAccepted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestQuoteStatus_IsTerminal(t *testing.T) {
	assert.True(t, QuoteCompleted.IsTerminal())
	assert.True(t, QuoteCancelled.IsTerminal())
	assert.True(t, QuoteRejected.IsTerminal())
	assert.False(t, QuotePending.IsTerminal())
	assert.False(t, QuoteInProgress.IsTerminal())
}
