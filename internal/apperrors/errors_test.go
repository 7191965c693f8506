package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus_DistinctPerKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound(CodeQuoteNotFound, "quote not found"), http.StatusNotFound},
		{"access denied", AccessDenied(CodeQuoteAccessDenied, "not yours"), http.StatusForbidden},
		{"invalid state", InvalidState(CodeQuoteStatusInvalid, "not completed"), http.StatusUnprocessableEntity},
		{"duplicate", Duplicate(CodeReviewExists, "exists"), http.StatusConflict},
		{"validation", Validation(CodeReviewValidation, "bad rating", nil), http.StatusBadRequest},
		{"internal", Internal(errors.New("db down")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	seen := map[int]string{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HTTPStatus(tt.err)
			assert.Equal(t, tt.want, got)
		})
		if tt.name != "plain error" {
			prev, dup := seen[tt.want]
			assert.False(t, dup, "status %d shared by %s and %s", tt.want, prev, tt.name)
			seen[tt.want] = tt.name
		}
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("create review: %w", Duplicate(CodeReviewExists, "review already exists"))

	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "an internal error occurred", err.Message)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFrom(t *testing.T) {
	nf := NotFound(CodeReviewNotFound, "review not found")
	assert.Same(t, nf, From(fmt.Errorf("wrapped: %w", nf)))

	got := From(errors.New("boom"))
	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, CodeInternal, got.Code)
}
