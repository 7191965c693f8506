package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MinCommentLength = 10
	MaxCommentLength = 1000
)

// Violation is a single failed constraint on one field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s %s", v.Field, v.Message)
}

// ReviewFields is the candidate content of a review. A nil pointer means the
// field was not supplied.
type ReviewFields struct {
	Rating        *int
	Comment       *string
	Quality       *int
	Communication *int
	Punctuality   *int
	Value         *int
}

// ValidateReview returns every violated constraint in field order: rating,
// comment, then the sub-ratings. An empty result means the review is valid.
func ValidateReview(f ReviewFields) []Violation {
	var violations []Violation

	if f.Rating == nil {
		violations = append(violations, Violation{Field: "rating", Message: "is required"})
	} else if !inRatingRange(*f.Rating) {
		violations = append(violations, ratingRangeViolation("rating"))
	}

	if f.Comment != nil {
		if n := CommentLength(*f.Comment); n > 0 && (n < MinCommentLength || n > MaxCommentLength) {
			violations = append(violations, Violation{
				Field:   "comment",
				Message: fmt.Sprintf("must be between %d and %d characters", MinCommentLength, MaxCommentLength),
			})
		}
	}

	subRatings := []struct {
		field string
		value *int
	}{
		{"quality", f.Quality},
		{"communication", f.Communication},
		{"punctuality", f.Punctuality},
		{"value", f.Value},
	}
	for _, sr := range subRatings {
		if sr.value != nil && !inRatingRange(*sr.value) {
			violations = append(violations, ratingRangeViolation(sr.field))
		}
	}

	return violations
}

// NormalizeComment trims surrounding whitespace and maps a blank comment to nil.
func NormalizeComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// CommentLength counts characters, not bytes, so Turkish letters count once.
func CommentLength(comment string) int {
	return utf8.RuneCountInString(strings.TrimSpace(comment))
}

func inRatingRange(v int) bool {
	return v >= MinRating && v <= MaxRating
}

func ratingRangeViolation(field string) Violation {
	return Violation{
		Field:   field,
		Message: fmt.Sprintf("must be between %d and %d", MinRating, MaxRating),
	}
}
