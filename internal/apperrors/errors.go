package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the outcomes the API reports with a
// stable status code.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindAccessDenied Kind = "access_denied"
	KindInvalidState Kind = "invalid_state"
	KindDuplicate    Kind = "duplicate"
	KindValidation   Kind = "validation"
	KindInternal     Kind = "internal"
)

// Codes returned in the "error.code" field of API responses.
const (
	CodeQuoteNotFound      = "QUOTE_NOT_FOUND"
	CodeCraftsmanNotFound  = "CRAFTSMAN_NOT_FOUND"
	CodeReviewNotFound     = "REVIEW_NOT_FOUND"
	CodeNotFound           = "NOT_FOUND"
	CodeQuoteAccessDenied  = "QUOTE_ACCESS_DENIED"
	CodeReviewAccessDenied = "REVIEW_ACCESS_DENIED"
	CodeForbidden          = "FORBIDDEN"
	CodeQuoteStatusInvalid = "QUOTE_STATUS_INVALID"
	CodeReviewExists       = "REVIEW_ALREADY_EXISTS"
	CodeConflict           = "CONFLICT"
	CodeReviewValidation   = "REVIEW_VALIDATION_ERROR"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is a business-rule outcome carrying a kind, a stable code and a
// message that is safe to show to the caller.
type Error struct {
	Kind    Kind              `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apperrors.ErrDuplicate).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == "" && t.Kind == e.Kind
}

// Kind-only sentinels for errors.Is comparisons.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrAccessDenied = &Error{Kind: KindAccessDenied}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrDuplicate    = &Error{Kind: KindDuplicate}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrInternal     = &Error{Kind: KindInternal}
)

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func AccessDenied(code, message string) *Error {
	return &Error{Kind: KindAccessDenied, Code: code, Message: message}
}

func InvalidState(code, message string) *Error {
	return &Error{Kind: KindInvalidState, Code: code, Message: message}
}

func Duplicate(code, message string) *Error {
	return &Error{Kind: KindDuplicate, Code: code, Message: message}
}

// Validation reports a failed input constraint. details maps field names to
// the violated constraint.
func Validation(code, message string, details map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message, Details: details}
}

// Internal hides err behind a generic message.
func Internal(err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    CodeInternal,
		Message: "an internal error occurred",
		Err:     err,
	}
}

// HTTPStatus maps err to the status code reported for its kind. Anything that
// is not an *Error is treated as internal.
func HTTPStatus(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindAccessDenied:
		return http.StatusForbidden
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindDuplicate:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// From returns err as an *Error, wrapping anything unknown as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
