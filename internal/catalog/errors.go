// Package catalog builds parameterized SELECT statements, one builder per
// supported intent. This file centralizes the validation failures builders
// can produce so the orchestrator can distinguish them from system errors.
package catalog

import "errors"

// Sentinel causes. These are wrapped inside ValidationError so callers can
// branch with errors.Is while still getting a user-presentable message.
var (
	// ErrInvalidCriterion is returned for a ranking criterion outside the
	// closed per-intent set.
	ErrInvalidCriterion = errors.New("invalid ranking criterion")

	// ErrMissingEntity is returned when a builder's required field is absent.
	ErrMissingEntity = errors.New("missing required entity")
)

// ValidationError is an expected, user-correctable failure raised while
// building a query. Its message is safe to surface verbatim; Unwrap exposes
// the sentinel cause (ErrInvalidCriterion, ErrMissingEntity, or
// normalize.ErrInvalidPeriod).
type ValidationError struct {
	cause error
	msg   string
}

// Error returns the user-facing message.
func (e *ValidationError) Error() string { return e.msg }

// Unwrap returns the sentinel cause for errors.Is checks.
func (e *ValidationError) Unwrap() error { return e.cause }

func validationErr(cause error, msg string) error {
	return &ValidationError{cause: cause, msg: msg}
}
