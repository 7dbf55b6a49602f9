// HTTP-layer error codes shared by all endpoints. Codes are lowercase
// snake_case and stable; clients branch on them programmatically while the
// message stays human-readable.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeBusy = "busy" // in-flight message cap reached
)
