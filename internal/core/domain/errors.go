package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrConflict indicates the document changed in the store since it was
	// loaded; the presented version token is stale. The calling stage must
	// abort without retrying; the next scheduled run re-reads fresh state.
	ErrConflict = errors.New("document version conflict")

	// ErrMalformedDocument indicates the stored document does not conform
	// to the schema. Loads fail rather than silently defaulting fields.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSignature indicates a webhook request failed signature
	// verification.
	ErrInvalidSignature = errors.New("invalid signature")
)
