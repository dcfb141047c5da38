package driven

import (
	"context"

	"github.com/masapokki/line-night-idea-enhancer/internal/core/domain"
)

// DocumentStore persists the shared pipeline document as a single atomic
// unit guarded by an opaque version token. Callers must treat load, mutate,
// save as one logical transaction: Save replaces the whole document or
// writes nothing.
type DocumentStore interface {
	// Load retrieves the full document together with the version token
	// that must be presented on the next Save. Variants without real token
	// semantics return an empty token.
	Load(ctx context.Context) (*domain.Document, string, error)

	// Save conditionally replaces the entire document. It fails with
	// domain.ErrConflict, writing nothing, when the store's current
	// version no longer matches the supplied token. Variants without
	// token semantics accept and ignore the token.
	Save(ctx context.Context, doc *domain.Document, token string) error
}
