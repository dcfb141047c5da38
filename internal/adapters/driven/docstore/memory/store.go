// Package memory provides an in-memory DocumentStore with real version
// token semantics. It backs the service tests: conflicts and transport
// failures can be scripted, and saved state inspected.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/masapokki/line-night-idea-enhancer/internal/core/domain"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is an in-memory document store. The version token is a counter that
// advances on every successful save; a save presenting a stale counter
// fails with domain.ErrConflict and writes nothing.
type Store struct {
	mu      sync.Mutex
	doc     *domain.Document
	version int

	// LoadErr and SaveErr, when set, force the next corresponding call to
	// fail with that error.
	LoadErr error
	SaveErr error

	// BeforeSave, when set, runs at the start of Save before any locking.
	// Tests use it to interleave a concurrent writer.
	BeforeSave func()
}

// NewStore creates a store seeded with doc. A nil doc starts empty.
func NewStore(doc *domain.Document) *Store {
	if doc == nil {
		doc = domain.NewDocument()
	}
	return &Store{doc: doc}
}

// Load returns a deep copy of the current document and the current token.
func (s *Store) Load(_ context.Context) (*domain.Document, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.LoadErr != nil {
		return nil, "", s.LoadErr
	}
	doc, err := clone(s.doc)
	if err != nil {
		return nil, "", err
	}
	return doc, strconv.Itoa(s.version), nil
}

// Save replaces the document if token still matches the current version.
func (s *Store) Save(_ context.Context, doc *domain.Document, token string) error {
	if s.BeforeSave != nil {
		s.BeforeSave()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return s.SaveErr
	}
	if token != strconv.Itoa(s.version) {
		return domain.ErrConflict
	}
	copied, err := clone(doc)
	if err != nil {
		return err
	}
	s.doc = copied
	s.version++
	return nil
}

// Document returns a deep copy of the currently persisted document.
func (s *Store) Document() *domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := clone(s.doc)
	if err != nil {
		panic(err)
	}
	return doc
}

// Bump advances the version as if another writer had committed, so the next
// save with a previously loaded token conflicts.
func (s *Store) Bump() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
}

// clone deep-copies a document through its persistence codec, which also
// keeps the test double honest about what survives serialisation.
func clone(doc *domain.Document) (*domain.Document, error) {
	data, err := doc.EncodePretty()
	if err != nil {
		return nil, err
	}
	return domain.DecodeDocument(data)
}
