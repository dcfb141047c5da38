// Package file implements the document store on a single local JSON file.
// This variant has no concurrent writers: Save accepts a version token for
// interface compatibility and ignores it, and every write succeeds
// unconditionally. The file is replaced atomically via rename so readers
// never observe a partial document.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/masapokki/line-night-idea-enhancer/internal/core/domain"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// DefaultPath is the database location relative to the working directory,
// matching where the hosted variant keeps the file in its repository.
const DefaultPath = "data/database.json"

// Store is a local-file document store.
type Store struct {
	path string
}

// New creates a store backed by the JSON file at path.
// An empty path selects DefaultPath.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Load reads and validates the document. A missing file yields an empty
// document, so the first run needs no manual setup.
func (s *Store) Load(_ context.Context) (*domain.Document, string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewDocument(), "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", s.path, err)
	}

	doc, err := domain.DecodeDocument(data)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc, "", nil
}

// Save writes the whole document, replacing the previous file atomically.
// The version token is ignored.
func (s *Store) Save(_ context.Context, doc *domain.Document, _ string) error {
	data, err := doc.EncodePretty()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
