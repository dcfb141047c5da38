package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Document is the single unit of persistence: the whole pipeline database,
// stored as one pretty-printed JSON object. It is always loaded, mutated and
// saved as a unit.
type Document struct {
	Users   map[string]User   `json:"users,omitempty"`
	Ideas   map[string]Idea   `json:"ideas"`
	Results map[string]Result `json:"results"`
}

// User records a known delivery recipient. The pipeline stages never touch
// this mapping; it is maintained by the ingest path.
type User struct {
	CreatedAt time.Time `json:"created_at"`
}

// Idea is a user-submitted text record awaiting enrichment. Ideas are
// immutable once written except for the Processed flag, which the enrichment
// stage sets exactly once, from false to true.
type Idea struct {
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	Processed bool      `json:"processed"`
}

// Result holds the enrichment output derived from exactly one idea.
// Sent and MindmapImageGenerated transition false to true only.
type Result struct {
	IdeaID          string `json:"idea_id"`
	Analysis        string `json:"analysis,omitempty"`
	Evaluation      string `json:"evaluation,omitempty"`
	Expansion       string `json:"expansion,omitempty"`
	Feasibility     string `json:"feasibility,omitempty"`
	EnhancedContent string `json:"enhanced_content"`
	MindmapContent  string `json:"mindmap_content"`

	CreatedAt time.Time `json:"created_at"`
	Sent      bool      `json:"sent"`

	// MindmapImagePath is an optional stored reference to a pre-rendered
	// mind-map image. MindmapImageGenerated tracks whether an image-bearing
	// message has been dispatched for this result.
	MindmapImagePath      string `json:"mindmap_image_path,omitempty"`
	MindmapImageGenerated bool   `json:"mindmap_image_generated,omitempty"`
}

// NewDocument returns an empty document with initialised mappings.
func NewDocument() *Document {
	return &Document{
		Ideas:   make(map[string]Idea),
		Results: make(map[string]Result),
	}
}

// Validate checks schema conformance. A document that fails validation must
// be rejected at load time rather than repaired.
func (d *Document) Validate() error {
	for id, idea := range d.Ideas {
		if idea.Content == "" {
			return fmt.Errorf("%w: idea %s: missing content", ErrMalformedDocument, id)
		}
	}
	for id, result := range d.Results {
		if result.IdeaID == "" {
			return fmt.Errorf("%w: result %s: missing idea_id", ErrMalformedDocument, id)
		}
	}
	return nil
}

// UnprocessedIdeaIDs returns the identifiers of ideas awaiting enrichment,
// sorted ascending. Identifiers embed their creation date, so the order is
// chronological and stable across runs.
func (d *Document) UnprocessedIdeaIDs() []string {
	var ids []string
	for id, idea := range d.Ideas {
		if !idea.Processed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// UnsentResultIDs returns the identifiers of results awaiting delivery,
// sorted ascending.
func (d *Document) UnsentResultIDs() []string {
	var ids []string
	for id, result := range d.Results {
		if !result.Sent {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// PendingImageResultIDs returns the identifiers of delivered results whose
// mind-map image is still outstanding, sorted ascending. A result enters
// this state when its text sequence was sent but the image step failed;
// the image is retried on a later run.
func (d *Document) PendingImageResultIDs() []string {
	var ids []string
	for id, result := range d.Results {
		if result.Sent && result.MindmapContent != "" && !result.MindmapImageGenerated {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// DecodeDocument parses and validates a stored document. Parse and schema
// failures both surface as ErrMalformedDocument. Missing top-level mappings
// are initialised so callers can insert records without nil checks.
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc.Ideas == nil {
		doc.Ideas = make(map[string]Idea)
	}
	if doc.Results == nil {
		doc.Results = make(map[string]Result)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// EncodePretty serialises the document as indented UTF-8 JSON with sorted
// keys, suitable for human diffing in the backing store. Non-ASCII text is
// written as-is, not escaped.
func (d *Document) EncodePretty() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}
