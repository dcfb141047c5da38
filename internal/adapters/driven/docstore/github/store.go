// Package github implements the remote document store on the GitHub
// contents API. The file's blob SHA is the optimistic-concurrency token:
// a conditional update presenting a stale SHA is rejected by the API
// without writing, which surfaces as domain.ErrConflict. Content travels
// base64-encoded on the wire; the encoding is a transport artifact handled
// by go-github and round-trips byte for byte.
package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/masapokki/line-night-idea-enhancer/internal/core/domain"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

const (
	// DefaultTimeout is the HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPath is the document's path within the repository.
	DefaultPath = "data/database.json"

	// ProactiveRate throttles contents calls well under the authenticated
	// API quota (5000/hour).
	ProactiveRate = 1.2

	defaultCommitMessage = "Update database"
)

// Config holds the remote store configuration.
type Config struct {
	// Token is a GitHub access token with contents read/write scope (required).
	Token string

	// Owner and Repo name the repository holding the document (required).
	Owner string
	Repo  string

	// Path is the document's path within the repository (default: data/database.json).
	Path string

	// CommitMessage is recorded on each save (default: "Update database").
	CommitMessage string
}

// Store is a GitHub-backed document store.
type Store struct {
	gh        *gh.Client
	owner     string
	repo      string
	path      string
	commitMsg string
	limiter   *rate.Limiter
}

// New creates a remote store authenticated with a static token.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github: token is required")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github: repository owner and name are required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = DefaultTimeout

	return newStore(gh.NewClient(tc), cfg), nil
}

// NewWithClient builds a store around an existing go-github client.
// Tests point the client at a local test server.
func NewWithClient(client *gh.Client, cfg Config) *Store {
	return newStore(client, cfg)
}

func newStore(client *gh.Client, cfg Config) *Store {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.CommitMessage == "" {
		cfg.CommitMessage = defaultCommitMessage
	}
	return &Store{
		gh:        client,
		owner:     cfg.Owner,
		repo:      cfg.Repo,
		path:      cfg.Path,
		commitMsg: cfg.CommitMessage,
		limiter:   rate.NewLimiter(rate.Limit(ProactiveRate), 1),
	}
}

// Load fetches and validates the document, returning the blob SHA as the
// version token. A missing file yields an empty document with an empty
// token; the next Save then creates the file.
func (s *Store) Load(ctx context.Context) (*domain.Document, string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	content, _, resp, err := s.gh.Repositories.GetContents(ctx, s.owner, s.repo, s.path, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return domain.NewDocument(), "", nil
		}
		return nil, "", fmt.Errorf("get contents: %w", err)
	}
	if content == nil {
		return nil, "", fmt.Errorf("get contents: %s is a directory", s.path)
	}

	raw, err := content.GetContent()
	if err != nil {
		return nil, "", fmt.Errorf("decode contents: %w", err)
	}
	doc, err := domain.DecodeDocument([]byte(raw))
	if err != nil {
		return nil, "", err
	}
	return doc, content.GetSHA(), nil
}

// Save performs a conditional update of the whole document. An empty token
// creates the file; otherwise the write succeeds only while the stored blob
// still has the given SHA.
func (s *Store) Save(ctx context.Context, doc *domain.Document, token string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	data, err := doc.EncodePretty()
	if err != nil {
		return err
	}

	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(s.commitMsg),
		Content: data,
	}

	var resp *gh.Response
	if token == "" {
		_, resp, err = s.gh.Repositories.CreateFile(ctx, s.owner, s.repo, s.path, opts)
	} else {
		opts.SHA = gh.Ptr(token)
		_, resp, err = s.gh.Repositories.UpdateFile(ctx, s.owner, s.repo, s.path, opts)
	}
	if err != nil {
		if isConflict(resp) {
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
		return fmt.Errorf("update contents: %w", err)
	}
	return nil
}

// isConflict reports whether a contents update was rejected for a stale
// SHA. The API signals this as 409; a missing or mismatched SHA on an
// existing file comes back as 422.
func isConflict(resp *gh.Response) bool {
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusConflict ||
		resp.StatusCode == http.StatusUnprocessableEntity
}
