package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masapokki/line-night-idea-enhancer/internal/core/domain"
)

const contentsPath = "/repos/masapokki/idea-db/contents/data/database.json"

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := gh.NewClient(nil)
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = baseURL

	return NewWithClient(client, Config{
		Owner:         "masapokki",
		Repo:          "idea-db",
		CommitMessage: "Update database with processed ideas",
	})
}

func contentsResponse(t *testing.T, doc *domain.Document, sha string) []byte {
	t.Helper()

	data, err := doc.EncodePretty()
	require.NoError(t, err)

	body, err := json.Marshal(map[string]string{
		"type":     "file",
		"encoding": "base64",
		"name":     "database.json",
		"path":     "data/database.json",
		"sha":      sha,
		"content":  base64.StdEncoding.EncodeToString(data),
	})
	require.NoError(t, err)
	return body
}

func TestStore_Load(t *testing.T) {
	doc := domain.NewDocument()
	doc.Ideas["idea_20250406_001"] = domain.Idea{Content: "朝活アプリ", UserID: "U123"}

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, contentsPath, r.URL.Path)
		w.Write(contentsResponse(t, doc, "abc123"))
	})

	loaded, token, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
	assert.Equal(t, "朝活アプリ", loaded.Ideas["idea_20250406_001"].Content)
}

func TestStore_Load_MissingFile(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	doc, token, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Empty(t, doc.Ideas)
}

func TestStore_Load_Malformed(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		body, err := json.Marshal(map[string]string{
			"type":     "file",
			"encoding": "base64",
			"sha":      "abc123",
			"content":  base64.StdEncoding.EncodeToString([]byte("{broken")),
		})
		require.NoError(t, err)
		w.Write(body)
	})

	_, _, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestStore_Save(t *testing.T) {
	var got struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, contentsPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"content":{"sha":"def456"}}`)
	})

	doc := domain.NewDocument()
	doc.Ideas["idea_20250406_001"] = domain.Idea{Content: "朝活アプリ", UserID: "U123"}

	require.NoError(t, store.Save(context.Background(), doc, "abc123"))
	assert.Equal(t, "Update database with processed ideas", got.Message)
	assert.Equal(t, "abc123", got.SHA)

	decoded, err := base64.StdEncoding.DecodeString(got.Content)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "朝活アプリ")
}

func TestStore_Save_CreateOmitsSHA(t *testing.T) {
	var body map[string]any

	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"content":{"sha":"def456"}}`)
	})

	require.NoError(t, store.Save(context.Background(), domain.NewDocument(), ""))
	_, hasSHA := body["sha"]
	assert.False(t, hasSHA)
}

func TestStore_Save_Conflict(t *testing.T) {
	for _, status := range []int{http.StatusConflict, http.StatusUnprocessableEntity} {
		store := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"message":"sha does not match"}`)
		})

		err := store.Save(context.Background(), domain.NewDocument(), "stale")
		assert.ErrorIs(t, err, domain.ErrConflict, "status %d", status)
	}
}
