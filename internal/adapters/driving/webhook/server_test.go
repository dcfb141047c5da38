package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masapokki/line-night-idea-enhancer/internal/adapters/driven/docstore/memory"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/domain"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
)

const testSecret = "channel-secret"

// replyCall records one Reply invocation.
type replyCall struct {
	token    string
	messages []driven.Message
}

type fakeMessenger struct {
	replies []replyCall
}

func (f *fakeMessenger) Push(context.Context, string, []driven.Message) error {
	return nil
}

func (f *fakeMessenger) Reply(_ context.Context, token string, messages []driven.Message) error {
	f.replies = append(f.replies, replyCall{token: token, messages: messages})
	return nil
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newTestServer(store *memory.Store, messenger *fakeMessenger) *Server {
	srv := New(Config{Addr: ":0", ChannelSecret: testSecret}, store, messenger)
	srv.now = func() time.Time {
		return time.Date(2025, 4, 6, 23, 45, 0, 0, time.UTC)
	}
	return srv
}

func postWebhook(t *testing.T, srv *Server, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", signature)
	rec := httptest.NewRecorder()
	srv.handleWebhook(rec, req)
	return rec
}

func messageEvent(text string) []byte {
	return fmt.Appendf(nil,
		`{"events":[{"type":"message","replyToken":"reply-1","source":{"userId":"U123"},"message":{"type":"text","text":%q}}]}`,
		text)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"events":[]}`)
	assert.True(t, VerifySignature(testSecret, body, sign(body)))
	assert.False(t, VerifySignature(testSecret, body, "forged"))
	assert.False(t, VerifySignature("other-secret", body, sign(body)))
}

func TestServer_RejectsBadSignature(t *testing.T) {
	store := memory.NewStore(nil)
	srv := newTestServer(store, &fakeMessenger{})

	rec := postWebhook(t, srv, messageEvent("x"), "forged")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, store.Document().Ideas)
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv := newTestServer(memory.NewStore(nil), &fakeMessenger{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "running")
}

func TestServer_RejectsNonPost(t *testing.T) {
	srv := newTestServer(memory.NewStore(nil), &fakeMessenger{})

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	srv.handleWebhook(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_EmptyEventsVerifiesEndpoint(t *testing.T) {
	srv := newTestServer(memory.NewStore(nil), &fakeMessenger{})
	body := []byte(`{"events":[]}`)

	rec := postWebhook(t, srv, body, sign(body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Webhook verified", rec.Body.String())
}

func TestServer_IngestsIdea(t *testing.T) {
	store := memory.NewStore(nil)
	messenger := &fakeMessenger{}
	srv := newTestServer(store, messenger)

	body := messageEvent("夜中に思いついたアイデア")
	rec := postWebhook(t, srv, body, sign(body))
	require.Equal(t, http.StatusOK, rec.Code)

	saved := store.Document()
	idea, ok := saved.Ideas["idea_20250406_001"]
	require.True(t, ok)
	assert.Equal(t, "夜中に思いついたアイデア", idea.Content)
	assert.Equal(t, "U123", idea.UserID)
	assert.False(t, idea.Processed)

	_, ok = saved.Users["U123"]
	assert.True(t, ok)

	require.Len(t, messenger.replies, 1)
	assert.Equal(t, "reply-1", messenger.replies[0].token)
	require.Len(t, messenger.replies[0].messages, 1)
	assert.Contains(t, messenger.replies[0].messages[0].Text, "アイデアを受け付けました")
}

func TestServer_IngestsSecondIdeaWithNextSequence(t *testing.T) {
	store := memory.NewStore(nil)
	srv := newTestServer(store, &fakeMessenger{})

	body := messageEvent("一つ目")
	postWebhook(t, srv, body, sign(body))
	body = messageEvent("二つ目")
	postWebhook(t, srv, body, sign(body))

	saved := store.Document()
	assert.Len(t, saved.Ideas, 2)
	assert.Contains(t, saved.Ideas, "idea_20250406_002")
}

func TestServer_DetailRequestRepliesThinkingProcess(t *testing.T) {
	doc := domain.NewDocument()
	doc.Ideas["idea_20250406_001"] = domain.Idea{
		Content: "朝活アプリ", UserID: "U123", Processed: true,
	}
	doc.Results["result_20250406_001"] = domain.Result{
		IdeaID:      "idea_20250406_001",
		Analysis:    "分析テキスト",
		Evaluation:  "評価テキスト",
		Expansion:   "拡張テキスト",
		Feasibility: "実現性テキスト",
		CreatedAt:   time.Date(2025, 4, 7, 2, 0, 0, 0, time.UTC),
	}
	store := memory.NewStore(doc)
	messenger := &fakeMessenger{}
	srv := newTestServer(store, messenger)

	body := messageEvent("詳細を見る")
	rec := postWebhook(t, srv, body, sign(body))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, messenger.replies, 1)
	messages := messenger.replies[0].messages
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0].Text, "【思考プロセス 1/2】")
	assert.Contains(t, messages[0].Text, "分析テキスト")
	assert.Contains(t, messages[0].Text, "評価テキスト")
	assert.Contains(t, messages[1].Text, "【思考プロセス 2/2】")
	assert.Contains(t, messages[1].Text, "拡張テキスト")
	assert.Contains(t, messages[1].Text, "実現性テキスト")

	// A detail request never creates an idea record.
	assert.Len(t, store.Document().Ideas, 1)
}

func TestServer_DetailRequestPicksLatestResult(t *testing.T) {
	doc := domain.NewDocument()
	doc.Ideas["idea_20250406_001"] = domain.Idea{Content: "a", UserID: "U123", Processed: true}
	doc.Ideas["idea_20250407_001"] = domain.Idea{Content: "b", UserID: "U123", Processed: true}
	doc.Ideas["idea_20250407_002"] = domain.Idea{Content: "c", UserID: "U999", Processed: true}
	doc.Results["result_20250406_001"] = domain.Result{
		IdeaID: "idea_20250406_001", Analysis: "古い",
		CreatedAt: time.Date(2025, 4, 6, 2, 0, 0, 0, time.UTC),
	}
	doc.Results["result_20250407_001"] = domain.Result{
		IdeaID: "idea_20250407_001", Analysis: "新しい",
		CreatedAt: time.Date(2025, 4, 7, 2, 0, 0, 0, time.UTC),
	}
	doc.Results["result_20250407_002"] = domain.Result{
		IdeaID: "idea_20250407_002", Analysis: "他人の",
		CreatedAt: time.Date(2025, 4, 8, 2, 0, 0, 0, time.UTC),
	}
	messenger := &fakeMessenger{}
	srv := newTestServer(memory.NewStore(doc), messenger)

	body := messageEvent("詳細を見る")
	postWebhook(t, srv, body, sign(body))

	require.Len(t, messenger.replies, 1)
	assert.Contains(t, messenger.replies[0].messages[0].Text, "新しい")
}

func TestServer_DetailRequestWithoutResults(t *testing.T) {
	messenger := &fakeMessenger{}
	srv := newTestServer(memory.NewStore(nil), messenger)

	body := messageEvent("詳細を見る")
	postWebhook(t, srv, body, sign(body))

	require.Len(t, messenger.replies, 1)
	require.Len(t, messenger.replies[0].messages, 1)
	assert.Contains(t, messenger.replies[0].messages[0].Text, "まだ処理済みのアイデアがありません")
}
