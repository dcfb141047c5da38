package line

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
)

type capturedRequest struct {
	path     string
	auth     string
	retryKey string
	body     []byte
}

func newTestClient(t *testing.T, status int, captured *capturedRequest) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		captured.retryKey = r.Header.Get("X-Line-Retry-Key")
		body, _ := io.ReadAll(r.Body)
		captured.body = body
		w.WriteHeader(status)
		w.Write([]byte("{}"))
	}))
	t.Cleanup(server.Close)

	client, err := New(Config{
		ChannelToken: "channel-token",
		BaseURL:      server.URL,
	})
	require.NoError(t, err)
	return client
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestClient_Push(t *testing.T) {
	var captured capturedRequest
	client := newTestClient(t, http.StatusOK, &captured)

	err := client.Push(context.Background(), "U123", []driven.Message{
		driven.TextMessage("おはようございます"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/v2/bot/message/push", captured.path)
	assert.Equal(t, "Bearer channel-token", captured.auth)
	assert.NotEmpty(t, captured.retryKey)

	var body pushRequest
	require.NoError(t, json.Unmarshal(captured.body, &body))
	assert.Equal(t, "U123", body.To)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "text", body.Messages[0].Type)
	assert.Equal(t, "おはようございます", body.Messages[0].Text)
}

func TestClient_Push_FreshRetryKeyPerCall(t *testing.T) {
	var captured capturedRequest
	client := newTestClient(t, http.StatusOK, &captured)
	ctx := context.Background()

	require.NoError(t, client.Push(ctx, "U123", []driven.Message{driven.TextMessage("a")}))
	first := captured.retryKey
	require.NoError(t, client.Push(ctx, "U123", []driven.Message{driven.TextMessage("b")}))

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, captured.retryKey)
}

func TestClient_Push_ImageMessage(t *testing.T) {
	var captured capturedRequest
	client := newTestClient(t, http.StatusOK, &captured)

	err := client.Push(context.Background(), "U123", []driven.Message{
		{Type: driven.MessageImage, ImageURL: "https://example.com/mindmap.png"},
	})
	require.NoError(t, err)

	var body pushRequest
	require.NoError(t, json.Unmarshal(captured.body, &body))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "image", body.Messages[0].Type)
	assert.Equal(t, "https://example.com/mindmap.png", body.Messages[0].OriginalContentURL)
	assert.Equal(t, "https://example.com/mindmap.png", body.Messages[0].PreviewImageURL)
}

func TestClient_Push_PromptMessage(t *testing.T) {
	var captured capturedRequest
	client := newTestClient(t, http.StatusOK, &captured)

	err := client.Push(context.Background(), "U123", []driven.Message{
		{
			Type:        driven.MessagePrompt,
			Text:        "思考プロセスの詳細を見るにはボタンを押してください。",
			PromptLabel: "詳細を見る",
			PromptText:  "詳細を見る",
		},
	})
	require.NoError(t, err)

	var body pushRequest
	require.NoError(t, json.Unmarshal(captured.body, &body))
	require.Len(t, body.Messages, 1)

	msg := body.Messages[0]
	assert.Equal(t, "text", msg.Type)
	require.NotNil(t, msg.QuickReply)
	require.Len(t, msg.QuickReply.Items, 1)
	assert.Equal(t, "action", msg.QuickReply.Items[0].Type)
	assert.Equal(t, "message", msg.QuickReply.Items[0].Action.Type)
	assert.Equal(t, "詳細を見る", msg.QuickReply.Items[0].Action.Label)
	assert.Equal(t, "詳細を見る", msg.QuickReply.Items[0].Action.Text)
}

func TestClient_Reply(t *testing.T) {
	var captured capturedRequest
	client := newTestClient(t, http.StatusOK, &captured)

	err := client.Reply(context.Background(), "reply-token-1", []driven.Message{
		driven.TextMessage("受け付けました"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/v2/bot/message/reply", captured.path)
	assert.Empty(t, captured.retryKey)

	var body replyRequest
	require.NoError(t, json.Unmarshal(captured.body, &body))
	assert.Equal(t, "reply-token-1", body.ReplyToken)
}

func TestClient_Push_ErrorStatus(t *testing.T) {
	var captured capturedRequest
	client := newTestClient(t, http.StatusTooManyRequests, &captured)

	err := client.Push(context.Background(), "U123", []driven.Message{driven.TextMessage("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
