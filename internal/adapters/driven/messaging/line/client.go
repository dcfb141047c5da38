// Package line implements the push-notification transport on the LINE
// Messaging API. Every push carries a fresh X-Line-Retry-Key so a
// transport-level retry of the same request cannot double-deliver, and all
// calls pass through a proactive rate limiter.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
	"github.com/masapokki/line-night-idea-enhancer/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.Messenger = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.line.me"
	DefaultTimeout = 30 * time.Second

	// ProactiveRate keeps message calls comfortably inside the Messaging
	// API quota.
	ProactiveRate = 2
)

// Config holds configuration for the LINE client.
type Config struct {
	// ChannelToken is the long-lived channel access token (required).
	ChannelToken string

	// BaseURL is the API base URL (default: https://api.line.me).
	BaseURL string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Client delivers messages over the LINE Messaging API.
type Client struct {
	client  *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter

	// newRetryKey generates the idempotency key attached to push requests.
	newRetryKey func() string
}

// New creates a new LINE messaging client.
func New(cfg Config) (*Client, error) {
	if cfg.ChannelToken == "" {
		return nil, fmt.Errorf("line: channel access token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     cfg.BaseURL,
		token:       cfg.ChannelToken,
		limiter:     rate.NewLimiter(rate.Limit(ProactiveRate), 1),
		newRetryKey: uuid.NewString,
	}, nil
}

// pushRequest is the /v2/bot/message/push request format.
type pushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

// replyRequest is the /v2/bot/message/reply request format.
type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []lineMessage `json:"messages"`
}

// lineMessage mirrors the Messaging API message object.
type lineMessage struct {
	Type               string      `json:"type"`
	Text               string      `json:"text,omitempty"`
	OriginalContentURL string      `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string      `json:"previewImageUrl,omitempty"`
	QuickReply         *quickReply `json:"quickReply,omitempty"`
}

type quickReply struct {
	Items []quickReplyItem `json:"items"`
}

type quickReplyItem struct {
	Type   string           `json:"type"`
	Action quickReplyAction `json:"action"`
}

type quickReplyAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Push sends an ordered message sequence to a recipient as one request.
func (c *Client) Push(ctx context.Context, recipientID string, messages []driven.Message) error {
	body := pushRequest{
		To:       recipientID,
		Messages: toLineMessages(messages),
	}
	return c.post(ctx, "/v2/bot/message/push", body, c.newRetryKey())
}

// Reply answers an inbound webhook event. Reply tokens are single-use, so
// no retry key is attached.
func (c *Client) Reply(ctx context.Context, replyToken string, messages []driven.Message) error {
	body := replyRequest{
		ReplyToken: replyToken,
		Messages:   toLineMessages(messages),
	}
	return c.post(ctx, "/v2/bot/message/reply", body, "")
}

// toLineMessages translates port messages into Messaging API objects.
// Prompt messages become text messages carrying a message-action quick
// reply; image messages use the same URL for content and preview.
func toLineMessages(messages []driven.Message) []lineMessage {
	out := make([]lineMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Type {
		case driven.MessageImage:
			out = append(out, lineMessage{
				Type:               "image",
				OriginalContentURL: m.ImageURL,
				PreviewImageURL:    m.ImageURL,
			})
		case driven.MessagePrompt:
			out = append(out, lineMessage{
				Type: "text",
				Text: m.Text,
				QuickReply: &quickReply{
					Items: []quickReplyItem{{
						Type: "action",
						Action: quickReplyAction{
							Type:  "message",
							Label: m.PromptLabel,
							Text:  m.PromptText,
						},
					}},
				},
			})
		default:
			out = append(out, lineMessage{Type: "text", Text: m.Text})
		}
	}
	return out
}

// post sends one Messaging API request. Any non-200 response is an error;
// the caller decides whether that fails a record or a run.
func (c *Client) post(ctx context.Context, path string, body any, retryKey string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if retryKey != "" {
		req.Header.Set("X-Line-Retry-Key", retryKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("line: %s returned status %d", path, resp.StatusCode)
		}
		return fmt.Errorf("line: %s returned status %d: %s", path, resp.StatusCode, string(respBody))
	}

	logger.Debug("line: %s delivered %s", path, retryKey)
	return nil
}
