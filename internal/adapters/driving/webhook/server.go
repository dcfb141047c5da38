// Package webhook receives LINE Messaging API webhook events and appends
// incoming ideas to the shared document. It also answers the follow-up
// quick reply with the stored thinking process for the user's latest
// enhanced idea.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/masapokki/line-night-idea-enhancer/internal/core/domain"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
	"github.com/masapokki/line-night-idea-enhancer/internal/logger"
)

// Config holds webhook server settings.
type Config struct {
	// Addr is the listen address, e.g. ":3000".
	Addr string

	// ChannelSecret signs webhook request bodies.
	ChannelSecret string
}

// Server is the webhook HTTP server.
type Server struct {
	cfg       Config
	store     driven.DocumentStore
	messenger driven.Messenger
	now       func() time.Time
}

// New creates a webhook server backed by the given document store and
// messenger.
func New(cfg Config, store driven.DocumentStore, messenger driven.Messenger) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		messenger: messenger,
		now:       time.Now,
	}
}

// Run serves webhook requests until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)
	mux.HandleFunc("/webhook", s.handleWebhook)

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("webhook server listening on %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// handleHealth answers platform liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, "Night Idea Enhancer is running")
}

// VerifySignature checks the X-Line-Signature header against an
// HMAC-SHA256 of the request body keyed with the channel secret.
func VerifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// webhookRequest mirrors the Messaging API webhook payload, reduced to the
// fields the server acts on.
type webhookRequest struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	if !VerifySignature(s.cfg.ChannelSecret, body, r.Header.Get("X-Line-Signature")) {
		logger.Warn("webhook signature mismatch")
		http.Error(w, domain.ErrInvalidSignature.Error(), http.StatusUnauthorized)
		return
	}

	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "decode payload", http.StatusBadRequest)
		return
	}

	// The platform probes the endpoint with an empty event list when the
	// webhook URL is registered.
	if len(req.Events) == 0 {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "Webhook verified")
		return
	}

	for _, ev := range req.Events {
		if ev.Type != "message" || ev.Message.Type != "text" {
			continue
		}
		if err := s.handleTextMessage(r.Context(), ev); err != nil {
			logger.Warn("webhook event: %v", err)
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTextMessage(ctx context.Context, ev webhookEvent) error {
	if ev.Message.Text == detailRequestText {
		return s.replyDetails(ctx, ev)
	}
	return s.ingestIdea(ctx, ev)
}

const (
	detailRequestText = "詳細を見る"

	ideaAckText = "アイデアを受け付けました！明日の朝、ブラッシュアップした内容をお届けします。"

	noResultText = "まだ処理済みのアイデアがありません。アイデアを送っていただくと、翌朝にブラッシュアップしてお届けします。"
)

// ingestIdea appends the message text as a new unprocessed idea and
// acknowledges it on the reply token.
func (s *Server) ingestIdea(ctx context.Context, ev webhookEvent) error {
	doc, token, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	now := s.now()
	id := domain.NewIdeaID(now, len(doc.Ideas)+1)

	doc.Ideas[id] = domain.Idea{
		Content:   ev.Message.Text,
		UserID:    ev.Source.UserID,
		CreatedAt: now,
		Processed: false,
	}
	if doc.Users == nil {
		doc.Users = make(map[string]domain.User)
	}
	if _, ok := doc.Users[ev.Source.UserID]; !ok {
		doc.Users[ev.Source.UserID] = domain.User{CreatedAt: now}
	}

	if err := s.store.Save(ctx, doc, token); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	logger.Info("stored idea %s from %s", id, ev.Source.UserID)

	return s.messenger.Reply(ctx, ev.ReplyToken, []driven.Message{
		driven.TextMessage(ideaAckText),
	})
}

// replyDetails sends the stored thinking process for the user's most
// recently enhanced idea, split over two messages.
func (s *Server) replyDetails(ctx context.Context, ev webhookEvent) error {
	doc, _, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	result, ok := latestResultFor(doc, ev.Source.UserID)
	if !ok {
		return s.messenger.Reply(ctx, ev.ReplyToken, []driven.Message{
			driven.TextMessage(noResultText),
		})
	}

	first := fmt.Sprintf(
		"【思考プロセス 1/2】\n\n1️⃣ 分析\n%s\n\n2️⃣ 評価\n%s",
		result.Analysis, result.Evaluation,
	)
	second := fmt.Sprintf(
		"【思考プロセス 2/2】\n\n3️⃣ 拡張\n%s\n\n4️⃣ 実現性\n%s",
		result.Expansion, result.Feasibility,
	)
	return s.messenger.Reply(ctx, ev.ReplyToken, []driven.Message{
		driven.TextMessage(first),
		driven.TextMessage(second),
	})
}

// latestResultFor returns the newest result whose source idea belongs to
// userID.
func latestResultFor(doc *domain.Document, userID string) (domain.Result, bool) {
	var (
		best  domain.Result
		found bool
	)
	for _, result := range doc.Results {
		idea, ok := doc.Ideas[result.IdeaID]
		if !ok || idea.UserID != userID {
			continue
		}
		if !found || result.CreatedAt.After(best.CreatedAt) {
			best = result
			found = true
		}
	}
	return best, found
}
