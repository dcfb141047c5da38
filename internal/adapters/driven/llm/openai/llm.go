// Package openai provides the idea enhancement and mind-map functions
// using the OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
	"github.com/masapokki/line-night-idea-enhancer/internal/logger"
)

// Ensure Enhancer implements the interface.
var _ driven.IdeaEnhancer = (*Enhancer)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"
	DefaultTimeout = 30 * time.Second

	defaultTemperature = 0.7
)

// Config holds configuration for the OpenAI enhancer.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the model to use (default: gpt-4o).
	Model string

	// Timeout is the per-request timeout (default: 30s). A timed-out call
	// fails the record it was serving, never the whole run.
	Timeout time.Duration
}

// Enhancer implements the enrichment and mind-map functions.
type Enhancer struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// New creates a new OpenAI enhancer.
func New(cfg Config) (*Enhancer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Enhancer{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Step prompts for the multi-step enhancement. Each step feeds the previous
// outputs forward so the final write-up integrates the whole analysis.
const (
	analysisSystem    = "あなたはアイデアを分析するエキスパートです。提案されたアイデアの本質、目的、対象ユーザー、解決する問題を簡潔に分析してください。"
	evaluationSystem  = "あなたはアイデアの評価を行うエキスパートです。アイデアの強みと改善が必要な点を簡潔に特定してください。"
	expansionSystem   = "あなたは創造的なアイデアを発展させるエキスパートです。アイデアをより具体的で実用的な形に拡張してください。"
	feasibilitySystem = "あなたは実現可能性を評価するエキスパートです。アイデアの技術的・経済的な実現可能性を簡潔に検討してください。"
	finalSystem       = "あなたは創造的なアイデアを最終的にブラッシュアップするエキスパートです。これまでの分析と評価を統合して、最終的なブラッシュアップ案を作成してください。ユーザーが理解しやすいように、簡潔にまとめてください。"
	mindmapSystem     = "あなたはアイデアからテキスト形式のマインドマップを作成するアシスタントです。中心となるアイデアから派生する概念を階層的に表現してください。簡潔に作成してください。"
)

// EnhanceIdea develops the idea through five chained completions: analysis,
// strengths/weaknesses, expansion, feasibility, and the final write-up.
func (e *Enhancer) EnhanceIdea(ctx context.Context, content string) (*driven.Enhancement, error) {
	logger.Debug("enhancing idea (%d bytes)", len(content))

	analysis, err := e.step(ctx, analysisSystem,
		fmt.Sprintf("以下のアイデアを分析してください：\n\n%s", content), 200)
	if err != nil {
		return nil, fmt.Errorf("analyse idea: %w", err)
	}

	evaluation, err := e.step(ctx, evaluationSystem,
		fmt.Sprintf("以下のアイデアの強みと弱みを評価してください：\n\n%s\n\n分析結果：\n%s",
			content, analysis), 200)
	if err != nil {
		return nil, fmt.Errorf("evaluate idea: %w", err)
	}

	expansion, err := e.step(ctx, expansionSystem,
		fmt.Sprintf("以下のアイデアを拡張・発展させてください：\n\n%s\n\n分析結果：\n%s\n\n評価：\n%s",
			content, analysis, evaluation), 200)
	if err != nil {
		return nil, fmt.Errorf("expand idea: %w", err)
	}

	feasibility, err := e.step(ctx, feasibilitySystem,
		fmt.Sprintf("以下のアイデアの実現可能性を評価してください：\n\n%s\n\n拡張案：\n%s",
			content, expansion), 200)
	if err != nil {
		return nil, fmt.Errorf("assess feasibility: %w", err)
	}

	final, err := e.step(ctx, finalSystem,
		fmt.Sprintf("以下のアイデアの最終ブラッシュアップ案を作成してください：\n\n元のアイデア：\n%s\n\n分析：\n%s\n\n評価：\n%s\n\n拡張案：\n%s\n\n実現可能性：\n%s",
			content, analysis, evaluation, expansion, feasibility), 500)
	if err != nil {
		return nil, fmt.Errorf("finalise enhancement: %w", err)
	}

	return &driven.Enhancement{
		Analysis:    analysis,
		Evaluation:  evaluation,
		Expansion:   expansion,
		Feasibility: feasibility,
		Enhanced:    final,
	}, nil
}

// GenerateMindmap produces a plain-text mind-map outline of the idea.
func (e *Enhancer) GenerateMindmap(ctx context.Context, content string) (string, error) {
	outline, err := e.step(ctx, mindmapSystem,
		fmt.Sprintf("以下のアイデアからテキスト形式のマインドマップを作成してください。階層はインデントで表現し、各項目の前には記号（例：*、-、+など）を付けてください：\n\n%s",
			content), 800)
	if err != nil {
		return "", fmt.Errorf("generate mindmap: %w", err)
	}
	return outline, nil
}

// step runs a single system+user completion.
func (e *Enhancer) step(ctx context.Context, system, user string, maxTokens int) (string, error) {
	messages := []chatCompletionMsg{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	result, err := e.chatCompletion(ctx, messages, maxTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result), nil
}

// chatCompletion posts one /chat/completions request.
func (e *Enhancer) chatCompletion(ctx context.Context, messages []chatCompletionMsg, maxTokens int) (string, error) {
	reqBody := chatCompletionRequest{
		Model:       e.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: defaultTemperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}
