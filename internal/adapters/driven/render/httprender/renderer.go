// Package httprender is the client for the external mind-map rendering
// collaborator: a service that renders an outline to an image and delivers
// it to the recipient in one call. The outline is converted to Mermaid
// graph syntax before it is sent.
package httprender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/masapokki/line-night-idea-enhancer/internal/core/domain"
	"github.com/masapokki/line-night-idea-enhancer/internal/core/ports/driven"
)

// Ensure Renderer implements the interface.
var _ driven.MindmapRenderer = (*Renderer)(nil)

// DefaultTimeout is the request timeout. Rendering spawns a headless
// browser on the collaborator side, so it is allowed more time than a
// plain API call.
const DefaultTimeout = 60 * time.Second

// Config holds configuration for the render client.
type Config struct {
	// BaseURL is the rendering service endpoint (required).
	BaseURL string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// Renderer calls the rendering service.
type Renderer struct {
	client  *http.Client
	baseURL string
}

// renderRequest is the service's render-and-deliver request format.
type renderRequest struct {
	To       string `json:"to"`
	ResultID string `json:"result_id"`
	Mermaid  string `json:"mermaid"`
}

// renderResponse is the service's response format. ImagePath, when present,
// is a stored reference to the rendered image usable for resends.
type renderResponse struct {
	ImagePath string `json:"image_path"`
}

// New creates a new render client.
func New(cfg Config) (*Renderer, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("render: base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Renderer{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
	}, nil
}

// RenderAndSend renders the mind-map outline and delivers the image to the
// recipient. It returns the stored image reference when the service
// provides one.
func (r *Renderer) RenderAndSend(ctx context.Context, recipientID, mindmap, resultID string) (string, error) {
	body := renderRequest{
		To:       recipientID,
		ResultID: resultID,
		Mermaid:  domain.MindmapToMermaid(mindmap),
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		r.baseURL+"/render",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("render: service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var rendered renderResponse
	if err := json.Unmarshal(respBody, &rendered); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return rendered.ImagePath, nil
}
