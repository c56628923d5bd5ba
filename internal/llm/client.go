// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm sends generation prompts to a locally hosted inference
// server speaking the Ollama /api/generate wire format.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/bookgen/internal/httputil"
	"github.com/pdiddy/bookgen/pkg/types"
)

// Backend abstracts the text-generation API so tests can supply a mock.
// One call is in flight at a time; implementations need no internal
// synchronization.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	defaultTimeout     = 120 * time.Second
	defaultTemperature = 0.75
	defaultTopP        = 0.9
	defaultNumCtx      = 8000
)

// generateRequest is the request body for the /api/generate endpoint.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

// generateOptions carries the sampling parameters.
type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumCtx      int     `json:"num_ctx"`
	Seed        int64   `json:"seed"`
}

// generateResponse is the relevant subset of the /api/generate response.
type generateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

// Client calls the inference server's generate endpoint with bounded
// retry on transport errors and retryable statuses.
type Client struct {
	cfg        types.LLMConfig
	endpoint   string
	httpClient *http.Client
}

// timeSeed returns the seed sent with each request. A fresh wall-clock
// seed keeps repeated runs on the same topic from producing identical
// text. Tests override this for determinism.
var timeSeed = func() int64 { return time.Now().Unix() }

// NewClient builds a Client for cfg, applying defaults for unset fields.
func NewClient(cfg types.LLMConfig) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = "http://localhost:11434"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.TopP <= 0 {
		cfg.TopP = defaultTopP
	}
	if cfg.NumCtx <= 0 {
		cfg.NumCtx = defaultNumCtx
	}

	return &Client{
		cfg:        cfg,
		endpoint:   strings.TrimSuffix(cfg.APIURL, "/") + "/api/generate",
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Generate sends prompt to the server and returns the generated text.
// Transport errors and 429/5xx statuses are retried up to MaxRetries
// times with backoff; exhausting retries, a non-retryable status, or an
// empty completion is an error.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: c.cfg.Temperature,
			TopP:        c.cfg.TopP,
			NumCtx:      c.cfg.NumCtx,
			Seed:        timeSeed(),
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.httpClient, req, c.cfg.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("calling generate endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generate endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var gResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return "", fmt.Errorf("decoding generate response: %w", err)
	}

	if gResp.Response == "" {
		return "", fmt.Errorf("generate endpoint returned an empty completion")
	}

	return gResp.Response, nil
}
