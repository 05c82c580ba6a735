// Package openrouter implements llm.Client against the OpenRouter
// chat-completions API (or any endpoint speaking the same protocol).
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/streamartifact/streamartifact/llm"
)

const (
	DefaultEndpoint = "https://openrouter.ai/api/v1"

	defaultMaxResponseBytes = 1 << 20
	defaultTimeout          = 30 * time.Second
)

type Client struct {
	Endpoint string
	APIKey   string
	// HTTP is injectable for tests; nil uses a client with the default
	// timeout.
	HTTP *http.Client
	// MaxResponseBytes caps how much of the response body is read.
	MaxResponseBytes int64
}

func New(endpoint, apiKey string) *Client {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		Endpoint:         endpoint,
		APIKey:           apiKey,
		MaxResponseBytes: defaultMaxResponseBytes,
	}
}

type chatPayload struct {
	Model            string        `json:"model"`
	Messages         []llm.Message `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	payload := chatPayload{
		Model:    req.Model,
		Messages: req.Messages,
		// Chat replies stay short; these defaults match the bot's
		// conversational tuning.
		MaxTokens:        150,
		Temperature:      0.8,
		TopP:             0.9,
		FrequencyPenalty: 0.3,
		PresencePenalty:  0.3,
	}
	if v, ok := intParam(req.Parameters, "max_tokens"); ok {
		payload.MaxTokens = v
	}
	if v, ok := floatParam(req.Parameters, "temperature"); ok {
		payload.Temperature = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return llm.Result{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return llm.Result{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", "https://stream-artifact.ai")
	httpReq.Header.Set("X-Title", "Stream Artifact Chatbot")

	started := time.Now()
	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return llm.Result{}, fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	limit := c.MaxResponseBytes
	if limit <= 0 {
		limit = defaultMaxResponseBytes
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return llm.Result{}, fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return llm.Result{}, fmt.Errorf("chat request failed: status %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return llm.Result{}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return llm.Result{}, fmt.Errorf("chat response has no choices")
	}

	return llm.Result{
		Text: strings.TrimSpace(out.Choices[0].Message.Content),
		Usage: llm.Usage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
			TotalTokens:  out.Usage.TotalTokens,
		},
		Duration: time.Since(started),
	}, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: defaultTimeout}
}

func intParam(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

func floatParam(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
