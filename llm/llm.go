// Package llm defines the outbound AI-completion contract. The
// assembler depends only on Client; providers live under providers/.
package llm

import (
	"context"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type Result struct {
	Text     string
	Usage    Usage
	Duration time.Duration
}

type Request struct {
	Model      string
	Messages   []Message
	Parameters map[string]any
}

// Client takes an assembled prompt and returns text or fails. It is
// the only long-latency external dependency in the pipeline; callers
// bound it with a ctx timeout.
type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
