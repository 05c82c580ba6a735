// Package assembler shapes the bounded context handed to the AI call
// and decides what conversational memory is worth retaining. It
// performs no network I/O beyond the injected llm.Client and reaches
// storage only through the bridge.
package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/streamartifact/streamartifact/bridge"
	"github.com/streamartifact/streamartifact/db/models"
	"github.com/streamartifact/streamartifact/internal/extmap"
	"github.com/streamartifact/streamartifact/llm"
	"github.com/streamartifact/streamartifact/store"
)

const (
	defaultMessageWindow = 10
	defaultMemoryWindow  = 5
	defaultBudget        = 4000
	defaultTimeout       = 30 * time.Second
	defaultMaxReplyLen   = 480

	defaultPersonality = "You are a friendly, helpful AI assistant for a live stream. " +
		"You engage naturally with viewers and provide helpful responses."
)

type Config struct {
	Model string
	// MessageWindow is how many recent channel messages feed the
	// context; MemoryWindow how many stored exchanges for the user.
	MessageWindow int
	MemoryWindow  int
	// Budget bounds the assembled context in characters; oldest
	// entries are dropped first when over it.
	Budget      int
	Timeout     time.Duration
	Personality string
	// MaxReplyLen is the chat platform's message limit.
	MaxReplyLen int
}

func (c Config) withDefaults() Config {
	if c.MessageWindow <= 0 {
		c.MessageWindow = defaultMessageWindow
	}
	if c.MemoryWindow <= 0 {
		c.MemoryWindow = defaultMemoryWindow
	}
	if c.Budget <= 0 {
		c.Budget = defaultBudget
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if strings.TrimSpace(c.Personality) == "" {
		c.Personality = defaultPersonality
	}
	if c.MaxReplyLen <= 0 {
		c.MaxReplyLen = defaultMaxReplyLen
	}
	return c
}

// ReplyRequest is one inbound request for an AI reply concerning a
// user. The role flags feed both the system prompt and the relevance
// score of the stored exchange.
type ReplyRequest struct {
	Username     string
	DisplayName  string
	Channel      string
	Prompt       string
	IsCommand    bool
	IsSubscriber bool
	IsVIP        bool
	IsModerator  bool
}

type Assembler struct {
	bridge *bridge.Bridge
	client llm.Client
	cfg    Config
	log    *slog.Logger
}

func New(b *bridge.Bridge, client llm.Client, cfg Config, log *slog.Logger) *Assembler {
	if log == nil {
		log = slog.Default()
	}
	return &Assembler{
		bridge: b,
		client: client,
		cfg:    cfg.withDefaults(),
		log:    log.With("component", "assembler"),
	}
}

// Reply assembles the context, calls the AI with a timeout, and on
// success persists the exchange as a relevance-scored memory. A failed
// or timed-out call persists nothing: a failed attempt must not become
// a false memory.
func (a *Assembler) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	if a.client == nil {
		return "", fmt.Errorf("no ai client configured")
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}

	runID := uuid.NewString()
	log := a.log.With("run_id", runID, "user", req.Username)

	type window struct {
		memory   []models.AIMemory
		messages []models.Message
	}
	win, err := bridge.Query(ctx, a.bridge, func(ctx context.Context, s *store.Store) (window, error) {
		return window{
			memory:   s.UserMemory(ctx, req.Username, a.cfg.MemoryWindow),
			messages: s.RecentMessages(ctx, req.Channel, a.cfg.MessageWindow),
		}, nil
	})
	if err != nil {
		// Degraded context is still context; the reply outranks it.
		log.Warn("context window unavailable", "error", err)
	}

	messages := a.buildMessages(req, prompt, win.memory, win.messages)

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	res, err := a.client.Chat(callCtx, llm.Request{
		Model:    a.cfg.Model,
		Messages: messages,
	})
	if err != nil {
		log.Warn("ai call failed, nothing persisted", "error", err)
		return "", err
	}

	reply := CleanReply(res.Text, a.cfg.MaxReplyLen)
	if reply == "" {
		return "", fmt.Errorf("ai returned an empty reply")
	}

	score := RelevanceFor(req)
	a.bridge.Post(func(ctx context.Context, s *store.Store) error {
		return s.AddMemory(ctx, store.AddMemoryParams{
			Username:  req.Username,
			Context:   prompt,
			Response:  reply,
			Relevance: score,
			Metadata: extmap.Map{
				"channel":    req.Channel,
				"is_command": req.IsCommand,
			},
		})
	})

	log.Info("ai reply generated",
		"tokens", res.Usage.TotalTokens,
		"duration", res.Duration.String(),
		"relevance", score)
	return reply, nil
}

// buildMessages merges the user's stored exchanges and the channel's
// recent chatter, oldest first, under the character budget. Oldest
// entries drop first when over budget; the system prompt and the
// current user prompt always survive.
func (a *Assembler) buildMessages(req ReplyRequest, prompt string, memory []models.AIMemory, recent []models.Message) []llm.Message {
	system := a.systemPrompt(req)
	userMsg := llm.Message{Role: "user", Content: prompt}

	var middle []llm.Message
	// Store queries return newest first; the prompt wants oldest first.
	for i := len(memory) - 1; i >= 0; i-- {
		m := memory[i]
		if m.Context != "" {
			middle = append(middle, llm.Message{Role: "user", Content: m.Context})
		}
		if m.Response != nil && *m.Response != "" {
			middle = append(middle, llm.Message{Role: "assistant", Content: *m.Response})
		}
	}
	if chat := chatContext(req, recent); chat != "" {
		middle = append(middle, llm.Message{Role: "system", Content: chat})
	}

	budget := a.cfg.Budget - len(system.Content) - len(userMsg.Content)
	for len(middle) > 0 && contentLen(middle) > budget {
		middle = middle[1:]
	}

	out := make([]llm.Message, 0, len(middle)+2)
	out = append(out, system)
	out = append(out, middle...)
	out = append(out, userMsg)
	return out
}

func (a *Assembler) systemPrompt(req ReplyRequest) llm.Message {
	var b strings.Builder
	b.WriteString(a.cfg.Personality)
	b.WriteString("\n\nGuidelines:\n")
	fmt.Fprintf(&b, "- Keep responses under %d characters (chat limit)\n", a.cfg.MaxReplyLen)
	b.WriteString("- Be conversational and engaging\n")
	b.WriteString("- Stay positive and supportive\n")
	b.WriteString("- If you don't know something, say so honestly")
	if req.DisplayName != "" {
		fmt.Fprintf(&b, "\n- The user's display name is: %s", req.DisplayName)
	}
	if req.IsSubscriber {
		b.WriteString("\n- This user is a subscriber")
	}
	if req.IsVIP {
		b.WriteString("\n- This user is a VIP")
	}
	if req.IsModerator {
		b.WriteString("\n- This user is a moderator")
	}
	return llm.Message{Role: "system", Content: b.String()}
}

// chatContext folds the channel's recent chatter (other users only)
// into one system message, skipped for direct commands.
func chatContext(req ReplyRequest, recent []models.Message) string {
	if req.IsCommand || len(recent) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent chat context:\n")
	n := 0
	for i := len(recent) - 1; i >= 0 && n < 5; i-- {
		m := recent[i]
		if m.Username == req.Username {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Username, m.Content)
		n++
	}
	if n == 0 {
		return ""
	}
	return b.String()
}

func contentLen(msgs []llm.Message) int {
	total := 0
	for _, m := range msgs {
		total += len(m.Content)
	}
	return total
}

// RelevanceFor scores an exchange for retention: information-dense
// origins score higher, small talk lower. The score is static once
// written; decay over time is a possible future extension, not
// implemented here.
func RelevanceFor(req ReplyRequest) float64 {
	score := 1.0
	if req.IsCommand {
		score += 0.3
	}
	switch {
	case req.IsVIP || req.IsModerator:
		score += 0.2
	case req.IsSubscriber:
		score += 0.1
	}
	return score
}
