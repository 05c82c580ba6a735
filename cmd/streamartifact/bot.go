package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/streamartifact/streamartifact/assembler"
	"github.com/streamartifact/streamartifact/bridge"
	"github.com/streamartifact/streamartifact/db/models"
	"github.com/streamartifact/streamartifact/dispatch"
	"github.com/streamartifact/streamartifact/internal/extmap"
	"github.com/streamartifact/streamartifact/store"
	"github.com/streamartifact/streamartifact/twitch"
)

// randomReplyGap is the minimum spacing between unprompted AI replies,
// whatever the configured chance.
const randomReplyGap = 30 * time.Second

type sender interface {
	Send(text string) error
}

type bot struct {
	bridge     *bridge.Bridge
	dispatcher *dispatch.Dispatcher
	ai         *assembler.Assembler
	log        *slog.Logger

	mu          sync.Mutex
	lastAIReply time.Time
	aiInFlight  bool
	started     time.Time

	stats struct {
		messages uint64
		replies  uint64
		commands uint64
	}
}

func newBot(b *bridge.Bridge, d *dispatch.Dispatcher, ai *assembler.Assembler, log *slog.Logger) *bot {
	if log == nil {
		log = slog.Default()
	}
	return &bot{
		bridge:     b,
		dispatcher: d,
		ai:         ai,
		log:        log.With("component", "bot"),
		started:    time.Now(),
	}
}

func (bt *bot) handleMessage(ctx context.Context, out sender, m twitch.ChatMessage) {
	bt.mu.Lock()
	bt.stats.messages++
	bt.mu.Unlock()

	// Routine logging is fire-and-forget: chat must never wait on disk.
	// User upsert and message insert ride one submission so the counter
	// row exists before it is bumped.
	bt.bridge.Post(func(ctx context.Context, s *store.Store) error {
		if err := s.UpsertUser(ctx, store.UpsertUserParams{
			Username:     m.Username,
			DisplayName:  m.DisplayName,
			ExternalID:   m.UserID,
			IsSubscriber: m.IsSubscriber,
			IsVIP:        m.IsVIP,
			IsModerator:  m.IsModerator,
		}); err != nil {
			return err
		}
		return s.AddMessage(ctx, store.AddMessageParams{
			Username:    m.Username,
			Content:     m.Content,
			Channel:     m.Channel,
			MessageType: models.MessageTypeChat,
			Metadata: extmap.Map{
				"display_name":  m.DisplayName,
				"is_subscriber": m.IsSubscriber,
				"is_vip":        m.IsVIP,
				"is_mod":        m.IsModerator,
			},
		})
	})

	if strings.HasPrefix(m.Content, "!") {
		bt.handleCommand(ctx, out, m)
		return
	}
	bt.maybeRandomReply(ctx, out, m)
}

func (bt *bot) handleCommand(ctx context.Context, out sender, m twitch.ChatMessage) {
	bt.mu.Lock()
	bt.stats.commands++
	bt.mu.Unlock()

	name, args := splitCommand(m.Content)
	switch name {
	case "ai", "ask", "question":
		bt.spawnAIReply(ctx, out, m, args, true)
		return
	case "help":
		if err := out.Send(bt.helpLine(ctx)); err != nil {
			bt.log.Warn("send failed", "error", err)
		}
		return
	case "stats":
		out2 := bt.statsLine()
		if err := out.Send(out2); err != nil {
			bt.log.Warn("send failed", "error", err)
		}
		return
	case "uptime":
		if err := out.Send("Bot uptime: " + formatDuration(time.Since(bt.started))); err != nil {
			bt.log.Warn("send failed", "error", err)
		}
		return
	}

	dec, err := bt.dispatcher.Dispatch(ctx, dispatch.Invocation{
		Command:       name,
		Channel:       m.Channel,
		Username:      m.Username,
		DisplayName:   m.DisplayName,
		IsBroadcaster: m.IsBroadcaster,
	})
	if err != nil {
		bt.log.Error("dispatch failed", "command", name, "error", err)
		return
	}
	if !dec.Accepted {
		// Silent to chat; the dispatcher already logged the reason.
		return
	}
	if err := out.Send(dec.Response); err != nil {
		bt.log.Warn("send failed", "command", name, "error", err)
	}
}

func (bt *bot) maybeRandomReply(ctx context.Context, out sender, m twitch.ChatMessage) {
	if bt.ai == nil {
		return
	}
	chance := viper.GetFloat64("ai.random_reply_chance")
	if chance <= 0 {
		return
	}

	bt.mu.Lock()
	tooSoon := time.Since(bt.lastAIReply) < randomReplyGap
	bt.mu.Unlock()
	if tooSoon || rand.Float64() >= chance {
		return
	}
	bt.spawnAIReply(ctx, out, m, m.Content, false)
}

// spawnAIReply hands the model call to its own goroutine: handlers run
// on the transport's read loop, and a reply can take the full ai
// timeout. At most one reply is in flight at a time.
func (bt *bot) spawnAIReply(ctx context.Context, out sender, m twitch.ChatMessage, prompt string, isCommand bool) {
	if bt.ai == nil {
		if isCommand {
			_ = out.Send(fmt.Sprintf("@%s AI is not available right now!", m.DisplayName))
		}
		return
	}

	bt.mu.Lock()
	if bt.aiInFlight {
		bt.mu.Unlock()
		if isCommand {
			_ = out.Send(fmt.Sprintf("@%s I'm still thinking about the last one!", m.DisplayName))
		}
		return
	}
	bt.aiInFlight = true
	bt.mu.Unlock()

	go func() {
		defer func() {
			bt.mu.Lock()
			bt.aiInFlight = false
			bt.mu.Unlock()
		}()
		bt.aiReply(ctx, out, m, prompt, isCommand)
	}()
}

func (bt *bot) aiReply(ctx context.Context, out sender, m twitch.ChatMessage, prompt string, isCommand bool) {
	if strings.TrimSpace(prompt) == "" {
		prompt = "Hello! How can I help you?"
	}

	reply, err := bt.ai.Reply(ctx, assembler.ReplyRequest{
		Username:     m.Username,
		DisplayName:  m.DisplayName,
		Channel:      m.Channel,
		Prompt:       prompt,
		IsCommand:    isCommand,
		IsSubscriber: m.IsSubscriber,
		IsVIP:        m.IsVIP,
		IsModerator:  m.IsModerator,
	})
	if err != nil {
		bt.log.Warn("ai reply failed", "user", m.Username, "error", err)
		if isCommand {
			_ = out.Send(fmt.Sprintf("@%s Sorry, I'm having trouble thinking right now!", m.DisplayName))
		}
		return
	}

	text := reply
	if isCommand {
		text = fmt.Sprintf("@%s %s", m.DisplayName, reply)
	}
	if err := out.Send(text); err != nil {
		bt.log.Warn("send failed", "error", err)
		return
	}
	bt.mu.Lock()
	bt.stats.replies++
	bt.lastAIReply = time.Now()
	bt.mu.Unlock()
}

func (bt *bot) handleEvent(ev twitch.StreamEvent) {
	text, _ := ev.Data.GetString("message")
	bt.log.Info("stream event", "type", ev.Type, "user", ev.Username, "message", text)
	bt.bridge.Post(func(ctx context.Context, s *store.Store) error {
		return s.AddStreamEvent(ctx, ev.Type, ev.Username, ev.Data)
	})
}

func (bt *bot) helpLine(ctx context.Context) string {
	names := []string{"!ai", "!help", "!stats", "!uptime"}
	rows, err := bridge.Query(ctx, bt.bridge, func(ctx context.Context, s *store.Store) ([]models.Command, error) {
		return s.ListCommands(ctx), nil
	})
	if err == nil {
		for _, c := range rows {
			if c.IsEnabled {
				names = append(names, "!"+c.Command)
			}
		}
	}
	return "Available commands: " + strings.Join(names, ", ")
}

func (bt *bot) statsLine() string {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return fmt.Sprintf("Messages: %d | AI replies: %d | Commands: %d | Uptime: %s",
		bt.stats.messages, bt.stats.replies, bt.stats.commands,
		formatDuration(time.Since(bt.started)))
}

func splitCommand(content string) (name, args string) {
	content = strings.TrimPrefix(content, "!")
	name, args, _ = strings.Cut(content, " ")
	return strings.ToLower(strings.TrimSpace(name)), strings.TrimSpace(args)
}

func formatDuration(d time.Duration) string {
	total := int(d.Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
