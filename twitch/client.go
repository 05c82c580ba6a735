// Package twitch is the chat-ingestion feed: an IRC-over-websocket
// client that turns Twitch chat lines into parsed message tuples and
// platform events. It holds no storage handle; consumers wire its
// callbacks to the bridge.
package twitch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/streamartifact/streamartifact/internal/extmap"
)

const (
	DefaultServerURL = "wss://irc-ws.chat.twitch.tv:443"

	// Twitch cuts IRC lines at 512 bytes; leave room for the PRIVMSG
	// envelope around the message body.
	maxChatLen = 450

	initialBackoff = time.Second
	maxBackoff     = time.Minute
)

// ChatMessage is one parsed chat line: the (username, content,
// channel, flags) tuple the pipeline consumes.
type ChatMessage struct {
	Username      string
	DisplayName   string
	UserID        string
	Channel       string
	Content       string
	IsSubscriber  bool
	IsVIP         bool
	IsModerator   bool
	IsBroadcaster bool
}

// StreamEvent is one notable platform event (sub, raid, and friends)
// parsed from USERNOTICE.
type StreamEvent struct {
	Type     string
	Username string
	Data     extmap.Map
}

type Config struct {
	ServerURL string
	// Channel to join, without the leading '#'.
	Channel string
	Nick    string
	// Token is the chat OAuth token, with or without the oauth: prefix.
	Token string
}

type Client struct {
	cfg Config
	log *slog.Logger

	// OnMessage and OnEvent run on the read loop goroutine; handlers
	// must hand work off (bridge submissions) rather than block.
	OnMessage func(ChatMessage)
	OnEvent   func(StreamEvent)

	mu   sync.Mutex
	conn *websocket.Conn
}

func New(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(cfg.ServerURL) == "" {
		cfg.ServerURL = DefaultServerURL
	}
	cfg.Channel = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))
	return &Client{
		cfg: cfg,
		log: log.With("component", "twitch", "channel", cfg.Channel),
	}
}

// Run connects and consumes chat until ctx is cancelled, reconnecting
// with backoff on transport failures.
func (c *Client) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("connection lost, reconnecting", "error", err, "backoff", backoff.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.ServerURL, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	token := c.cfg.Token
	if token != "" && !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}
	handshake := []string{
		"CAP REQ :twitch.tv/tags twitch.tv/commands twitch.tv/membership",
		"PASS " + token,
		"NICK " + strings.ToLower(c.cfg.Nick),
		"JOIN #" + c.cfg.Channel,
	}
	for _, line := range handshake {
		if err := c.writeLine(conn, line); err != nil {
			return err
		}
	}
	c.log.Info("connected to chat")

	// Close unblocks ReadMessage when ctx ends.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		for _, line := range strings.Split(string(raw), "\r\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := c.handleLine(conn, line); err != nil {
				return err
			}
		}
	}
}

func (c *Client) handleLine(conn *websocket.Conn, line string) error {
	msg := parseLine(line)
	switch msg.Command {
	case "PING":
		return c.writeLine(conn, "PONG :"+msg.Trailing)
	case "PRIVMSG":
		if c.OnMessage != nil {
			c.OnMessage(c.chatMessage(msg))
		}
	case "USERNOTICE":
		if ev, ok := c.streamEvent(msg); ok && c.OnEvent != nil {
			c.OnEvent(ev)
		}
	case "NOTICE":
		c.log.Info("server notice", "text", msg.Trailing)
	case "RECONNECT":
		return fmt.Errorf("server requested reconnect")
	}
	return nil
}

func (c *Client) chatMessage(msg ircMessage) ChatMessage {
	username := msg.Nick
	display := msg.Tags["display-name"]
	if display == "" {
		display = username
	}
	return ChatMessage{
		Username:      username,
		DisplayName:   display,
		UserID:        msg.Tags["user-id"],
		Channel:       msg.channel(),
		Content:       msg.Trailing,
		IsSubscriber:  msg.Tags["subscriber"] == "1" || msg.hasBadge("subscriber"),
		IsVIP:         msg.Tags["vip"] == "1" || msg.hasBadge("vip"),
		IsModerator:   msg.Tags["mod"] == "1" || msg.hasBadge("moderator"),
		IsBroadcaster: msg.hasBadge("broadcaster") || username == c.cfg.Channel,
	}
}

func (c *Client) streamEvent(msg ircMessage) (StreamEvent, bool) {
	kind := msg.Tags["msg-id"]
	if kind == "" {
		return StreamEvent{}, false
	}
	data := extmap.Map{}
	for k, v := range msg.Tags {
		if strings.HasPrefix(k, "msg-param-") {
			data[strings.TrimPrefix(k, "msg-param-")] = v
		}
	}
	if msg.Trailing != "" {
		data["message"] = msg.Trailing
	}
	return StreamEvent{
		Type:     kind,
		Username: msg.Tags["login"],
		Data:     data,
	}, true
}

// Send posts a chat line to the joined channel, truncated to the
// platform limit.
func (c *Client) Send(text string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) > maxChatLen {
		text = text[:maxChatLen-3] + "..."
	}
	return c.writeLine(conn, fmt.Sprintf("PRIVMSG #%s :%s", c.cfg.Channel, text))
}

func (c *Client) writeLine(conn *websocket.Conn, line string) error {
	if err := conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n")); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
