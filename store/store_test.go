package store

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/streamartifact/streamartifact/db"
	"github.com/streamartifact/streamartifact/internal/extmap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	gdb, err := db.Open(context.Background(), db.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
		SQLite: db.SQLiteConfig{
			WAL:           true,
			BusyTimeoutMs: 5000,
		},
	})
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("db.AutoMigrate() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })

	clock := newFakeClock()
	return New(gdb, slog.Default()).WithClock(clock.Now), clock
}

func TestUpsertUserTwiceKeepsOneRow(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUser(ctx, UpsertUserParams{Username: "alice", DisplayName: "Alice"}); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	firstSeen := clock.Now()
	clock.Advance(time.Minute)
	secondCall := clock.Now()
	if err := s.UpsertUser(ctx, UpsertUserParams{Username: "alice", DisplayName: "AliceV2", IsSubscriber: true}); err != nil {
		t.Fatalf("UpsertUser() second call error = %v", err)
	}

	u, ok := s.UserStats(ctx, "alice")
	if !ok {
		t.Fatalf("UserStats() ok = false, want true")
	}
	if u.DisplayName != "AliceV2" {
		t.Fatalf("DisplayName = %q, want %q", u.DisplayName, "AliceV2")
	}
	if u.LastSeen.Before(secondCall) {
		t.Fatalf("LastSeen = %v, want >= %v", u.LastSeen, secondCall)
	}
	if !u.FirstSeen.Equal(firstSeen) {
		t.Fatalf("FirstSeen = %v, want %v (preserved across upsert)", u.FirstSeen, firstSeen)
	}
	if !u.IsSubscriber {
		t.Fatalf("IsSubscriber = false, want true after upsert")
	}
}

func TestUpsertUserWithoutExternalIDKeepsStoredOne(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUser(ctx, UpsertUserParams{Username: "alice", ExternalID: "12345"}); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	// CLI-style refresh with no platform id.
	if err := s.UpsertUser(ctx, UpsertUserParams{Username: "alice", DisplayName: "Alice"}); err != nil {
		t.Fatalf("UpsertUser() second call error = %v", err)
	}

	u, ok := s.UserStats(ctx, "alice")
	if !ok {
		t.Fatalf("UserStats() ok = false, want true")
	}
	if u.ExternalID == nil || *u.ExternalID != "12345" {
		t.Fatalf("ExternalID = %v, want 12345 preserved across id-less upsert", u.ExternalID)
	}
}

func TestSetRegular(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUser(ctx, UpsertUserParams{Username: "alice"}); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	if err := s.SetRegular(ctx, "alice", true); err != nil {
		t.Fatalf("SetRegular() error = %v", err)
	}
	u, _ := s.UserStats(ctx, "alice")
	if !u.IsRegular {
		t.Fatalf("IsRegular = false, want true")
	}
	if err := s.SetRegular(ctx, "alice", false); err != nil {
		t.Fatalf("SetRegular() revoke error = %v", err)
	}
	u, _ = s.UserStats(ctx, "alice")
	if u.IsRegular {
		t.Fatalf("IsRegular = true after revoke, want false")
	}
}

func TestAdjustPoints(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUser(ctx, UpsertUserParams{Username: "alice"}); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	if err := s.AdjustPoints(ctx, "alice", 100); err != nil {
		t.Fatalf("AdjustPoints() error = %v", err)
	}
	if err := s.AdjustPoints(ctx, "alice", -30); err != nil {
		t.Fatalf("AdjustPoints() negative delta error = %v", err)
	}
	u, _ := s.UserStats(ctx, "alice")
	if u.Points != 70 {
		t.Fatalf("Points = %d, want 70", u.Points)
	}
}

func TestAddMessageBumpsCountAtomically(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertUser(ctx, UpsertUserParams{Username: "alice"}); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.AddMessage(ctx, AddMessageParams{Username: "alice", Content: "hi", Channel: "chan"}); err != nil {
			t.Fatalf("AddMessage() #%d error = %v", i, err)
		}
	}

	u, ok := s.UserStats(ctx, "alice")
	if !ok {
		t.Fatalf("UserStats() ok = false, want true")
	}
	if u.MessageCount != 3 {
		t.Fatalf("MessageCount = %d, want 3", u.MessageCount)
	}
	msgs := s.RecentMessages(ctx, "chan", 10)
	if len(msgs) != 3 {
		t.Fatalf("RecentMessages() len = %d, want 3", len(msgs))
	}
}

func TestRecentMessagesOrderAndLimit(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	contents := []string{"one", "two", "three", "four"}
	for _, c := range contents {
		if err := s.AddMessage(ctx, AddMessageParams{Username: "bob", Content: c, Channel: "chan"}); err != nil {
			t.Fatalf("AddMessage(%q) error = %v", c, err)
		}
		clock.Advance(time.Second)
	}

	msgs := s.RecentMessages(ctx, "chan", 2)
	if len(msgs) != 2 {
		t.Fatalf("RecentMessages() len = %d, want 2", len(msgs))
	}
	if msgs[0].Content != "four" || msgs[1].Content != "three" {
		t.Fatalf("RecentMessages() order = [%q %q], want [four three]", msgs[0].Content, msgs[1].Content)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.After(msgs[i-1].Timestamp) {
			t.Fatalf("timestamps not non-increasing at %d", i)
		}
	}
}

func TestRecentMessagesEqualTimestampsBreakByInsertion(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Clock never advances: all rows share one timestamp.
	for _, c := range []string{"a", "b", "c"} {
		if err := s.AddMessage(ctx, AddMessageParams{Username: "bob", Content: c, Channel: "chan"}); err != nil {
			t.Fatalf("AddMessage(%q) error = %v", c, err)
		}
	}
	msgs := s.RecentMessages(ctx, "chan", 10)
	if len(msgs) != 3 {
		t.Fatalf("RecentMessages() len = %d, want 3", len(msgs))
	}
	if msgs[0].Content != "c" || msgs[2].Content != "a" {
		t.Fatalf("tie-break order = [%q %q %q], want [c b a]", msgs[0].Content, msgs[1].Content, msgs[2].Content)
	}
}

func TestPurgeDoubleCondition(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	// Old rows: one low-relevance, one high-relevance, plus an old message.
	if err := s.AddMemory(ctx, AddMemoryParams{Username: "alice", Context: "junk", Relevance: 0.1}); err != nil {
		t.Fatalf("AddMemory() error = %v", err)
	}
	if err := s.AddMemory(ctx, AddMemoryParams{Username: "alice", Context: "keeper", Relevance: 0.5}); err != nil {
		t.Fatalf("AddMemory() error = %v", err)
	}
	if err := s.AddMessage(ctx, AddMessageParams{Username: "alice", Content: "old", Channel: "chan"}); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	clock.Advance(40 * 24 * time.Hour)
	if err := s.AddMessage(ctx, AddMessageParams{Username: "alice", Content: "new", Channel: "chan"}); err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	res, err := s.PurgeOlderThan(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan() error = %v", err)
	}
	if res.MessagesDeleted != 1 {
		t.Fatalf("MessagesDeleted = %d, want 1", res.MessagesDeleted)
	}
	if res.MemoriesDeleted != 1 {
		t.Fatalf("MemoriesDeleted = %d, want 1", res.MemoriesDeleted)
	}

	msgs := s.RecentMessages(ctx, "chan", 10)
	if len(msgs) != 1 || msgs[0].Content != "new" {
		t.Fatalf("surviving messages = %v, want only the new one", msgs)
	}
	mem := s.UserMemory(ctx, "alice", 10)
	if len(mem) != 1 {
		t.Fatalf("surviving memories = %d, want 1", len(mem))
	}
	if mem[0].RelevanceScore != 0.5 {
		t.Fatalf("surviving memory relevance = %v, want 0.5", mem[0].RelevanceScore)
	}
}

func TestAddMemoryDefaults(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.AddMemory(ctx, AddMemoryParams{Username: "alice", Context: "hi"}); err != nil {
		t.Fatalf("AddMemory() error = %v", err)
	}
	mem := s.UserMemory(ctx, "alice", 1)
	if len(mem) != 1 {
		t.Fatalf("UserMemory() len = %d, want 1", len(mem))
	}
	if mem[0].RelevanceScore != 1.0 {
		t.Fatalf("RelevanceScore = %v, want default 1.0", mem[0].RelevanceScore)
	}
	if mem[0].MemoryType != "conversation" {
		t.Fatalf("MemoryType = %q, want conversation", mem[0].MemoryType)
	}
	if mem[0].Response != nil {
		t.Fatalf("Response = %v, want nil", *mem[0].Response)
	}
}

func TestUserStatsUnknown(t *testing.T) {
	s, _ := newTestStore(t)
	if _, ok := s.UserStats(context.Background(), "ghost"); ok {
		t.Fatalf("UserStats(ghost) ok = true, want false")
	}
}

func TestStreamEventProcessedOnce(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.AddStreamEvent(ctx, "raid", "raider", extmap.Map{"viewers": float64(12)}); err != nil {
		t.Fatalf("AddStreamEvent() error = %v", err)
	}
	evs := s.UnprocessedEvents(ctx, 10)
	if len(evs) != 1 {
		t.Fatalf("UnprocessedEvents() len = %d, want 1", len(evs))
	}

	changed, err := s.MarkEventProcessed(ctx, evs[0].ID)
	if err != nil {
		t.Fatalf("MarkEventProcessed() error = %v", err)
	}
	if !changed {
		t.Fatalf("MarkEventProcessed() changed = false on first pass")
	}
	changed, err = s.MarkEventProcessed(ctx, evs[0].ID)
	if err != nil {
		t.Fatalf("MarkEventProcessed() second call error = %v", err)
	}
	if changed {
		t.Fatalf("MarkEventProcessed() changed = true on second pass, want false")
	}
	if left := s.UnprocessedEvents(ctx, 10); len(left) != 0 {
		t.Fatalf("UnprocessedEvents() after mark = %d, want 0", len(left))
	}
}

func TestCommandCRUD(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCommand(ctx, UpsertCommandParams{Command: "!Hello", Response: "hey {user}", Cooldown: 5}); err != nil {
		t.Fatalf("UpsertCommand() error = %v", err)
	}
	cmd, ok := s.GetCommand(ctx, "hello")
	if !ok {
		t.Fatalf("GetCommand(hello) ok = false")
	}
	if cmd.PermissionLevel != "everyone" {
		t.Fatalf("PermissionLevel = %q, want everyone", cmd.PermissionLevel)
	}
	if !cmd.IsEnabled {
		t.Fatalf("IsEnabled = false, want true")
	}

	if err := s.IncrementCommandUsage(ctx, "hello"); err != nil {
		t.Fatalf("IncrementCommandUsage() error = %v", err)
	}
	if err := s.UpsertCommand(ctx, UpsertCommandParams{Command: "hello", Response: "updated", PermissionLevel: "moderator", Cooldown: 10}); err != nil {
		t.Fatalf("UpsertCommand() edit error = %v", err)
	}
	cmd, _ = s.GetCommand(ctx, "hello")
	if cmd.Response != "updated" || cmd.PermissionLevel != "moderator" || cmd.Cooldown != 10 {
		t.Fatalf("edited command = %+v", cmd)
	}
	if cmd.UsageCount != 1 {
		t.Fatalf("UsageCount = %d, want 1 (preserved across edit)", cmd.UsageCount)
	}

	if err := s.SetCommandEnabled(ctx, "hello", false); err != nil {
		t.Fatalf("SetCommandEnabled() error = %v", err)
	}
	cmd, ok = s.GetCommand(ctx, "hello")
	if !ok || cmd.IsEnabled {
		t.Fatalf("disabled command: ok=%v enabled=%v, want ok=true enabled=false", ok, cmd.IsEnabled)
	}

	if err := s.DeleteCommand(ctx, "hello"); err != nil {
		t.Fatalf("DeleteCommand() error = %v", err)
	}
	if _, ok := s.GetCommand(ctx, "hello"); ok {
		t.Fatalf("GetCommand() after delete ok = true, want false")
	}
}

func TestTouchTopicIncrementVsInsert(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.TouchTopic(ctx, "Speedrun", "alice", 0.5); err != nil {
		t.Fatalf("TouchTopic() error = %v", err)
	}
	if err := s.TouchTopic(ctx, "speedrun", "bob", 1.0); err != nil {
		t.Fatalf("TouchTopic() second mention error = %v", err)
	}

	topics := s.TopTopics(ctx, 10)
	if len(topics) != 1 {
		t.Fatalf("TopTopics() len = %d, want 1 (increment, not insert)", len(topics))
	}
	top := topics[0]
	if top.Frequency != 2 {
		t.Fatalf("Frequency = %d, want 2", top.Frequency)
	}
	if !top.RelatedUsers.Contains("alice") || !top.RelatedUsers.Contains("bob") {
		t.Fatalf("RelatedUsers = %v, want both alice and bob", top.RelatedUsers)
	}
	if top.Sentiment != 0.75 {
		t.Fatalf("Sentiment = %v, want running average 0.75", top.Sentiment)
	}
}

func TestWriteErrorIsTyped(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.AddMessage(context.Background(), AddMessageParams{Username: "", Content: "x", Channel: "chan"})
	if err == nil {
		t.Fatalf("AddMessage() with empty username: error = nil, want *WriteError")
	}
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("error %v is not a *WriteError", err)
	}
	if we.Op != "add_message" {
		t.Fatalf("WriteError.Op = %q, want add_message", we.Op)
	}
}
