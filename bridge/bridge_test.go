package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/streamartifact/streamartifact/db"
	"github.com/streamartifact/streamartifact/store"
)

func newTestBridge(t *testing.T) *Bridge {
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

	st := store.New(gdb, slog.Default())
	b := New(st, func() error { return db.Close(gdb) }, Config{}, slog.Default())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSubmitReturnsOpError(t *testing.T) {
	b := newTestBridge(t)

	want := errors.New("boom")
	err := b.Submit(context.Background(), func(ctx context.Context, s *store.Store) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("Submit() error = %v, want %v", err, want)
	}
}

func TestSubmitAfterCloseFails(t *testing.T) {
	b := newTestBridge(t)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	err := b.Submit(context.Background(), func(ctx context.Context, s *store.Store) error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("Submit() after Close error = %v, want ErrClosed", err)
	}
}

func TestSingleOriginFIFO(t *testing.T) {
	b := newTestBridge(t)

	const n = 50
	ctx := context.Background()
	for i := 0; i < n; i++ {
		content := fmt.Sprintf("msg-%03d", i)
		if err := b.Submit(ctx, func(ctx context.Context, s *store.Store) error {
			return s.AddMessage(ctx, store.AddMessageParams{Username: "alice", Content: content, Channel: "chan"})
		}); err != nil {
			t.Fatalf("Submit(#%d) error = %v", i, err)
		}
	}

	msgs, err := Query(ctx, b, func(ctx context.Context, s *store.Store) ([]string, error) {
		rows := s.RecentMessages(ctx, "chan", n)
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.Content)
		}
		return out, nil
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(msgs) != n {
		t.Fatalf("got %d messages, want %d", len(msgs), n)
	}
	// Newest first: submission order reversed.
	for i, got := range msgs {
		want := fmt.Sprintf("msg-%03d", n-1-i)
		if got != want {
			t.Fatalf("msgs[%d] = %q, want %q (per-origin FIFO violated)", i, got, want)
		}
	}
}

func TestConcurrentOriginsNeverObserveTornState(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()

	if err := b.Submit(ctx, func(ctx context.Context, s *store.Store) error {
		return s.UpsertUser(ctx, store.UpsertUserParams{Username: "alice"})
	}); err != nil {
		t.Fatalf("Submit(upsert) error = %v", err)
	}

	const writes = 100
	var wg sync.WaitGroup

	// Origin 1: message writes.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			if err := b.Submit(ctx, func(ctx context.Context, s *store.Store) error {
				return s.AddMessage(ctx, store.AddMessageParams{Username: "alice", Content: "hi", Channel: "chan"})
			}); err != nil {
				t.Errorf("Submit(add) error = %v", err)
				return
			}
		}
	}()

	// Origin 2: interleaved stat reads checking the invariant.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			type snapshot struct {
				count int64
				rows  int
			}
			snap, err := Query(ctx, b, func(ctx context.Context, s *store.Store) (snapshot, error) {
				u, _ := s.UserStats(ctx, "alice")
				rows := s.RecentMessages(ctx, "chan", writes+1)
				return snapshot{count: u.MessageCount, rows: len(rows)}, nil
			})
			if err != nil {
				t.Errorf("Query(stats) error = %v", err)
				return
			}
			if snap.count != int64(snap.rows) {
				t.Errorf("torn state: message_count=%d rows=%d", snap.count, snap.rows)
				return
			}
		}
	}()

	wg.Wait()
}

func TestCloseDrainsQueuedPosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drain.db")
	cfg := db.Config{Path: path, SQLite: db.SQLiteConfig{BusyTimeoutMs: 5000}}

	gdb, err := db.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("db.AutoMigrate() error = %v", err)
	}
	b := New(store.New(gdb, slog.Default()), func() error { return db.Close(gdb) }, Config{}, slog.Default())

	for i := 0; i < 10; i++ {
		b.Post(func(ctx context.Context, s *store.Store) error {
			return s.AddMessage(ctx, store.AddMessageParams{Username: "bob", Content: "bye", Channel: "chan"})
		})
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Posts after close are dropped quietly.
	b.Post(func(ctx context.Context, s *store.Store) error { return nil })

	reopened, err := db.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("db.Open() reopen error = %v", err)
	}
	defer func() { _ = db.Close(reopened) }()
	rows := store.New(reopened, slog.Default()).RecentMessages(context.Background(), "chan", 20)
	if len(rows) != 10 {
		t.Fatalf("messages after drain = %d, want 10", len(rows))
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	b := newTestBridge(t)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
