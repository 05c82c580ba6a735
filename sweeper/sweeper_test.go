package sweeper

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/streamartifact/streamartifact/bridge"
	"github.com/streamartifact/streamartifact/db"
	"github.com/streamartifact/streamartifact/store"
)

func TestSweepOncePurgesThroughBridge(t *testing.T) {
	gdb, err := db.Open(context.Background(), db.Config{
		Path:   filepath.Join(t.TempDir(), "test.db"),
		SQLite: db.SQLiteConfig{BusyTimeoutMs: 5000},
	})
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("db.AutoMigrate() error = %v", err)
	}

	// A store clock pinned in the past writes old rows; the purge runs
	// against the real clock.
	past := time.Now().Add(-48 * time.Hour)
	st := store.New(gdb, slog.Default()).WithClock(func() time.Time { return past })
	b := bridge.New(st, func() error { return db.Close(gdb) }, bridge.Config{}, slog.Default())
	t.Cleanup(func() { _ = b.Close() })

	ctx := context.Background()
	if err := b.Submit(ctx, func(ctx context.Context, s *store.Store) error {
		return s.AddMessage(ctx, store.AddMessageParams{Username: "alice", Content: "old", Channel: "chan"})
	}); err != nil {
		t.Fatalf("Submit(AddMessage) error = %v", err)
	}

	// Back to the real clock so the purge deadline lands after the row.
	if err := b.Submit(ctx, func(ctx context.Context, s *store.Store) error {
		s.WithClock(time.Now)
		return nil
	}); err != nil {
		t.Fatalf("Submit(WithClock) error = %v", err)
	}

	sw := New(b, time.Minute, 24*time.Hour, slog.Default())
	sw.SweepOnce()

	rows, err := bridge.Query(ctx, b, func(ctx context.Context, s *store.Store) (int, error) {
		return len(s.RecentMessages(ctx, "chan", 10)), nil
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if rows != 0 {
		t.Fatalf("messages after sweep = %d, want 0", rows)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	gdb, err := db.Open(context.Background(), db.Config{
		Path:   filepath.Join(t.TempDir(), "test.db"),
		SQLite: db.SQLiteConfig{BusyTimeoutMs: 5000},
	})
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("db.AutoMigrate() error = %v", err)
	}
	b := bridge.New(store.New(gdb, slog.Default()), func() error { return db.Close(gdb) }, bridge.Config{}, slog.Default())
	t.Cleanup(func() { _ = b.Close() })

	sw := New(b, 10*time.Millisecond, time.Hour, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not stop after cancel")
	}
}
