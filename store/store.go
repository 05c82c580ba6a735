// Package store is the access layer over the embedded SQLite store.
// It is the sole owner of the physical connection's operation surface:
// every other component reaches persistence through these methods,
// serialized by the bridge.
//
// Failure policy: reads degrade to empty results and log (the chat
// pipeline outranks surfacing storage errors to end users); writes
// return a typed *WriteError so callers that need durability can retry
// or escalate.
package store

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// RelevancePruneThreshold is the relevance_score below which an aged
// ai_memory row becomes eligible for pruning. Rows at or above it are
// kept indefinitely.
const RelevancePruneThreshold = 0.3

type Store struct {
	db  *gorm.DB
	log *slog.Logger
	now func() time.Time
}

func New(gdb *gorm.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		db:  gdb,
		log: log.With("component", "store"),
		now: time.Now,
	}
}

// WithClock overrides the store clock. Tests use it to pin timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// WriteError is the typed failure surfaced for write operations. The
// bridge logs and survives it; callers decide on retry.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *WriteError) Unwrap() error { return e.Err }

func (s *Store) writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	s.log.Error("write failed", "op", op, "error", err)
	return &WriteError{Op: op, Err: err}
}

func (s *Store) readWarn(op string, err error) {
	if err != nil {
		s.log.Warn("read failed, returning empty", "op", op, "error", err)
	}
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
