package store

import (
	"context"
	"errors"
	"time"

	"github.com/streamartifact/streamartifact/db/models"
	"gorm.io/gorm"
)

type PurgeResult struct {
	MessagesDeleted int64
	MemoriesDeleted int64
}

// PurgeOlderThan deletes messages strictly older than now-cutoff, and
// ai_memory rows that are both older than the cutoff and below the
// relevance threshold. High-relevance old memories are kept
// indefinitely; that double condition is the point.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Duration) (PurgeResult, error) {
	if cutoff <= 0 {
		return PurgeResult{}, s.writeErr("purge", errors.New("non-positive cutoff"))
	}
	deadline := s.now().Add(-cutoff)

	var out PurgeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("timestamp < ?", deadline).Delete(&models.Message{})
		if res.Error != nil {
			return res.Error
		}
		out.MessagesDeleted = res.RowsAffected

		res = tx.Where("timestamp < ? AND relevance_score < ?", deadline, RelevancePruneThreshold).
			Delete(&models.AIMemory{})
		if res.Error != nil {
			return res.Error
		}
		out.MemoriesDeleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return PurgeResult{}, s.writeErr("purge", err)
	}
	if out.MessagesDeleted > 0 || out.MemoriesDeleted > 0 {
		s.log.Info("purged old data",
			"messages", out.MessagesDeleted,
			"memories", out.MemoriesDeleted,
			"cutoff", cutoff.String())
	}
	return out, nil
}
