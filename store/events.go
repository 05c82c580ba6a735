package store

import (
	"context"
	"errors"
	"strings"

	"github.com/streamartifact/streamartifact/db/models"
	"github.com/streamartifact/streamartifact/internal/extmap"
)

// AddStreamEvent records a platform event (follow, subscription, raid).
// Username may be empty for events with no actor.
func (s *Store) AddStreamEvent(ctx context.Context, eventType, username string, data extmap.Map) error {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return s.writeErr("add_stream_event", errors.New("empty event type"))
	}
	var user *string
	if v := strings.TrimSpace(username); v != "" {
		user = &v
	}
	row := models.StreamEvent{
		EventType: eventType,
		Username:  user,
		Data:      data,
		Timestamp: s.now(),
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	return s.writeErr("add_stream_event", err)
}

// RecentEvents returns up to limit events, newest first. A failed read
// returns an empty slice.
func (s *Store) RecentEvents(ctx context.Context, limit int) []models.StreamEvent {
	limit = clampLimit(limit, 25, 200)

	var rows []models.StreamEvent
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		s.readWarn("recent_events", err)
		return nil
	}
	return rows
}

// UnprocessedEvents returns up to limit events still awaiting a
// consumer pass, oldest first so consumers drain in arrival order.
func (s *Store) UnprocessedEvents(ctx context.Context, limit int) []models.StreamEvent {
	limit = clampLimit(limit, 25, 200)

	var rows []models.StreamEvent
	err := s.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("timestamp ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		s.readWarn("unprocessed_events", err)
		return nil
	}
	return rows
}

// MarkEventProcessed flips processed false→true for one event. The
// transition happens at most once: marking an already-processed event
// reports changed=false.
func (s *Store) MarkEventProcessed(ctx context.Context, id int64) (changed bool, err error) {
	res := s.db.WithContext(ctx).
		Model(&models.StreamEvent{}).
		Where("id = ? AND processed = ?", id, false).
		Update("processed", true)
	if res.Error != nil {
		return false, s.writeErr("mark_event_processed", res.Error)
	}
	return res.RowsAffected > 0, nil
}
