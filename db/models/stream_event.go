package models

import (
	"time"

	"github.com/streamartifact/streamartifact/internal/extmap"
)

// StreamEvent is one notable platform event (follow, subscription, raid).
// processed flips false→true exactly once per consumer pass; rows are
// retained indefinitely.
type StreamEvent struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	EventType string     `gorm:"column:event_type;type:text;not null"`
	Username  *string    `gorm:"column:username;type:text"`
	Data      extmap.Map `gorm:"column:data;type:text"`
	Timestamp time.Time  `gorm:"column:timestamp;not null;index:idx_stream_events_timestamp"`
	Processed bool       `gorm:"column:processed;not null;default:false"`
}

func (StreamEvent) TableName() string { return "stream_events" }
