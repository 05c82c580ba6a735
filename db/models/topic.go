package models

import (
	"time"

	"github.com/streamartifact/streamartifact/internal/extmap"
)

// Topic tracks a recurring discussion subject. The topic text is the
// natural key for increment-vs-insert decisions, but uniqueness is the
// caller's contract: the table itself does not enforce it.
type Topic struct {
	ID            int64       `gorm:"column:id;primaryKey;autoIncrement"`
	Topic         string      `gorm:"column:topic;type:text;not null"`
	Frequency     int64       `gorm:"column:frequency;not null;default:1"`
	LastMentioned time.Time   `gorm:"column:last_mentioned;not null"`
	RelatedUsers  extmap.List `gorm:"column:related_users;type:text"`
	Sentiment     float64     `gorm:"column:sentiment;not null;default:0"`
}

func (Topic) TableName() string { return "topics" }
