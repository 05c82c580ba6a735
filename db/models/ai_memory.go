package models

import (
	"time"

	"github.com/streamartifact/streamartifact/internal/extmap"
)

const MemoryTypeConversation = "conversation"

// AIMemory is one stored AI exchange. relevance_score is the only
// retention signal: rows below the purge threshold are pruned once old
// enough, higher-scored rows are kept indefinitely.
type AIMemory struct {
	ID             int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Username       string     `gorm:"column:username;type:text;not null;index:idx_ai_memory_username"`
	Context        string     `gorm:"column:context;type:text;not null"`
	Response       *string    `gorm:"column:response;type:text"`
	Timestamp      time.Time  `gorm:"column:timestamp;not null;index:idx_ai_memory_timestamp"`
	RelevanceScore float64    `gorm:"column:relevance_score;not null;default:1.0"`
	MemoryType     string     `gorm:"column:memory_type;type:text;not null;default:conversation"`
	Metadata       extmap.Map `gorm:"column:metadata;type:text"`
}

func (AIMemory) TableName() string { return "ai_memory" }
