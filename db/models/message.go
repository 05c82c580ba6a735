package models

import (
	"time"

	"github.com/streamartifact/streamartifact/internal/extmap"
)

const MessageTypeChat = "chat"

// Message is one row per observed chat line. Rows are immutable once
// written; only the retention sweep deletes them. Username is a logical
// association, not an enforced foreign key.
type Message struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Username    string     `gorm:"column:username;type:text;not null;index:idx_messages_username"`
	Content     string     `gorm:"column:content;type:text;not null"`
	Timestamp   time.Time  `gorm:"column:timestamp;not null;index:idx_messages_timestamp"`
	Channel     string     `gorm:"column:channel;type:text;not null"`
	MessageType string     `gorm:"column:message_type;type:text;not null;default:chat"`
	Metadata    extmap.Map `gorm:"column:metadata;type:text"`
}

func (Message) TableName() string { return "messages" }
