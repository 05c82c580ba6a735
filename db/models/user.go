package models

import (
	"time"

	"github.com/streamartifact/streamartifact/internal/extmap"
)

// User is one row per distinct chat identity, keyed by username.
// Re-adding an existing username upserts rather than duplicates.
type User struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Username     string     `gorm:"column:username;type:text;not null;uniqueIndex:idx_users_username"`
	DisplayName  string     `gorm:"column:display_name;type:text"`
	ExternalID   *string    `gorm:"column:user_id;type:text;uniqueIndex:idx_users_user_id"`
	FirstSeen    time.Time  `gorm:"column:first_seen;not null"`
	LastSeen     time.Time  `gorm:"column:last_seen;not null"`
	MessageCount int64      `gorm:"column:message_count;not null;default:0"`
	IsSubscriber bool       `gorm:"column:is_subscriber;not null;default:false"`
	IsVIP        bool       `gorm:"column:is_vip;not null;default:false"`
	IsModerator  bool       `gorm:"column:is_moderator;not null;default:false"`
	IsRegular    bool       `gorm:"column:is_regular;not null;default:false"`
	Points       int64      `gorm:"column:points;not null;default:0"`
	Metadata     extmap.Map `gorm:"column:metadata;type:text"`
}

func (User) TableName() string { return "users" }
