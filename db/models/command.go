package models

import "time"

// Command is one registered chat command. Disabling does not delete.
type Command struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Command         string    `gorm:"column:command;type:text;not null;uniqueIndex:idx_commands_command"`
	Response        string    `gorm:"column:response;type:text;not null"`
	UsageCount      int64     `gorm:"column:usage_count;not null;default:0"`
	IsEnabled       bool      `gorm:"column:is_enabled;not null;default:true"`
	PermissionLevel string    `gorm:"column:permission_level;type:text;not null;default:everyone"`
	Cooldown        int       `gorm:"column:cooldown;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null"`
}

func (Command) TableName() string { return "commands" }
