package store

import (
	"context"
	"errors"
	"strings"

	"github.com/streamartifact/streamartifact/db/models"
	"github.com/streamartifact/streamartifact/internal/extmap"
	"gorm.io/gorm"
)

type AddMessageParams struct {
	Username    string
	Content     string
	Channel     string
	MessageType string
	Metadata    extmap.Map
}

// AddMessage inserts a message row and bumps the matching user's
// message_count and last_seen in one transaction. A concurrent reader
// observes both writes or neither.
func (s *Store) AddMessage(ctx context.Context, p AddMessageParams) error {
	username := strings.TrimSpace(p.Username)
	channel := strings.TrimSpace(p.Channel)
	if username == "" || channel == "" {
		return s.writeErr("add_message", errors.New("empty username or channel"))
	}
	msgType := strings.TrimSpace(p.MessageType)
	if msgType == "" {
		msgType = models.MessageTypeChat
	}

	now := s.now()
	row := models.Message{
		Username:    username,
		Content:     p.Content,
		Timestamp:   now,
		Channel:     channel,
		MessageType: msgType,
		Metadata:    p.Metadata,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("username = ?", username).
			Updates(map[string]any{
				"message_count": gorm.Expr("message_count + 1"),
				"last_seen":     now,
			}).Error
	})
	return s.writeErr("add_message", err)
}

// RecentMessages returns up to limit messages for channel, newest
// first. Equal timestamps are broken by insertion order, newest row
// first. A failed read returns an empty slice.
func (s *Store) RecentMessages(ctx context.Context, channel string, limit int) []models.Message {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return nil
	}
	limit = clampLimit(limit, 50, 500)

	var rows []models.Message
	err := s.db.WithContext(ctx).
		Where("channel = ?", channel).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		s.readWarn("recent_messages", err)
		return nil
	}
	return rows
}
