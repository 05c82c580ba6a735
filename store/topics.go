package store

import (
	"context"
	"errors"
	"strings"

	"github.com/streamartifact/streamartifact/db/models"
	"gorm.io/gorm"
)

// TouchTopic records a mention of a discussion subject. The table does
// not enforce uniqueness on topic text; the increment-vs-insert
// decision is made here. Sentiment is kept as a running average over
// mentions.
func (s *Store) TouchTopic(ctx context.Context, topic, username string, sentiment float64) error {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return s.writeErr("touch_topic", errors.New("empty topic"))
	}
	username = strings.TrimSpace(username)

	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Topic
		err := tx.Where("topic = ?", topic).
			Order("id ASC").
			First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = models.Topic{
				Topic:         topic,
				Frequency:     1,
				LastMentioned: now,
				Sentiment:     sentiment,
			}
			if username != "" {
				row.RelatedUsers = row.RelatedUsers.Add(username)
			}
			return tx.Create(&row).Error
		case err != nil:
			return err
		}

		freq := row.Frequency + 1
		avg := (row.Sentiment*float64(row.Frequency) + sentiment) / float64(freq)
		users := row.RelatedUsers
		if username != "" {
			users = users.Add(username)
		}
		return tx.Model(&models.Topic{}).
			Where("id = ?", row.ID).
			Updates(map[string]any{
				"frequency":      freq,
				"last_mentioned": now,
				"related_users":  users,
				"sentiment":      avg,
			}).Error
	})
	return s.writeErr("touch_topic", err)
}

// TopTopics returns up to limit topics by mention frequency.
func (s *Store) TopTopics(ctx context.Context, limit int) []models.Topic {
	limit = clampLimit(limit, 10, 100)

	var rows []models.Topic
	err := s.db.WithContext(ctx).
		Order("frequency DESC").
		Order("last_mentioned DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		s.readWarn("top_topics", err)
		return nil
	}
	return rows
}
