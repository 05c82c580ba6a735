package store

import (
	"context"
	"errors"
	"strings"

	"github.com/streamartifact/streamartifact/db/models"
	"github.com/streamartifact/streamartifact/internal/extmap"
)

type AddMemoryParams struct {
	Username string
	Context  string
	Response string
	// Relevance defaults to 1.0 when zero. The caller assigns it; it is
	// the only signal the retention sweep reads.
	Relevance  float64
	MemoryType string
	Metadata   extmap.Map
}

// AddMemory stores one AI exchange. Rows are never updated in place;
// only the retention sweep removes them.
func (s *Store) AddMemory(ctx context.Context, p AddMemoryParams) error {
	username := strings.TrimSpace(p.Username)
	if username == "" || strings.TrimSpace(p.Context) == "" {
		return s.writeErr("add_memory", errors.New("empty username or context"))
	}
	relevance := p.Relevance
	if relevance == 0 {
		relevance = 1.0
	}
	memType := strings.TrimSpace(p.MemoryType)
	if memType == "" {
		memType = models.MemoryTypeConversation
	}
	var response *string
	if p.Response != "" {
		v := p.Response
		response = &v
	}

	row := models.AIMemory{
		Username:       username,
		Context:        p.Context,
		Response:       response,
		Timestamp:      s.now(),
		RelevanceScore: relevance,
		MemoryType:     memType,
		Metadata:       p.Metadata,
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	return s.writeErr("add_memory", err)
}

// UserMemory returns up to limit stored exchanges for username, newest
// first, insertion order breaking timestamp ties. A failed read
// returns an empty slice.
func (s *Store) UserMemory(ctx context.Context, username string, limit int) []models.AIMemory {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}
	limit = clampLimit(limit, 10, 100)

	var rows []models.AIMemory
	err := s.db.WithContext(ctx).
		Where("username = ?", username).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		s.readWarn("user_memory", err)
		return nil
	}
	return rows
}
