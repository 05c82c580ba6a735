package store

import (
	"context"
	"errors"
	"strings"

	"github.com/streamartifact/streamartifact/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UpsertCommandParams struct {
	Command         string
	Response        string
	PermissionLevel string
	Cooldown        int
}

// UpsertCommand registers or edits a chat command. usage_count and
// is_enabled survive the conflict update; created_at is set once.
func (s *Store) UpsertCommand(ctx context.Context, p UpsertCommandParams) error {
	name := normalizeCommand(p.Command)
	if name == "" || strings.TrimSpace(p.Response) == "" {
		return s.writeErr("upsert_command", errors.New("empty command or response"))
	}
	level := strings.TrimSpace(p.PermissionLevel)
	if level == "" {
		level = "everyone"
	}
	if p.Cooldown < 0 {
		return s.writeErr("upsert_command", errors.New("negative cooldown"))
	}

	now := s.now()
	row := models.Command{
		Command:         name,
		Response:        p.Response,
		IsEnabled:       true,
		PermissionLevel: level,
		Cooldown:        p.Cooldown,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "command"}},
			DoUpdates: clause.Assignments(map[string]any{
				"response":         row.Response,
				"permission_level": row.PermissionLevel,
				"cooldown":         row.Cooldown,
				"updated_at":       now,
			}),
		}).
		Create(&row).Error
	return s.writeErr("upsert_command", err)
}

// GetCommand looks up one command by name. ok=false when unknown or
// the read fails.
func (s *Store) GetCommand(ctx context.Context, name string) (models.Command, bool) {
	name = normalizeCommand(name)
	if name == "" {
		return models.Command{}, false
	}
	var row models.Command
	err := s.db.WithContext(ctx).
		Where("command = ?", name).
		First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.readWarn("get_command", err)
		}
		return models.Command{}, false
	}
	return row, true
}

// ListCommands returns all registered commands, enabled or not, in
// name order.
func (s *Store) ListCommands(ctx context.Context) []models.Command {
	var rows []models.Command
	err := s.db.WithContext(ctx).
		Order("command ASC").
		Find(&rows).Error
	if err != nil {
		s.readWarn("list_commands", err)
		return nil
	}
	return rows
}

// SetCommandEnabled toggles a command without deleting it.
func (s *Store) SetCommandEnabled(ctx context.Context, name string, enabled bool) error {
	name = normalizeCommand(name)
	if name == "" {
		return s.writeErr("set_command_enabled", errors.New("empty command"))
	}
	err := s.db.WithContext(ctx).
		Model(&models.Command{}).
		Where("command = ?", name).
		Updates(map[string]any{
			"is_enabled": enabled,
			"updated_at": s.now(),
		}).Error
	return s.writeErr("set_command_enabled", err)
}

// DeleteCommand removes a command registration entirely.
func (s *Store) DeleteCommand(ctx context.Context, name string) error {
	name = normalizeCommand(name)
	if name == "" {
		return s.writeErr("delete_command", errors.New("empty command"))
	}
	err := s.db.WithContext(ctx).
		Where("command = ?", name).
		Delete(&models.Command{}).Error
	return s.writeErr("delete_command", err)
}

// IncrementCommandUsage bumps usage_count after an accepted
// invocation.
func (s *Store) IncrementCommandUsage(ctx context.Context, name string) error {
	name = normalizeCommand(name)
	if name == "" {
		return s.writeErr("increment_command_usage", errors.New("empty command"))
	}
	err := s.db.WithContext(ctx).
		Model(&models.Command{}).
		Where("command = ?", name).
		Update("usage_count", gorm.Expr("usage_count + 1")).Error
	return s.writeErr("increment_command_usage", err)
}

func normalizeCommand(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimPrefix(name, "!")
}
