package store

import (
	"context"
	"errors"
	"strings"

	"github.com/streamartifact/streamartifact/db/models"
	"github.com/streamartifact/streamartifact/internal/extmap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UpsertUserParams struct {
	Username     string
	DisplayName  string
	ExternalID   string
	IsSubscriber bool
	IsVIP        bool
	IsModerator  bool
	Metadata     extmap.Map
}

// UpsertUser inserts or refreshes a user keyed on username. last_seen
// is refreshed on every call; first_seen, message_count and points
// survive the conflict update.
func (s *Store) UpsertUser(ctx context.Context, p UpsertUserParams) error {
	username := strings.TrimSpace(p.Username)
	if username == "" {
		return s.writeErr("upsert_user", errors.New("empty username"))
	}
	display := strings.TrimSpace(p.DisplayName)
	if display == "" {
		display = username
	}
	var externalID *string
	if v := strings.TrimSpace(p.ExternalID); v != "" {
		externalID = &v
	}

	now := s.now()
	row := models.User{
		Username:     username,
		DisplayName:  display,
		ExternalID:   externalID,
		FirstSeen:    now,
		LastSeen:     now,
		IsSubscriber: p.IsSubscriber,
		IsVIP:        p.IsVIP,
		IsModerator:  p.IsModerator,
		Metadata:     p.Metadata,
	}

	assignments := map[string]any{
		"display_name":  row.DisplayName,
		"last_seen":     now,
		"is_subscriber": row.IsSubscriber,
		"is_vip":        row.IsVIP,
		"is_moderator":  row.IsModerator,
	}
	// An upsert without a platform id (CLI paths) must not null out a
	// previously stored one.
	if externalID != nil {
		assignments["user_id"] = externalID
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(&row).Error
	return s.writeErr("upsert_user", err)
}

// UserStats returns the user row for username, or ok=false when the
// user is unknown or the read fails.
func (s *Store) UserStats(ctx context.Context, username string) (models.User, bool) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, false
	}
	var row models.User
	err := s.db.WithContext(ctx).
		Where("username = ?", username).
		First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.readWarn("user_stats", err)
		}
		return models.User{}, false
	}
	return row, true
}

// SetRegular flips the is_regular flag for username.
func (s *Store) SetRegular(ctx context.Context, username string, regular bool) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return s.writeErr("set_regular", errors.New("empty username"))
	}
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("is_regular", regular).Error
	return s.writeErr("set_regular", err)
}

// AdjustPoints adds delta (may be negative) to the user's points
// balance.
func (s *Store) AdjustPoints(ctx context.Context, username string, delta int64) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return s.writeErr("adjust_points", errors.New("empty username"))
	}
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("points", gorm.Expr("points + ?", delta)).Error
	return s.writeErr("adjust_points", err)
}
