package db

import (
	"fmt"

	"github.com/streamartifact/streamartifact/db/models"
	"gorm.io/gorm"
)

// AutoMigrate creates the six tables and their indexes. It is
// idempotent: running it against an already-initialized store is a
// no-op.
func AutoMigrate(gdb *gorm.DB) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	return gdb.AutoMigrate(
		&models.User{},
		&models.Message{},
		&models.AIMemory{},
		&models.Command{},
		&models.StreamEvent{},
		&models.Topic{},
	)
}
