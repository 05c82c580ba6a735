package db

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens the embedded SQLite store. A failure here is fatal to
// startup: there is no degraded mode for a system whose purpose is
// persistence.
func Open(ctx context.Context, cfg Config) (*gorm.DB, error) {
	_ = ctx
	path, err := ResolvePath(cfg.Path)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}
	if err := applySQLitePragmas(gdb, cfg.SQLite); err != nil {
		return nil, fmt.Errorf("apply sqlite pragmas: %w", err)
	}

	// One physical connection: the bridge is the only execution context
	// that touches it, and the embedded store does not support
	// concurrent writers.
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return gdb, nil
}

// Close releases the underlying connection.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
