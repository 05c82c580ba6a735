package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDirName  = ".stream_artifact"
	defaultFileName = "stream_artifact.db"
)

type SQLiteConfig struct {
	WAL           bool
	BusyTimeoutMs int
	ForeignKeys   bool
}

type Config struct {
	// Path is the database file path. Empty means the per-user default
	// (~/.stream_artifact/stream_artifact.db), created if absent.
	Path   string
	SQLite SQLiteConfig
}

func DefaultConfig() Config {
	return Config{
		SQLite: SQLiteConfig{
			WAL:           true,
			BusyTimeoutMs: 5000,
		},
	}
}

// ResolvePath returns the database file path for cfg, creating the
// parent directory when the default location is used.
func ResolvePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("create db directory: %w", err)
			}
		}
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, defaultDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create db directory: %w", err)
	}
	return filepath.Join(dir, defaultFileName), nil
}
