package shared

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const memoryDatabase = ":memory:"

// OpenDatabase opens the SQLite import history described by cfg, creating its directory when needed.
//
// File databases run in WAL mode with a busy timeout so `serve` and the CLI can record imports into
// the same file. An in-memory database is pinned to one connection since each connection would
// otherwise see its own empty database.
func OpenDatabase(cfg DatabaseConfig) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: database path is empty", ErrInvalidConfig)
	}

	dsn := cfg.Path
	if dsn != memoryDatabase {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = "file:" + dsn + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Path, err)
	}

	switch {
	case cfg.Path == memoryDatabase:
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	return db, nil
}
