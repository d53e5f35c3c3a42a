// Package sqlite opens the local file-backed poster store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/zyrr/gallery/internal/services/gallery/storage"
	"github.com/zyrr/gallery/internal/services/gallery/storage/sqlstore"
)

// Open opens a SQLite poster store at path, creating parent directories and
// applying embedded migrations.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	store, err := sqlstore.Open(ctx, sqlDB, sqlstore.Options{
		Kind:              storage.KindSQLite,
		IsUniqueViolation: isUniqueViolation,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
		return false
	}
	return sqlstore.IsUniqueViolationMessage(err)
}
