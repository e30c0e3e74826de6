package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite"

	"councilwatch/pkg/platform/sentinel"
)

const defaultSQLiteName = "councilwatch/cache.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS council_cache_kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLite keeps keys in a local database file. Writes share one connection.
type SQLite struct {
	db   *sql.DB
	path string
}

// DefaultSQLitePath returns the database file under the user's XDG cache directory.
func DefaultSQLitePath() (string, error) {
	return xdg.CacheFile(defaultSQLiteName)
}

// OpenSQLite opens or creates the database at path, or at DefaultSQLitePath
// when path is empty.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		p, err := DefaultSQLitePath()
		if err != nil {
			return nil, fmt.Errorf("resolve cache database path: %w", err)
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cache database: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Path is the database file backing the store.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM council_cache_kv WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("key %q: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select cache value: %w: %w", sentinel.ErrUnavailable, err)
	}
	return value, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO council_cache_kv (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert cache value: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM council_cache_kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache value: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
