// Package cache tracks content hashes of rendered outputs so unchanged pages
// can be skipped on rebuilds.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed render cache keyed by target-relative output path.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the cache database at dbPath. Use ":memory:" for
// an in-memory cache.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS outputs (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		built_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Hash returns the hex sha256 of content.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// IsFresh reports whether the output at path was last built from content with
// the given hash. A missing row means stale.
func (s *Store) IsFresh(ctx context.Context, path, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored string
	err := s.db.QueryRowContext(ctx, "SELECT hash FROM outputs WHERE path = ?", path).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query cache: %w", err)
	}
	return stored == hash, nil
}

// Record stores the hash of a freshly written output.
func (s *Store) Record(ctx context.Context, path, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO outputs (path, hash, built_at) VALUES (?, ?, ?) "+
			"ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, built_at = excluded.built_at",
		path, hash, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record cache entry: %w", err)
	}
	return nil
}

// Prune removes entries not in keep, returning how many were dropped.
// Outputs that vanish from the manifest stop pinning stale rows this way.
func (s *Store) Prune(ctx context.Context, keep map[string]bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT path FROM outputs")
	if err != nil {
		return 0, fmt.Errorf("list cache entries: %w", err)
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan cache entry: %w", err)
		}
		if !keep[path] {
			stale = append(stale, path)
		}
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("close cache rows: %w", err)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate cache entries: %w", err)
	}

	for _, path := range stale {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM outputs WHERE path = ?", path); err != nil {
			return 0, fmt.Errorf("delete cache entry: %w", err)
		}
	}
	return len(stale), nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
