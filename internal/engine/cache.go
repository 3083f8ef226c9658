// File: internal/engine/cache.go
// Brief: File staleness cache backing file-target recipes.

package engine

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Cache gates file-target recipes on staleness of declared paths.
// A missing path is always stale. Update errors are best-effort: a cache
// that cannot be written only costs redundant rebuilds, never correctness.
type Cache interface {
	IsStale(path string) bool
	IsGlobStale(pattern string) bool
	Update(path string)
	Close() error
}

const cacheRelPath = ".jake/cache.db"

// FileCache records size, mtime and content digest per path in a sqlite
// database under the working directory.
type FileCache struct {
	db   *sql.DB
	path string
}

// OpenFileCache opens (or creates) the staleness cache under root.
func OpenFileCache(root string) (*FileCache, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(absRoot, cacheRelPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	c := &FileCache{db: db, path: path}
	if err := c.initSchema(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *FileCache) initSchema(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`
CREATE TABLE IF NOT EXISTS jake_files (
  path TEXT PRIMARY KEY,
  size INTEGER NOT NULL,
  mtime_ns INTEGER NOT NULL,
  sha256 TEXT NOT NULL,
  updated_at_ns INTEGER NOT NULL
);`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (c *FileCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// IsStale reports whether path changed since the last Update. A path never
// recorded, unreadable, or missing is stale. When size+mtime match the
// recorded row the content check is skipped.
func (c *FileCache) IsStale(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	st, err := os.Stat(abs)
	if err != nil {
		return true
	}
	var size, mtime int64
	var digest string
	row := c.db.QueryRow(`SELECT size, mtime_ns, sha256 FROM jake_files WHERE path = ?`, abs)
	if err := row.Scan(&size, &mtime, &digest); err != nil {
		return true
	}
	if st.Size() == size && st.ModTime().UnixNano() == mtime {
		return false
	}
	current, err := digestFile(abs)
	if err != nil {
		return true
	}
	if current == digest {
		// Touched but unchanged: refresh the recorded mtime.
		c.Update(abs)
		return false
	}
	return true
}

// IsGlobStale expands pattern and ORs per-file staleness. A pattern that
// matches nothing is stale so the recipe runs and surfaces the problem.
func (c *FileCache) IsGlobStale(pattern string) bool {
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return true
	}
	for _, m := range matches {
		if c.IsStale(m) {
			return true
		}
	}
	return false
}

// Update records the current state of path. Errors are swallowed.
func (c *FileCache) Update(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	st, err := os.Stat(abs)
	if err != nil {
		return
	}
	digest, err := digestFile(abs)
	if err != nil {
		return
	}
	_, _ = c.db.Exec(`
INSERT INTO jake_files (path, size, mtime_ns, sha256, updated_at_ns)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
  size = excluded.size,
  mtime_ns = excluded.mtime_ns,
  sha256 = excluded.sha256,
  updated_at_ns = excluded.updated_at_ns
`, abs, st.Size(), st.ModTime().UnixNano(), digest, time.Now().UTC().UnixNano())
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
