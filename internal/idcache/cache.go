package idcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arman/vod-catalog/internal/util"
	_ "modernc.org/sqlite" // SQLite driver
)

// Cache is the shared identity cache: comparison key -> canonical entity id.
// It lives in its own database file so every resolution worker process sees
// the same entries, and it is strictly advisory — a miss, a stale row, or a
// wiped file only costs extra candidate retrieval, never a wrong merge.
// The durable store alone prevents duplicate creation.
type Cache struct {
	db   *sql.DB
	path string
}

// Open opens or creates the cache database at the given path
func Open(path string) (*Cache, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_timeout=5000&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	cache := &Cache{db: db, path: path}

	if err := cache.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return cache, nil
}

// Close closes the cache database
func (c *Cache) Close() error {
	return c.db.Close()
}

// Path returns the cache database path
func (c *Cache) Path() string {
	return c.path
}

func (c *Cache) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS identity_cache (
		cache_key TEXT PRIMARY KEY,
		entity_id INTEGER NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		hit_count INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_cache_expires ON identity_cache(expires_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create identity_cache table: %w", err)
	}
	return nil
}

// Lookup returns the cached entity id for a comparison key. Expired rows
// are deleted lazily and reported as misses. A failing cache never fails
// the resolution: errors degrade to a miss.
func (c *Cache) Lookup(ctx context.Context, key string) (int64, bool) {
	if key == "" {
		return 0, false
	}

	var entityID int64
	var expiresAt time.Time
	err := c.db.QueryRowContext(ctx, `
		SELECT entity_id, expires_at FROM identity_cache WHERE cache_key = ?
	`, key).Scan(&entityID, &expiresAt)
	if err == sql.ErrNoRows {
		return 0, false
	}
	if err != nil {
		util.DebugLog("Identity cache lookup failed for %q: %v", key, err)
		return 0, false
	}

	if time.Now().After(expiresAt) {
		c.Invalidate(ctx, key)
		return 0, false
	}

	if _, err := c.db.ExecContext(ctx,
		`UPDATE identity_cache SET hit_count = hit_count + 1 WHERE cache_key = ?`, key); err != nil {
		util.DebugLog("Identity cache hit-count update failed: %v", err)
	}

	return entityID, true
}

// Store writes a comparison key -> entity id mapping with a bounded TTL.
// Failures are logged and swallowed: the cache is an optimization only.
func (c *Cache) Store(ctx context.Context, key string, entityID int64, ttl time.Duration) {
	if key == "" || ttl <= 0 {
		return
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO identity_cache (cache_key, entity_id, expires_at, hit_count)
		VALUES (?, ?, ?, 0)
		ON CONFLICT(cache_key) DO UPDATE SET
		  entity_id = excluded.entity_id,
		  expires_at = excluded.expires_at
	`, key, entityID, time.Now().Add(ttl))
	if err != nil {
		util.WarnLog("Failed to store identity cache entry %q: %v", key, err)
	}
}

// Invalidate removes a single cache entry
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM identity_cache WHERE cache_key = ?`, key); err != nil {
		util.DebugLog("Identity cache invalidation failed for %q: %v", key, err)
	}
}

// Prune removes expired entries and returns how many were deleted
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM identity_cache WHERE expires_at < ?`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("prune identity cache: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all cache entries
func (c *Cache) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM identity_cache`)
	return err
}

// Stats returns entry and hit counts
func (c *Cache) Stats(ctx context.Context) (entries int64, totalHits int64, err error) {
	err = c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM identity_cache`).Scan(&entries, &totalHits)
	return
}
