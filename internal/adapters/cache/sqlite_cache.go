package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/core"
)

// SQLiteCache is a SQLite-backed implementation of the CategoryCache
// interface. Insertion order is tracked through an autoincrement id;
// eviction removes the lowest id first.
type SQLiteCache struct {
	db       *sql.DB
	capacity int
	logger   *zap.Logger
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, capacity int, logger *zap.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS category_cache (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			content_key TEXT UNIQUE,
			category TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	if capacity <= 0 {
		capacity = 1000
	}

	return &SQLiteCache{
		db:       db,
		capacity: capacity,
		logger:   logger,
	}, nil
}

// Get retrieves a cached category for a content key
func (c *SQLiteCache) Get(key string) (core.Category, bool) {
	var category string
	err := c.db.QueryRow(`
		SELECT category FROM category_cache WHERE content_key = ?
	`, key).Scan(&category)
	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.Error("Failed to query cache", zap.Error(err))
		}
		return "", false
	}
	return core.Category(category), true
}

// Set stores a category for a content key, evicting oldest entries
// past capacity
func (c *SQLiteCache) Set(key string, category core.Category) {
	_, err := c.db.Exec(`
		INSERT INTO category_cache (content_key, category) VALUES (?, ?)
		ON CONFLICT(content_key) DO UPDATE SET category = excluded.category
	`, key, string(category))
	if err != nil {
		c.logger.Error("Failed to update cache", zap.Error(err))
		return
	}

	_, err = c.db.Exec(`
		DELETE FROM category_cache WHERE id IN (
			SELECT id FROM category_cache ORDER BY id ASC
			LIMIT (SELECT MAX(COUNT(*) - ?, 0) FROM category_cache)
		)
	`, c.capacity)
	if err != nil {
		c.logger.Error("Failed to evict cache entries", zap.Error(err))
	}
}

// Len reports the number of cached entries
func (c *SQLiteCache) Len() int {
	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM category_cache`).Scan(&count); err != nil {
		c.logger.Error("Failed to count cache entries", zap.Error(err))
		return 0
	}
	return count
}

// Close closes the underlying database
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
