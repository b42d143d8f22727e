package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/oneboxhq/onebox/internal/core"
)

// MySQLCache is a MySQL-backed implementation of the CategoryCache
// interface, sharing the bounded insertion-ordered contract with the
// other cache backends.
type MySQLCache struct {
	db       *sql.DB
	capacity int
	logger   *zap.Logger
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, capacity int, logger *zap.Logger) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS category_cache (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			content_key VARCHAR(64) UNIQUE,
			category VARCHAR(32)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	if capacity <= 0 {
		capacity = 1000
	}

	return &MySQLCache{
		db:       db,
		capacity: capacity,
		logger:   logger,
	}, nil
}

// Get retrieves a cached category for a content key
func (c *MySQLCache) Get(key string) (core.Category, bool) {
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
func (c *MySQLCache) Set(key string, category core.Category) {
	_, err := c.db.Exec(`
		INSERT INTO category_cache (content_key, category) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE category = VALUES(category)
	`, key, string(category))
	if err != nil {
		c.logger.Error("Failed to update cache", zap.Error(err))
		return
	}

	excess := c.Len() - c.capacity
	if excess <= 0 {
		return
	}
	_, err = c.db.Exec(`
		DELETE FROM category_cache ORDER BY id ASC LIMIT ?
	`, excess)
	if err != nil {
		c.logger.Error("Failed to evict cache entries", zap.Error(err))
	}
}

// Len reports the number of cached entries
func (c *MySQLCache) Len() int {
	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM category_cache`).Scan(&count); err != nil {
		c.logger.Error("Failed to count cache entries", zap.Error(err))
		return 0
	}
	return count
}

// Close closes the underlying database
func (c *MySQLCache) Close() error {
	return c.db.Close()
}
