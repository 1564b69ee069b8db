package cache

import (
	"context"
	"sync"
	"time"
)

// StmtCache keeps rendered SQL fragments (projections, conflict targets)
// keyed by dialect, model and shape, so hot paths skip rebuilding them
type StmtCache struct {
	mu      sync.Mutex
	entries map[string]*CachedStmt
	maxSize int
	ttl     time.Duration
}

// CachedStmt is one cached fragment
type CachedStmt struct {
	Query       string
	LastUsed    time.Time
	AccessCount int64
}

// NewStmtCache creates a cache holding at most maxSize fragments for ttl
func NewStmtCache(maxSize int, ttl time.Duration) *StmtCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &StmtCache{
		entries: make(map[string]*CachedStmt),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// DefaultStmtCache returns a cache with default settings
func DefaultStmtCache() *StmtCache {
	return NewStmtCache(512, 10*time.Minute)
}

// Get returns the fragment stored under key if it has not expired
func (c *StmtCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stmt, exists := c.entries[key]
	if !exists {
		return "", false
	}

	if c.ttl > 0 && time.Since(stmt.LastUsed) > c.ttl {
		delete(c.entries, key)
		return "", false
	}

	stmt.LastUsed = time.Now()
	stmt.AccessCount++

	return stmt.Query, true
}

// Put stores a fragment, evicting the least recently used one when full
func (c *StmtCache) Put(key, query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLRU()
	}

	c.entries[key] = &CachedStmt{
		Query:       query,
		LastUsed:    time.Now(),
		AccessCount: 1,
	}
}

// GetOrBuild returns the cached fragment or builds and stores it
func (c *StmtCache) GetOrBuild(key string, build func() string) string {
	if c == nil {
		return build()
	}
	if query, ok := c.Get(key); ok {
		return query
	}
	query := build()
	c.Put(key, query)
	return query
}

// evictLRU removes the least recently used entry
func (c *StmtCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time
	first := true

	for key, stmt := range c.entries {
		if first || stmt.LastUsed.Before(oldestTime) {
			oldestKey = key
			oldestTime = stmt.LastUsed
			first = false
		}
	}

	if !first {
		delete(c.entries, oldestKey)
	}
}

// Cleanup removes expired entries
func (c *StmtCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, stmt := range c.entries {
		if now.Sub(stmt.LastUsed) > c.ttl {
			delete(c.entries, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until ctx is done
func (c *StmtCache) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()
}

// Stats returns the number of entries and the total number of hits
func (c *StmtCache) Stats() (size int, totalAccesses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size = len(c.entries)
	for _, stmt := range c.entries {
		totalAccesses += stmt.AccessCount
	}
	return size, totalAccesses
}
