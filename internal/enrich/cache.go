package enrich

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/twickenham/eventsd/internal/models"
)

// CacheEntry is one persisted enrichment result, keyed by the exact event
// name it was produced for.
type CacheEntry struct {
	ShortName string         `json:"short_name"`
	TypeTag   models.TypeTag `json:"event_type"`
	Emoji     string         `json:"emoji"`
	IconID    string         `json:"mdi_icon"`
	CreatedAt time.Time      `json:"created"`
}

// Cache is a JSON file of enrichment results. It is additive: entries are
// written once and only removed by an explicit Clear or Reprocess. The
// file is owned exclusively by one Processor; the mutex only guards
// against the command path racing the cycle path inside the process.
type Cache struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]CacheEntry
}

// NewCache loads the cache file at path, starting empty when the file is
// missing or unreadable. Load failures are logged, not fatal.
func NewCache(path string, logger *zap.Logger) *Cache {
	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]CacheEntry),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to load enrichment cache, starting fresh",
				zap.String("path", path), zap.Error(err))
		}
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		logger.Warn("enrichment cache unreadable, starting fresh",
			zap.String("path", path), zap.Error(err))
		c.entries = make(map[string]CacheEntry)
	}
	return c
}

// Get returns the cached entry for name, if any.
func (c *Cache) Get(name string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	return e, ok
}

// Put stores an entry and persists the cache. Existing entries are never
// silently overwritten; callers wanting a rewrite go through Reprocess.
func (c *Cache) Put(name string, entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[name]; exists {
		return
	}
	c.entries[name] = entry
	c.saveLocked()
}

// Clear drops every entry and persists the now-empty cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CacheEntry)
	c.saveLocked()
}

// Remove deletes a single entry and persists the cache. Re-enrichment
// after a Remove may land on the uncached fallback path, so the deletion
// must not survive only in memory.
func (c *Cache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[name]; !exists {
		return
	}
	delete(c.entries, name)
	c.saveLocked()
}

// Names returns the cached event names in unspecified order.
func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.entries))
	for n := range c.entries {
		names = append(names, n)
	}
	return names
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) saveLocked() {
	if c.path == "" {
		// In-memory only, nothing to persist.
		return
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		c.logger.Error("failed to encode enrichment cache", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		c.logger.Error("failed to create cache directory", zap.Error(err))
		return
	}
	tmp := fmt.Sprintf("%s.tmp", c.path)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		c.logger.Error("failed to write enrichment cache", zap.Error(err))
		return
	}
	if err := os.Rename(tmp, c.path); err != nil {
		c.logger.Error("failed to replace enrichment cache", zap.Error(err))
	}
}
