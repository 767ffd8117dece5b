package translate

import (
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"

	"aidaily/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Cache is a bounded english-title -> chinese-title map persisted to
// title-zh-cache.json. Eviction is least-recently-used so titles that
// keep reappearing across hourly runs stay cheap.
type Cache struct {
	path    string
	maxSize int
	entries map[string]string
	order   []string // oldest first
}

type cacheDocument struct {
	UpdatedAt string            `json:"updated_at"`
	Titles    map[string]string `json:"titles"`
	Order     []string          `json:"order,omitempty"`
}

// OpenCache loads the cache file, tolerating absence and corruption.
func OpenCache(path string, maxSize int) *Cache {
	if maxSize < 1 {
		maxSize = 5000
	}
	c := &Cache{
		path:    path,
		maxSize: maxSize,
		entries: make(map[string]string),
	}
	if path == "" {
		return c
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("title cache corrupt, starting empty", "path", path)
		return c
	}
	for _, key := range doc.Order {
		if v, ok := doc.Titles[key]; ok {
			c.entries[key] = v
			c.order = append(c.order, key)
		}
	}
	for k, v := range doc.Titles {
		if _, ok := c.entries[k]; !ok {
			c.entries[k] = v
			c.order = append(c.order, k)
		}
	}
	c.evict()
	return c
}

// Get returns the cached translation and refreshes its recency.
func (c *Cache) Get(title string) (string, bool) {
	v, ok := c.entries[title]
	if ok {
		c.touch(title)
	}
	return v, ok
}

// Put stores a translation, evicting the oldest entries past capacity.
func (c *Cache) Put(title, zh string) {
	if title == "" || zh == "" {
		return
	}
	if _, ok := c.entries[title]; ok {
		c.entries[title] = zh
		c.touch(title)
		return
	}
	c.entries[title] = zh
	c.order = append(c.order, title)
	c.evict()
}

// Len returns the number of cached translations.
func (c *Cache) Len() int { return len(c.entries) }

func (c *Cache) touch(title string) {
	for i, k := range c.order {
		if k == title {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, title)
			return
		}
	}
}

func (c *Cache) evict() {
	for len(c.order) > c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Save writes the cache back to disk. Best effort.
func (c *Cache) Save() {
	if c.path == "" {
		return
	}
	doc := cacheDocument{
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Titles:    c.entries,
		Order:     c.order,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		logger.Warn("title cache marshal failed", "error", err.Error())
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		logger.Warn("title cache dir failed", "error", err.Error())
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		logger.Warn("title cache write failed", "error", err.Error())
	}
}
