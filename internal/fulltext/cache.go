package fulltext

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Cache persists extracted text on the local filesystem, one UTF-8 file
// per key. It is an optimization, never a correctness dependency: readers
// treat any failure as a miss and writers report errors the caller may
// ignore. Concurrent writes to the same key race benignly since both
// write identical content.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("fulltext: cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("fulltext: create cache dir %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

// Get reads the entry for key. The second return is false on a miss or
// any read failure.
func (c *Cache) Get(key string) (string, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Has reports whether an entry exists for key.
func (c *Cache) Has(key string) bool {
	info, err := os.Stat(c.path(key))
	return err == nil && !info.IsDir()
}

// Put writes text under key, replacing any previous entry.
func (c *Cache) Put(key, text string) error {
	target := c.path(key)
	if err := os.WriteFile(target, []byte(text), 0o600); err != nil {
		return fmt.Errorf("fulltext: write cache entry %s: %w", target, err)
	}
	return nil
}

func (c *Cache) path(key string) string {
	safe := strings.ReplaceAll(key, "/", "_")
	safe = strings.ReplaceAll(safe, string(filepath.Separator), "_")
	return filepath.Join(c.dir, safe+".txt")
}

// CacheKey derives the storage key for a query: the index when present,
// else the name, else the romanization, else a fixed sentinel.
func CacheKey(q Query) string {
	switch {
	case q.Index != 0:
		return strconv.Itoa(q.Index)
	case q.Name != "":
		return q.Name
	case q.Pinyin != "":
		return q.Pinyin
	default:
		return "unknown"
	}
}
