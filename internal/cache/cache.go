package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"github.com/spboyer/crucible/internal/models"
)

// Cache holds validation results keyed by query type and query text.
// Entries are write-once: the first Put for a key wins until Clear.
// When dir is set, entries are mirrored to JSON files so later sessions
// can reuse them.
type Cache struct {
	dir string
	mem *gocache.Cache

	mu     sync.Mutex
	hits   int
	misses int
}

// Stats reports cache usage.
type Stats struct {
	Entries int            `json:"entries"`
	Hits    int            `json:"hits"`
	Misses  int            `json:"misses"`
	ByType  map[string]int `json:"by_type,omitempty"`
}

// New creates a cache. An empty dir keeps the cache in memory only.
func New(dir string) *Cache {
	return &Cache{
		dir: dir,
		mem: gocache.New(gocache.NoExpiration, 0),
	}
}

// Dir returns the directory entries are mirrored to, or "" for a
// memory-only cache.
func (c *Cache) Dir() string {
	return c.dir
}

// Key generates the cache key for a query: its type plus a hash of its text.
func Key(q models.SearchQuery) string {
	h := sha256.New()
	_ = writeString(h, string(q.Type))
	_ = writeString(h, q.Text)
	return string(q.Type) + "-" + hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached result if it exists. Disk entries are promoted
// into memory on first read.
func (c *Cache) Get(key string) (*models.ValidationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.mem.Get(key); ok {
		c.hits++
		return v.(*models.ValidationResult), true
	}

	if r, ok := c.readFile(key); ok {
		// Add cannot fail here: the key was just missing and mu is held.
		_ = c.mem.Add(key, r, gocache.NoExpiration)
		c.hits++
		return r, true
	}

	c.misses++
	return nil, false
}

// Put stores a result. A second Put for the same key is ignored and
// returns false.
func (c *Cache) Put(key string, result *models.ValidationResult) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mem.Add(key, result, gocache.NoExpiration); err != nil {
		return false, nil
	}

	if c.dir == "" {
		return true, nil
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return true, fmt.Errorf("creating cache directory: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return true, fmt.Errorf("marshaling result: %w", err)
	}
	path := c.cachePath(key)
	if _, err := os.Stat(path); err == nil {
		return true, nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return true, fmt.Errorf("writing cache file: %w", err)
	}
	return true, nil
}

// Clear removes every entry from memory and, if configured, from disk.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mem.Flush()
	c.hits, c.misses = 0, 0

	if c.dir == "" {
		return nil
	}
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Only remove directories that look like ours.
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			return errors.New("cache directory contains subdirectories - refusing to delete for safety")
		}
		if filepath.Ext(entry.Name()) != ".json" {
			return errors.New("cache directory contains non-cache files - refusing to delete for safety")
		}
	}
	return os.RemoveAll(c.dir)
}

// Stats returns a snapshot of cache usage.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Entries: c.mem.ItemCount(),
		Hits:    c.hits,
		Misses:  c.misses,
		ByType:  make(map[string]int),
	}
	for _, item := range c.mem.Items() {
		if r, ok := item.Object.(*models.ValidationResult); ok {
			s.ByType[string(r.Query.Type)]++
		}
	}
	return s
}

// DiskStats counts the entries mirrored to disk, grouped by query type.
// A memory-only cache reports zero entries.
func (c *Cache) DiskStats() (Stats, error) {
	s := Stats{ByType: make(map[string]int)}
	if c.dir == "" {
		return s, nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading cache directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		if i := strings.LastIndex(key, "-"); i > 0 {
			s.ByType[key[:i]]++
		}
		s.Entries++
	}
	return s, nil
}

func (c *Cache) readFile(key string) (*models.ValidationResult, bool) {
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		return nil, false
	}
	var r models.ValidationResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false
	}
	return &r, true
}

// cachePath returns the file path for a cache key
func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func writeString(w io.Writer, s string) error {
	// Null byte delimiter prevents collisions between adjacent fields
	_, err := w.Write([]byte(s + "\x00"))
	return err
}
