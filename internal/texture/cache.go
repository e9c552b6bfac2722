package texture

import (
	"image"
	"os"
	"sync"
	"time"
)

// Resolver resolves an image reference to a decoded image.
type Resolver interface {
	Resolve(ref string) *image.NRGBA
}

// Cache is a concurrency-safe image cache.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
	index *Index
}

// cacheEntry is valid while the file keeps the size and mtime it had
// when it was decoded.
type cacheEntry struct {
	img     *image.NRGBA
	size    int64
	modTime time.Time
}

func (e *cacheEntry) matches(info os.FileInfo) bool {
	return e.size == info.Size() && e.modTime.Equal(info.ModTime())
}

// NewCache creates a cache backed by index. index may be nil, in which case
// only references that are existing file paths resolve.
func NewCache(index *Index) *Cache {
	if index == nil {
		index = &Index{entries: map[string]string{}}
	}
	return &Cache{
		items: make(map[string]*cacheEntry),
		index: index,
	}
}

// Resolve loads and caches an image. A reference naming an existing file is
// loaded directly; anything else is looked up by stem in the index.
// Returns nil if not found or undecodable. Failed loads are not cached, and
// a file rewritten since it was cached is decoded again.
func (c *Cache) Resolve(ref string) *image.NRGBA {
	path, ok := c.pathFor(ref)
	if !ok {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}

	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[path]; exists && entry.matches(info) {
		c.mu.RUnlock()
		return entry.img
	}
	c.mu.RUnlock()

	// Slow path: load from disk
	img, err := Load(path)
	if err != nil {
		return nil
	}

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists := c.items[path]; exists && entry.matches(info) {
		return entry.img
	}
	c.items[path] = &cacheEntry{img: img, size: info.Size(), modTime: info.ModTime()}
	return img
}

func (c *Cache) pathFor(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return ref, true
	}
	return c.index.ResolvePath(ref)
}
