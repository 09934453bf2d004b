package cache

import (
	"container/list"
	"sync"
	"time"
)

// MemoryCache is the L1 in-memory cache with LRU eviction.
type MemoryCache struct {
	capacity int64 // Maximum size in bytes
	size     int64 // Current size in bytes

	// LRU implementation
	items    map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats
}

type memoryEntry struct {
	key     string
	value   []byte
	storeAt time.Time
}

// NewMemoryCache creates a new memory cache with the specified capacity in bytes.
func NewMemoryCache(capacity int64) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// Get retrieves a value and marks it most recently used.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*memoryEntry).value, true
}

// Put stores a value, evicting least recently used entries to make room.
func (c *MemoryCache) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	valueSize := int64(len(value))
	if valueSize > c.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}

	for c.size+valueSize > c.capacity && c.eviction.Len() > 0 {
		c.removeElement(c.eviction.Back())
		c.stats.Evictions++
	}

	elem := c.eviction.PushFront(&memoryEntry{key: key, value: value, storeAt: time.Now()})
	c.items[key] = elem
	c.size += valueSize
	return nil
}

// Contains reports whether key is cached without touching recency.
func (c *MemoryCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Delete removes an entry from the cache.
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
	return nil
}

// Size returns the current cache size in bytes.
func (c *MemoryCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.items))
	return stats
}

// Prune removes entries stored longer than maxAge ago.
func (c *MemoryCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).storeAt.Before(cutoff) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	c.eviction.Remove(elem)
	delete(c.items, entry.key)
	c.size -= int64(len(entry.value))
}
