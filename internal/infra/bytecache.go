package infra

import (
	"container/list"
	"sync"
	"time"
)

// ByteCache is a thread-safe in-memory cache for byte payloads with TTL
// expiry and byte-size-bounded LRU eviction. All mutations of the entry map,
// the size counter, and the eviction order happen under one lock; callers
// must do any file or network I/O outside of it.
type ByteCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	totalBytes int
	maxBytes   int
	ttl        time.Duration
}

type byteCacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewByteCache creates a cache bounded to maxBytes of payload with the given
// entry TTL. maxBytes <= 0 means 16 MiB; ttl <= 0 means 15 minutes.
func NewByteCache(maxBytes int, ttl time.Duration) *ByteCache {
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ByteCache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		maxBytes: maxBytes,
		ttl:      ttl,
	}
}

// Get returns the cached payload for key, or false if absent or expired.
func (c *ByteCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*byteCacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.removeLocked(elem)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return entry.value, true
}

// Set stores a payload, evicting least-recently-used entries until the total
// size fits. A payload larger than the cache capacity is not stored.
func (c *ByteCache) Set(key string, value []byte) {
	if len(value) > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}

	for c.totalBytes+len(value) > c.maxBytes {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}

	entry := &byteCacheEntry{key: key, value: value, expiresAt: time.Now().Add(c.ttl)}
	c.entries[key] = c.order.PushFront(entry)
	c.totalBytes += len(value)
}

// Delete removes a key if present.
func (c *ByteCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
}

// Len returns the number of live entries.
func (c *ByteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SizeBytes returns the total payload bytes held.
func (c *ByteCache) SizeBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalBytes
}

func (c *ByteCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*byteCacheEntry)
	c.order.Remove(elem)
	delete(c.entries, entry.key)
	c.totalBytes -= len(entry.value)
}
