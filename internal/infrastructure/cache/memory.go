package cache

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/competitiveedge/engine/internal/domain"
)

// Defaults for NewMemoryCache
const (
	DefaultCleanupInterval = 10 * time.Minute
	DefaultMaxEntries      = 50000
)

// cacheItem represents a single item in the cache with expiration
type cacheItem struct {
	key        string
	value      interface{}
	expiration time.Time
	index      int // position in the expiry heap
}

// expiryHeap orders items soonest-expiring first
type expiryHeap []*cacheItem

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].expiration.Before(h[j].expiration) }
func (h expiryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *expiryHeap) Push(x any) {
	item := x.(*cacheItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Options configures a MemoryCache
type Options struct {
	CleanupInterval time.Duration
	// MaxEntries bounds the cache; inserting beyond it evicts the entry closest to expiry
	MaxEntries int
}

// Stats are cumulative lookup counters
type Stats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// MemoryCache is a thread-safe in-memory cache with TTL support. Values are
// stored as given; []float32 vectors are copied on the way in and out so
// callers cannot mutate cached embeddings.
type MemoryCache struct {
	data       map[string]*cacheItem
	expiries   expiryHeap
	mutex      sync.RWMutex
	maxEntries int
	hits       atomic.Uint64
	misses     atomic.Uint64
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryCache creates a cache and starts its cleanup goroutine. Call Close
// to stop it.
func NewMemoryCache(opts Options) *MemoryCache {
	interval := opts.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	cache := &MemoryCache{
		data:       make(map[string]*cacheItem),
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}

	go cache.cleanupExpired(interval)

	return cache
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mutex.RLock()
	var (
		value   interface{}
		expired = true
	)
	if item, exists := c.data[key]; exists {
		value, expired = item.value, time.Now().After(item.expiration)
	}
	c.mutex.RUnlock()

	if expired {
		c.misses.Add(1)
		return nil, domain.ErrCacheMiss
	}

	c.hits.Add(1)
	return copyValue(value), nil
}

// Set stores a value in the cache with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	expiration := time.Now().Add(ttl)
	if item, exists := c.data[key]; exists {
		item.value = copyValue(value)
		item.expiration = expiration
		heap.Fix(&c.expiries, item.index)
		return nil
	}

	if len(c.data) >= c.maxEntries {
		c.evictLocked()
	}

	item := &cacheItem{key: key, value: copyValue(value), expiration: expiration}
	heap.Push(&c.expiries, item)
	c.data[key] = item

	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if item, exists := c.data[key]; exists {
		heap.Remove(&c.expiries, item.index)
		delete(c.data, key)
	}
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return false, nil
	}

	return !time.Now().After(item.expiration), nil
}

// Stats returns hit/miss counters and the current entry count
func (c *MemoryCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Size(),
	}
}

// Size returns the current number of items in the cache, expired ones included
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]*cacheItem)
	c.expiries = nil
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *MemoryCache) removeExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for len(c.expiries) > 0 && now.After(c.expiries[0].expiration) {
		c.popLocked()
	}
}

// evictLocked drops the entry expiring soonest, which is an expired one if
// any exist. Caller holds the write lock.
func (c *MemoryCache) evictLocked() {
	if len(c.expiries) > 0 {
		c.popLocked()
	}
}

func (c *MemoryCache) popLocked() {
	item := heap.Pop(&c.expiries).(*cacheItem)
	delete(c.data, item.key)
}

func copyValue(v interface{}) interface{} {
	if vec, ok := v.([]float32); ok {
		return append([]float32(nil), vec...)
	}
	return v
}
