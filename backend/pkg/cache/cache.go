package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/vpkilab/vpki/core/pkg/models"
)

// ValidityCache is a strict LRU of certificate validity records. Structure
// changes happen under mu; hit and miss counters are updated outside of it.
type ValidityCache struct {
	mu       sync.Mutex
	lru      *simplelru.LRU[string, models.Validity]
	capacity int
	// epoch increases on every invalidation
	epoch uint64

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewValidityCache(capacity int) (*ValidityCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}

	lru, err := simplelru.NewLRU[string, models.Validity](capacity, nil)
	if err != nil {
		return nil, err
	}

	return &ValidityCache{
		lru:      lru,
		capacity: capacity,
	}, nil
}

// Get returns the cached record and refreshes its recency. An ACTIVE record
// whose expiry is before now is dropped and reported as a miss.
func (c *ValidityCache) Get(serialNumber string, now time.Time) (models.Validity, bool) {
	c.mu.Lock()
	v, ok := c.lru.Get(serialNumber)
	if ok && v.Status == models.StatusActive && !v.IsValidAt(now) {
		c.lru.Remove(serialNumber)
		ok = false
	}
	c.mu.Unlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}

	return v, ok
}

// Peek reads a record without touching recency or counters.
func (c *ValidityCache) Peek(serialNumber string) (models.Validity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Peek(serialNumber)
}

// Epoch must be read before fetching a record that will be passed to AddIfCurrent.
func (c *ValidityCache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.epoch
}

// Add inserts or refreshes a record and reports whether an entry was evicted.
func (c *ValidityCache) Add(v models.Validity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Add(v.SerialNumber, v)
}

// AddIfCurrent inserts v unless it is ACTIVE and an invalidation happened
// since epoch was read. It reports whether v was inserted.
func (c *ValidityCache) AddIfCurrent(v models.Validity, epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v.Status == models.StatusActive && c.epoch != epoch {
		return false
	}

	c.lru.Add(v.SerialNumber, v)
	return true
}

// Remove drops the record and bumps the epoch, even if nothing was cached.
func (c *ValidityCache) Remove(serialNumber string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	return c.lru.Remove(serialNumber)
}

func (c *ValidityCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.lru.Purge()
}

func (c *ValidityCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Len()
}

// Keys are ordered from least to most recently used.
func (c *ValidityCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Keys()
}

func (c *ValidityCache) Capacity() int {
	return c.capacity
}

func (c *ValidityCache) Hits() uint64 {
	return c.hits.Load()
}

func (c *ValidityCache) Misses() uint64 {
	return c.misses.Load()
}

// HitRate is the percentage of lookups served from the cache.
func (c *ValidityCache) HitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}

	return float64(hits) / float64(total) * 100
}
