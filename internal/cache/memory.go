package cache

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *cacheEntry) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryCache is an in-process Cache with a background sweeper.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry

	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
}

// NewMemoryCache creates an in-memory cache that sweeps expired entries every sweepInterval.
func NewMemoryCache(sweepInterval time.Duration) *MemoryCache {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	c := &MemoryCache{
		entries:       make(map[string]*cacheEntry),
		sweepInterval: sweepInterval,
		stop:          make(chan struct{}),
	}

	go c.sweep()

	return c
}

// Get retrieves a value by key.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || entry.isExpired(time.Now()) {
		return nil, ErrCacheMiss
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a copy of value for ttl.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	c.entries[key] = &cacheEntry{value: stored, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete removes a value by key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// GetOrSet retrieves a value or computes and stores it if missing.
func (c *MemoryCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
	return getOrSet(ctx, c, key, ttl, fn)
}

// Clear removes all entries.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ping always succeeds.
func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close stops the sweeper goroutine.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) removeExpired() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if entry.isExpired(now) {
			delete(c.entries, key)
		}
	}
}

var _ Cache = (*MemoryCache)(nil)
