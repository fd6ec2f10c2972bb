package cache

import (
	"context"
	"time"
)

// Cache stores short-lived serialized values, such as inventory listings.
// The memory implementation serves single-instance deployments; Redis is shared
// between bot replicas.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// GetOrSet retrieves a value or computes and stores it if missing.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error)

	// Clear removes all entries owned by this cache.
	Clear(ctx context.Context) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases background resources.
	Close() error
}

// CacheError is a sentinel error type for cache lookups.
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)

// getOrSet is the shared read-through logic of both implementations.
// A failed store does not fail the read.
func getOrSet(ctx context.Context, c Cache, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
	if value, err := c.Get(ctx, key); err == nil {
		return value, nil
	}

	value, err := fn()
	if err != nil {
		return nil, err
	}

	_ = c.Set(ctx, key, value, ttl)
	return value, nil
}
