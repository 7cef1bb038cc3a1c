package storage

import (
	"context"
	"fmt"
	"time"
)

// CacheInterface defines the set of methods that any cache backend needs to
// implement. It backs two concerns: short-lived progress snapshots for the API,
// and dedupe markers for the reminder queue.
type CacheInterface interface {
	// Connect establishes a connection to the cache backend.
	Connect(url string) error
	// Disconnect closes the connection to the cache backend.
	Disconnect() error
	// Set stores a value under key with the given time-to-live.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get retrieves the value stored under key into dest, which must be a
	// pointer. Returns an error satisfying IsMiss when the key is absent.
	Get(ctx context.Context, key string, dest interface{}) error
	// Delete removes the value stored under key, if any.
	Delete(ctx context.Context, key string) error
	// Clear removes every key. Used by tests.
	Clear(ctx context.Context) error
}

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = fmt.Errorf("key does not exist")

// NewCache creates a CacheInterface backed by Redis at the given URL.
func NewCache(url string) (CacheInterface, error) {
	cache := NewRedisCache()
	if err := cache.Connect(url); err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return cache, nil
}
