package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get for a missing or expired key.
var ErrKeyNotFound = errors.New("key not found")

// Cache defines the caching operations interface following hexagonal architecture.
// This is a port that can be implemented by different cache providers (Redis, Memcached, etc.).
type Cache interface {
	// Get retrieves a value from the cache by key.
	// Returns ErrKeyNotFound when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the specified key and TTL.
	// TTL of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores value only if key does not exist and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// CompareAndDelete removes key only while it still holds value.
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)

	// Delete removes values from the cache by key.
	Delete(ctx context.Context, keys ...string) error

	// Ping checks if the cache service is reachable.
	Ping(ctx context.Context) error

	// Close closes the cache connection.
	Close() error
}
