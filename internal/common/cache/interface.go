package cache

import (
	"context"
	"time"
)

// Cache is the subset of key-value operations the compiler service relies on.
// It keeps Redis swappable for tests and other backends.
type Cache interface {
	// Get returns "" and no error when the key is missing
	Get(ctx context.Context, key string) (string, error)

	// Set stores a key-value pair; ttl 0 means no expiration
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// SetNX sets the value only if the key does not exist
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	Incr(ctx context.Context, key string) (int64, error)

	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns -1 for keys without expiration and -2 for missing keys
	TTL(ctx context.Context, key string) (time.Duration, error)

	Close() error
}
