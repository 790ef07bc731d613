// Package cache defines the shared-store boundary.
//
// The shared store is the only point of cross-instance coordination: mirror
// writes, lookup reads, and rate counter increments all go through the Store
// interface. Every call site issues operations with a bounded timeout;
// exceeding it is treated as a miss, never as a request failure.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is a key-value store with TTL-on-write and an atomic
// increment-and-expire primitive. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value for key, or ErrMiss if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes value under key with the given TTL. A zero TTL means no
	// expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// MSet writes all pairs with the given TTL in one round trip.
	MSet(ctx context.Context, pairs map[string][]byte, ttl time.Duration) error

	// Increment atomically increments the counter for key and returns the
	// new count and the time remaining until the counter expires. The
	// counter's expiry is set to window on first increment, using the
	// store's own clock.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
