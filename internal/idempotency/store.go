// Package idempotency caches workflow outcomes by idempotency key.
//
// A Cache sits on top of a Store. The shared store (Redis or Postgres) is probed once
// when the cache is constructed; if it is unreachable the cache uses an in-process
// MemoryStore for the rest of the process lifetime. There is no transparent
// reconnection mid-request.
package idempotency

import (
	"context"
	"time"
)

// Store is a key/value store with per-entry expiry.
type Store interface {
	// Name identifies the backend (redis, postgres, memory)
	Name() string

	// Get returns the value for key. ok is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key for ttl, replacing any existing value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	Close() error
}

// Sweeper is implemented by stores that need expired entries removed periodically.
type Sweeper interface {
	Sweep(ctx context.Context) (removed int64, err error)
}
