package ports

import (
	"context"
	"time"
)

// KeyValueStore is the storage port for recorded search data.
// Values are opaque bytes; decoding belongs to the caller.
type KeyValueStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Scan returns every key matching a glob pattern ("*", "?", "[...]").
	// The order of the result is unspecified.
	Scan(ctx context.Context, pattern string) ([]string, error)
}
