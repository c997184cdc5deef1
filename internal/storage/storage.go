// Package storage defines the string key/value store the tutor keeps its
// session data in. It mirrors the browser storage contract (get, set,
// remove) so the response cache does not depend on a particular backend.
//
// Adapters live under internal/platform: memstore (volatile, per process),
// sqlitestore (durable, local file) and redisstore (shared).
package storage

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExceeded is returned by Set when the store has no room left.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("storage closed")
)

// Store is a string key to string value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Close releases the store's resources.
	Close() error
}

// Clearer is implemented by stores that can drop every key with a prefix.
type Clearer interface {
	Clear(ctx context.Context, prefix string) (int, error)
}
