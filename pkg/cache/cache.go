// Package cache stores finished conversions so identical uploads with
// identical settings skip the external tools.
//
// Three backends implement Cache:
//
//   - NullCache never stores anything and is the default.
//   - FileCache keeps entries as JSON files under a directory, for the CLI
//     and single-instance servers.
//   - RedisCache shares entries between server instances.
//
// Keys come from a Keyer. Conversion keys hash the uploaded bytes together
// with every tracing parameter, so any settings change is a miss.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A non-positive ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
