// Package cache provides pluggable caching for pipeline stages.
//
// Layout computation is cheap, but the transposition search over a wide
// shift range on a long melody is not, so repeated runs against the same
// input file benefit from persisting stage results between invocations.
package cache

import (
	"context"
	"time"
)

// Stage TTLs. Melodies and transpositions derive purely from file content
// and options, so they can live long; layouts embed geometry that changes
// more often during tuning.
const (
	TTLMelody        = 30 * 24 * time.Hour
	TTLTransposition = 30 * 24 * time.Hour
	TTLLayout        = 7 * 24 * time.Hour
)

// Cache stores opaque byte values under string keys with optional expiry.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}
