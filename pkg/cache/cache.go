// Package cache stores generated documents and export artifacts.
//
// Backends implement [Cache]: [FileCache] for the CLI, [RedisCache] for
// the server and [NullCache] to disable caching. Keys come from a [Keyer]
// so a deployment can namespace them with [ScopedKeyer].
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/figura/pkg/observability"
)

// Default time-to-live values.
const (
	DocumentTTL = 24 * time.Hour
	ArtifactTTL = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// GetJSON reads key into v. Decode failures count as a miss. keyType
// labels the observability event.
func GetJSON(ctx context.Context, c Cache, keyType, key string, v any) bool {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok || json.Unmarshal(data, v) != nil {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return true
}

// SetJSON stores v under key as JSON.
func SetJSON(ctx context.Context, c Cache, keyType, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
	return nil
}
