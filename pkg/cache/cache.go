// Package cache stores parse results and rendered artifacts between runs.
//
// Parsing a large stub corpus dominates indexing time, while most files do
// not change between runs. Parse results are cached under a key derived from
// the parser type and version, the file path and the content hash, so an
// edited file or an upgraded parser always misses.
//
// # Backends
//
//   - [FileCache]: one file per entry under a cache directory (CLI default)
//   - [RedisCache]: shared cache for servers and CI runners
//   - [MemoryCache]: bounded in-process LRU
//   - [NullCache]: disables caching (--no-cache)
//
// # Keys
//
// A [Keyer] builds the keys; [NewScopedKeyer] prefixes them so several
// corpora can share one backend without collisions.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Default entry lifetimes.
const (
	TTLParse    = 30 * 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// ErrCacheMiss is returned by [GetJSON] when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a byte-oriented key/value store with optional expiry.
// A zero ttl stores the entry without expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes every entry owned by the cache.
	Clear(ctx context.Context) error
	Close() error
}

// GetJSON reads key and decodes it into v. It returns [ErrCacheMiss] on a
// miss and treats undecodable entries as misses.
func GetJSON(ctx context.Context, c Cache, key string, v any) error {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(ctx, key)
		return ErrCacheMiss
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}
