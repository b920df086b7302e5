package store

import (
	"context"
	"time"
)

// Commander is the exact Redis command surface this module uses. Declaring it
// as a typed interface (instead of calling the client directly everywhere)
// lets tests substitute a deterministic in-memory double.
//
// Logical database selection is not a method: each handle is bound to its
// database index at connection time.
type Commander interface {
	// Ping issues a liveness probe.
	Ping(ctx context.Context) error

	// Exists reports whether the key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Del removes the given keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error

	// Expire attaches a TTL to the whole key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Get reads a plain string key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set writes a plain string key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// HGet reads one field of a hash. ok is false when the key or field
	// is absent.
	HGet(ctx context.Context, key, field string) (value string, ok bool, err error)

	// HSet writes one field of a hash, creating the hash if needed.
	HSet(ctx context.Context, key, field, value string) error

	// HGetAll reads every field of a hash. An absent key yields an empty map.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HDel removes fields from a hash.
	HDel(ctx context.Context, key string, fields ...string) error

	// HIncrBy atomically adds incr to an integer hash field, treating an
	// absent field as 0.
	HIncrBy(ctx context.Context, key, field string, incr int64) error

	// Batch runs every command queued by fn as one atomic unit (MULTI/EXEC):
	// either all of them apply or none do.
	Batch(ctx context.Context, fn func(b BatchCommander) error) error

	// Close releases the underlying network resources.
	Close() error
}

// BatchCommander is the subset of commands available inside an atomic batch.
// Commands are queued, not executed; results are only known once the whole
// batch commits.
type BatchCommander interface {
	HSet(key, field, value string)
	HDel(key string, fields ...string)
	HIncrBy(key, field string, incr int64)
}
