// Package cache stores serialized update-check responses in Redis so repeat
// requests for the same deployment state skip the API layer's work. It is an
// accelerator only: every store failure degrades to a cache miss or a silent
// no-op, never to an error the caller must handle.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rollout-labs/updatecache/internal/apperrors"
	"github.com/rollout-labs/updatecache/internal/config"
	"github.com/rollout-labs/updatecache/internal/store"
)

// ExpiryKey names the hash holding all cached responses that share one
// expiry scope. The format must match deployed state exactly.
func ExpiryKey(deploymentKey string) string {
	return "deploymentKey:" + deploymentKey
}

// Response is the cacheable part of an HTTP-style response.
type Response struct {
	StatusCode int `json:"statusCode"`
	Body       any `json:"body"`
}

// Cache reads and writes responses under a compound (expiryKey, url) key.
// Entries for one expiry scope live as fields of a single hash, so the whole
// scope can be invalidated with one DEL and expires as one unit.
type Cache struct {
	conn *store.Connection
	ttl  time.Duration
}

// New builds a Cache. A non-positive ttl falls back to the default.
func New(conn *store.Connection, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}
	return &Cache{conn: conn, ttl: ttl}
}

// entry carries one hash field read out of the store.
type entry struct {
	raw   string
	found bool
}

// Get returns the cached response for url under expiryKey, or nil when the
// entry is absent, the payload is malformed, or the store is unavailable.
func (c *Cache) Get(ctx context.Context, expiryKey, url string) *Response {
	e, ok := store.Read(ctx, c.conn.Ops(), "hget", func(ctx context.Context, cmd store.Commander) (entry, error) {
		val, found, err := cmd.HGet(ctx, expiryKey, url)
		if err != nil {
			return entry{}, err
		}
		return entry{raw: val, found: found}, nil
	})
	if !ok || !e.found {
		MissesTotal.Inc()
		return nil
	}

	var resp Response
	if err := json.Unmarshal([]byte(e.raw), &resp); err != nil {
		// A malformed payload is indistinguishable from a miss to callers.
		logger := config.GetLogger()
		logger.Warn().Err(apperrors.NewDecodeError(expiryKey, url, err)).Msg("Dropping malformed cache payload")
		MissesTotal.Inc()
		return nil
	}
	HitsTotal.Inc()
	return &resp
}

// Set serializes resp and writes it under (expiryKey, url). The hash receives
// its TTL only when this write created it; later writes to the same scope
// never refresh the expiry. The exists/write/expire sequence is not atomic
// against concurrent writers; two concurrent first-writers may both set the
// TTL, which is harmless for an accelerator cache.
func (c *Cache) Set(ctx context.Context, expiryKey, url string, resp *Response) {
	if resp == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		logger := config.GetLogger()
		logger.Warn().Err(err).Str("url", url).Msg("Skipping cache write for unserializable response")
		return
	}

	store.Write(ctx, c.conn.Ops(), "hset", func(ctx context.Context, cmd store.Commander) error {
		existed, err := cmd.Exists(ctx, expiryKey)
		if err != nil {
			return err
		}
		if err := cmd.HSet(ctx, expiryKey, url, string(payload)); err != nil {
			return err
		}
		if !existed {
			return cmd.Expire(ctx, expiryKey, c.ttl)
		}
		return nil
	})
	SetsTotal.Inc()
}

// Invalidate drops every cached response under expiryKey, forcing refreshes
// after semantically changed server state.
func (c *Cache) Invalidate(ctx context.Context, expiryKey string) {
	store.Write(ctx, c.conn.Ops(), "del", func(ctx context.Context, cmd store.Commander) error {
		return cmd.Del(ctx, expiryKey)
	})
	InvalidationsTotal.Inc()
}
