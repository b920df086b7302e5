package cache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rollout-labs/updatecache/internal/store"
	"github.com/rollout-labs/updatecache/internal/store/storetest"
)

func newTestCache(t *testing.T) (*Cache, *storetest.Fake) {
	t.Helper()
	fake := storetest.New()
	conn := store.NewConnectionWithCommanders(fake, storetest.New())
	return New(conn, time.Hour), fake
}

func TestCacheSetGetRoundtrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := ExpiryKey("v1")

	c.Set(ctx, key, "https://host/updateCheck", &Response{
		StatusCode: 200,
		Body:       map[string]any{"ok": true},
	})

	got := c.Get(ctx, key, "https://host/updateCheck")
	if got == nil {
		t.Fatal("Expected hit after Set")
	}
	if got.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", got.StatusCode)
	}
	if !reflect.DeepEqual(got.Body, map[string]any{"ok": true}) {
		t.Fatalf("Expected body to roundtrip, got %#v", got.Body)
	}

	if other := c.Get(ctx, key, "https://host/other"); other != nil {
		t.Fatalf("Expected miss for different url, got %#v", other)
	}
}

func TestCacheGetMissOnEmptyStore(t *testing.T) {
	c, _ := newTestCache(t)
	if got := c.Get(context.Background(), ExpiryKey("v1"), "https://host/updateCheck"); got != nil {
		t.Fatalf("Expected miss on empty store, got %#v", got)
	}
}

func TestCacheMalformedPayloadIsMiss(t *testing.T) {
	c, fake := newTestCache(t)
	ctx := context.Background()
	key := ExpiryKey("v1")

	_ = fake.HSet(ctx, key, "https://host/updateCheck", "{not json")

	if got := c.Get(ctx, key, "https://host/updateCheck"); got != nil {
		t.Fatalf("Expected malformed payload to read as miss, got %#v", got)
	}
}

func TestCacheTTLSetOnlyOnFirstWrite(t *testing.T) {
	c, fake := newTestCache(t)
	ctx := context.Background()
	key := ExpiryKey("v1")

	c.Set(ctx, key, "https://host/a", &Response{StatusCode: 200})
	c.Set(ctx, key, "https://host/b", &Response{StatusCode: 200})
	c.Set(ctx, key, "https://host/a", &Response{StatusCode: 304})

	if calls := fake.ExpireCalls[key]; calls != 1 {
		t.Fatalf("Expected TTL assigned exactly once, got %d expire calls", calls)
	}
	ttl, ok := fake.TTL(key)
	if !ok {
		t.Fatal("Expected hash to carry a TTL")
	}
	if ttl != time.Hour {
		t.Fatalf("Expected 1h TTL, got %v", ttl)
	}
}

func TestCacheExpiry(t *testing.T) {
	c, fake := newTestCache(t)
	ctx := context.Background()
	key := ExpiryKey("v1")

	c.Set(ctx, key, "https://host/updateCheck", &Response{StatusCode: 200})

	fake.Advance(time.Hour + time.Minute)

	if got := c.Get(ctx, key, "https://host/updateCheck"); got != nil {
		t.Fatalf("Expected miss after TTL expiry, got %#v", got)
	}
}

func TestCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := ExpiryKey("v1")

	c.Set(ctx, key, "https://host/a", &Response{StatusCode: 200})
	c.Set(ctx, key, "https://host/b", &Response{StatusCode: 200})
	c.Invalidate(ctx, key)

	if got := c.Get(ctx, key, "https://host/a"); got != nil {
		t.Fatalf("Expected miss after invalidation, got %#v", got)
	}
	if got := c.Get(ctx, key, "https://host/b"); got != nil {
		t.Fatalf("Expected miss after invalidation, got %#v", got)
	}
}

func TestCacheDegradesOnStoreFailure(t *testing.T) {
	c, fake := newTestCache(t)
	ctx := context.Background()
	key := ExpiryKey("v1")
	fake.Err = errors.New("connection reset")

	// Neither call may surface the failure.
	c.Set(ctx, key, "https://host/updateCheck", &Response{StatusCode: 200})
	if got := c.Get(ctx, key, "https://host/updateCheck"); got != nil {
		t.Fatalf("Expected miss during store outage, got %#v", got)
	}
	c.Invalidate(ctx, key)
}

func TestCacheDisabledStore(t *testing.T) {
	c := New(store.NewConnection(store.Options{}), time.Hour)
	ctx := context.Background()
	key := ExpiryKey("v1")

	c.Set(ctx, key, "https://host/updateCheck", &Response{StatusCode: 200})
	if got := c.Get(ctx, key, "https://host/updateCheck"); got != nil {
		t.Fatalf("Expected miss on disabled store, got %#v", got)
	}
	c.Invalidate(ctx, key)
}

func TestExpiryKeyFormat(t *testing.T) {
	if got := ExpiryKey("abc123"); got != "deploymentKey:abc123" {
		t.Fatalf("Expected deployed key format, got %q", got)
	}
}
