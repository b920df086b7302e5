// Package storetest provides a deterministic in-memory Commander for unit
// tests, with a manual clock for TTL behavior and failure injection for
// degraded-path testing.
package storetest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rollout-labs/updatecache/internal/store"
)

// Fake implements store.Commander in memory. All methods are safe for
// concurrent use. Time does not pass on its own; call Advance to expire keys.
type Fake struct {
	mu      sync.Mutex
	strings map[string]string
	hashes  map[string]map[string]string

	now       time.Time
	expiresAt map[string]time.Time

	// Err, when non-nil, makes every command fail with it. PingErr and
	// SetErr only affect their respective commands.
	Err     error
	PingErr error
	SetErr  error

	// ExpireCalls counts Expire invocations per key, letting tests assert
	// the one-time TTL assignment.
	ExpireCalls map[string]int

	// PingCalls and SetCalls count probe-relevant commands, letting tests
	// assert that setup runs exactly once and retries are bounded.
	PingCalls int
	SetCalls  int

	closed bool
}

var _ store.Commander = (*Fake)(nil)

// New returns an empty Fake with its clock at a fixed reference time.
func New() *Fake {
	return &Fake{
		strings:     make(map[string]string),
		hashes:      make(map[string]map[string]string),
		expiresAt:   make(map[string]time.Time),
		ExpireCalls: make(map[string]int),
		now:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Advance moves the fake clock forward and removes expired keys.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	for key, deadline := range f.expiresAt {
		if !f.now.Before(deadline) {
			delete(f.strings, key)
			delete(f.hashes, key)
			delete(f.expiresAt, key)
		}
	}
}

// TTL reports the recorded expiry for a key, if any.
func (f *Fake) TTL(key string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deadline, ok := f.expiresAt[key]
	if !ok {
		return 0, false
	}
	return deadline.Sub(f.now), true
}

// Hash returns a copy of the named hash for assertions.
func (f *Fake) Hash(key string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out
}

func (f *Fake) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PingCalls++
	if f.PingErr != nil {
		return f.PingErr
	}
	return f.Err
}

func (f *Fake) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	if _, ok := f.strings[key]; ok {
		return true, nil
	}
	_, ok := f.hashes[key]
	return ok, nil
}

func (f *Fake) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for _, key := range keys {
		delete(f.strings, key)
		delete(f.hashes, key)
		delete(f.expiresAt, key)
	}
	return nil
}

func (f *Fake) Expire(_ context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.ExpireCalls[key]++
	f.expiresAt[key] = f.now.Add(ttl)
	return nil
}

func (f *Fake) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", false, f.Err
	}
	val, ok := f.strings[key]
	return val, ok, nil
}

func (f *Fake) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetCalls++
	if f.SetErr != nil {
		return f.SetErr
	}
	if f.Err != nil {
		return f.Err
	}
	f.strings[key] = value
	if ttl > 0 {
		f.expiresAt[key] = f.now.Add(ttl)
	}
	return nil
}

func (f *Fake) HGet(_ context.Context, key, field string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", false, f.Err
	}
	val, ok := f.hashes[key][field]
	return val, ok, nil
}

func (f *Fake) HSet(_ context.Context, key, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.hset(key, field, value)
	return nil
}

func (f *Fake) HGetAll(_ context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	out := make(map[string]string, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *Fake) HDel(_ context.Context, key string, fields ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.hdel(key, fields...)
	return nil
}

func (f *Fake) HIncrBy(_ context.Context, key, field string, incr int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	return f.hincrBy(key, field, incr)
}

// Batch applies every queued command atomically: if any command would fail,
// or the store is failing, nothing is applied.
func (f *Fake) Batch(_ context.Context, fn func(b store.BatchCommander) error) error {
	batch := &fakeBatch{}
	if err := fn(batch); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}

	// Validate first so partial application is impossible.
	for _, op := range batch.ops {
		if op.kind == opHIncrBy {
			if cur, ok := f.hashes[op.key][op.field]; ok {
				if _, err := strconv.ParseInt(cur, 10, 64); err != nil {
					return fmt.Errorf("hash field %q holds non-integer %q", op.field, cur)
				}
			}
		}
	}
	for _, op := range batch.ops {
		switch op.kind {
		case opHSet:
			f.hset(op.key, op.field, op.value)
		case opHDel:
			f.hdel(op.key, op.fields...)
		case opHIncrBy:
			_ = f.hincrBy(op.key, op.field, op.incr)
		}
	}
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) hset(key, field, value string) {
	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}
	h[field] = value
}

func (f *Fake) hdel(key string, fields ...string) {
	h, ok := f.hashes[key]
	if !ok {
		return
	}
	for _, field := range fields {
		delete(h, field)
	}
	if len(h) == 0 {
		delete(f.hashes, key)
	}
}

func (f *Fake) hincrBy(key, field string, incr int64) error {
	var cur int64
	if raw, ok := f.hashes[key][field]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("hash field %q holds non-integer %q", field, raw)
		}
		cur = parsed
	}
	f.hset(key, field, strconv.FormatInt(cur+incr, 10))
	return nil
}

type opKind int

const (
	opHSet opKind = iota
	opHDel
	opHIncrBy
)

type fakeOp struct {
	kind   opKind
	key    string
	field  string
	fields []string
	value  string
	incr   int64
}

type fakeBatch struct {
	ops []fakeOp
}

func (b *fakeBatch) HSet(key, field, value string) {
	b.ops = append(b.ops, fakeOp{kind: opHSet, key: key, field: field, value: value})
}

func (b *fakeBatch) HDel(key string, fields ...string) {
	b.ops = append(b.ops, fakeOp{kind: opHDel, key: key, fields: fields})
}

func (b *fakeBatch) HIncrBy(key, field string, incr int64) {
	b.ops = append(b.ops, fakeOp{kind: opHIncrBy, key: key, field: field, incr: incr})
}
