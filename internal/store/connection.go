package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rollout-labs/updatecache/internal/apperrors"
	"github.com/rollout-labs/updatecache/internal/config"
)

// HandleState tracks the lifecycle of one store handle.
type HandleState int32

const (
	StateUnconfigured HandleState = iota
	StateConnecting
	StateReady
	StateFailed
)

func (s HandleState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unconfigured"
	}
}

// Handle is one logical connection to the store. State transitions follow
// observed command outcomes: a successful command marks the handle ready, a
// transport failure marks it failed. A failed handle is still attempted on the
// next command since the underlying client reconnects on its own.
type Handle struct {
	name      string
	commander Commander
	state     atomic.Int32
}

func newHandle(name string, c Commander) *Handle {
	h := &Handle{name: name, commander: c}
	h.state.Store(int32(StateConnecting))
	return h
}

// State returns the last observed state of the handle.
func (h *Handle) State() HandleState {
	if h == nil || h.commander == nil {
		return StateUnconfigured
	}
	return HandleState(h.state.Load())
}

func (h *Handle) observe(err error) {
	if err != nil {
		h.state.Store(int32(StateFailed))
		return
	}
	h.state.Store(int32(StateReady))
}

// Connection holds the two logical handles against the same physical store:
// one for general response caching in the default database, one dedicated to
// adoption metrics in a separate database. When no host/port was configured
// both handles are absent and every dependent operation fails fast with
// apperrors.ErrNotConfigured.
type Connection struct {
	ops     *Handle
	metrics *Handle

	setupMu      sync.Mutex
	setupAttempt *setupAttempt

	maxRetries int
	backoffCap time.Duration
}

// Options configures a Connection. Host or Port left zero disables the store.
type Options struct {
	Host            string
	Port            int
	Password        string
	TLSEnabled      bool
	MaxRetries      int
	RetryBackoffCap time.Duration
}

// OptionsFromConfig maps the loaded process configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Host:            cfg.Redis.Host,
		Port:            cfg.Redis.Port,
		Password:        cfg.Redis.Key,
		TLSEnabled:      cfg.Redis.TLSEnabled,
		MaxRetries:      cfg.Redis.MaxRetries,
		RetryBackoffCap: cfg.RetryBackoffCap(),
	}
}

// NewConnection builds the dual-handle connection. Construction never dials:
// both clients connect lazily on first use, and connection failures are
// retried by the transport with the configured attempt cap and capped backoff.
func NewConnection(opts Options) *Connection {
	conn := &Connection{
		maxRetries: opts.MaxRetries,
		backoffCap: opts.RetryBackoffCap,
	}
	if opts.Host == "" || opts.Port == 0 {
		return conn
	}

	mk := func(db int) Commander {
		return NewRedisCommander(RedisOptions{
			Host:            opts.Host,
			Port:            opts.Port,
			Password:        opts.Password,
			TLSEnabled:      opts.TLSEnabled,
			DB:              db,
			MaxRetries:      opts.MaxRetries,
			RetryBackoffCap: opts.RetryBackoffCap,
		})
	}
	conn.ops = newHandle("ops", mk(0))
	conn.metrics = newHandle("metrics", mk(config.MetricsDB))
	return conn
}

// NewConnectionWithCommanders wires pre-built commanders onto the two handles.
// Used by tests to substitute in-memory doubles; the retry policy is kept
// tight so degraded-path tests stay fast.
func NewConnectionWithCommanders(ops, metrics Commander) *Connection {
	conn := &Connection{maxRetries: 1, backoffCap: 10 * time.Millisecond}
	if ops != nil {
		conn.ops = newHandle("ops", ops)
	}
	if metrics != nil {
		conn.metrics = newHandle("metrics", metrics)
	}
	return conn
}

// Enabled reports whether store configuration was supplied. When false, every
// operation short-circuits without network I/O.
func (c *Connection) Enabled() bool {
	return c.ops != nil && c.metrics != nil
}

// Ops returns the caching handle.
func (c *Connection) Ops() *Handle {
	return c.ops
}

// Metrics returns the metrics handle.
func (c *Connection) Metrics() *Handle {
	return c.metrics
}

// CheckHealth probes both handles and succeeds only if both respond. This is
// the one operation that deliberately surfaces store failure, since it exists
// to report health to an operator.
func (c *Connection) CheckHealth(ctx context.Context) error {
	if !c.Enabled() {
		return apperrors.ErrNotConfigured
	}
	for _, h := range []*Handle{c.ops, c.metrics} {
		err := h.commander.Ping(ctx)
		h.observe(err)
		if err != nil {
			return apperrors.NewStoreError(fmt.Sprintf("ping(%s)", h.name), err)
		}
	}
	return nil
}

// Close tears down both handles. Safe to call on a disabled connection.
func (c *Connection) Close() error {
	if !c.Enabled() {
		return nil
	}
	var firstErr error
	for _, h := range []*Handle{c.ops, c.metrics} {
		if err := h.commander.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
