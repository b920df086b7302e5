package store

import (
	"context"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/rollout-labs/updatecache/internal/apperrors"
	"github.com/rollout-labs/updatecache/internal/config"
)

// healthProbeKey is written to the metrics database during setup to verify
// write access. The key name matches what deployed monitoring expects.
const healthProbeKey = "health"

// setupAttempt is a future for one in-flight metrics setup. done is closed
// once the attempt finishes, after err has been set.
type setupAttempt struct {
	done chan struct{}
	err  error
}

// EnsureMetricsSetup verifies, exactly once per process lifetime, that the
// metrics handle reaches its logical database and can write to it. Concurrent
// callers arriving before setup completes share the same in-flight attempt.
// A failed attempt is discarded so the next caller restarts setup.
func (c *Connection) EnsureMetricsSetup(ctx context.Context) error {
	if !c.Enabled() {
		return apperrors.ErrNotConfigured
	}

	c.setupMu.Lock()
	attempt := c.setupAttempt
	if attempt == nil {
		attempt = &setupAttempt{done: make(chan struct{})}
		c.setupAttempt = attempt
		go c.runSetup(attempt)
	}
	c.setupMu.Unlock()

	select {
	case <-attempt.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if attempt.err != nil {
		c.setupMu.Lock()
		if c.setupAttempt == attempt {
			c.setupAttempt = nil
		}
		c.setupMu.Unlock()
		return fmt.Errorf("%w: %v", apperrors.ErrSetupFailed, attempt.err)
	}
	return nil
}

// runSetup executes the setup probe with bounded retries and capped backoff.
// The probe pings the metrics database, writes the health key, and reads it
// back to confirm both directions work.
func (c *Connection) runSetup(attempt *setupAttempt) {
	defer close(attempt.done)

	logger := config.GetLogger()

	retry := retrypolicy.NewBuilder[any]().
		WithBackoff(min(100*time.Millisecond, c.backoffCap), c.backoffCap).
		WithMaxRetries(c.maxRetries).
		Build()

	attempt.err = failsafe.With[any](retry).Run(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.probeMetrics(ctx)
	})

	c.metrics.observe(attempt.err)
	if attempt.err != nil {
		logger.Warn().Err(attempt.err).Msg("Metrics store setup failed; will retry on next metrics operation")
		return
	}
	logger.Debug().Int("db", config.MetricsDB).Msg("Metrics store setup complete")
}

func (c *Connection) probeMetrics(ctx context.Context) error {
	cmd := c.metrics.commander
	if err := cmd.Ping(ctx); err != nil {
		return apperrors.NewStoreError("ping(metrics)", err)
	}
	if err := cmd.Set(ctx, healthProbeKey, healthProbeKey, 0); err != nil {
		return apperrors.NewStoreError("set(health)", err)
	}
	val, ok, err := cmd.Get(ctx, healthProbeKey)
	if err != nil {
		return apperrors.NewStoreError("get(health)", err)
	}
	if !ok || val != healthProbeKey {
		return apperrors.NewStoreError("get(health)", fmt.Errorf("probe readback mismatch: %q", val))
	}
	return nil
}
