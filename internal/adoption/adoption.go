// Package adoption aggregates release-adoption counters per deployment in a
// dedicated Redis logical database. Clients report status transitions as they
// download and install releases; the counters answer "how many installs of
// label X succeeded / failed / are currently active". Like the response cache
// this is best-effort: store failures degrade every operation to a no-op or
// an absent result.
package adoption

import (
	"context"
	"strconv"

	"github.com/rollout-labs/updatecache/internal/store"
)

// Client-reported statuses. The strings are persisted as hash field suffixes
// and must match deployed state exactly.
const (
	StatusDeploymentSucceeded = "DeploymentSucceeded"
	StatusDeploymentFailed    = "DeploymentFailed"
	StatusDownloaded          = "Downloaded"
)

// activeSuffix marks the per-label count of clients currently running that
// label. It is maintained by transitions, not reported directly.
const activeSuffix = "Active"

// LabelsKey names the hash of per-label counters for a deployment.
func LabelsKey(deploymentKey string) string {
	return "deploymentKeyLabels:" + deploymentKey
}

// ClientsKey names the hash mapping client IDs to their active label.
func ClientsKey(deploymentKey string) string {
	return "deploymentKeyClients:" + deploymentKey
}

// statusField builds the "<label>:<status>" counter field, or "" when the
// status is not one of the recognized values.
func statusField(label, status string) string {
	switch status {
	case StatusDeploymentSucceeded, StatusDeploymentFailed, StatusDownloaded:
		return label + ":" + status
	default:
		return ""
	}
}

func activeField(label string) string {
	return label + ":" + activeSuffix
}

// Metrics maps counter fields to their values. String-encoded integers are
// parsed; anything non-numeric passes through as the stored string.
type Metrics map[string]any

// Aggregator implements the adoption-counter operations on the metrics
// handle. Every operation first ensures the one-time metrics database setup
// has succeeded; when it has not (or the store is disabled), the operation
// degrades to its benign default.
type Aggregator struct {
	conn *store.Connection
}

// New builds an Aggregator over conn.
func New(conn *store.Connection) *Aggregator {
	return &Aggregator{conn: conn}
}

// ready runs the lazy metrics setup. Setup failure is swallowed here so
// callers keep their no-failure-branch contract; the next operation retries.
func (a *Aggregator) ready(ctx context.Context) bool {
	return a.conn.EnsureMetricsSetup(ctx) == nil
}

// IncrementLabelStatusCount adds 1 to the "<label>:<status>" counter for the
// deployment. An unrecognized status is a no-op.
func (a *Aggregator) IncrementLabelStatusCount(ctx context.Context, deploymentKey, label, status string) {
	field := statusField(label, status)
	if field == "" || !a.ready(ctx) {
		return
	}
	key := LabelsKey(deploymentKey)
	store.Write(ctx, a.conn.Metrics(), "hincrby", func(ctx context.Context, cmd store.Commander) error {
		return cmd.HIncrBy(ctx, key, field, 1)
	})
	OperationsTotal.WithLabelValues("increment_status").Inc()
}

// RecordUpdate registers a client landing on currentLabel of currentKey:
// the label's active and succeeded counters each gain 1, and when the client
// came from a previous deployment/label pair that label's active counter
// loses 1. All three changes commit atomically so a concurrent reader never
// sees a client counted active on both labels or on neither.
//
// Counters are not clamped at zero: transitions observed out of order may
// drive an active count negative, matching the deployed behavior.
func (a *Aggregator) RecordUpdate(ctx context.Context, currentKey, currentLabel, previousKey, previousLabel string) {
	if !a.ready(ctx) {
		return
	}
	store.Write(ctx, a.conn.Metrics(), "batch", func(ctx context.Context, cmd store.Commander) error {
		return cmd.Batch(ctx, func(b store.BatchCommander) error {
			currentHash := LabelsKey(currentKey)
			b.HIncrBy(currentHash, activeField(currentLabel), 1)
			b.HIncrBy(currentHash, statusField(currentLabel, StatusDeploymentSucceeded), 1)
			if previousKey != "" && previousLabel != "" {
				b.HIncrBy(LabelsKey(previousKey), activeField(previousLabel), -1)
			}
			return nil
		})
	})
	OperationsTotal.WithLabelValues("record_update").Inc()
}

// GetMetricsWithDeploymentKey returns every counter for the deployment, or
// nil when there are none or the store is unavailable.
func (a *Aggregator) GetMetricsWithDeploymentKey(ctx context.Context, deploymentKey string) Metrics {
	if !a.ready(ctx) {
		return nil
	}
	key := LabelsKey(deploymentKey)
	fields, ok := store.Read(ctx, a.conn.Metrics(), "hgetall", func(ctx context.Context, cmd store.Commander) (map[string]string, error) {
		return cmd.HGetAll(ctx, key)
	})
	if !ok || len(fields) == 0 {
		return nil
	}
	metrics := make(Metrics, len(fields))
	for field, raw := range fields {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			metrics[field] = n
		} else {
			metrics[field] = raw
		}
	}
	OperationsTotal.WithLabelValues("get_metrics").Inc()
	return metrics
}

// ClearMetricsForDeploymentKey drops both the label counters and the
// client-label assignments for the deployment.
func (a *Aggregator) ClearMetricsForDeploymentKey(ctx context.Context, deploymentKey string) {
	if !a.ready(ctx) {
		return
	}
	store.Write(ctx, a.conn.Metrics(), "del", func(ctx context.Context, cmd store.Commander) error {
		return cmd.Del(ctx, LabelsKey(deploymentKey), ClientsKey(deploymentKey))
	})
	OperationsTotal.WithLabelValues("clear").Inc()
}

// GetCurrentActiveLabel returns the label a client last reported as active,
// or "" when unknown.
//
// Retained for clients predating transition reporting; new call sites use
// RecordUpdate.
func (a *Aggregator) GetCurrentActiveLabel(ctx context.Context, deploymentKey, clientID string) string {
	if !a.ready(ctx) {
		return ""
	}
	key := ClientsKey(deploymentKey)
	label, _ := store.Read(ctx, a.conn.Metrics(), "hget", func(ctx context.Context, cmd store.Commander) (string, error) {
		val, _, err := cmd.HGet(ctx, key, clientID)
		return val, err
	})
	return label
}

// UpdateActiveAppForClient moves a client onto toLabel, incrementing the new
// label's active counter and decrementing the prior label's in one atomic
// batch. Reporting the label the client is already on is a no-op.
//
// Retained for clients predating transition reporting; new call sites use
// RecordUpdate.
func (a *Aggregator) UpdateActiveAppForClient(ctx context.Context, deploymentKey, clientID, toLabel string) {
	if !a.ready(ctx) {
		return
	}
	currentLabel := a.GetCurrentActiveLabel(ctx, deploymentKey, clientID)
	if currentLabel == toLabel {
		return
	}
	store.Write(ctx, a.conn.Metrics(), "batch", func(ctx context.Context, cmd store.Commander) error {
		return cmd.Batch(ctx, func(b store.BatchCommander) error {
			b.HSet(ClientsKey(deploymentKey), clientID, toLabel)
			labelsHash := LabelsKey(deploymentKey)
			b.HIncrBy(labelsHash, activeField(toLabel), 1)
			if currentLabel != "" {
				b.HIncrBy(labelsHash, activeField(currentLabel), -1)
			}
			return nil
		})
	})
	OperationsTotal.WithLabelValues("update_active").Inc()
}
