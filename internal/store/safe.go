package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rollout-labs/updatecache/internal/apperrors"
	"github.com/rollout-labs/updatecache/internal/config"
)

// The safe invocation wrapper. The cache and adoption layers are accelerators,
// not correctness-critical paths: a store outage must never fail an
// update-check or status-report request. Every public operation above this
// package routes its store calls through Read or Write, which turn any
// failure (store disabled, transport, protocol, even a panic inside the
// client) into a benign default the caller needs no failure branch for.

// Read executes fn against the handle and returns its result. On any failure
// it returns the zero value and false; nothing propagates.
func Read[T any](ctx context.Context, h *Handle, op string, fn func(context.Context, Commander) (T, error)) (T, bool) {
	val, err := invoke(ctx, h, op, fn)
	if err != nil {
		swallow(h, op, err)
		var zero T
		return zero, false
	}
	return val, true
}

// Write executes fn against the handle, swallowing any failure. It reports
// whether the write actually reached the store, which callers may use for
// follow-up decisions but never need to.
func Write(ctx context.Context, h *Handle, op string, fn func(context.Context, Commander) error) bool {
	_, err := invoke(ctx, h, op, func(ctx context.Context, c Commander) (struct{}, error) {
		return struct{}{}, fn(ctx, c)
	})
	if err != nil {
		swallow(h, op, err)
		return false
	}
	return true
}

func invoke[T any](ctx context.Context, h *Handle, op string, fn func(context.Context, Commander) (T, error)) (val T, err error) {
	if h == nil || h.commander == nil {
		return val, apperrors.ErrNotConfigured
	}
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewStoreError(op, fmt.Errorf("panic: %v", r))
			h.observe(err)
		}
	}()
	val, err = fn(ctx, h.commander)
	h.observe(err)
	if err != nil {
		err = apperrors.NewStoreError(op, err)
	}
	return val, err
}

// swallow records a degraded operation. A disabled store is the expected
// steady state for deployments without Redis, so it is not logged per call.
func swallow(h *Handle, op string, err error) {
	if errors.Is(err, apperrors.ErrNotConfigured) {
		return
	}
	handle := "unconfigured"
	if h != nil {
		handle = h.name
	}
	SwallowedErrorsTotal.WithLabelValues(handle, op).Inc()
	logger := config.GetLogger()
	logger.Warn().Err(err).Str("handle", handle).Str("op", op).Msg("Store operation degraded to no-op")
}
