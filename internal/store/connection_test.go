package store

import (
	"context"
	"errors"
	"testing"

	"github.com/rollout-labs/updatecache/internal/apperrors"
)

func TestDisabledConnection(t *testing.T) {
	conn := NewConnection(Options{})

	if conn.Enabled() {
		t.Fatal("Expected connection without host/port to be disabled")
	}
	if state := conn.Ops().State(); state != StateUnconfigured {
		t.Fatalf("Expected unconfigured ops handle, got %v", state)
	}
	if err := conn.CheckHealth(context.Background()); !errors.Is(err, apperrors.ErrNotConfigured) {
		t.Fatalf("Expected ErrNotConfigured from CheckHealth, got %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("Close on disabled connection: %v", err)
	}
}

func TestDisabledConnectionPartialConfig(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"host only", Options{Host: "localhost"}},
		{"port only", Options{Port: 6379}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if NewConnection(tt.opts).Enabled() {
				t.Fatal("Expected partially configured connection to be disabled")
			}
		})
	}
}

func TestEnabledConnectionHasBothHandles(t *testing.T) {
	conn := NewConnection(Options{Host: "localhost", Port: 6379})
	t.Cleanup(func() { _ = conn.Close() })

	if !conn.Enabled() {
		t.Fatal("Expected connection with host and port to be enabled")
	}
	if conn.Ops() == nil || conn.Metrics() == nil {
		t.Fatal("Expected both handles to exist")
	}
	// Construction never dials, so both handles start out connecting.
	if state := conn.Ops().State(); state != StateConnecting {
		t.Fatalf("Expected connecting ops handle, got %v", state)
	}
	if state := conn.Metrics().State(); state != StateConnecting {
		t.Fatalf("Expected connecting metrics handle, got %v", state)
	}
}

func TestHandleStateString(t *testing.T) {
	tests := []struct {
		state HandleState
		want  string
	}{
		{StateUnconfigured, "unconfigured"},
		{StateConnecting, "connecting"},
		{StateReady, "ready"},
		{StateFailed, "failed"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State %d: expected %q, got %q", tt.state, tt.want, got)
		}
	}
}
