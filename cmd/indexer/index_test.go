package main

import (
	"context"
	"fmt"
	"testing"
)

func TestIgnoreCanceled(t *testing.T) {
	if err := ignoreCanceled(nil); err != nil {
		t.Fatalf("nil must pass through: %v", err)
	}
	if err := ignoreCanceled(context.Canceled); err != nil {
		t.Fatalf("bare cancellation is a clean shutdown: %v", err)
	}

	// Chain loops wrap cancellation before it reaches the supervisor.
	wrapped := fmt.Errorf("seed watch set: %w", context.Canceled)
	if err := ignoreCanceled(wrapped); err != nil {
		t.Fatalf("wrapped cancellation is a clean shutdown: %v", err)
	}

	real := fmt.Errorf("chain 56: connect rpc: connection refused")
	if err := ignoreCanceled(real); err == nil {
		t.Fatalf("real failures must propagate")
	}
}
