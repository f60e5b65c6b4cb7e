// Package testutil waits on asynchronous engine state in tests.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/joeycumines/reactree/internal/flow"
	"github.com/joeycumines/reactree/internal/world"
)

// Poll checks condition every interval until it holds, timeout passes, or
// ctx is done.
func Poll(ctx context.Context, condition func() bool, timeout, interval time.Duration) error {
	start := time.Now()
	for {
		if condition() {
			return nil
		}
		if time.Since(start) >= timeout {
			return fmt.Errorf("timeout waiting for condition (threshold: %v)", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// TickUntil ticks e by dt, sleeping dt between ticks so work posted from
// other goroutines can land, until condition holds or timeout passes.
// Conditions are checked after each tick, while its results are visible.
func TickUntil(e *flow.Engine, dt time.Duration, condition func() bool, timeout time.Duration) error {
	start := time.Now()
	for !condition() {
		if time.Since(start) >= timeout {
			return fmt.Errorf("timeout after %d ticks (threshold: %v)", e.TickCount(), timeout)
		}
		time.Sleep(dt)
		e.Tick(dt)
	}
	return nil
}

// TickWhileRunning ticks e until node is no longer running.
func TickWhileRunning(e *flow.Engine, node world.Entity, dt, timeout time.Duration) error {
	return TickUntil(e, dt, func() bool { return !e.IsRunning(node) }, timeout)
}
