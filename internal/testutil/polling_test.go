package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/joeycumines/reactree/internal/flow"
	"github.com/joeycumines/reactree/internal/world"
	"github.com/stretchr/testify/require"
)

func TestPoll_ConvertsToTrue(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Poll(context.Background(), func() bool {
		calls++
		return calls >= 3
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestPoll_TimeoutExceeded(t *testing.T) {
	t.Parallel()

	err := Poll(context.Background(), func() bool { return false }, 20*time.Millisecond, time.Millisecond)
	require.ErrorContains(t, err, "timeout waiting for condition")
}

func TestPoll_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	err := Poll(ctx, func() bool {
		cancel()
		return false
	}, 5*time.Second, time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)
}

func newEngine() *flow.Engine {
	return flow.New(world.New(), flow.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestTickWhileRunning(t *testing.T) {
	t.Parallel()

	e := newEngine()
	node := e.Spawn(world.Nil, &flow.SucceedAfter{Duration: 3 * time.Millisecond})
	e.TriggerRun(node)
	require.True(t, e.IsRunning(node))

	require.NoError(t, TickWhileRunning(e, node, time.Millisecond, 5*time.Second))
	outcome, ok := e.Result(node)
	require.True(t, ok)
	require.Equal(t, flow.Success, outcome)
	require.EqualValues(t, 3, e.TickCount())
}

func TestTickUntil_Timeout(t *testing.T) {
	t.Parallel()

	e := newEngine()
	node := e.Spawn(world.Nil, &flow.Idle{})
	e.TriggerRun(node)

	err := TickWhileRunning(e, node, time.Millisecond, 10*time.Millisecond)
	require.ErrorContains(t, err, "timeout after")
	require.True(t, e.IsRunning(node))
}
