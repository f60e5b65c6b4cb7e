package flow

import (
	"time"

	"github.com/joeycumines/reactree/internal/world"
)

// RunTimer holds the engine-clock timestamps of a node's most recent start
// and stop. Both stopwatches advance with the engine clock; starting resets
// the first and stopping resets the second.
type RunTimer struct {
	LastStarted time.Duration
	LastStopped time.Duration
	Starts      uint64
	Stops       uint64
}

// TimerReading is a RunTimer evaluated at a point on the engine clock.
type TimerReading struct {
	SinceStart time.Duration
	SinceStop  time.Duration
	// Stopped reports whether the node has ever had Running removed.
	Stopped bool
}

// Read evaluates the timer at now.
func (t RunTimer) Read(now time.Duration) TimerReading {
	return TimerReading{
		SinceStart: now - t.LastStarted,
		SinceStop:  now - t.LastStopped,
		Stopped:    t.Stops > 0,
	}
}

func (t *RunTimer) markStarted(now time.Duration) {
	t.LastStarted = now
	t.Starts++
}

func (t *RunTimer) markStopped(now time.Duration) {
	t.LastStopped = now
	t.Stops++
}

// timer returns node's RunTimer, creating one stamped at the current time
// for nodes built without Engine.Spawn.
func (e *Engine) timer(node world.Entity) *RunTimer {
	if t, ok := world.Get[RunTimer](e.world, node); ok {
		return t
	}
	world.Insert(e.world, node, RunTimer{LastStarted: e.now, LastStopped: e.now})
	t, _ := world.Get[RunTimer](e.world, node)
	return t
}

// Timer reads node's run timer at the current engine time.
func (e *Engine) Timer(node world.Entity) (TimerReading, bool) {
	t, ok := world.Get[RunTimer](e.world, node)
	if !ok {
		return TimerReading{}, false
	}
	return t.Read(e.now), true
}
