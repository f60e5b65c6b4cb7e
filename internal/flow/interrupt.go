package flow

import (
	"slices"

	"github.com/joeycumines/reactree/internal/world"
)

// interrupt clears Running from node unconditionally, then from every
// Running descendant outside NoInterrupt subtrees.
func (e *Engine) interrupt(node world.Entity) {
	e.stop(node)
	for _, child := range e.world.Children(node) {
		e.interruptSubtree(child)
	}
}

func (e *Engine) interruptSubtree(node world.Entity) {
	if world.Has[NoInterrupt](e.world, node) {
		return
	}
	e.stop(node)
	for _, child := range e.world.Children(node) {
		e.interruptSubtree(child)
	}
}

// start adds Running, resetting the since-start stopwatch when the tag is
// new. It reports whether the node was idle.
func (e *Engine) start(node world.Entity) bool {
	if e.IsRunning(node) {
		return false
	}
	world.Insert(e.world, node, Running{})
	e.timer(node).markStarted(e.now)
	return true
}

// stop removes Running, resetting the since-stop stopwatch and notifying
// stop handlers. It reports whether the node was Running.
func (e *Engine) stop(node world.Entity) bool {
	if !world.Remove[Running](e.world, node) {
		return false
	}
	e.timer(node).markStopped(e.now)
	e.recorder.RecordStop()
	e.logger.Debug("stop", "node", e.label(node), "tick", e.tick)
	if actions, ok := world.Get[Actions](e.world, node); ok {
		for _, a := range slices.Clone(*actions) {
			if h, ok := a.(StopHandler); ok {
				h.OnStop(e.context(node))
			}
		}
	}
	return true
}
