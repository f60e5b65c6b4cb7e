package flow

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/joeycumines/reactree/internal/world"
)

// Context is what an action sees while handling an event: its own node,
// its resolved agent, the deferred command buffer, and control operations
// limited to the node itself and its direct children.
type Context struct {
	engine *Engine
	node   world.Entity
}

// Node returns the node the handler is attached to.
func (c *Context) Node() world.Entity { return c.node }

// Agent returns the node's resolved target agent. It panics when the node
// has neither TargetAgent nor TargetRoot: actions that need an agent must
// only be attached to targeted nodes.
func (c *Context) Agent() world.Entity {
	agent, ok := c.engine.ResolveTarget(c.node)
	if !ok {
		panic(fmt.Sprintf("flow: node %s has no target agent", c.node))
	}
	return agent
}

// TryAgent is Agent for actions that can do without one.
func (c *Context) TryAgent() (world.Entity, bool) {
	return c.engine.ResolveTarget(c.node)
}

// Commands returns the deferred mutation buffer. Queued commands apply once
// the current trigger settles.
func (c *Context) Commands() *world.Commands { return c.engine.world.Commands() }

// Logger returns the engine logger annotated with the node.
func (c *Context) Logger() *slog.Logger {
	return c.engine.logger.With("node", c.engine.label(c.node))
}

// Now returns the engine clock.
func (c *Context) Now() time.Duration { return c.engine.now }

// Tick returns the engine tick count.
func (c *Context) Tick() uint64 { return c.engine.tick }

// Timer reads the node's run timer.
func (c *Context) Timer() TimerReading {
	return c.engine.timer(c.node).Read(c.engine.now)
}

// Result concludes the node with outcome.
func (c *Context) Result(outcome Outcome) {
	c.engine.result(c.node, outcome)
}

// Completer returns a callback that concludes this run of the node from
// any goroutine. The outcome is applied on the next tick, and is dropped if
// the node has since stopped or been restarted.
func (c *Context) Completer() func(Outcome) {
	e, node, ep := c.engine, c.node, c.engine.epochOf(c.node)
	return func(outcome Outcome) {
		e.inbox.push(completion{node: node, outcome: outcome, epoch: ep, guarded: true})
	}
}

// Children returns the node's children in declaration order.
func (c *Context) Children() []world.Entity { return c.engine.world.Children(c.node) }

// NextChild returns the sibling declared after child.
func (c *Context) NextChild(child world.Entity) (world.Entity, bool) {
	children := c.Children()
	i := slices.Index(children, child)
	if i < 0 || i+1 >= len(children) {
		return world.Nil, false
	}
	return children[i+1], true
}

// ActiveChild returns the first Running child.
func (c *Context) ActiveChild() (world.Entity, bool) {
	for _, child := range c.Children() {
		if c.engine.IsRunning(child) {
			return child, true
		}
	}
	return world.Nil, false
}

// IsRunning reports whether the node or one of its children is Running.
func (c *Context) IsRunning(e world.Entity) bool {
	c.mustBeSelfOrChild(e, "is-running")
	return c.engine.IsRunning(e)
}

// Run starts a child.
func (c *Context) Run(child world.Entity) {
	c.mustBeChild(child, "run")
	c.engine.run(child)
}

// Interrupt clears Running from a child and its subtree.
func (c *Context) Interrupt(child world.Entity) {
	c.mustBeChild(child, "interrupt")
	c.engine.interrupt(child)
}

// RequestScores asks every child for its score.
func (c *Context) RequestScores() []ScoreResponse {
	return c.engine.requestScores(c.node)
}

func (c *Context) mustBeChild(e world.Entity, op string) {
	if p, ok := c.engine.world.Parent(e); !ok || p != c.node {
		panic(fmt.Sprintf("flow: %s %s: not a child of %s", op, e, c.node))
	}
}

func (c *Context) mustBeSelfOrChild(e world.Entity, op string) {
	if e == c.node {
		return
	}
	c.mustBeChild(e, op)
}

// NodeData returns an attachment of the handler's own node.
func NodeData[T any](c *Context) (*T, bool) {
	return world.Get[T](c.engine.world, c.node)
}

// AgentData returns an attachment of the handler's target agent.
func AgentData[T any](c *Context) (*T, bool) {
	return world.Get[T](c.engine.world, c.Agent())
}
