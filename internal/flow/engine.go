package flow

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/joeycumines/reactree/internal/world"
)

// Engine drives the behaviour trees stored in a world. It is single
// threaded: apart from Post, every method must be called from the goroutine
// that owns the world.
type Engine struct {
	world    *world.World
	registry *Registry
	logger   *slog.Logger
	recorder Recorder

	now   time.Duration
	tick  uint64
	depth int

	inbox inbox
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets the metrics sink. Defaults to a no-op.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithRegistry sets the action registry used when building trees from
// definitions. Defaults to a registry holding the core kinds.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// New returns an engine operating on w.
func New(w *world.World, opts ...Option) *Engine {
	e := &Engine{
		world:    w,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
		RegisterCore(e.registry)
	}
	return e
}

// World returns the store the engine operates on.
func (e *Engine) World() *world.World { return e.world }

// Registry returns the action registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Now returns the engine clock: the sum of every dt passed to Tick.
func (e *Engine) Now() time.Duration { return e.now }

// TickCount returns the number of completed calls to Tick.
func (e *Engine) TickCount() uint64 { return e.tick }

// Spawn creates a node carrying actions under parent, or a root node when
// parent is world.Nil. It panics if parent is not alive.
func (e *Engine) Spawn(parent world.Entity, actions ...Action) world.Entity {
	var node world.Entity
	if parent.IsNil() {
		node = e.world.Spawn()
	} else {
		var err error
		node, err = e.world.SpawnChild(parent)
		if err != nil {
			panic(fmt.Sprintf("flow: spawn: %v", err))
		}
	}
	world.Insert(e.world, node, Actions(actions))
	world.Insert(e.world, node, RunTimer{LastStarted: e.now, LastStopped: e.now})
	return node
}

// IsRunning reports whether node currently carries Running.
func (e *Engine) IsRunning(node world.Entity) bool {
	return world.Has[Running](e.world, node)
}

// Result returns the outcome node produced on the current tick, if any.
func (e *Engine) Result(node world.Entity) (Outcome, bool) {
	r, ok := world.Get[RunResult](e.world, node)
	if !ok {
		return 0, false
	}
	return r.Outcome, true
}

// TriggerRun starts node. It panics if node is not alive or carries no
// Actions.
func (e *Engine) TriggerRun(node world.Entity) {
	e.begin()
	defer e.end()
	e.run(node)
}

// TriggerResult concludes node with outcome. It panics if node is not
// alive, carries no Actions, or outcome is not Success or Failure.
func (e *Engine) TriggerResult(node world.Entity, outcome Outcome) {
	e.begin()
	defer e.end()
	e.result(node, outcome)
}

// Interrupt clears Running from node and cascades to its Running
// descendants, skipping NoInterrupt subtrees. Dead nodes are ignored.
func (e *Engine) Interrupt(node world.Entity) {
	if !e.world.Alive(node) {
		return
	}
	e.begin()
	defer e.end()
	e.interrupt(node)
}

// Tick advances the clock by dt and runs one scheduling step.
func (e *Engine) Tick(dt time.Duration) {
	started := time.Now()
	e.tick++
	e.now += dt

	e.expireResults()
	e.drainInbox()
	e.pollRunning()

	e.recorder.RecordTick(time.Since(started))
}

func (e *Engine) expireResults() {
	var expired []world.Entity
	for node, r := range world.Query[RunResult](e.world) {
		if r.Tick < e.tick {
			expired = append(expired, node)
		}
	}
	for _, node := range expired {
		world.Remove[RunResult](e.world, node)
	}
}

func (e *Engine) drainInbox() {
	for _, c := range e.inbox.drain() {
		if !c.outcome.Valid() {
			e.logger.Warn("dropping completion with invalid outcome", "node", c.node, "outcome", c.outcome)
			continue
		}
		if !e.world.Alive(c.node) || !world.Has[Actions](e.world, c.node) {
			e.logger.Warn("dropping completion for missing node", "node", c.node, "outcome", c.outcome)
			continue
		}
		if !e.IsRunning(c.node) || (c.guarded && e.epochOf(c.node) != c.epoch) {
			e.logger.Debug("dropping stale completion", "node", e.label(c.node), "outcome", c.outcome)
			continue
		}
		e.TriggerResult(c.node, c.outcome)
	}
}

func (e *Engine) pollRunning() {
	var nodes []world.Entity
	for node := range world.Query[Running](e.world) {
		nodes = append(nodes, node)
	}
	for _, node := range nodes {
		if !e.IsRunning(node) {
			continue
		}
		actions, ok := world.Get[Actions](e.world, node)
		if !ok {
			continue
		}
		list := slices.Clone(*actions)
		ep := e.epochOf(node)
		e.begin()
		for _, a := range list {
			h, ok := a.(TickHandler)
			if !ok {
				continue
			}
			h.OnTick(e.context(node))
			if !e.IsRunning(node) || e.epochOf(node) != ep {
				break
			}
		}
		e.end()
	}
}

func (e *Engine) begin() { e.depth++ }

func (e *Engine) end() {
	e.depth--
	if e.depth > 0 {
		return
	}
	if err := e.world.Flush(); err != nil {
		e.logger.Warn("deferred commands failed", "error", err)
	}
}

func (e *Engine) mustActions(node world.Entity, op string) Actions {
	if !e.world.Alive(node) {
		panic(fmt.Sprintf("flow: %s %s: node is not alive", op, node))
	}
	actions, ok := world.Get[Actions](e.world, node)
	if !ok {
		panic(fmt.Sprintf("flow: %s %s: node has no Actions", op, node))
	}
	return slices.Clone(*actions)
}

func (e *Engine) run(node world.Entity) {
	actions := e.mustActions(node, "run")
	e.start(node)
	ep := e.bumpEpoch(node)
	e.logger.Debug("run", "node", e.label(node), "tick", e.tick)
	for _, a := range actions {
		e.recorder.RecordRun(a.Kind())
		h, ok := a.(RunHandler)
		if !ok {
			continue
		}
		h.OnRun(e.context(node))
		// the node may have concluded synchronously
		if !e.IsRunning(node) || e.epochOf(node) != ep {
			return
		}
	}
}

func (e *Engine) result(node world.Entity, outcome Outcome) {
	e.mustActions(node, "result")
	if !outcome.Valid() {
		panic(fmt.Sprintf("flow: result %s: invalid outcome %d", node, uint8(outcome)))
	}
	world.Insert(e.world, node, RunResult{Outcome: outcome, Tick: e.tick})
	e.recorder.RecordResult(outcome)
	e.logger.Debug("result", "node", e.label(node), "outcome", outcome, "tick", e.tick)

	handled := false
	if parent, ok := e.world.Parent(node); ok && e.IsRunning(parent) {
		if actions, ok := world.Get[Actions](e.world, parent); ok {
			for _, a := range slices.Clone(*actions) {
				h, ok := a.(ResultHandler)
				if !ok {
					continue
				}
				handled = true
				h.OnChildResult(e.context(parent), node, outcome)
			}
		}
	}
	if !handled && !world.Has[NoInterrupt](e.world, node) {
		e.interrupt(node)
	}
}

func (e *Engine) epochOf(node world.Entity) uint64 {
	if p, ok := world.Get[epoch](e.world, node); ok {
		return uint64(*p)
	}
	return 0
}

func (e *Engine) bumpEpoch(node world.Entity) uint64 {
	next := e.epochOf(node) + 1
	world.Insert(e.world, node, epoch(next))
	return next
}

func (e *Engine) context(node world.Entity) *Context {
	return &Context{engine: e, node: node}
}

func (e *Engine) label(node world.Entity) string {
	if n, ok := world.Get[world.Name](e.world, node); ok && *n != "" {
		return fmt.Sprintf("%s(%s)", *n, node)
	}
	return node.String()
}

// Post queues a result for node to be applied during the next Tick. It is
// safe to call from any goroutine. The result is dropped if node is no
// longer Running by then.
func (e *Engine) Post(node world.Entity, outcome Outcome) {
	e.inbox.push(completion{node: node, outcome: outcome})
}

type completion struct {
	node    world.Entity
	outcome Outcome
	epoch   uint64
	guarded bool
}

type inbox struct {
	mu    sync.Mutex
	items []completion
}

func (b *inbox) push(c completion) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, c)
}

func (b *inbox) drain() []completion {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.items
	b.items = nil
	return items
}
