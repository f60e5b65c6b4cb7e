package flow

import "github.com/joeycumines/reactree/internal/world"

// Action is domain data attached to a node. Kind names the action in tree
// definitions and metrics; the remaining behaviour is opted into by
// implementing the handler interfaces below.
//
// Actions that keep per-run state in their fields must not be shared
// between nodes.
type Action interface {
	Kind() string
}

// RunHandler reacts to the node being started.
type RunHandler interface {
	OnRun(ctx *Context)
}

// ResultHandler reacts to a Running child concluding. Implementing it
// claims ownership of child results: the default interrupt is not applied
// and the handler must clear the child itself (Context.Interrupt).
type ResultHandler interface {
	OnChildResult(ctx *Context, child world.Entity, outcome Outcome)
}

// TickHandler is polled once per engine tick while the node is Running.
type TickHandler interface {
	OnTick(ctx *Context)
}

// ScoreProvider answers score requests from a score-based parent. It must
// be free of side effects: the selector may ask any number of times per tick.
type ScoreProvider interface {
	Score(ctx *ScoreContext) Score
}

// StopHandler is told when Running is removed from the node, whether the
// node concluded or was pre-empted.
type StopHandler interface {
	OnStop(ctx *Context)
}

// Actions is the attachment that makes an entity a node. Handlers are
// invoked in slice order.
type Actions []Action
