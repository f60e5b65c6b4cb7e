package flow

import (
	"github.com/joeycumines/reactree/internal/world"
)

// Sequence runs its children in declaration order until one fails.
// Zero children succeed immediately.
type Sequence struct{}

func (Sequence) Kind() string { return "sequence" }

func (Sequence) OnRun(ctx *Context) {
	children := stopChildren(ctx)
	if len(children) == 0 {
		ctx.Result(Success)
		return
	}
	ctx.Run(children[0])
}

func (Sequence) OnChildResult(ctx *Context, child world.Entity, outcome Outcome) {
	advance(ctx, child, outcome, Failure)
}

// Fallback runs its children in declaration order until one succeeds.
// Zero children fail immediately.
type Fallback struct{}

func (Fallback) Kind() string { return "fallback" }

func (Fallback) OnRun(ctx *Context) {
	children := stopChildren(ctx)
	if len(children) == 0 {
		ctx.Result(Failure)
		return
	}
	ctx.Run(children[0])
}

func (Fallback) OnChildResult(ctx *Context, child world.Entity, outcome Outcome) {
	advance(ctx, child, outcome, Success)
}

// stopChildren interrupts children left Running by a previous run of a
// restarted selector, and returns the children.
func stopChildren(ctx *Context) []world.Entity {
	children := ctx.Children()
	for _, child := range children {
		if ctx.IsRunning(child) {
			ctx.Interrupt(child)
		}
	}
	return children
}

// advance is the shared ordered-selector step: stop is the outcome that
// ends the selector early, its inverse moves on to the next sibling.
func advance(ctx *Context, child world.Entity, outcome, stop Outcome) {
	if !ctx.IsRunning(child) {
		return
	}
	ctx.Interrupt(child)
	if outcome == stop {
		ctx.Result(stop)
		return
	}
	next, ok := ctx.NextChild(child)
	if !ok {
		ctx.Result(stop.Invert())
		return
	}
	ctx.Run(next)
}

// ScoreSelector runs the child offering the highest score.
//
// With Consume set the choice holds until the chosen child concludes.
// Otherwise scores are requested again every tick, and a child scoring
// strictly higher than the active one replaces it. Either way the
// selector concludes with the outcome of the child that concludes.
type ScoreSelector struct {
	Consume bool `yaml:"consume,omitempty"`
}

func (*ScoreSelector) Kind() string { return "score" }

func (s *ScoreSelector) OnRun(ctx *Context) {
	stopChildren(ctx)
	best, ok := Best(ctx.RequestScores())
	if !ok {
		ctx.Logger().Debug("no child offered a score")
		ctx.Result(Failure)
		return
	}
	ctx.Run(best.Responder)
}

func (s *ScoreSelector) OnTick(ctx *Context) {
	active, running := ctx.ActiveChild()
	if running && s.Consume {
		return
	}
	responses := ctx.RequestScores()
	best, ok := Best(responses)
	if !ok {
		if !running {
			ctx.Result(Failure)
		}
		return
	}
	if !running {
		ctx.Run(best.Responder)
		return
	}
	if best.Responder == active {
		return
	}
	if current, ok := ValueOf(responses, active); ok && best.Value <= current {
		return
	}
	ctx.Logger().Debug("switch", "from", active, "to", best.Responder, "score", float64(best.Value))
	ctx.engine.recorder.RecordSwitch()
	ctx.Interrupt(active)
	ctx.Run(best.Responder)
}

func (s *ScoreSelector) OnChildResult(ctx *Context, child world.Entity, outcome Outcome) {
	if !ctx.IsRunning(child) {
		return
	}
	ctx.Interrupt(child)
	ctx.Result(outcome)
}
