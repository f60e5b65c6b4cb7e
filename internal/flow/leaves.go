package flow

import (
	"time"

	"github.com/joeycumines/reactree/internal/world"
)

// Return concludes with a fixed outcome as soon as it runs.
type Return struct {
	Outcome Outcome `yaml:"outcome"`
}

func (*Return) Kind() string { return "return" }

func (r *Return) OnRun(ctx *Context) { ctx.Result(r.Outcome) }

// SucceedAfter succeeds once the node has been Running for Duration.
type SucceedAfter struct {
	Duration time.Duration `yaml:"duration"`
}

func (*SucceedAfter) Kind() string { return "succeed_after" }

func (s *SucceedAfter) OnRun(ctx *Context) {
	if s.Duration <= 0 {
		ctx.Result(Success)
	}
}

func (s *SucceedAfter) OnTick(ctx *Context) {
	if ctx.Timer().SinceStart >= s.Duration {
		ctx.Result(Success)
	}
}

// Idle stays Running until something interrupts it.
type Idle struct{}

func (*Idle) Kind() string { return "idle" }

// ConstantScore offers the same score every time it is asked.
type ConstantScore struct {
	Value Score `yaml:"value"`
}

func (*ConstantScore) Kind() string { return "constant_score" }

func (c *ConstantScore) Score(*ScoreContext) Score { return c.Value }

// Cooldown scores ScoreFail until Duration has passed since the node last
// stopped, and ScorePass otherwise. A Running node always passes, so a
// cooldown never pre-empts the run it guards.
type Cooldown struct {
	Duration time.Duration `yaml:"duration"`
}

func (*Cooldown) Kind() string { return "cooldown" }

func (c *Cooldown) Score(ctx *ScoreContext) Score {
	if ctx.IsRunning(ctx.Node()) {
		return ScorePass
	}
	if t := ctx.Timer(); t.Stopped && t.SinceStop < c.Duration {
		return ScoreFail
	}
	return ScorePass
}

// Invert runs its first child and concludes with the opposite outcome.
// Without a child it fails.
type Invert struct{}

func (*Invert) Kind() string { return "invert" }

func (*Invert) OnRun(ctx *Context) {
	children := stopChildren(ctx)
	if len(children) == 0 {
		ctx.Result(Failure)
		return
	}
	ctx.Run(children[0])
}

func (*Invert) OnChildResult(ctx *Context, child world.Entity, outcome Outcome) {
	if !ctx.IsRunning(child) {
		return
	}
	ctx.Interrupt(child)
	ctx.Result(outcome.Invert())
}

// Repeat runs its first child again, on the tick after each success, until
// the child fails or has succeeded Times times. Times of zero repeats
// forever. Without a child it fails.
type Repeat struct {
	Times int `yaml:"times,omitempty"`

	done    int
	pending bool
}

func (*Repeat) Kind() string { return "repeat" }

func (r *Repeat) OnRun(ctx *Context) {
	r.done, r.pending = 0, false
	children := stopChildren(ctx)
	if len(children) == 0 {
		ctx.Result(Failure)
		return
	}
	ctx.Run(children[0])
}

func (r *Repeat) OnChildResult(ctx *Context, child world.Entity, outcome Outcome) {
	if !ctx.IsRunning(child) {
		return
	}
	ctx.Interrupt(child)
	if outcome == Failure {
		ctx.Result(Failure)
		return
	}
	r.done++
	if r.Times > 0 && r.done >= r.Times {
		ctx.Result(Success)
		return
	}
	r.pending = true
}

func (r *Repeat) OnTick(ctx *Context) {
	if !r.pending {
		return
	}
	r.pending = false
	children := ctx.Children()
	if len(children) == 0 {
		ctx.Result(Failure)
		return
	}
	ctx.Run(children[0])
}

func (r *Repeat) OnStop(*Context) { r.pending = false }
