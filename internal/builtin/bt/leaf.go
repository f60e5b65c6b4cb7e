package bt

import (
	"fmt"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/joeycumines/reactree/internal/flow"
)

// Leaf runs a go-behaviortree node as a polled action. The node is built
// fresh for every run, ticked once when the run starts and once per engine
// tick afterwards, until it returns Success or Failure.
//
// A tick error, an unknown status, or a failure to build the node all
// conclude the run with Failure.
type Leaf struct {
	Name  string
	Build func(ctx *flow.Context) (bt.Node, error)

	node bt.Node
}

// NewLeaf wraps a fixed node. The node keeps any state it holds across
// runs; use Build directly for per-run construction.
func NewLeaf(name string, node bt.Node) *Leaf {
	if node == nil {
		panic(fmt.Sprintf("bt.NewLeaf: node cannot be nil (leaf=%s)", name))
	}
	return &Leaf{
		Name:  name,
		Build: func(*flow.Context) (bt.Node, error) { return node, nil },
	}
}

func (*Leaf) Kind() string { return "bt" }

func (l *Leaf) OnRun(ctx *flow.Context) {
	l.node = nil
	if l.Build == nil {
		ctx.Logger().Warn("bt leaf has no node", "leaf", l.Name)
		ctx.Result(flow.Failure)
		return
	}
	node, err := l.Build(ctx)
	if err != nil || node == nil {
		ctx.Logger().Warn("bt leaf build failed", "leaf", l.Name, "error", err)
		ctx.Result(flow.Failure)
		return
	}
	l.node = node
	l.step(ctx)
}

func (l *Leaf) OnTick(ctx *flow.Context) {
	if l.node != nil {
		l.step(ctx)
	}
}

func (l *Leaf) OnStop(*flow.Context) { l.node = nil }

func (l *Leaf) step(ctx *flow.Context) {
	status, err := l.node.Tick()
	if err != nil {
		ctx.Logger().Warn("bt leaf tick error", "leaf", l.Name, "error", err)
		ctx.Result(flow.Failure)
		return
	}
	outcome, done, ok := MapStatus(status)
	if !ok {
		ctx.Logger().Warn("bt leaf returned unknown status", "leaf", l.Name, "status", status)
		ctx.Result(flow.Failure)
		return
	}
	if done {
		ctx.Result(outcome)
	}
}

// MapStatus converts a go-behaviortree status. done is false for Running;
// ok is false for anything unrecognised.
func MapStatus(status bt.Status) (outcome flow.Outcome, done, ok bool) {
	switch status {
	case bt.Success:
		return flow.Success, true, true
	case bt.Failure:
		return flow.Failure, true, true
	case bt.Running:
		return 0, false, true
	default:
		return 0, false, false
	}
}
