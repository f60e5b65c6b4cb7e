// Package builtin wires every serializable action kind into a registry.
package builtin

import (
	btmod "github.com/joeycumines/reactree/internal/builtin/bt"
	"github.com/joeycumines/reactree/internal/builtin/exprscore"
	"github.com/joeycumines/reactree/internal/builtin/pabt"
	"github.com/joeycumines/reactree/internal/builtin/script"
	"github.com/joeycumines/reactree/internal/flow"
)

// Options carries the host resources some kinds need.
type Options struct {
	// Runtime executes "script" actions. Without one, the kind is still
	// registered and its actions conclude with Failure.
	Runtime *script.Runtime
}

// Register adds the builtin kinds: set_value, check, plan, script,
// expr_score and expr_check.
func Register(reg *flow.Registry, opts Options) {
	reg.Register("set_value", func() flow.Action { return new(btmod.SetValue) })
	reg.Register("check", func() flow.Action { return new(btmod.Check) })
	reg.Register("plan", func() flow.Action { return new(pabt.Plan) })
	reg.Register("script", func() flow.Action {
		s := new(script.Script)
		s.Bind(opts.Runtime)
		return s
	})
	reg.Register("expr_score", func() flow.Action { return new(exprscore.Score) })
	reg.Register("expr_check", func() flow.Action { return new(exprscore.Condition) })
}

// NewRegistry returns a registry holding the core and builtin kinds.
func NewRegistry(opts Options) *flow.Registry {
	reg := flow.NewRegistry()
	flow.RegisterCore(reg)
	Register(reg, opts)
	return reg
}
