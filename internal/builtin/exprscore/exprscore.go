// Package exprscore provides actions whose score or outcome is an
// expr-lang expression over the agent's blackboard.
//
// Blackboard entries are top-level variables. The node's run timer is
// available as timer.sinceStart and timer.sinceStop (seconds) and
// timer.stopped, and the engine tick count as tick. Undefined variables
// evaluate to nil, and a blackboard entry hides any builtin of the same name.
//
//	hunger * 0.8 + (timer.sinceStop > 30 ? 0.2 : 0)
package exprscore

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/builtin"
	"github.com/expr-lang/expr/vm"
	btmod "github.com/joeycumines/reactree/internal/builtin/bt"
	"github.com/joeycumines/reactree/internal/flow"
)

var (
	scoreCache     = NewProgramCache(DefaultCacheSize)
	conditionCache = NewProgramCache(DefaultCacheSize)
)

// Score offers the value of Expression to a score-based parent. A numeric
// or boolean result is accepted (true is ScorePass); errors, NaN and other
// result types score ScoreFail and are logged.
type Score struct {
	Expression string `yaml:"expression"`
}

func (*Score) Kind() string { return "expr_score" }

func (s *Score) Score(ctx *flow.ScoreContext) flow.Score {
	v, err := s.Evaluate(Env(&ctx.Context))
	if err != nil {
		ctx.Logger().Warn("expr score failed", "expression", s.Expression, "error", err)
		return flow.ScoreFail
	}
	return v
}

// Evaluate runs Expression against env.
func (s *Score) Evaluate(env map[string]any) (flow.Score, error) {
	program, err := compile(scoreCache, s.Expression, env, expr.AllowUndefinedVariables())
	if err != nil {
		return flow.ScoreFail, err
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return flow.ScoreFail, err
	}
	f, ok := number(out)
	if !ok {
		return flow.ScoreFail, fmt.Errorf("expression returned %T, want a number", out)
	}
	if math.IsNaN(f) {
		return flow.ScoreFail, fmt.Errorf("expression returned NaN")
	}
	return flow.Score(f), nil
}

// Condition is a boolean expression. Run concludes with Success when it holds
// and Failure otherwise; as a score it offers ScorePass or ScoreFail.
type Condition struct {
	Expression string `yaml:"expression"`
}

func (*Condition) Kind() string { return "expr_check" }

func (c *Condition) OnRun(ctx *flow.Context) {
	if c.holds(ctx) {
		ctx.Result(flow.Success)
	} else {
		ctx.Result(flow.Failure)
	}
}

func (c *Condition) Score(ctx *flow.ScoreContext) flow.Score {
	if c.holds(&ctx.Context) {
		return flow.ScorePass
	}
	return flow.ScoreFail
}

func (c *Condition) holds(ctx *flow.Context) bool {
	ok, err := c.Evaluate(Env(ctx))
	if err != nil {
		ctx.Logger().Warn("expr check failed", "expression", c.Expression, "error", err)
		return false
	}
	return ok
}

// Evaluate runs Expression against env.
func (c *Condition) Evaluate(env map[string]any) (bool, error) {
	program, err := compile(conditionCache, c.Expression, env, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return false, err
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, want bool", out)
	}
	return b, nil
}

// compile disables every builtin named by a key of env, so blackboard
// entries such as count or keys resolve to the agent's values. The disabled
// set is part of the cache key.
func compile(cache *ProgramCache, expression string, env map[string]any, opts ...expr.Option) (*vm.Program, error) {
	shadowed := shadowedBuiltins(env)
	opts = append([]expr.Option{expr.Env(map[string]any{})}, opts...)
	key := expression
	if len(shadowed) != 0 {
		for _, name := range shadowed {
			opts = append(opts, expr.DisableBuiltin(name))
		}
		key += "\x00" + strings.Join(shadowed, ",")
	}
	return cache.CompileKey(key, expression, opts...)
}

func shadowedBuiltins(env map[string]any) []string {
	var names []string
	for k := range env {
		if _, ok := builtin.Index[k]; ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Env builds the evaluation environment for the handler's node.
func Env(ctx *flow.Context) map[string]any {
	var env map[string]any
	if _, ok := ctx.TryAgent(); ok {
		if p, ok := flow.AgentData[*btmod.Blackboard](ctx); ok && *p != nil {
			env = (*p).Snapshot()
		}
	}
	if env == nil {
		env = make(map[string]any, 2)
	}
	timer := ctx.Timer()
	env["timer"] = map[string]any{
		"sinceStart": timer.SinceStart.Seconds(),
		"sinceStop":  timer.SinceStop.Seconds(),
		"stopped":    timer.Stopped,
	}
	env["tick"] = ctx.Tick()
	return env
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return float64(flow.ScorePass), true
		}
		return float64(flow.ScoreFail), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// SetCacheSize resizes the compiled program caches shared by every Score
// and Condition.
func SetCacheSize(n int) {
	scoreCache.Resize(n)
	conditionCache.Resize(n)
}

// CacheStats sums hits and misses over both caches.
func CacheStats() (size int, hits, misses int64) {
	for _, c := range []*ProgramCache{scoreCache, conditionCache} {
		s, h, m := c.Stats()
		size, hits, misses = size+s, hits+h, misses+m
	}
	return size, hits, misses
}
