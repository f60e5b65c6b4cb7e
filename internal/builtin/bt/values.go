package bt

import (
	"reflect"

	"github.com/joeycumines/reactree/internal/flow"
)

// SetValue writes Value under Key on the agent's blackboard and succeeds.
type SetValue struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

func (*SetValue) Kind() string { return "set_value" }

func (s *SetValue) OnRun(ctx *flow.Context) {
	bb, ok := Of(ctx)
	if !ok {
		ctx.Result(flow.Failure)
		return
	}
	bb.Set(s.Key, s.Value)
	ctx.Result(flow.Success)
}

// Check compares a blackboard entry with Value. Run concludes with Success
// on a match; as a score it offers ScorePass or ScoreFail. A nil Value
// matches an absent key. Negate inverts the comparison.
type Check struct {
	Key    string `yaml:"key"`
	Value  any    `yaml:"value"`
	Negate bool   `yaml:"negate,omitempty"`
}

func (*Check) Kind() string { return "check" }

func (c *Check) OnRun(ctx *flow.Context) {
	bb, ok := Of(ctx)
	if !ok {
		ctx.Result(flow.Failure)
		return
	}
	if c.Matches(bb) {
		ctx.Result(flow.Success)
	} else {
		ctx.Result(flow.Failure)
	}
}

func (c *Check) Score(ctx *flow.ScoreContext) flow.Score {
	bb, ok := Of(&ctx.Context)
	if !ok || !c.Matches(bb) {
		return flow.ScoreFail
	}
	return flow.ScorePass
}

// Matches evaluates the check against bb.
func (c *Check) Matches(bb *Blackboard) bool {
	return Equal(bb.Get(c.Key), c.Value) != c.Negate
}

// Equal compares blackboard values, treating numbers of different Go types
// (as produced by YAML, JavaScript and Go code) as equal when their values
// are.
func Equal(a, b any) bool {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
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
