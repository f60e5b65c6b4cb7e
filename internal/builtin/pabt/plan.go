package pabt

import (
	"errors"
	"fmt"

	bt "github.com/joeycumines/go-behaviortree"
	pabtpkg "github.com/joeycumines/go-pabt"
	btmod "github.com/joeycumines/reactree/internal/builtin/bt"
	"github.com/joeycumines/reactree/internal/flow"
)

// Plan is a polled action that drives the agent's blackboard toward Goal.
// Each run builds a fresh go-pabt plan from Steps, Actions and Generator,
// and ticks it once per engine tick until the goal holds (Success) or the
// planner gives up (Failure).
type Plan struct {
	Goal  []Requirement `yaml:"goal"`
	Steps []Step        `yaml:"steps,omitempty"`

	// Actions are registered alongside Steps, for behaviour that a Step's
	// blackboard writes cannot express.
	Actions []*Action `yaml:"-"`
	// Generator offers parametric actions for a failed condition.
	Generator ActionGeneratorFunc `yaml:"-"`

	leaf btmod.Leaf
}

// Requirement is a condition on one blackboard key: equality with Value,
// or Expr evaluated with the current value bound to value.
type Requirement struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value,omitempty"`
	Expr  string `yaml:"expr,omitempty"`
}

// Condition converts r for the planner.
func (r Requirement) Condition() pabtpkg.Condition {
	if r.Expr != "" {
		return NewExprCondition(r.Key, r.Expr)
	}
	return EqualityCond(r.Key, r.Value)
}

// Assignment is a blackboard write.
type Assignment struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

// Step is a declarative planner action. When executed it stays running for
// Ticks ticks, then writes Effects to the blackboard and succeeds. It is
// applicable when every one of Conditions holds.
type Step struct {
	Name       string        `yaml:"name"`
	Conditions []Requirement `yaml:"conditions,omitempty"`
	Effects    []Assignment  `yaml:"effects"`
	Ticks      int           `yaml:"ticks,omitempty"`
}

// Action builds the planner action performing s on bb.
func (s Step) Action(bb *btmod.Blackboard) *Action {
	group := make(pabtpkg.IConditions, 0, len(s.Conditions))
	for _, r := range s.Conditions {
		group = append(group, r.Condition())
	}
	effects := make(pabtpkg.Effects, 0, len(s.Effects))
	for _, a := range s.Effects {
		effects = append(effects, NewSimpleEffect(a.Key, a.Value))
	}
	remaining := s.Ticks
	node := bt.New(func([]bt.Node) (bt.Status, error) {
		if remaining > 0 {
			remaining--
			return bt.Running, nil
		}
		for _, a := range s.Effects {
			bb.Set(a.Key, a.Value)
		}
		remaining = s.Ticks
		return bt.Success, nil
	})
	// an empty precondition group is rejected by the planner
	var conditions []pabtpkg.IConditions
	if len(group) != 0 {
		conditions = []pabtpkg.IConditions{group}
	}
	return NewAction(s.Name, conditions, effects, node)
}

func (*Plan) Kind() string { return "plan" }

// Validate reports a plan that cannot be built.
func (p *Plan) Validate() error {
	if len(p.Goal) == 0 {
		return errors.New("plan has no goal")
	}
	seen := make(map[string]bool, len(p.Steps))
	for i, s := range p.Steps {
		if s.Name == "" {
			return fmt.Errorf("step %d has no name", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate step %q", s.Name)
		}
		seen[s.Name] = true
		if s.Ticks < 0 {
			return fmt.Errorf("step %q: negative ticks", s.Name)
		}
	}
	return nil
}

// Build returns the planner state and the plan's root node for bb.
func (p *Plan) Build(bb *btmod.Blackboard) (*State, bt.Node, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	state := NewState(bb)
	state.SetActionGenerator(p.Generator)
	for _, s := range p.Steps {
		state.RegisterAction(s.Name, s.Action(bb))
	}
	for _, a := range p.Actions {
		state.RegisterAction(a.Name, a)
	}
	goal := make(pabtpkg.IConditions, 0, len(p.Goal))
	for _, r := range p.Goal {
		goal = append(goal, r.Condition())
	}
	plan, err := pabtpkg.INew(state, []pabtpkg.IConditions{goal})
	if err != nil {
		return nil, nil, fmt.Errorf("create plan: %w", err)
	}
	return state, plan.Node(), nil
}

func (p *Plan) OnRun(ctx *flow.Context) {
	p.leaf.Name = "plan"
	p.leaf.Build = func(ctx *flow.Context) (bt.Node, error) {
		bb, ok := btmod.Of(ctx)
		if !ok {
			return nil, errors.New("agent has no blackboard")
		}
		_, node, err := p.Build(bb)
		return node, err
	}
	p.leaf.OnRun(ctx)
}

func (p *Plan) OnTick(ctx *flow.Context) { p.leaf.OnTick(ctx) }

func (p *Plan) OnStop(ctx *flow.Context) { p.leaf.OnStop(ctx) }
