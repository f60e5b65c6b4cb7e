package pabt

import (
	"fmt"
	"sort"
	"sync"

	bt "github.com/joeycumines/go-behaviortree"
	pabtpkg "github.com/joeycumines/go-pabt"
)

// ActionRegistry is a named set of planner actions.
type ActionRegistry struct {
	mu      sync.RWMutex
	actions map[string]pabtpkg.IAction
}

func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]pabtpkg.IAction)}
}

// Register adds action under name, replacing any previous one.
func (r *ActionRegistry) Register(name string, action pabtpkg.IAction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = action
}

// Get returns the action under name, or nil.
func (r *ActionRegistry) Get(name string) pabtpkg.IAction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[name]
}

// All returns every action ordered by name, so that planning is
// reproducible.
func (r *ActionRegistry) All() []pabtpkg.IAction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	result := make([]pabtpkg.IAction, 0, len(names))
	for _, name := range names {
		result = append(result, r.actions[name])
	}
	return result
}

// Action is a planner action: precondition groups (AND within a group, OR
// across groups), the effects it achieves, and the node that performs it.
type Action struct {
	Name string

	conditions []pabtpkg.IConditions
	effects    pabtpkg.Effects
	node       bt.Node
}

var _ pabtpkg.IAction = (*Action)(nil)

// NewAction builds an Action. It panics if node is nil.
func NewAction(name string, conditions []pabtpkg.IConditions, effects pabtpkg.Effects, node bt.Node) *Action {
	if node == nil {
		panic(fmt.Sprintf("pabt.NewAction: node parameter cannot be nil (action=%s)", name))
	}
	return &Action{
		Name:       name,
		conditions: conditions,
		effects:    effects,
		node:       node,
	}
}

func (a *Action) Conditions() []pabtpkg.IConditions { return a.conditions }

func (a *Action) Effects() pabtpkg.Effects { return a.effects }

func (a *Action) Node() bt.Node { return a.node }
