package pabt

import (
	"fmt"
	"sync"

	pabtpkg "github.com/joeycumines/go-pabt"
	btmod "github.com/joeycumines/reactree/internal/builtin/bt"
)

var _ pabtpkg.IState = (*State)(nil)

// State is the planner's view of an agent: variables are read from the
// agent's blackboard, and actions come from a registry and an optional
// generator.
type State struct {
	bb      *btmod.Blackboard
	actions *ActionRegistry

	mu        sync.RWMutex
	generator ActionGeneratorFunc
}

// ActionGeneratorFunc produces candidate actions for a failed condition at
// planning time, for parametric actions whose arguments depend on the
// current state (MoveTo(x) for every reachable x).
type ActionGeneratorFunc func(failed pabtpkg.Condition) ([]pabtpkg.IAction, error)

// NewState returns a State reading bb.
func NewState(bb *btmod.Blackboard) *State {
	return &State{bb: bb, actions: NewActionRegistry()}
}

// Blackboard returns the backing blackboard.
func (s *State) Blackboard() *btmod.Blackboard { return s.bb }

// SetActionGenerator installs gen, or removes the generator when gen is nil.
func (s *State) SetActionGenerator(gen ActionGeneratorFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generator = gen
}

// ActionGenerator returns the installed generator, if any.
func (s *State) ActionGenerator() ActionGeneratorFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generator
}

// RegisterAction adds action under name, replacing any previous one.
func (s *State) RegisterAction(name string, action pabtpkg.IAction) {
	s.actions.Register(name, action)
}

// Variable returns the blackboard value for key, nil if absent. Numeric and
// fmt.Stringer keys are converted to their string form.
func (s *State) Variable(key any) (any, error) {
	var name string
	switch k := key.(type) {
	case nil:
		return nil, fmt.Errorf("variable key cannot be nil")
	case string:
		name = k
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		name = fmt.Sprintf("%d", k)
	case fmt.Stringer:
		name = k.String()
	default:
		return nil, fmt.Errorf("unsupported key type: %T", key)
	}
	return s.bb.Get(name), nil
}

// Actions returns the actions with an effect that satisfies failed. When
// the generator yields any actions for failed it is authoritative and the
// registry is not consulted; a generator error falls back to the registry.
// A nil failed condition returns every registered action.
func (s *State) Actions(failed pabtpkg.Condition) ([]pabtpkg.IAction, error) {
	if failed == nil {
		return s.actions.All(), nil
	}

	var relevant []pabtpkg.IAction
	if gen := s.ActionGenerator(); gen != nil {
		generated, err := gen(failed)
		if err == nil && len(generated) > 0 {
			for _, action := range generated {
				if satisfies(action, failed) {
					relevant = append(relevant, action)
				}
			}
			return relevant, nil
		}
	}

	for _, action := range s.actions.All() {
		if satisfies(action, failed) {
			relevant = append(relevant, action)
		}
	}
	return relevant, nil
}

// satisfies reports whether one of action's effects writes failed's key
// with a value failed accepts.
func satisfies(action pabtpkg.IAction, failed pabtpkg.Condition) bool {
	for _, effect := range action.Effects() {
		if effect != nil && effect.Key() == failed.Key() && failed.Match(effect.Value()) {
			return true
		}
	}
	return false
}
