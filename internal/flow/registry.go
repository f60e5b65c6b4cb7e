package flow

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownKind is returned by Registry.New for an unregistered kind.
var ErrUnknownKind = errors.New("unknown action kind")

// Factory returns a new, zero-configured action. The result is typically a
// pointer so that definition parameters can be decoded into it.
type Factory func() Action

// Registry maps action kinds to factories. It is built once at startup and
// handed to whatever constructs trees; there is no package-level registry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under kind, replacing any existing one.
func (r *Registry) Register(kind string, f Factory) {
	if kind == "" || f == nil {
		panic("flow: register: empty kind or nil factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// New constructs an action of the given kind.
func (r *Registry) New(kind string) (Action, error) {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return f(), nil
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// RegisterCore adds the selectors and leaves defined in this package.
func RegisterCore(r *Registry) {
	r.Register("sequence", func() Action { return &Sequence{} })
	r.Register("fallback", func() Action { return &Fallback{} })
	r.Register("score", func() Action { return &ScoreSelector{} })
	r.Register("return", func() Action { return &Return{} })
	r.Register("succeed_after", func() Action { return &SucceedAfter{} })
	r.Register("idle", func() Action { return &Idle{} })
	r.Register("constant_score", func() Action { return &ConstantScore{} })
	r.Register("cooldown", func() Action { return &Cooldown{} })
	r.Register("invert", func() Action { return &Invert{} })
	r.Register("repeat", func() Action { return &Repeat{} })
}
