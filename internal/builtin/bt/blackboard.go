package bt

import (
	"sort"
	"sync"

	"github.com/dop251/goja"
	"github.com/joeycumines/reactree/internal/flow"
	"github.com/joeycumines/reactree/internal/world"
)

// Blackboard is an agent's key-value memory. Actions reach it through the
// node's target agent; it is safe for concurrent use so that async work
// started by an action may read and write it.
//
// Usage: create with new(Blackboard), or Attach one to an agent. The map is
// lazily initialized on first write.
type Blackboard struct {
	mu   sync.RWMutex
	data map[string]any
}

func (b *Blackboard) init() {
	if b.data == nil {
		b.data = make(map[string]any)
	}
}

// Get returns the value under key, or nil.
func (b *Blackboard) Get(key string) any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data[key]
}

// Lookup is Get with a presence flag.
func (b *Blackboard) Lookup(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	return v, ok
}

// Set stores value under key.
func (b *Blackboard) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.init()
	b.data[key] = value
}

// Has reports whether key is present.
func (b *Blackboard) Has(key string) bool {
	_, ok := b.Lookup(key)
	return ok
}

// Delete removes key.
func (b *Blackboard) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
}

// Keys returns every key, sorted.
func (b *Blackboard) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.data) == 0 {
		return nil
	}
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes every entry.
func (b *Blackboard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make(map[string]any)
}

// Len returns the number of entries without allocating.
func (b *Blackboard) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Snapshot returns a shallow copy of the entries. Mutable values (slices,
// maps, pointers) are shared with the blackboard.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.data == nil {
		return nil
	}
	result := make(map[string]any, len(b.data))
	for k, v := range b.data {
		result[k] = v
	}
	return result
}

// ExposeToJS returns a JavaScript object bound to this blackboard:
//
//	blackboard.get("key")
//	blackboard.set("key", value)
//	blackboard.has("key")
//	blackboard.delete("key")
//	blackboard.keys()
//	blackboard.clear()
//	blackboard.len()
func (b *Blackboard) ExposeToJS(vm *goja.Runtime) goja.Value {
	obj := vm.NewObject()
	// Set cannot fail for plain identifiers.
	_ = obj.Set("get", b.Get)
	_ = obj.Set("set", b.Set)
	_ = obj.Set("has", b.Has)
	_ = obj.Set("delete", b.Delete)
	_ = obj.Set("keys", b.Keys)
	_ = obj.Set("clear", b.Clear)
	_ = obj.Set("len", b.Len)
	return obj
}

// Attach gives agent a Blackboard, returning the one it already has if any.
// It returns nil when agent is not alive.
func Attach(w *world.World, agent world.Entity) *Blackboard {
	if p, ok := world.Get[*Blackboard](w, agent); ok && *p != nil {
		return *p
	}
	bb := new(Blackboard)
	if !world.Insert(w, agent, bb) {
		return nil
	}
	return bb
}

// Lookup returns the Blackboard attached to agent.
func Lookup(w *world.World, agent world.Entity) (*Blackboard, bool) {
	p, ok := world.Get[*Blackboard](w, agent)
	if !ok || *p == nil {
		return nil, false
	}
	return *p, true
}

// Of returns the Blackboard of the handler's target agent. A missing
// agent or blackboard is logged; callers conclude with Failure.
func Of(ctx *flow.Context) (*Blackboard, bool) {
	agent, ok := ctx.TryAgent()
	if !ok {
		ctx.Logger().Warn("node has no target agent")
		return nil, false
	}
	p, ok := flow.AgentData[*Blackboard](ctx)
	if !ok || *p == nil {
		ctx.Logger().Warn("agent has no blackboard", "agent", agent)
		return nil, false
	}
	return *p, true
}
