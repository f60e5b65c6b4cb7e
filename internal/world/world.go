// Package world is the node store behaviour trees are layered on: a flat
// arena of generational entities, parent/child edges kept as index lists,
// typed attachments and a deferred command buffer that is flushed at
// explicit barriers.
//
// A World is not safe for concurrent use. Callers that need to mutate it
// from other goroutines must marshal the mutation onto the owning goroutine.
package world

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"slices"
)

var (
	// ErrDead is returned when an operation names an entity that is not alive.
	ErrDead = errors.New("entity is not alive")
	// ErrHasParent is returned when attaching a child that already has a parent.
	ErrHasParent = errors.New("entity already has a parent")
	// ErrCycle is returned when an edge would make an entity its own ancestor.
	ErrCycle = errors.New("edge would create a cycle")
)

type slot struct {
	gen      uint32
	alive    bool
	parent   Entity
	children []Entity
}

// table is the type-erased face of a component table, used for despawn
// cleanup only. Typed access goes through the generic functions in
// component.go.
type table interface {
	remove(e Entity) bool
	has(e Entity) bool
}

// World owns every entity, edge and attachment.
type World struct {
	slots  []slot
	free   []uint32
	alive  int
	tables map[reflect.Type]table
	cmds   Commands
}

// New returns an empty world.
func New() *World {
	return &World{
		tables: make(map[reflect.Type]table),
	}
}

// Spawn creates a new root entity.
func (w *World) Spawn() Entity {
	w.alive++
	if n := len(w.free); n > 0 {
		idx := w.free[n-1]
		w.free = w.free[:n-1]
		s := &w.slots[idx]
		s.alive = true
		return newEntity(idx, s.gen)
	}
	idx := uint32(len(w.slots))
	w.slots = append(w.slots, slot{gen: 1, alive: true})
	return newEntity(idx, 1)
}

// SpawnChild creates a new entity attached under parent.
func (w *World) SpawnChild(parent Entity) (Entity, error) {
	if !w.Alive(parent) {
		return Nil, fmt.Errorf("spawn child of %s: %w", parent, ErrDead)
	}
	e := w.Spawn()
	// cannot fail: e is fresh and parent is alive
	_ = w.AddChild(parent, e)
	return e, nil
}

// Alive reports whether e refers to a live entity.
func (w *World) Alive(e Entity) bool {
	s := w.slot(e)
	return s != nil
}

// Len returns the number of live entities.
func (w *World) Len() int { return w.alive }

func (w *World) slot(e Entity) *slot {
	if e.IsNil() {
		return nil
	}
	idx := e.Index()
	if int(idx) >= len(w.slots) {
		return nil
	}
	s := &w.slots[idx]
	if !s.alive || s.gen != e.Generation() {
		return nil
	}
	return s
}

// Despawn destroys e and every descendant reachable through its edges,
// detaching e from its parent and dropping all attachments. Despawning a
// dead entity is a no-op that reports false.
func (w *World) Despawn(e Entity) bool {
	s := w.slot(e)
	if s == nil {
		return false
	}
	if !s.parent.IsNil() {
		w.unlink(s.parent, e)
	}
	w.despawnTree(e)
	return true
}

func (w *World) despawnTree(e Entity) {
	s := w.slot(e)
	if s == nil {
		return
	}
	children := s.children
	s.children = nil
	for _, c := range children {
		w.despawnTree(c)
	}
	for _, t := range w.tables {
		t.remove(e)
	}
	s = &w.slots[e.Index()]
	s.alive = false
	s.parent = Nil
	s.gen++
	if s.gen == 0 {
		// skip the generation reserved for Nil on wraparound
		s.gen = 1
	}
	w.free = append(w.free, e.Index())
	w.alive--
}

// AddChild appends child to parent's ordered child list. The child must be a
// live root; the edge must not make any entity its own ancestor.
func (w *World) AddChild(parent, child Entity) error {
	ps, cs := w.slot(parent), w.slot(child)
	if ps == nil {
		return fmt.Errorf("add child to %s: %w", parent, ErrDead)
	}
	if cs == nil {
		return fmt.Errorf("add child %s: %w", child, ErrDead)
	}
	if !cs.parent.IsNil() {
		return fmt.Errorf("add child %s to %s: %w", child, parent, ErrHasParent)
	}
	for a := parent; !a.IsNil(); a = w.slots[a.Index()].parent {
		if a == child {
			return fmt.Errorf("add child %s to %s: %w", child, parent, ErrCycle)
		}
	}
	cs.parent = parent
	ps = w.slot(parent)
	ps.children = append(ps.children, child)
	return nil
}

// Detach removes child from its parent, making it a root. It reports whether
// an edge was removed.
func (w *World) Detach(child Entity) bool {
	s := w.slot(child)
	if s == nil || s.parent.IsNil() {
		return false
	}
	w.unlink(s.parent, child)
	return true
}

func (w *World) unlink(parent, child Entity) {
	if ps := w.slot(parent); ps != nil {
		if i := slices.Index(ps.children, child); i >= 0 {
			ps.children = slices.Delete(ps.children, i, i+1)
		}
	}
	if cs := w.slot(child); cs != nil {
		cs.parent = Nil
	}
}

// Parent returns the parent of e, if any.
func (w *World) Parent(e Entity) (Entity, bool) {
	s := w.slot(e)
	if s == nil || s.parent.IsNil() {
		return Nil, false
	}
	return s.parent, true
}

// Children returns a copy of e's ordered child list.
func (w *World) Children(e Entity) []Entity {
	s := w.slot(e)
	if s == nil {
		return nil
	}
	return slices.Clone(s.children)
}

// ChildIndex returns the position of child within its parent's child list,
// or -1 when child is not attached.
func (w *World) ChildIndex(child Entity) int {
	parent, ok := w.Parent(child)
	if !ok {
		return -1
	}
	return slices.Index(w.slot(parent).children, child)
}

// Root walks parent edges from e to the topmost ancestor. A root entity is
// its own root. Root of a dead entity is Nil.
func (w *World) Root(e Entity) Entity {
	if !w.Alive(e) {
		return Nil
	}
	for {
		p, ok := w.Parent(e)
		if !ok {
			return e
		}
		e = p
	}
}

// Descendants yields every descendant of e in depth-first pre-order,
// excluding e itself. The traversal snapshots each child list before
// descending, so callers may mutate attachments (not edges) while iterating.
func (w *World) Descendants(e Entity) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		w.walk(e, yield)
	}
}

func (w *World) walk(e Entity, yield func(Entity) bool) bool {
	for _, c := range w.Children(e) {
		if !yield(c) || !w.walk(c, yield) {
			return false
		}
	}
	return true
}

// Entities yields every live entity in arena index order.
func (w *World) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for i := range w.slots {
			s := &w.slots[i]
			if !s.alive {
				continue
			}
			if !yield(newEntity(uint32(i), s.gen)) {
				return
			}
		}
	}
}

// Commands returns the world's deferred mutation buffer.
func (w *World) Commands() *Commands { return &w.cmds }

// Flush applies every queued command in submission order. Commands queued
// by commands being applied run in the same flush. Commands that fail are
// skipped; their errors are returned joined.
func (w *World) Flush() error {
	var errs []error
	for len(w.cmds.ops) > 0 {
		ops := w.cmds.ops
		w.cmds.ops = nil
		for _, op := range ops {
			if err := op(w); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
