package world

import "fmt"

// Entity is a generational index into a World's arena. The low 32 bits are
// the slot index and the high 32 bits the slot generation, so a handle to a
// despawned entity never aliases whatever later reuses its slot.
//
// The zero value is Nil and never refers to a live entity.
type Entity uint64

// Nil is the entity that is never alive.
const Nil Entity = 0

func newEntity(index, gen uint32) Entity {
	return Entity(uint64(gen)<<32 | uint64(index))
}

// Index returns the arena slot of the entity.
func (e Entity) Index() uint32 { return uint32(e) }

// Generation returns the generation of the slot at the time the handle was issued.
func (e Entity) Generation() uint32 { return uint32(e >> 32) }

// IsNil reports whether e is the Nil entity.
func (e Entity) IsNil() bool { return e == Nil }

func (e Entity) String() string {
	if e.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%dv%d", e.Index(), e.Generation())
}

// Name is an optional human-readable label for an entity.
type Name string
