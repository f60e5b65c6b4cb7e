package world

import "fmt"

// Commands buffers structural mutations so they can be requested while the
// tree is being traversed and applied atomically at the next World.Flush.
// Operations are applied in submission order.
type Commands struct {
	ops []func(*World) error
}

// Len returns the number of queued operations.
func (c *Commands) Len() int { return len(c.ops) }

// Do queues an arbitrary mutation.
func (c *Commands) Do(fn func(w *World) error) {
	c.ops = append(c.ops, fn)
}

// Spawn queues creation of an entity under parent (Nil for a root). The
// build callback runs during the flush, immediately after creation, and may
// attach data or queue further commands.
func (c *Commands) Spawn(parent Entity, build func(w *World, e Entity)) {
	c.Do(func(w *World) error {
		var e Entity
		if parent.IsNil() {
			e = w.Spawn()
		} else {
			var err error
			if e, err = w.SpawnChild(parent); err != nil {
				return err
			}
		}
		if build != nil {
			build(w, e)
		}
		return nil
	})
}

// Despawn queues recursive destruction of e.
func (c *Commands) Despawn(e Entity) {
	c.Do(func(w *World) error {
		if !w.Despawn(e) {
			return fmt.Errorf("despawn %s: %w", e, ErrDead)
		}
		return nil
	})
}

// AddChild queues an edge from parent to child.
func (c *Commands) AddChild(parent, child Entity) {
	c.Do(func(w *World) error {
		return w.AddChild(parent, child)
	})
}

// Detach queues removal of child's parent edge.
func (c *Commands) Detach(child Entity) {
	c.Do(func(w *World) error {
		w.Detach(child)
		return nil
	})
}

// InsertLater queues Insert[T].
func InsertLater[T any](c *Commands, e Entity, v T) {
	c.Do(func(w *World) error {
		if !Insert(w, e, v) {
			return fmt.Errorf("insert %T on %s: %w", v, e, ErrDead)
		}
		return nil
	})
}

// RemoveLater queues Remove[T].
func RemoveLater[T any](c *Commands, e Entity) {
	c.Do(func(w *World) error {
		Remove[T](w, e)
		return nil
	})
}
