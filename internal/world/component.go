package world

import (
	"cmp"
	"iter"
	"reflect"
	"slices"
)

type componentTable[T any] struct {
	rows map[Entity]*T
}

func (t *componentTable[T]) remove(e Entity) bool {
	if _, ok := t.rows[e]; !ok {
		return false
	}
	delete(t.rows, e)
	return true
}

func (t *componentTable[T]) has(e Entity) bool {
	_, ok := t.rows[e]
	return ok
}

func lookup[T any](w *World) *componentTable[T] {
	t, ok := w.tables[reflect.TypeFor[T]()]
	if !ok {
		return nil
	}
	return t.(*componentTable[T])
}

func ensure[T any](w *World) *componentTable[T] {
	if t := lookup[T](w); t != nil {
		return t
	}
	t := &componentTable[T]{rows: make(map[Entity]*T)}
	w.tables[reflect.TypeFor[T]()] = t
	return t
}

// Insert attaches v to e, replacing any existing value of the same type.
// It reports false (and does nothing) when e is not alive.
func Insert[T any](w *World, e Entity, v T) bool {
	if !w.Alive(e) {
		return false
	}
	t := ensure[T](w)
	if p, ok := t.rows[e]; ok {
		*p = v
		return true
	}
	t.rows[e] = &v
	return true
}

// Get returns a pointer to e's attachment of type T. The pointer stays valid
// until the attachment is removed or replaced by Insert.
func Get[T any](w *World, e Entity) (*T, bool) {
	t := lookup[T](w)
	if t == nil {
		return nil, false
	}
	p, ok := t.rows[e]
	return p, ok
}

// Has reports whether e carries an attachment of type T.
func Has[T any](w *World, e Entity) bool {
	t := lookup[T](w)
	return t != nil && t.has(e)
}

// Remove detaches e's attachment of type T, reporting whether one existed.
func Remove[T any](w *World, e Entity) bool {
	t := lookup[T](w)
	return t != nil && t.remove(e)
}

// Query yields every entity carrying T, in arena index order, with a
// pointer to its attachment. The entity set is snapshotted before the first
// yield; entities losing T mid-iteration are skipped.
func Query[T any](w *World) iter.Seq2[Entity, *T] {
	return func(yield func(Entity, *T) bool) {
		t := lookup[T](w)
		if t == nil {
			return
		}
		keys := make([]Entity, 0, len(t.rows))
		for e := range t.rows {
			keys = append(keys, e)
		}
		slices.SortFunc(keys, func(a, b Entity) int {
			return cmp.Compare(a.Index(), b.Index())
		})
		for _, e := range keys {
			p, ok := t.rows[e]
			if !ok {
				continue
			}
			if !yield(e, p) {
				return
			}
		}
	}
}

// Count returns the number of entities carrying T.
func Count[T any](w *World) int {
	t := lookup[T](w)
	if t == nil {
		return 0
	}
	return len(t.rows)
}
