package bt

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dop251/goja"
	"github.com/joeycumines/reactree/internal/flow"
	"github.com/joeycumines/reactree/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *flow.Engine {
	t.Helper()
	return flow.New(world.New(), flow.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestBlackboard_BasicOperations(t *testing.T) {
	t.Parallel()

	bb := new(Blackboard)

	bb.Set("key1", "value1")
	require.Equal(t, "value1", bb.Get("key1"))
	require.Nil(t, bb.Get("nonexistent"))

	require.True(t, bb.Has("key1"))
	require.False(t, bb.Has("nonexistent"))

	bb.Set("nil", nil)
	v, ok := bb.Lookup("nil")
	require.True(t, ok, "a nil value is still present")
	require.Nil(t, v)

	bb.Delete("key1")
	require.False(t, bb.Has("key1"))
	require.Nil(t, bb.Get("key1"))

	bb.Set("int", 42)
	bb.Set("slice", []int{1, 2, 3})
	bb.Set("map", map[string]int{"a": 1})
	require.Equal(t, 42, bb.Get("int"))
	require.Equal(t, []int{1, 2, 3}, bb.Get("slice"))
	require.Equal(t, map[string]int{"a": 1}, bb.Get("map"))
}

func TestBlackboard_KeysSortedAndLen(t *testing.T) {
	t.Parallel()

	bb := new(Blackboard)
	require.Nil(t, bb.Keys())
	require.Equal(t, 0, bb.Len())

	bb.Set("c", 3)
	bb.Set("a", 1)
	bb.Set("b", 2)
	require.Equal(t, []string{"a", "b", "c"}, bb.Keys())
	require.Equal(t, 3, bb.Len())

	bb.Delete("b")
	require.Equal(t, 2, bb.Len())

	bb.Clear()
	require.Equal(t, 0, bb.Len())
	require.False(t, bb.Has("a"))
}

func TestBlackboard_Snapshot(t *testing.T) {
	t.Parallel()

	require.Nil(t, new(Blackboard).Snapshot())

	bb := new(Blackboard)
	bb.Set("a", 1)
	bb.Set("b", "two")

	snapshot := bb.Snapshot()
	require.Equal(t, map[string]any{"a": 1, "b": "two"}, snapshot)

	snapshot["c"] = 3
	require.False(t, bb.Has("c"))
}

func TestBlackboard_ThreadSafety(t *testing.T) {
	t.Parallel()

	bb := new(Blackboard)
	const workers, iterations = 8, 200

	var wg sync.WaitGroup
	for g := 0; g < workers; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				key := fmt.Sprintf("key-%d-%d", id, i%10)
				switch i % 6 {
				case 0:
					bb.Set(key, i)
				case 1:
					bb.Get(key)
				case 2:
					bb.Delete(key)
				case 3:
					for _, k := range bb.Keys() {
						bb.Has(k)
					}
				case 4:
					_ = len(bb.Snapshot())
				case 5:
					if i%60 == 5 {
						bb.Clear()
					}
				}
			}
		}(g)
	}
	wg.Wait()

	bb.Set("final-check", "test")
	require.Equal(t, "test", bb.Get("final-check"))
}

func TestBlackboard_ExposeToJS(t *testing.T) {
	t.Parallel()

	bb := new(Blackboard)
	bb.Set("initial", "value")

	vm := goja.New()
	require.NoError(t, vm.Set("blackboard", bb.ExposeToJS(vm)))

	run := func(src string) goja.Value {
		t.Helper()
		v, err := vm.RunString(src)
		require.NoError(t, err)
		return v
	}

	require.Equal(t, "value", run(`blackboard.get("initial")`).Export())

	run(`blackboard.set("fromJS", 123)`)
	require.Equal(t, int64(123), bb.Get("fromJS"))

	require.True(t, run(`blackboard.has("initial")`).ToBoolean())
	require.False(t, run(`blackboard.has("nonexistent")`).ToBoolean())

	run(`blackboard.delete("initial")`)
	require.False(t, bb.Has("initial"))

	bb.Set("key1", 1)
	require.Equal(t, "fromJS,key1", run(`blackboard.keys().join(",")`).String())
	require.EqualValues(t, 2, run(`blackboard.len()`).Export())

	run(`blackboard.clear()`)
	require.Equal(t, 0, bb.Len())
}

func TestAttachAndLookup(t *testing.T) {
	t.Parallel()

	w := world.New()
	agent := w.Spawn()

	_, ok := Lookup(w, agent)
	require.False(t, ok)

	bb := Attach(w, agent)
	require.NotNil(t, bb)
	require.Same(t, bb, Attach(w, agent), "attach is idempotent")

	got, ok := Lookup(w, agent)
	require.True(t, ok)
	require.Same(t, bb, got)

	require.True(t, w.Despawn(agent))
	require.Nil(t, Attach(w, agent))
}

type boardReader struct {
	bb *Blackboard
	ok bool
}

func (*boardReader) Kind() string { return "board_reader" }

func (p *boardReader) OnRun(ctx *flow.Context) {
	p.bb, p.ok = Of(ctx)
	ctx.Result(flow.Success)
}

func TestOf(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	w := e.World()

	withBoard := w.Spawn()
	bb := Attach(w, withBoard)
	without := w.Spawn()

	for _, tt := range []struct {
		name   string
		parent world.Entity
		target bool
		want   *Blackboard
	}{
		{"agent with blackboard", withBoard, true, bb},
		{"agent without blackboard", without, true, nil},
		{"untargeted node", world.Nil, false, nil},
	} {
		reader := new(boardReader)
		node := e.Spawn(tt.parent, reader)
		if tt.target {
			world.Insert(w, node, flow.TargetRoot{})
		}
		e.TriggerRun(node)
		assert.Equal(t, tt.want != nil, reader.ok, tt.name)
		assert.True(t, tt.want == reader.bb, tt.name)
	}
}
