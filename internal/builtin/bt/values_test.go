package bt

import (
	"testing"

	"github.com/joeycumines/reactree/internal/flow"
	"github.com/joeycumines/reactree/internal/world"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		a, b any
		want bool
	}{
		{"int and int64", 3, int64(3), true},
		{"int and float", 3, 3.0, true},
		{"uint8 and float32", uint8(2), float32(2), true},
		{"different numbers", 3, 4, false},
		{"strings", "a", "a", true},
		{"number and string", 1, "1", false},
		{"nil and nil", nil, nil, true},
		{"nil and zero", nil, 0, false},
		{"slices", []any{1, "x"}, []any{1, "x"}, true},
	} {
		require.Equal(t, tt.want, Equal(tt.a, tt.b), tt.name)
	}
}

func TestSetValueAndCheck(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	agent := e.World().Spawn()
	bb := Attach(e.World(), agent)

	root := targeted(e, agent, flow.Sequence{})
	targeted(e, root, &SetValue{Key: "door", Value: "open"})
	targeted(e, root, &Check{Key: "door", Value: "open"})
	targeted(e, root, &Check{Key: "door", Value: "closed", Negate: true})
	targeted(e, root, &Check{Key: "missing", Value: nil})
	e.AttachTree(root)

	e.TriggerRun(root)
	outcome, ok := e.Result(root)
	require.True(t, ok)
	require.Equal(t, flow.Success, outcome)
	require.Equal(t, "open", bb.Get("door"))
}

func TestCheck_FailsWithoutBlackboard(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	agent := e.World().Spawn()
	node := targeted(e, agent, &Check{Key: "k"})

	e.TriggerRun(node)
	outcome, ok := e.Result(node)
	require.True(t, ok)
	require.Equal(t, flow.Failure, outcome)
}

func TestCheck_Score(t *testing.T) {
	t.Parallel()

	for _, hungry := range []bool{true, false} {
		e := newTestEngine(t)
		agent := e.World().Spawn()
		Attach(e.World(), agent).Set("hungry", hungry)

		root := targeted(e, agent, &flow.ScoreSelector{})
		eat := targeted(e, root, &Check{Key: "hungry", Value: true})
		sleep := targeted(e, root, &flow.ConstantScore{Value: flow.ScoreNeutral}, &flow.Idle{})
		e.AttachTree(root)

		e.TriggerRun(root)
		if hungry {
			outcome, ok := e.Result(eat)
			require.True(t, ok)
			require.Equal(t, flow.Success, outcome)
			require.False(t, e.IsRunning(root))
		} else {
			require.True(t, e.IsRunning(sleep))
			_, ok := e.Result(eat)
			require.False(t, ok)
		}
	}
}

// targeted spawns a node whose target resolves to the root of its tree.
func targeted(e *flow.Engine, parent world.Entity, actions ...flow.Action) world.Entity {
	n := e.Spawn(parent, actions...)
	world.Insert(e.World(), n, flow.TargetRoot{})
	return n
}
