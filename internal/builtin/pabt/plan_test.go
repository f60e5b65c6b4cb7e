package pabt

import (
	"io"
	"log/slog"
	"testing"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	pabtpkg "github.com/joeycumines/go-pabt"
	btmod "github.com/joeycumines/reactree/internal/builtin/bt"
	"github.com/joeycumines/reactree/internal/flow"
	"github.com/joeycumines/reactree/internal/world"
	"github.com/stretchr/testify/require"
)

func spawnPlan(t *testing.T, plan *Plan) (*flow.Engine, *btmod.Blackboard, world.Entity) {
	t.Helper()
	e := flow.New(world.New(), flow.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	agent := e.World().Spawn()
	bb := btmod.Attach(e.World(), agent)
	node := e.Spawn(agent, plan)
	world.Insert(e.World(), node, flow.TargetRoot{})
	return e, bb, node
}

// runToCompletion ticks until node stops, returning its outcome.
func runToCompletion(t *testing.T, e *flow.Engine, node world.Entity) flow.Outcome {
	t.Helper()
	e.TriggerRun(node)
	for i := 0; i < 50 && e.IsRunning(node); i++ {
		e.Tick(100 * time.Millisecond)
	}
	require.False(t, e.IsRunning(node), "plan did not finish")
	outcome, ok := e.Result(node)
	require.True(t, ok)
	return outcome
}

func doorPlan() *Plan {
	return &Plan{
		Goal: []Requirement{{Key: "door", Value: "open"}},
		Steps: []Step{
			{
				Name:    "fetch_key",
				Effects: []Assignment{{Key: "has_key", Value: true}},
				Ticks:   2,
			},
			{
				Name:       "unlock",
				Conditions: []Requirement{{Key: "has_key", Value: true}},
				Effects:    []Assignment{{Key: "locked", Value: false}},
			},
			{
				Name:       "open",
				Conditions: []Requirement{{Key: "locked", Value: false}},
				Effects:    []Assignment{{Key: "door", Value: "open"}},
			},
		},
	}
}

func TestPlan_ReachesGoal(t *testing.T) {
	t.Parallel()

	e, bb, node := spawnPlan(t, doorPlan())
	bb.Set("locked", true)
	bb.Set("door", "closed")

	require.Equal(t, flow.Success, runToCompletion(t, e, node))
	require.Equal(t, "open", bb.Get("door"))
	require.Equal(t, true, bb.Get("has_key"))
	require.Equal(t, false, bb.Get("locked"))
}

func TestPlan_UnconditionedStep(t *testing.T) {
	t.Parallel()

	e, bb, node := spawnPlan(t, &Plan{
		Goal:  []Requirement{{Key: "has_key", Value: true}},
		Steps: []Step{{Name: "fetch_key", Effects: []Assignment{{Key: "has_key", Value: true}}}},
	})

	require.Equal(t, flow.Success, runToCompletion(t, e, node))
	require.Equal(t, true, bb.Get("has_key"))
}

func TestStep_ActionConditions(t *testing.T) {
	t.Parallel()

	bb := new(btmod.Blackboard)
	require.Empty(t, Step{Name: "fetch_key"}.Action(bb).Conditions())
	require.Len(t, Step{
		Name:       "unlock",
		Conditions: []Requirement{{Key: "has_key", Value: true}},
	}.Action(bb).Conditions(), 1)
}

func TestPlan_GoalAlreadyHolds(t *testing.T) {
	t.Parallel()

	e, bb, node := spawnPlan(t, doorPlan())
	bb.Set("door", "open")

	e.TriggerRun(node)
	outcome, ok := e.Result(node)
	require.True(t, ok, "concludes on the first tick of the plan")
	require.Equal(t, flow.Success, outcome)
	require.False(t, bb.Has("has_key"))
}

func TestPlan_UnreachableGoalFails(t *testing.T) {
	t.Parallel()

	e, _, node := spawnPlan(t, &Plan{
		Goal:  []Requirement{{Key: "flying", Value: true}},
		Steps: []Step{{Name: "walk", Effects: []Assignment{{Key: "walking", Value: true}}}},
	})
	require.Equal(t, flow.Failure, runToCompletion(t, e, node))
}

func TestPlan_ExprGoalAndGoAction(t *testing.T) {
	t.Parallel()

	var bb *btmod.Blackboard
	dig := NewAction("dig",
		nil,
		pabtpkg.Effects{NewSimpleEffect("depth", 10)},
		bt.New(func([]bt.Node) (bt.Status, error) {
			depth, _ := bb.Get("depth").(int)
			bb.Set("depth", depth+5)
			return bt.Success, nil
		}),
	)
	plan := &Plan{
		Goal:    []Requirement{{Key: "depth", Expr: "value >= 10"}},
		Actions: []*Action{dig},
	}
	e, board, node := spawnPlan(t, plan)
	bb = board
	bb.Set("depth", 0)

	require.Equal(t, flow.Success, runToCompletion(t, e, node))
	require.GreaterOrEqual(t, bb.Get("depth").(int), 10)
}

func TestPlan_WithoutBlackboardFails(t *testing.T) {
	t.Parallel()

	e := flow.New(world.New(), flow.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	agent := e.World().Spawn()
	node := e.Spawn(agent, doorPlan())
	world.Insert(e.World(), node, flow.TargetRoot{})

	e.TriggerRun(node)
	outcome, ok := e.Result(node)
	require.True(t, ok)
	require.Equal(t, flow.Failure, outcome)
}

func TestPlan_Validate(t *testing.T) {
	t.Parallel()

	goal := []Requirement{{Key: "k", Value: 1}}
	for _, tt := range []struct {
		name    string
		plan    Plan
		wantErr string
	}{
		{"valid", *doorPlan(), ""},
		{"no goal", Plan{}, "plan has no goal"},
		{"unnamed step", Plan{Goal: goal, Steps: []Step{{}}}, "step 0 has no name"},
		{"duplicate step", Plan{Goal: goal, Steps: []Step{{Name: "a"}, {Name: "a"}}}, `duplicate step "a"`},
		{"negative ticks", Plan{Goal: goal, Steps: []Step{{Name: "a", Ticks: -1}}}, `step "a": negative ticks`},
	} {
		err := tt.plan.Validate()
		if tt.wantErr == "" {
			require.NoError(t, err, tt.name)
		} else {
			require.EqualError(t, err, tt.wantErr, tt.name)
		}
	}
}

func TestStep_ActionWritesEffectsAfterTicks(t *testing.T) {
	t.Parallel()

	bb := new(btmod.Blackboard)
	action := Step{Name: "wait", Effects: []Assignment{{Key: "done", Value: true}}, Ticks: 1}.Action(bb)
	require.Equal(t, "wait", action.Name)
	require.Len(t, action.Effects(), 1)

	status, err := action.Node().Tick()
	require.NoError(t, err)
	require.Equal(t, bt.Running, status)
	require.False(t, bb.Has("done"))

	status, err = action.Node().Tick()
	require.NoError(t, err)
	require.Equal(t, bt.Success, status)
	require.Equal(t, true, bb.Get("done"))

	status, _ = action.Node().Tick()
	require.Equal(t, bt.Running, status, "the countdown restarts")
}
