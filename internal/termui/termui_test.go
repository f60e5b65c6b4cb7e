package termui

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joeycumines/reactree/internal/flow"
	"github.com/joeycumines/reactree/internal/world"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	return r
}

func plainGauge(width int) Gauge {
	r := plainRenderer()
	return NewGauge(
		WithWidth(width),
		WithChars("#", "."),
		WithStyles(r.NewStyle(), r.NewStyle()),
	)
}

func TestGauge_View(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		gauge Gauge
		value float64
		want  string
	}{
		{"empty", plainGauge(10), 0, ".........."},
		{"half", plainGauge(10), 0.5, "#####....."},
		{"full", plainGauge(10), 1, "##########"},
		{"clamped high", plainGauge(4), 7, "####"},
		{"clamped low", plainGauge(4), -3, "...."},
		{"rounds", plainGauge(3), 0.5, "##."},
		{"nan", plainGauge(4), nanValue(), "...."},
		{"zero width", plainGauge(0), 0.5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.gauge.View(tt.value))
		})
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestGauge_Range(t *testing.T) {
	t.Parallel()

	g := plainGauge(10)
	WithRange(-1, 1)(&g)
	assert.Equal(t, 5, g.Filled(0))
	assert.Equal(t, 10, g.Filled(1))

	WithRange(2, 2)(&g)
	assert.Equal(t, 10, g.Filled(2))
	assert.Equal(t, 0, g.Filled(1.9))
}

func TestGauge_Defaults(t *testing.T) {
	t.Parallel()

	g := NewGauge()
	assert.Equal(t, 10, g.Width)
	assert.Equal(t, 0.0, g.Min)
	assert.Equal(t, 1.0, g.Max)
	assert.Equal(t, "█", g.FillChar)
	assert.Equal(t, "░", g.TrackChar)
}

// fixed offers a constant score and never concludes on its own.
type fixed struct{ v flow.Score }

func (*fixed) Kind() string { return "fixed" }

func (f *fixed) Score(*flow.ScoreContext) flow.Score { return f.v }

func newEngine() *flow.Engine {
	return flow.New(world.New(), flow.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func spawnNamed(e *flow.Engine, parent world.Entity, name string, actions ...flow.Action) world.Entity {
	n := e.Spawn(parent, actions...)
	world.Insert(e.World(), n, world.Name(name))
	return n
}

func TestRenderTree(t *testing.T) {
	t.Parallel()

	e := newEngine()
	root := spawnNamed(e, world.Nil, "forager", &flow.ScoreSelector{})
	eat := spawnNamed(e, root, "eat", &fixed{v: 0.9})
	wander := spawnNamed(e, root, "wander", &fixed{v: 0.3})

	e.TriggerRun(root)
	e.Tick(1500 * time.Millisecond)
	require.True(t, e.IsRunning(eat))

	out := RenderTree(e, root, Options{
		Styles: NewStyles(plainRenderer()),
		Gauge:  plainGauge(4),
		Timers: true,
	})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3, out)

	assert.Contains(t, lines[0], "forager [score] ● running 1.5s")
	assert.Contains(t, lines[1], "eat [fixed] ● running 1.5s 0.90 ####")
	assert.Contains(t, lines[2], "wander [fixed] ○ idle 0.30 #...")
	assert.Contains(t, lines[1], "├")
	assert.Contains(t, lines[2], "└")
	assert.Equal(t, StateIdle, State(e, wander))
}

func TestRenderTree_NestedAndOutcomes(t *testing.T) {
	t.Parallel()

	e := newEngine()
	root := spawnNamed(e, world.Nil, "root", &flow.Sequence{})
	inner := spawnNamed(e, root, "inner", &flow.Fallback{})
	e.Spawn(inner, &flow.Return{Outcome: flow.Failure})
	last := spawnNamed(e, root, "last", &flow.Return{Outcome: flow.Failure})

	e.TriggerRun(root)
	require.False(t, e.IsRunning(root))

	out := RenderTree(e, root, Options{Styles: NewStyles(plainRenderer())})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4, out)
	assert.Contains(t, lines[0], "root [sequence] ✘ failure")
	assert.Contains(t, lines[1], "inner [fallback] ✘ failure")
	assert.Contains(t, lines[2], "[return] ✘ failure")
	assert.Contains(t, lines[3], "last [return] ○ idle")
	assert.Equal(t, StateIdle, State(e, last))

	e.Tick(time.Millisecond)
	assert.Equal(t, StateIdle, State(e, root), "results last one tick")
}

func TestRenderTree_SuccessAndUnnamed(t *testing.T) {
	t.Parallel()

	e := newEngine()
	node := e.Spawn(world.Nil, &flow.Return{Outcome: flow.Success})
	e.TriggerRun(node)

	out := RenderTree(e, node, Options{Styles: NewStyles(plainRenderer())})
	assert.Contains(t, out, node.String()+" [return] ✔ success")
}

func TestRenderTree_DeadRoot(t *testing.T) {
	t.Parallel()

	e := newEngine()
	node := e.Spawn(world.Nil)
	require.True(t, e.World().Despawn(node))
	assert.Empty(t, RenderTree(e, node, Options{}))
}

func TestRenderTree_Colour(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := lipgloss.NewRenderer(&buf)
	r.SetColorProfile(termenv.ANSI256)

	e := newEngine()
	node := spawnNamed(e, world.Nil, "idle", &flow.Idle{})
	e.TriggerRun(node)

	out := RenderTree(e, node, Options{Styles: NewStyles(r)})
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "running")
}
