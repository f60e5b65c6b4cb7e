// Package termui renders live behaviour tree state for the terminal.
package termui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/joeycumines/reactree/internal/flow"
	"github.com/joeycumines/reactree/internal/world"
)

// Styles colours each part of a rendered node line.
type Styles struct {
	Name    lipgloss.Style
	Kind    lipgloss.Style
	Running lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Idle    lipgloss.Style
	Detail  lipgloss.Style
	Branch  lipgloss.Style
}

// NewStyles builds the default palette on r. Pass a renderer with an ASCII
// colour profile for plain output.
func NewStyles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Styles{
		Name:    r.NewStyle().Bold(true),
		Kind:    r.NewStyle().Foreground(lipgloss.Color("244")),
		Running: r.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		Success: r.NewStyle().Foreground(lipgloss.Color("42")),
		Failure: r.NewStyle().Foreground(lipgloss.Color("196")),
		Idle:    r.NewStyle().Foreground(lipgloss.Color("240")),
		Detail:  r.NewStyle().Foreground(lipgloss.Color("244")),
		Branch:  r.NewStyle().Foreground(lipgloss.Color("240")).PaddingRight(1),
	}
}

// Options controls RenderTree.
type Options struct {
	Styles Styles
	// Gauge draws the last score a node offered. A zero Gauge omits it.
	Gauge Gauge
	// Timers appends how long running nodes have been running.
	Timers bool
}

// Node states as rendered.
const (
	StateRunning = "running"
	StateIdle    = "idle"
)

// State describes node for display: running, the outcome it produced this
// tick, or idle.
func State(e *flow.Engine, node world.Entity) string {
	if e.IsRunning(node) {
		return StateRunning
	}
	if outcome, ok := e.Result(node); ok {
		return outcome.String()
	}
	return StateIdle
}

// RenderTree draws root and its descendants, one line per node.
func RenderTree(e *flow.Engine, root world.Entity, opts Options) string {
	w := e.World()
	if !w.Alive(root) {
		return ""
	}
	t := build(e, root, opts)
	t.EnumeratorStyle(opts.Styles.Branch)
	return t.String()
}

func build(e *flow.Engine, node world.Entity, opts Options) *tree.Tree {
	t := tree.Root(line(e, node, opts))
	for _, child := range e.World().Children(node) {
		if len(e.World().Children(child)) == 0 {
			t.Child(line(e, child, opts))
			continue
		}
		t.Child(build(e, child, opts))
	}
	return t
}

func line(e *flow.Engine, node world.Entity, opts Options) string {
	w := e.World()
	st := opts.Styles

	name := node.String()
	if n, ok := world.Get[world.Name](w, node); ok && *n != "" {
		name = string(*n)
	}

	var kinds []string
	if actions, ok := world.Get[flow.Actions](w, node); ok {
		for _, a := range *actions {
			kinds = append(kinds, a.Kind())
		}
	}

	parts := []string{st.Name.Render(name)}
	if len(kinds) > 0 {
		parts = append(parts, st.Kind.Render("["+strings.Join(kinds, ",")+"]"))
	}

	state := State(e, node)
	switch state {
	case StateRunning:
		parts = append(parts, st.Running.Render("● "+state))
	case flow.Success.String():
		parts = append(parts, st.Success.Render("✔ "+state))
	case flow.Failure.String():
		parts = append(parts, st.Failure.Render("✘ "+state))
	default:
		parts = append(parts, st.Idle.Render("○ "+state))
	}

	if opts.Timers && state == StateRunning {
		if reading, ok := e.Timer(node); ok {
			parts = append(parts, st.Detail.Render(reading.SinceStart.Round(time.Millisecond).String()))
		}
	}

	if score, ok := world.Get[flow.Score](w, node); ok {
		parts = append(parts, st.Detail.Render(fmt.Sprintf("%.2f", float64(*score))))
		if bar := opts.Gauge.View(float64(*score)); bar != "" {
			parts = append(parts, bar)
		}
	}

	return strings.Join(parts, " ")
}
