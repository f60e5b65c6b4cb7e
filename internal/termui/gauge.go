package termui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Gauge renders a score as a horizontal bar, filled in proportion to where
// the value falls between Min and Max.
type Gauge struct {
	// Width is the bar length in cells. A zero Width renders nothing.
	Width int
	// Min and Max bound the scale. Values outside are clamped.
	Min, Max float64

	FillStyle  lipgloss.Style
	TrackStyle lipgloss.Style

	FillChar  string
	TrackChar string
}

// GaugeOption configures NewGauge.
type GaugeOption func(*Gauge)

// NewGauge returns a gauge over [0, 1], ten cells wide.
func NewGauge(opts ...GaugeOption) Gauge {
	g := Gauge{
		Width:      10,
		Max:        1,
		FillChar:   "█",
		TrackChar:  "░",
		FillStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		TrackStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

// WithWidth sets the bar length.
func WithWidth(w int) GaugeOption {
	return func(g *Gauge) { g.Width = w }
}

// WithRange sets the scale.
func WithRange(lo, hi float64) GaugeOption {
	return func(g *Gauge) { g.Min, g.Max = lo, hi }
}

// WithChars sets the fill and track characters.
func WithChars(fill, track string) GaugeOption {
	return func(g *Gauge) { g.FillChar, g.TrackChar = fill, track }
}

// WithStyles sets the fill and track styles.
func WithStyles(fill, track lipgloss.Style) GaugeOption {
	return func(g *Gauge) { g.FillStyle, g.TrackStyle = fill, track }
}

// Filled returns how many cells v fills.
func (g Gauge) Filled(v float64) int {
	if g.Width <= 0 || math.IsNaN(v) {
		return 0
	}
	span := g.Max - g.Min
	if span <= 0 {
		if v >= g.Max {
			return g.Width
		}
		return 0
	}
	frac := clamp(1, 0, (v-g.Min)/span)
	return int(math.Round(frac * float64(g.Width)))
}

// View renders v. The result is always Width cells long.
func (g Gauge) View(v float64) string {
	if g.Width <= 0 {
		return ""
	}
	filled := g.Filled(v)
	var s strings.Builder
	if filled > 0 {
		s.WriteString(g.FillStyle.Render(strings.Repeat(g.FillChar, filled)))
	}
	if filled < g.Width {
		s.WriteString(g.TrackStyle.Render(strings.Repeat(g.TrackChar, g.Width-filled)))
	}
	return s.String()
}

// clamp restricts x to [low, high].
func clamp(high, low, x float64) float64 {
	switch {
	case high < x:
		return high
	case x < low:
		return low
	default:
		return x
	}
}
