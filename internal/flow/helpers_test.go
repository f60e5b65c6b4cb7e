package flow

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/joeycumines/reactree/internal/world"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(world.New(), opts...)
}

// journal collects spy events in order.
type journal struct {
	events []string
}

func (j *journal) add(s string) { j.events = append(j.events, s) }

func (j *journal) count(s string) int {
	n := 0
	for _, e := range j.events {
		if e == s {
			n++
		}
	}
	return n
}

// spy logs its runs and stops, and concludes with outcome when it is
// valid. A zero outcome keeps the node Running.
type spy struct {
	name    string
	j       *journal
	outcome Outcome
}

func (*spy) Kind() string { return "spy" }

func (p *spy) OnRun(ctx *Context) {
	p.j.add("run " + p.name)
	if p.outcome.Valid() {
		ctx.Result(p.outcome)
	}
}

func (p *spy) OnStop(*Context) { p.j.add("stop " + p.name) }

// dynScore scores whatever v currently holds.
type dynScore struct {
	v *Score
}

func (*dynScore) Kind() string { return "dyn_score" }

func (d *dynScore) Score(*ScoreContext) Score { return *d.v }

// hook runs fn on run.
type hook struct {
	fn func(ctx *Context)
}

func (*hook) Kind() string { return "hook" }

func (h *hook) OnRun(ctx *Context) { h.fn(ctx) }

// recorded counts Recorder calls.
type recorded struct {
	runs     map[string]int
	results  map[Outcome]int
	stops    int
	switches int
	ticks    int
}

func newRecorded() *recorded {
	return &recorded{runs: map[string]int{}, results: map[Outcome]int{}}
}

func (r *recorded) RecordRun(kind string) { r.runs[kind]++ }
func (r *recorded) RecordResult(o Outcome) { r.results[o]++ }
func (r *recorded) RecordStop() { r.stops++ }
func (r *recorded) RecordSwitch() { r.switches++ }
func (r *recorded) RecordTick(time.Duration) { r.ticks++ }
