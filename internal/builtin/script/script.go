package script

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dop251/goja"
	btmod "github.com/joeycumines/reactree/internal/builtin/bt"
	"github.com/joeycumines/reactree/internal/flow"
)

// Script is an action written in JavaScript. Source declares any of:
//
//	function run(ctx)   { ... }  // on start
//	function tick(ctx)  { ... }  // every tick while Running
//	function score(ctx) { ... }  // utility for a score-based parent
//	function stop(ctx)  { ... }  // when Running is removed
//
// run and tick return status.success, status.failure, a boolean, or
// status.running (undefined also means running). Either may instead return
// a Promise; its settlement concludes the run on a later tick, and is
// dropped if the node has been interrupted in between. score returns a
// number; a script without score offers ScoreNeutral.
//
// ctx exposes blackboard (or null), node, agent, tick, and the run timer in
// milliseconds as now, sinceStart and sinceStop, plus log(message).
type Script struct {
	Name   string `yaml:"name,omitempty"`
	Source string `yaml:"source"`

	rt  *Runtime
	fns *functions
}

type functions struct {
	run, tick, score, stop goja.Callable
	await                  goja.Callable
}

// New returns a Script bound to rt.
func New(rt *Runtime, name, source string) *Script {
	return &Script{Name: name, Source: source, rt: rt}
}

func (*Script) Kind() string { return "script" }

// Bind attaches the runtime scripts execute on.
func (s *Script) Bind(rt *Runtime) { s.rt, s.fns = rt, nil }

func (s *Script) label() string {
	if s.Name != "" {
		return s.Name
	}
	return "script"
}

func (s *Script) OnRun(ctx *flow.Context) { s.step(ctx, "run") }

func (s *Script) OnTick(ctx *flow.Context) { s.step(ctx, "tick") }

func (s *Script) OnStop(ctx *flow.Context) {
	if s.rt == nil {
		return
	}
	jsCtx := s.snapshot(ctx)
	if err := s.rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		fns, err := s.load(vm)
		if err != nil || fns.stop == nil {
			return err
		}
		_, err = fns.stop(goja.Undefined(), jsCtx.value(vm))
		return err
	}); err != nil {
		ctx.Logger().Warn("script stop failed", "script", s.label(), "error", err)
	}
}

func (s *Script) Score(ctx *flow.ScoreContext) flow.Score {
	if s.rt == nil {
		return flow.ScoreFail
	}
	jsCtx := s.snapshot(&ctx.Context)
	value := flow.ScoreNeutral
	err := s.rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		fns, err := s.load(vm)
		if err != nil || fns.score == nil {
			return err
		}
		v, err := fns.score(goja.Undefined(), jsCtx.value(vm))
		if err != nil {
			return err
		}
		f := v.ToFloat()
		if math.IsNaN(f) {
			return fmt.Errorf("score returned %s", v.String())
		}
		value = flow.Score(f)
		return nil
	})
	if err != nil {
		ctx.Logger().Warn("script score failed", "script", s.label(), "error", err)
		return flow.ScoreFail
	}
	return value
}

func (s *Script) step(ctx *flow.Context, fn string) {
	if s.rt == nil {
		ctx.Logger().Warn("script has no runtime", "script", s.label())
		ctx.Result(flow.Failure)
		return
	}
	jsCtx := s.snapshot(ctx)
	complete := ctx.Completer()
	logger := ctx.Logger()

	var (
		status  string
		pending bool
	)
	err := s.rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		fns, err := s.load(vm)
		if err != nil {
			return err
		}
		call := fns.run
		if fn == "tick" {
			call = fns.tick
		}
		if call == nil {
			status = StatusRunning
			return nil
		}
		v, err := call(goja.Undefined(), jsCtx.value(vm))
		if err != nil {
			return err
		}
		settle := func(result goja.Value, reason goja.Value) {
			if reason != nil && !goja.IsUndefined(reason) && !goja.IsNull(reason) {
				logger.Warn("script promise rejected", "script", s.label(), "reason", reason.String())
				complete(flow.Failure)
				return
			}
			outcome, done := MapStatus(statusOf(result))
			if done {
				complete(outcome)
			}
		}
		thenable, err := fns.await(goja.Undefined(), v, vm.ToValue(settle))
		if err != nil {
			return err
		}
		if thenable.ToBoolean() {
			pending = true
			return nil
		}
		status = statusOf(v)
		return nil
	})
	if err != nil {
		var exc *goja.Exception
		if errors.As(err, &exc) {
			logger.Warn("script threw", "script", s.label(), "fn", fn, "error", exc.Value().String())
		} else {
			logger.Warn("script failed", "script", s.label(), "fn", fn, "error", err)
		}
		ctx.Result(flow.Failure)
		return
	}
	if pending {
		return
	}
	if outcome, done := MapStatus(status); done {
		ctx.Result(outcome)
	}
}

// load evaluates Source once per runtime. It runs on the loop goroutine.
func (s *Script) load(vm *goja.Runtime) (*functions, error) {
	if s.fns != nil {
		return s.fns, nil
	}
	prg, err := s.rt.compile(s.label(), s.wrapped())
	if err != nil {
		return nil, err
	}
	exports, err := vm.RunProgram(prg)
	if err != nil {
		return nil, err
	}
	awaitPrg, err := s.rt.compile("await", awaitHelper)
	if err != nil {
		return nil, err
	}
	awaitFn, err := vm.RunProgram(awaitPrg)
	if err != nil {
		return nil, err
	}
	fns := new(functions)
	fns.await, _ = goja.AssertFunction(awaitFn)
	obj := exports.ToObject(vm)
	fns.run, _ = goja.AssertFunction(obj.Get("run"))
	fns.tick, _ = goja.AssertFunction(obj.Get("tick"))
	fns.score, _ = goja.AssertFunction(obj.Get("score"))
	fns.stop, _ = goja.AssertFunction(obj.Get("stop"))
	if fns.await == nil {
		return nil, errors.New("await helper is not a function")
	}
	s.fns = fns
	return fns, nil
}

// wrapped evaluates Source in its own scope and returns its hooks.
func (s *Script) wrapped() string {
	return "(function(){\n" + s.Source + "\n;return {" +
		"run: typeof run === 'function' ? run : undefined," +
		"tick: typeof tick === 'function' ? tick : undefined," +
		"score: typeof score === 'function' ? score : undefined," +
		"stop: typeof stop === 'function' ? stop : undefined};\n})()"
}

// Validate reports a script that is empty or does not compile.
func (s *Script) Validate() error {
	if strings.TrimSpace(s.Source) == "" {
		return errors.New("script has no source")
	}
	if _, err := goja.Compile(s.label(), s.wrapped(), true); err != nil {
		return fmt.Errorf("compile %s: %w", s.label(), err)
	}
	return nil
}

// awaitHelper subscribes settle to a thenable result and reports whether it
// did.
const awaitHelper = `(function(result, settle) {
	if (result && typeof result.then === 'function') {
		result.then(
			function(v) { settle(v, undefined); },
			function(err) { settle(undefined, err instanceof Error ? err.message : String(err)); }
		);
		return true;
	}
	return false;
})`

func statusOf(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return StatusRunning
	}
	if b, ok := v.Export().(bool); ok {
		if b {
			return StatusSuccess
		}
		return StatusFailure
	}
	return v.String()
}

// Script status strings.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// MapStatus converts a script status string. Unknown strings fail.
func MapStatus(s string) (outcome flow.Outcome, done bool) {
	switch s {
	case StatusRunning:
		return 0, false
	case StatusSuccess:
		return flow.Success, true
	default:
		return flow.Failure, true
	}
}

// jsContext is the engine state handed to a script call. It is captured on
// the engine goroutine and turned into a JS object on the loop goroutine.
type jsContext struct {
	bb                         *btmod.Blackboard
	node, agent                string
	tick                       uint64
	now, sinceStart, sinceStop float64
	log                        func(string)
}

func (s *Script) snapshot(ctx *flow.Context) jsContext {
	c := jsContext{
		node:       ctx.Node().String(),
		tick:       ctx.Tick(),
		now:        float64(ctx.Now().Milliseconds()),
		sinceStart: float64(ctx.Timer().SinceStart.Milliseconds()),
		sinceStop:  float64(ctx.Timer().SinceStop.Milliseconds()),
	}
	logger := ctx.Logger().With("script", s.label())
	c.log = func(msg string) { logger.Info(msg) }
	if agent, ok := ctx.TryAgent(); ok {
		c.agent = agent.String()
		if p, ok := flow.AgentData[*btmod.Blackboard](ctx); ok {
			c.bb = *p
		}
	}
	return c
}

func (c jsContext) value(vm *goja.Runtime) goja.Value {
	obj := vm.NewObject()
	if c.bb != nil {
		_ = obj.Set("blackboard", c.bb.ExposeToJS(vm))
	} else {
		_ = obj.Set("blackboard", goja.Null())
	}
	_ = obj.Set("node", c.node)
	_ = obj.Set("agent", c.agent)
	_ = obj.Set("tick", c.tick)
	_ = obj.Set("now", c.now)
	_ = obj.Set("sinceStart", c.sinceStart)
	_ = obj.Set("sinceStop", c.sinceStop)
	_ = obj.Set("log", c.log)
	return obj
}
