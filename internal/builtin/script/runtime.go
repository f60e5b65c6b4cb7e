package script

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
)

// Runtime owns the goja VM and the event loop that serializes every access
// to it. goja.Runtime is not goroutine-safe: all VM work goes through
// RunOnLoop or RunOnLoopSync.
//
//	rt, err := NewRuntime(ctx)
//	if err != nil { ... }
//	defer rt.Close()
type Runtime struct {
	loop     *eventloop.EventLoop
	registry *require.Registry

	mu       sync.RWMutex
	timeout  time.Duration
	started  bool
	stopped  bool
	programs map[string]*goja.Program

	ctx    context.Context
	cancel context.CancelFunc
}

// DefaultSyncTimeout bounds RunOnLoopSync.
const DefaultSyncTimeout = 5 * time.Second

// NewRuntime starts an event loop with console and require support, including
// the reactree:text and reactree:os modules. The
// runtime closes when ctx is cancelled, or on Close.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	registry := require.NewRegistry()
	registerModules(registry)
	loop := eventloop.NewEventLoop(
		eventloop.WithRegistry(registry),
		eventloop.EnableConsole(true),
	)

	// independent of ctx so Done and IsRunning change together in Close
	lifecycle, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		loop:     loop,
		registry: registry,
		timeout:  DefaultSyncTimeout,
		programs: make(map[string]*goja.Program),
		ctx:      lifecycle,
		cancel:   cancel,
	}

	loop.Start()
	rt.mu.Lock()
	rt.started = true
	rt.mu.Unlock()

	if err := rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		_, err := vm.RunString(prelude)
		return err
	}); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("failed to initialize script runtime: %w", err)
	}

	if ctx != nil && ctx.Done() != nil {
		context.AfterFunc(ctx, func() { _ = rt.Close() })
	}
	return rt, nil
}

// prelude defines the status constants scripts return.
const prelude = `
globalThis.status = Object.freeze({
	running: "running",
	success: "success",
	failure: "failure"
});
`

// Close stops the event loop. Safe to call more than once.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return nil
	}
	rt.cancel()
	rt.stopped = true
	rt.mu.Unlock()

	rt.loop.Stop()
	return nil
}

// Done is closed once the runtime stops.
func (rt *Runtime) Done() <-chan struct{} { return rt.ctx.Done() }

// IsRunning reports whether the runtime has started and not stopped.
func (rt *Runtime) IsRunning() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.started && !rt.stopped
}

// SetTimeout sets the RunOnLoopSync limit. Zero disables it.
func (rt *Runtime) SetTimeout(timeout time.Duration) {
	rt.mu.Lock()
	rt.timeout = timeout
	rt.mu.Unlock()
}

// RunOnLoop schedules fn on the loop goroutine. It reports false if the
// runtime is not running.
func (rt *Runtime) RunOnLoop(fn func(*goja.Runtime)) bool {
	if !rt.IsRunning() {
		return false
	}
	return rt.loop.RunOnLoop(fn)
}

// RunOnLoopSync runs fn on the loop goroutine and waits for it. It must not
// be called from the loop goroutine itself.
func (rt *Runtime) RunOnLoopSync(fn func(*goja.Runtime) error) error {
	rt.mu.RLock()
	if !rt.started || rt.stopped {
		rt.mu.RUnlock()
		return errors.New("event loop not running")
	}
	timeout := rt.timeout
	rt.mu.RUnlock()

	errCh := make(chan error, 1)
	if !rt.loop.RunOnLoop(func(vm *goja.Runtime) { errCh <- fn(vm) }) {
		return errors.New("event loop not running")
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case err := <-errCh:
		return err
	case <-rt.Done():
		return errors.New("runtime stopped before completion")
	case <-expired:
		return fmt.Errorf("operation timed out after %v", timeout)
	}
}

// compile returns the cached program for source.
func (rt *Runtime) compile(name, source string) (*goja.Program, error) {
	rt.mu.RLock()
	prg, ok := rt.programs[source]
	rt.mu.RUnlock()
	if ok {
		return prg, nil
	}
	prg, err := goja.Compile(name, source, true)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", name, err)
	}
	rt.mu.Lock()
	rt.programs[source] = prg
	rt.mu.Unlock()
	return prg, nil
}

// LoadScript compiles and runs code at top level.
func (rt *Runtime) LoadScript(name, code string) error {
	return rt.RunOnLoopSync(func(vm *goja.Runtime) error {
		prg, err := rt.compile(name, code)
		if err != nil {
			return err
		}
		if _, err := vm.RunProgram(prg); err != nil {
			return fmt.Errorf("failed to run %s: %w", name, err)
		}
		return nil
	})
}
