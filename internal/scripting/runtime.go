package scripting

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/radscript/internal/goroutineid"
)

// ErrRuntimeStopped is returned by calls made after Close.
var ErrRuntimeStopped = errors.New("event loop not running")

// Runtime owns a goja runtime driven by a goja_nodejs event loop.
//
// goja.Runtime is not goroutine-safe: every access goes through Run, which
// executes on the loop goroutine. The loop also provides setTimeout and
// friends, and enables require() and console from the registry.
type Runtime struct {
	loop     *eventloop.EventLoop
	registry *require.Registry

	// vm is captured on the loop and only touched off-loop for Interrupt.
	vm     *goja.Runtime
	loopID atomic.Int64

	mu      sync.RWMutex
	stopped bool

	done   context.Context
	cancel context.CancelFunc
}

// NewRuntime starts an event loop using registry, which must already hold
// any module (including console) that should be visible at startup.
// The runtime is closed when ctx is done.
func NewRuntime(ctx context.Context, registry *require.Registry) (*Runtime, error) {
	if registry == nil {
		registry = require.NewRegistry()
	}
	loop := eventloop.NewEventLoop(
		eventloop.WithRegistry(registry),
		eventloop.EnableConsole(true),
	)
	done, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		loop:     loop,
		registry: registry,
		done:     done,
		cancel:   cancel,
	}
	loop.Start()

	ready := make(chan struct{})
	if !loop.RunOnLoop(func(vm *goja.Runtime) {
		rt.vm = vm
		rt.loopID.Store(goroutineid.Get())
		close(ready)
	}) {
		cancel()
		loop.Stop()
		return nil, ErrRuntimeStopped
	}
	<-ready

	context.AfterFunc(ctx, func() { _ = rt.Close() })
	return rt, nil
}

// Registry returns the require registry backing the runtime.
func (rt *Runtime) Registry() *require.Registry { return rt.registry }

// Done is closed once the runtime has stopped.
func (rt *Runtime) Done() <-chan struct{} { return rt.done.Done() }

// IsRunning reports whether Close has not yet been called.
func (rt *Runtime) IsRunning() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return !rt.stopped
}

// Close stops the event loop. It is safe to call more than once.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return nil
	}
	rt.stopped = true
	rt.mu.Unlock()

	rt.cancel()
	rt.vm.Interrupt(ErrRuntimeStopped)
	rt.loop.Stop()
	return nil
}

// onLoop reports whether the caller is running on the loop goroutine.
func (rt *Runtime) onLoop() bool {
	id := rt.loopID.Load()
	return id != 0 && id == goroutineid.Get()
}

// Run executes fn on the loop goroutine and waits for it. If ctx is done
// first the running script is interrupted with ctx's error, and Run still
// waits for fn to unwind. Calls made from the loop itself run inline.
func (rt *Runtime) Run(ctx context.Context, fn func(*goja.Runtime) error) error {
	if !rt.IsRunning() {
		return ErrRuntimeStopped
	}
	if rt.onLoop() {
		return fn(rt.vm)
	}
	if err := context.Cause(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	if !rt.loop.RunOnLoop(func(vm *goja.Runtime) {
		vm.ClearInterrupt()
		if err := context.Cause(ctx); err != nil {
			errCh <- err
			return
		}
		errCh <- fn(vm)
	}) {
		return ErrRuntimeStopped
	}

	select {
	case err := <-errCh:
		return err
	case <-rt.Done():
		return ErrRuntimeStopped
	case <-ctx.Done():
		rt.vm.Interrupt(context.Cause(ctx))
	}
	select {
	case err := <-errCh:
		return err
	case <-rt.Done():
		return ErrRuntimeStopped
	}
}
