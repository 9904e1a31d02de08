package scripting

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// ErrScriptFailed is reported when a script marks its context failed through
// ctx.error or ctx.fatal.
var ErrScriptFailed = errors.New("script failed")

// ExecutionContext is the `ctx` object a script runs under, similar to
// testing.T: named sub-steps, deferred cleanup, and failure reporting.
type ExecutionContext struct {
	engine   *Engine
	vm       *goja.Runtime
	name     string
	parent   *ExecutionContext
	failed   bool
	output   strings.Builder
	deferred []func()
}

func newExecutionContext(e *Engine, vm *goja.Runtime, name string, parent *ExecutionContext) *ExecutionContext {
	return &ExecutionContext{engine: e, vm: vm, name: name, parent: parent}
}

// Run executes fn as a named sub-step with its own ctx, returning whether
// it passed. A failing sub-step fails its parent.
func (ctx *ExecutionContext) Run(name string, fn goja.Callable) bool {
	sub := newExecutionContext(ctx.engine, ctx.vm, ctx.name+"/"+name, ctx)

	parentObj := ctx.vm.Get("ctx")
	defer func() { _ = ctx.vm.Set("ctx", parentObj) }()
	_ = ctx.vm.Set("ctx", sub.toJSObject())

	_, callErr := fn(goja.Undefined())
	var interrupted *goja.InterruptedError
	if errors.As(callErr, &interrupted) {
		sub.failed = true
		_ = sub.runDeferred()
		ctx.failed = true
		panic(interrupted)
	}
	if callErr != nil {
		sub.Errorf("step failed: %v", callErr)
	}
	if err := sub.runDeferred(); err != nil {
		sub.failed = true
	}

	if sub.failed {
		ctx.Errorf("step %s failed", name)
		return false
	}
	ctx.Logf("step %s passed", name)
	return true
}

// Defer schedules fn to run when the current context completes, last in
// first out.
func (ctx *ExecutionContext) Defer(fn goja.Callable) {
	ctx.deferred = append(ctx.deferred, func() {
		if _, err := fn(goja.Undefined()); err != nil {
			ctx.Errorf("deferred function failed: %v", err)
		}
	})
}

// Log records a message against the context.
func (ctx *ExecutionContext) Log(args ...interface{}) {
	ctx.logLine(fmt.Sprint(args...))
}

// Logf records a formatted message against the context.
func (ctx *ExecutionContext) Logf(format string, args ...interface{}) {
	ctx.logLine(fmt.Sprintf(format, args...))
}

func (ctx *ExecutionContext) logLine(msg string) {
	_, _ = fmt.Fprintf(&ctx.output, "[%s] %s\n", ctx.name, msg)
	ctx.engine.log.Info(msg, "ctx", ctx.name)
	if ctx.engine.testMode {
		_, _ = fmt.Fprintf(ctx.engine.stdout, "[%s] %s\n", ctx.name, msg)
	}
}

// Error marks the context failed and reports the message on stderr.
func (ctx *ExecutionContext) Error(args ...interface{}) {
	ctx.errorLine(fmt.Sprint(args...))
}

// Errorf marks the context failed and reports the formatted message.
func (ctx *ExecutionContext) Errorf(format string, args ...interface{}) {
	ctx.errorLine(fmt.Sprintf(format, args...))
}

func (ctx *ExecutionContext) errorLine(msg string) {
	ctx.failed = true
	_, _ = fmt.Fprintf(&ctx.output, "[%s] ERROR: %s\n", ctx.name, msg)
	_, _ = fmt.Fprintf(ctx.engine.stderr, "[%s] ERROR: %s\n", ctx.name, msg)
	ctx.engine.log.Error(msg, "ctx", ctx.name)
}

// Fatal is Error followed by an uncatchable stop of the script.
func (ctx *ExecutionContext) Fatal(args ...interface{}) {
	ctx.Error(args...)
	ctx.vm.Interrupt(fmt.Errorf("%w: %s: fatal", ErrScriptFailed, ctx.name))
}

// Fatalf is Errorf followed by an uncatchable stop of the script.
func (ctx *ExecutionContext) Fatalf(format string, args ...interface{}) {
	ctx.Errorf(format, args...)
	ctx.vm.Interrupt(fmt.Errorf("%w: %s: fatal", ErrScriptFailed, ctx.name))
}

// Failed reports whether the context has failed.
func (ctx *ExecutionContext) Failed() bool { return ctx.failed }

// Name returns the slash-separated context name.
func (ctx *ExecutionContext) Name() string { return ctx.name }

// Output returns everything logged against this context.
func (ctx *ExecutionContext) Output() string { return ctx.output.String() }

// runDeferred runs the deferred functions in reverse order, then reports
// ErrScriptFailed if the context failed.
func (ctx *ExecutionContext) runDeferred() error {
	for i := len(ctx.deferred) - 1; i >= 0; i-- {
		ctx.deferred[i]()
	}
	ctx.deferred = nil
	if ctx.failed {
		return fmt.Errorf("%w: %s", ErrScriptFailed, ctx.name)
	}
	return nil
}

func (ctx *ExecutionContext) toJSObject() map[string]interface{} {
	return map[string]interface{}{
		"run":    ctx.Run,
		"defer":  ctx.Defer,
		"log":    ctx.Log,
		"logf":   ctx.Logf,
		"error":  ctx.Error,
		"errorf": ctx.Errorf,
		"fatal":  ctx.Fatal,
		"fatalf": ctx.Fatalf,
		"failed": ctx.Failed,
		"name":   ctx.Name,
	}
}
