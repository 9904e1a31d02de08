package scripting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/radscript/internal/bridge"
	"github.com/joeycumines/radscript/internal/builtin"
	"github.com/joeycumines/radscript/internal/host"
)

// ErrScriptTimeout is the interrupt cause when a script exceeds its budget.
var ErrScriptTimeout = errors.New("script timed out")

// Options configures an Engine. The zero value is usable.
type Options struct {
	// SessionID overrides the generated session ID.
	SessionID string
	// Timeout bounds each ExecuteScript call; zero means no limit.
	Timeout time.Duration
	// LogLevel is the minimum level retained by the in-memory log.
	LogLevel slog.Level
	// LogHandler, if set, also receives every log record.
	LogHandler slog.Handler
	// MaxLogEntries bounds the in-memory log.
	MaxLogEntries int
	// TestMode echoes ctx.log output to stdout.
	TestMode bool
}

// Engine runs scripts against a Host. It owns a Runtime, the bridge that
// exposes the host singletons, and the script-facing globals print, log,
// env and ctx.
type Engine struct {
	ctx       context.Context
	rt        *Runtime
	host      *host.Host
	bridge    *bridge.Bridge
	stdout    io.Writer
	stderr    io.Writer
	logger    *ScriptLogger
	log       *slog.Logger
	sessionID string
	timeout   time.Duration
	testMode  bool
	scripts   []*Script
}

// Script is a named unit of JavaScript source.
type Script struct {
	Name    string
	Path    string
	Content string
}

// NewEngine creates an engine bound to h. The engine stops when ctx is done
// or Close is called.
func NewEngine(ctx context.Context, h *host.Host, stdout, stderr io.Writer, opts Options) (*Engine, error) {
	logger := NewScriptLogger(opts.MaxLogEntries, opts.LogHandler)
	logger.SetLevel(opts.LogLevel)
	sessionID := discoverSessionID(opts.SessionID)

	e := &Engine{
		ctx:       ctx,
		host:      h,
		stdout:    stdout,
		stderr:    stderr,
		logger:    logger,
		log:       logger.Logger().With("session", sessionID),
		sessionID: sessionID,
		timeout:   opts.Timeout,
		testMode:  opts.TestMode,
	}

	registry := require.NewRegistry()
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(consolePrinter{stdout: stdout, stderr: stderr}))

	rt, err := NewRuntime(ctx, registry)
	if err != nil {
		return nil, fmt.Errorf("start runtime: %w", err)
	}
	e.rt = rt

	err = rt.Run(ctx, func(vm *goja.Runtime) error {
		e.bridge = bridge.New(vm, h, e.log)
		if err := e.bridge.Install(); err != nil {
			return err
		}
		return e.setupGlobals(vm)
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("set up globals: %w", err)
	}
	builtin.Register(registry, e.bridge)

	e.log.Debug("engine started")
	return e, nil
}

// SessionID returns the engine's session ID.
func (e *Engine) SessionID() string { return e.sessionID }

// Host returns the host scripts operate on.
func (e *Engine) Host() *host.Host { return e.host }

// Logger returns the engine's in-memory logger.
func (e *Engine) Logger() *ScriptLogger { return e.logger }

// Scripts returns every loaded script, in load order.
func (e *Engine) Scripts() []*Script { return e.scripts }

// SetGlobal sets a global variable in the script runtime.
func (e *Engine) SetGlobal(name string, value interface{}) error {
	return e.rt.Run(e.ctx, func(vm *goja.Runtime) error {
		return vm.Set(name, value)
	})
}

// LoadScript reads a script from path.
func (e *Engine) LoadScript(name, path string) (*Script, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", name, err)
	}
	script := &Script{Name: name, Path: path, Content: string(content)}
	e.scripts = append(e.scripts, script)
	return script, nil
}

// LoadScriptFromString registers a script from source text.
func (e *Engine) LoadScriptFromString(name, content string) *Script {
	script := &Script{Name: name, Path: "<string>", Content: content}
	e.scripts = append(e.scripts, script)
	return script
}

// ExecuteScript runs script under a fresh ctx. Deferred ctx functions run
// even when the script throws. The returned error wraps the script's
// exception, ErrScriptFailed, ErrScriptTimeout or the context's error.
func (e *Engine) ExecuteScript(script *Script) error {
	ctx := e.ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, e.timeout, fmt.Errorf("%w after %v", ErrScriptTimeout, e.timeout))
		defer cancel()
	}

	start := time.Now()
	err := e.rt.Run(ctx, func(vm *goja.Runtime) error {
		return e.execute(vm, script)
	})
	if err != nil {
		e.log.Error("script failed", "script", script.Name, "error", err)
		return err
	}
	e.log.Info("script finished", "script", script.Name, "elapsed", time.Since(start))
	return nil
}

func (e *Engine) execute(vm *goja.Runtime, script *Script) (err error) {
	ec := newExecutionContext(e, vm, script.Name, nil)
	if err := vm.Set("ctx", ec.toJSObject()); err != nil {
		return err
	}
	defer func() {
		if dErr := ec.runDeferred(); dErr != nil && err == nil {
			err = dErr
		}
	}()

	prg, err := goja.Compile(script.Name, script.Content, false)
	if err != nil {
		return fmt.Errorf("compile script %s: %w", script.Name, err)
	}
	if _, err := vm.RunProgram(prg); err != nil {
		return fmt.Errorf("script %s: %w", script.Name, err)
	}
	return nil
}

// Close stops the runtime.
func (e *Engine) Close() error {
	e.log.Debug("engine stopped")
	if e.bridge != nil {
		e.bridge.Close()
	}
	return e.rt.Close()
}

type consolePrinter struct {
	stdout io.Writer
	stderr io.Writer
}

func (p consolePrinter) Log(s string)   { _, _ = fmt.Fprintln(p.stdout, s) }
func (p consolePrinter) Warn(s string)  { _, _ = fmt.Fprintln(p.stderr, s) }
func (p consolePrinter) Error(s string) { _, _ = fmt.Fprintln(p.stderr, s) }
