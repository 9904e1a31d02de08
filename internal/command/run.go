package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joeycumines/radscript/internal/config"
	"github.com/joeycumines/radscript/internal/host"
	"github.com/joeycumines/radscript/internal/scripting"
)

// RunCommand loads a map and executes a script against it.
type RunCommand struct {
	*BaseCommand
	config *config.Config

	defs         string
	mapPath      string
	registryPath string
	saveRegistry string
	script       string
	timeout      time.Duration
	testMode     bool
	session      string
	logPath      string
	logLevel     string

	// ctxFactory replaces signal.NotifyContext in tests.
	ctxFactory func() (context.Context, context.CancelFunc)
}

// NewRunCommand creates a new run command. Unset flags fall back to cfg.
func NewRunCommand(cfg *config.Config) *RunCommand {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &RunCommand{
		BaseCommand: NewBaseCommand(
			"run",
			"Execute a script against a map",
			"run [options] [script-file [args...]]",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the run command.
func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.defs, "defs", "", "Entity definition file (YAML)")
	fs.StringVar(&c.mapPath, "map", "", "Map file (YAML)")
	fs.StringVar(&c.registryPath, "registry", "", "Registry file (TOML) loaded before the script runs")
	fs.StringVar(&c.saveRegistry, "save-registry", "", "Write the registry here after a successful run")
	fs.StringVar(&c.script, "e", "", "JavaScript code to execute after the script file")
	fs.DurationVar(&c.timeout, "timeout", 0, "Abort each script after this long (0 = no limit)")
	fs.BoolVar(&c.testMode, "test", false, "Echo ctx.log output to stdout")
	fs.StringVar(&c.session, "session", "", "Session ID attached to every log record")
	fs.StringVar(&c.logPath, "log-file", "", "Append JSON log records to this file")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// Execute runs the script.
func (c *RunCommand) Execute(args []string, stdout, stderr io.Writer) error {
	var scriptFile string
	var scriptArgs []string
	if len(args) > 0 {
		scriptFile = args[0]
		scriptArgs = args[1:]
	}
	if scriptFile == "" && c.script == "" {
		_, _ = fmt.Fprintln(stderr, "No script specified. Provide a script file or use -e.")
		return fmt.Errorf("no script specified")
	}

	settings, err := c.resolveSettings()
	if err != nil {
		return err
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if c.ctxFactory != nil {
		ctx, cancel = c.ctxFactory()
	} else {
		ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	}
	defer cancel()

	var logHandler slog.Handler
	if settings.LogFile != "" {
		f, err := scripting.OpenLogFile(settings.LogFile, int64(settings.LogMaxSizeMB)<<20, settings.LogMaxFiles)
		if err != nil {
			return err
		}
		defer f.Close()
		logHandler = slog.NewJSONHandler(f, &slog.HandlerOptions{Level: settings.LogLevel})
	}

	h, err := host.Load(host.Options{
		DefsPath:     settings.Defs,
		MapPath:      settings.Map,
		RegistryPath: settings.Registry,
		UndoLevels:   settings.UndoLevels,
	})
	if err != nil {
		return err
	}

	engine, err := scripting.NewEngine(ctx, h, stdout, stderr, scripting.Options{
		SessionID:     settings.SessionID,
		Timeout:       settings.ScriptTimeout,
		LogLevel:      settings.LogLevel,
		LogHandler:    logHandler,
		MaxLogEntries: settings.LogBufferSize,
		TestMode:      c.testMode || config.CommandBool(c.config, "run", "test"),
	})
	if err != nil {
		return fmt.Errorf("failed to create scripting engine: %w", err)
	}
	defer engine.Close()

	if err := engine.SetGlobal("args", scriptArgs); err != nil {
		return err
	}

	if scriptFile != "" {
		script, err := engine.LoadScript(filepath.Base(scriptFile), scriptFile)
		if err != nil {
			return err
		}
		if err := engine.ExecuteScript(script); err != nil {
			return err
		}
	}
	if c.script != "" {
		if err := engine.ExecuteScript(engine.LoadScriptFromString("command-line", c.script)); err != nil {
			return err
		}
	}

	if dest := c.registryDestination(settings); dest != "" {
		if err := h.Registry.SaveTOMLFile(dest); err != nil {
			return err
		}
	}
	return nil
}

// resolveSettings layers the flags over the configuration.
func (c *RunCommand) resolveSettings() (config.Settings, error) {
	s, err := config.ResolveSettings(c.config)
	if err != nil {
		return s, err
	}
	if c.defs != "" {
		s.Defs = c.defs
	}
	if c.mapPath != "" {
		s.Map = c.mapPath
	}
	if c.registryPath != "" {
		s.Registry = c.registryPath
	}
	if c.logPath != "" {
		s.LogFile = c.logPath
	}
	if c.session != "" {
		s.SessionID = c.session
	}
	if c.timeout > 0 {
		s.ScriptTimeout = c.timeout
	}
	if c.logLevel != "" {
		if s.LogLevel, err = config.ParseLevel(c.logLevel); err != nil {
			return s, fmt.Errorf("invalid log level: %w", err)
		}
	}
	return s, nil
}

// registryDestination is the -save-registry path, or the loaded registry
// path when [run] save-registry is enabled.
func (c *RunCommand) registryDestination(s config.Settings) string {
	if c.saveRegistry != "" {
		return c.saveRegistry
	}
	if config.CommandBool(c.config, "run", "save-registry") {
		return s.Registry
	}
	return ""
}
