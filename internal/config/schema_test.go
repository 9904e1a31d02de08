package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func TestSchemaRegister(t *testing.T) {
	s := NewSchema()
	s.Register(ConfigOption{Key: "a", Description: "first"})
	s.Register(ConfigOption{Key: "a", Description: "second"})
	s.Register(ConfigOption{Key: "b", Section: "run"})

	if got := s.Lookup("", "a").Description; got != "second" {
		t.Errorf("last registration should win, got %q", got)
	}
	if n := len(s.GlobalOptions()); n != 1 {
		t.Errorf("GlobalOptions has %d entries", n)
	}
	if !s.IsKnown("run", "a") {
		t.Errorf("global keys are valid in command sections")
	}
	if s.IsKnown("", "b") {
		t.Errorf("section keys are not global")
	}
	if s.Lookup("other", "b") != nil {
		t.Errorf("unexpected option in unknown section")
	}
	if got := s.Sections(); len(got) != 1 || got[0] != "run" {
		t.Errorf("Sections = %v", got)
	}
}

func TestSchemaResolve(t *testing.T) {
	s := DefaultSchema()
	c := NewConfig()

	unsetenv(t, "RADSCRIPT_MAP")
	if got := s.Resolve(c, "undo-levels"); got != "64" {
		t.Errorf("default undo-levels = %q", got)
	}

	c.SetGlobalOption("undo-levels", "8")
	if got := s.Resolve(c, "undo-levels"); got != "8" {
		t.Errorf("file undo-levels = %q", got)
	}

	c.SetGlobalOption("map", "from-file.yaml")
	t.Setenv("RADSCRIPT_MAP", "from-env.yaml")
	if got := s.Resolve(c, "map"); got != "from-env.yaml" {
		t.Errorf("env should win, got %q", got)
	}

	c.SetCommandOption("run", "save-registry", "on")
	if !CommandBool(c, "run", "save-registry") {
		t.Errorf("run.save-registry should be true")
	}
	if CommandBool(c, "run", "test") {
		t.Errorf("run.test defaults to false")
	}
	if got := s.Resolve(nil, "unknown"); got != "" {
		t.Errorf("unknown key resolved to %q", got)
	}
}

func TestResolveSettings(t *testing.T) {
	for _, env := range []string{"RADSCRIPT_DEFS", "RADSCRIPT_MAP", "RADSCRIPT_REGISTRY", "RADSCRIPT_LOG_LEVEL", "RADSCRIPT_LOG_FILE", "RADSCRIPT_SESSION_ID"} {
		unsetenv(t, env)
	}

	c, err := LoadFromReader(strings.NewReader(`defs a.def.yaml
map b.map.yaml
registry c.toml
log-level warn
log-buffer-size 10
log-file run.log
log-max-files 2
undo-levels 3
script-timeout 2s
session-id fixed`))
	if err != nil {
		t.Fatal(err)
	}
	got, err := ResolveSettings(c)
	if err != nil {
		t.Fatalf("ResolveSettings: %v", err)
	}
	want := Settings{
		Defs:          "a.def.yaml",
		Map:           "b.map.yaml",
		Registry:      "c.toml",
		LogLevel:      slog.LevelWarn,
		LogBufferSize: 10,
		LogFile:       "run.log",
		LogMaxSizeMB:  10,
		LogMaxFiles:   2,
		UndoLevels:    3,
		ScriptTimeout: 2 * time.Second,
		SessionID:     "fixed",
	}
	if got != want {
		t.Errorf("ResolveSettings = %+v, want %+v", got, want)
	}

	defaults, err := ResolveSettings(nil)
	if err != nil {
		t.Fatal(err)
	}
	if defaults.LogLevel != slog.LevelInfo || defaults.LogBufferSize != 1000 || defaults.UndoLevels != 64 || defaults.ScriptTimeout != 0 {
		t.Errorf("defaults = %+v", defaults)
	}

	c.SetGlobalOption("log-level", "loud")
	if _, err := ResolveSettings(c); err == nil {
		t.Errorf("expected log-level error")
	}
}

func TestFormatHelp(t *testing.T) {
	help := DefaultSchema().FormatHelp()
	for _, want := range []string{
		"Global Options:",
		"log-level",
		"type: level",
		"default: 64",
		"env: RADSCRIPT_MAP",
		"[run] Options:",
		"save-registry",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Errorf("expected error")
	}
}

// unsetenv removes key for the duration of the test. An empty value would
// still count as an override.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatal(err)
	}
}
