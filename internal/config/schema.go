package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OptionType is the expected type of an option value.
type OptionType string

const (
	TypeString   OptionType = "string"
	TypeBool     OptionType = "bool"
	TypeInt      OptionType = "int"
	TypeDuration OptionType = "duration"
	// TypeLevel is a log level name: debug, info, warn or error.
	TypeLevel OptionType = "level"
)

// ConfigOption declares a single option.
type ConfigOption struct {
	// Key is the option name as written in the file.
	Key         string
	Type        OptionType
	Default     string
	Description string
	// Section is "" for global options, otherwise a command name.
	Section string
	// EnvVar overrides the option when set.
	EnvVar string
}

// ConfigSchema is the set of known options.
type ConfigSchema struct {
	options   []*ConfigOption
	byKey     map[string]*ConfigOption
	bySection map[string]map[string]*ConfigOption
}

// NewSchema returns an empty schema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey:     make(map[string]*ConfigOption),
		bySection: make(map[string]map[string]*ConfigOption),
	}
}

// Register adds opt. A later registration of the same key in the same
// section replaces the earlier one.
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	if opt.Section == "" {
		if old := s.byKey[opt.Key]; old != nil {
			*old = opt
			return
		}
		s.byKey[opt.Key] = ref
	} else {
		if s.bySection[opt.Section] == nil {
			s.bySection[opt.Section] = make(map[string]*ConfigOption)
		}
		if old := s.bySection[opt.Section][opt.Key]; old != nil {
			*old = opt
			return
		}
		s.bySection[opt.Section][opt.Key] = ref
	}
	s.options = append(s.options, ref)
}

// RegisterAll adds every option in opts.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the option for key in section ("" for global), or nil.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	if section == "" {
		return s.byKey[key]
	}
	return s.bySection[section][key]
}

// IsKnown reports whether key may appear in section. Command sections accept
// global keys too.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	if section != "" && s.bySection[section][key] != nil {
		return true
	}
	return s.byKey[key] != nil
}

// GlobalOptions returns the global options in registration order.
func (s *ConfigSchema) GlobalOptions() []ConfigOption {
	return s.SectionOptions("")
}

// SectionOptions returns the options of section in registration order.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns the sorted command section names.
func (s *ConfigSchema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		out = append(out, sec)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the effective value of a global key: the environment
// override, then the file value, then the default.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	return s.ResolveCommand(c, "", key)
}

// ResolveCommand is Resolve for a command section. The section value wins
// over the global one; the environment wins over both.
func (s *ConfigSchema) ResolveCommand(c *Config, command, key string) string {
	opt := s.Lookup(command, key)
	if opt == nil {
		opt = s.Lookup("", key)
	}
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if c != nil {
		var (
			v  string
			ok bool
		)
		if command == "" {
			v, ok = c.GetGlobalOption(key)
		} else {
			v, ok = c.GetCommandOption(command, key)
		}
		if ok {
			return v
		}
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig returns the sorted list of problems with c: unknown options
// and values that do not parse as their declared type.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	for section, opts := range c.Commands {
		for key, value := range opts {
			if !s.IsKnown(section, key) {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
				continue
			}
			opt := s.Lookup(section, key)
			if opt == nil {
				opt = s.Lookup("", key)
			}
			if err := validateType(opt.Type, value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}

	sort.Strings(issues)
	return issues
}

func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	case TypeLevel:
		if _, err := ParseLevel(value); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("expected log level, got %q", s)
	}
	return level, nil
}

// FormatHelp renders every option, globals first, then each section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder

	if globals := s.GlobalOptions(); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}

	for _, sec := range s.Sections() {
		opts := s.SectionOptions(sec)
		if len(opts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range opts {
			writeOptionHelp(&b, o)
		}
	}

	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-20s %s", o.Key, o.Description)
	parts := make([]string, 0, 3)
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, "type: "+string(o.Type))
	}
	if o.Default != "" {
		parts = append(parts, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		parts = append(parts, "env: "+o.EnvVar)
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// DefaultSchema returns the schema of every radscript option.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: "defs", Description: "Entity definition file (YAML)", EnvVar: "RADSCRIPT_DEFS"},
		{Key: "map", Description: "Map file (YAML)", EnvVar: "RADSCRIPT_MAP"},
		{Key: "registry", Description: "Registry file (TOML)", EnvVar: "RADSCRIPT_REGISTRY"},
		{Key: "log-level", Type: TypeLevel, Default: "info", Description: "Minimum log level", EnvVar: "RADSCRIPT_LOG_LEVEL"},
		{Key: "log-buffer-size", Type: TypeInt, Default: "1000", Description: "In-memory log entries kept for scripts"},
		{Key: "log-file", Description: "Append JSON log records to this file", EnvVar: "RADSCRIPT_LOG_FILE"},
		{Key: "log-max-size-mb", Type: TypeInt, Default: "10", Description: "Rotate the log file past this size"},
		{Key: "log-max-files", Type: TypeInt, Default: "5", Description: "Rotated log files to keep"},
		{Key: "undo-levels", Type: TypeInt, Default: "64", Description: "Maximum undo history depth"},
		{Key: "script-timeout", Type: TypeDuration, Description: "Abort scripts running longer than this"},
		{Key: "session-id", Description: "Override the session id", EnvVar: "RADSCRIPT_SESSION_ID"},

		{Key: "save-registry", Section: "run", Type: TypeBool, Default: "false", Description: "Write the registry back after a successful run"},
		{Key: "test", Section: "run", Type: TypeBool, Default: "false", Description: "Echo ctx.log output to stdout"},
	})
	return s
}

// Settings is the resolved, typed view of the global options.
type Settings struct {
	Defs          string
	Map           string
	Registry      string
	LogLevel      slog.Level
	LogBufferSize int
	LogFile       string
	LogMaxSizeMB  int
	LogMaxFiles   int
	UndoLevels    int
	ScriptTimeout time.Duration
	SessionID     string
}

// ResolveSettings resolves every global option of DefaultSchema against c.
// c may be nil.
func ResolveSettings(c *Config) (Settings, error) {
	s := DefaultSchema()
	var (
		out Settings
		err error
	)
	out.Defs = s.Resolve(c, "defs")
	out.Map = s.Resolve(c, "map")
	out.Registry = s.Resolve(c, "registry")
	out.SessionID = s.Resolve(c, "session-id")
	out.LogFile = s.Resolve(c, "log-file")
	if out.LogLevel, err = ParseLevel(s.Resolve(c, "log-level")); err != nil {
		return Settings{}, fmt.Errorf("log-level: %w", err)
	}
	if out.LogBufferSize, err = strconv.Atoi(s.Resolve(c, "log-buffer-size")); err != nil {
		return Settings{}, fmt.Errorf("log-buffer-size: %w", err)
	}
	if out.LogMaxSizeMB, err = strconv.Atoi(s.Resolve(c, "log-max-size-mb")); err != nil {
		return Settings{}, fmt.Errorf("log-max-size-mb: %w", err)
	}
	if out.LogMaxFiles, err = strconv.Atoi(s.Resolve(c, "log-max-files")); err != nil {
		return Settings{}, fmt.Errorf("log-max-files: %w", err)
	}
	if out.UndoLevels, err = strconv.Atoi(s.Resolve(c, "undo-levels")); err != nil {
		return Settings{}, fmt.Errorf("undo-levels: %w", err)
	}
	if v := s.Resolve(c, "script-timeout"); v != "" {
		if out.ScriptTimeout, err = time.ParseDuration(v); err != nil {
			return Settings{}, fmt.Errorf("script-timeout: %w", err)
		}
	}
	return out, nil
}

// CommandBool resolves a boolean command option, returning false when it is
// unset or malformed.
func CommandBool(c *Config, command, key string) bool {
	b, _ := parseBool(DefaultSchema().ResolveCommand(c, command, key))
	return b
}
