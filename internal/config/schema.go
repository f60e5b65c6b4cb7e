package config

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	// TypeString is a plain string value (the default for all config values).
	TypeString OptionType = "string"
	// TypeBool is a boolean value (true/false/yes/no/1/0/on/off).
	TypeBool OptionType = "bool"
	// TypeInt is an integer value.
	TypeInt OptionType = "int"
	// TypeDuration is a Go time.Duration value (e.g. "100ms", "5s").
	TypeDuration OptionType = "duration"
	// TypeEnum is one of the option's Choices.
	TypeEnum OptionType = "enum"
)

// ConfigOption declares a single configuration option.
type ConfigOption struct {
	// Key is the option name as it appears in the config file.
	Key string
	// Type is the expected value type for validation.
	Type OptionType
	// Default is the default value as a string, or "" for no default.
	Default string
	// Description is a human-readable description of the option.
	Description string
	// Section is "" for global options, or a command/section name.
	Section string
	// EnvVar is the environment variable that overrides this option, or "".
	EnvVar string
	// Choices lists the accepted values of a TypeEnum option.
	Choices []string
}

// ConfigSchema declares the expected configuration options. It drives
// validation, help output, typed lookups and env var mapping.
type ConfigSchema struct {
	options   []*ConfigOption
	byKey     map[string]*ConfigOption
	bySection map[string]map[string]*ConfigOption
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		byKey:     make(map[string]*ConfigOption),
		bySection: make(map[string]map[string]*ConfigOption),
	}
}

// Register adds a ConfigOption to the schema. Last registration of a key
// within a section wins.
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	s.options = append(s.options, ref)
	if opt.Section == "" {
		s.byKey[opt.Key] = ref
		return
	}
	if s.bySection[opt.Section] == nil {
		s.bySection[opt.Section] = make(map[string]*ConfigOption)
	}
	s.bySection[opt.Section][opt.Key] = ref
}

// RegisterAll adds multiple ConfigOptions to the schema.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// Lookup returns the ConfigOption for a key in a given section ("" for
// global), or nil.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	if section == "" {
		return s.byKey[key]
	}
	if sec, ok := s.bySection[section]; ok {
		return sec[key]
	}
	return nil
}

// IsKnown returns true if the key is registered in the given section.
// Global keys are known in every section, where they override the global
// value for that command.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	if section != "" && s.Lookup(section, key) != nil {
		return true
	}
	return s.byKey[key] != nil
}

// GlobalOptions returns all registered global options (Section == "").
func (s *ConfigSchema) GlobalOptions() []ConfigOption {
	return s.SectionOptions("")
}

// SectionOptions returns all registered options for a specific section.
func (s *ConfigSchema) SectionOptions(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns the sorted non-empty section names.
func (s *ConfigSchema) Sections() []string {
	out := make([]string, 0, len(s.bySection))
	for sec := range s.bySection {
		out = append(out, sec)
	}
	sort.Strings(out)
	return out
}

// Resolve returns the effective value for a global key, checking in order
// the environment variable declared for it, the config value, and the
// schema default. Returns "" if the key is not found anywhere.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	opt := s.Lookup("", key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if v, ok := c.GetGlobalOption(key); ok {
		return v
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ResolveCommand returns the effective value of key for command: the
// [command] entry, then the section default, then whatever Resolve finds
// for the global key of the same name.
func (s *ConfigSchema) ResolveCommand(c *Config, command, key string) string {
	if opts, ok := c.Commands[command]; ok {
		if v, ok := opts[key]; ok {
			return v
		}
	}
	if opt := s.Lookup(command, key); opt != nil {
		if opt.EnvVar != "" {
			if v, ok := os.LookupEnv(opt.EnvVar); ok {
				return v
			}
		}
		return opt.Default
	}
	return s.Resolve(c, key)
}

// ValidateConfig checks a loaded Config against the schema and returns a
// sorted list of human-readable issues, empty if the config is valid.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := opt.Check(value); err != nil {
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
			if err := opt.Check(value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}

	sort.Strings(issues)
	return issues
}

// Check reports whether value is acceptable for the option.
func (o *ConfigOption) Check(value string) error {
	if o.Type == TypeEnum {
		if !slices.Contains(o.Choices, strings.ToLower(value)) {
			return fmt.Errorf("expected one of %s, got %q", strings.Join(o.Choices, ", "), value)
		}
		return nil
	}
	return validateType(o.Type, value)
}

// validateType checks that a string value matches the expected OptionType.
func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, TypeEnum, "":
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
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// --- Typed getters ---

// GetString returns the global option value for key, or "" if not set.
func (c *Config) GetString(key string) string {
	v, _ := c.GetGlobalOption(key)
	return v
}

// GetStringDefault returns the global option value for key, or defaultValue
// if not set.
func (c *Config) GetStringDefault(key, defaultValue string) string {
	v, ok := c.GetGlobalOption(key)
	if !ok {
		return defaultValue
	}
	return v
}

// GetBool returns the global option value for key parsed as a boolean, or
// false.
func (c *Config) GetBool(key string) bool {
	b, _ := ParseBool(c.GetString(key))
	return b
}

// GetInt returns the global option value for key parsed as an integer, or 0.
func (c *Config) GetInt(key string) int {
	i, err := strconv.Atoi(c.GetString(key))
	if err != nil {
		return 0
	}
	return i
}

// GetDuration returns the global option value for key parsed as a
// time.Duration, or 0.
func (c *Config) GetDuration(key string) time.Duration {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0
	}
	return d
}

// GetWithEnv returns the value for key, preferring envVar when it is set
// (even to "").
func (c *Config) GetWithEnv(key, envVar string) string {
	if envVar != "" {
		if v, ok := os.LookupEnv(envVar); ok {
			return v
		}
	}
	return c.GetString(key)
}

// ParseBool parses the boolean spellings the config file accepts.
func ParseBool(s string) (bool, error) { return parseBool(s) }

// --- Help text ---

// FormatHelp returns a human-readable reference of all registered options,
// grouped by section.
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
	switch {
	case o.Type == TypeEnum:
		parts = append(parts, "one of: "+strings.Join(o.Choices, "|"))
	case o.Type != "" && o.Type != TypeString:
		parts = append(parts, fmt.Sprintf("type: %s", o.Type))
	}
	if o.Default != "" {
		parts = append(parts, fmt.Sprintf("default: %s", o.Default))
	}
	if o.EnvVar != "" {
		parts = append(parts, fmt.Sprintf("env: %s", o.EnvVar))
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// --- Default schema ---

// Option keys read by the CLI.
const (
	KeyLogLevel      = "log.level"
	KeyLogFile       = "log.file"
	KeyLogFormat     = "log.format"
	KeyLogMaxSizeMB  = "log.max-size-mb"
	KeyLogMaxFiles   = "log.max-files"
	KeyColor         = "color"
	KeyTickInterval  = "tick.interval"
	KeyTickMax       = "tick.max"
	KeyMetricsAddr   = "metrics.addr"
	KeyScriptTimeout = "script.timeout"
	KeyExprCacheSize = "expr.cache-size"

	SectionRun  = "run"
	KeyAgents   = "agents"
	KeyView     = "view"
	KeyExportTo = "export"
)

// DefaultSchema returns the schema of every option reactree understands.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: KeyLogLevel, Type: TypeEnum, Choices: []string{"debug", "info", "warn", "error"}, Default: "info", Description: "Log level", EnvVar: "REACTREE_LOG_LEVEL"},
		{Key: KeyLogFile, Type: TypeString, Description: "Write logs to this file instead of stderr", EnvVar: "REACTREE_LOG_FILE"},
		{Key: KeyLogFormat, Type: TypeEnum, Choices: []string{"text", "json"}, Default: "text", Description: "Log record format"},
		{Key: KeyLogMaxSizeMB, Type: TypeInt, Default: "10", Description: "Rotate the log file past this size"},
		{Key: KeyLogMaxFiles, Type: TypeInt, Default: "5", Description: "Rotated log files kept"},
		{Key: KeyColor, Type: TypeEnum, Choices: []string{"auto", "always", "never"}, Default: "auto", Description: "Colour tree output"},
		{Key: KeyTickInterval, Type: TypeDuration, Default: "100ms", Description: "Engine tick interval", EnvVar: "REACTREE_TICK_INTERVAL"},
		{Key: KeyTickMax, Type: TypeInt, Default: "0", Description: "Stop after this many ticks (0 runs until the roots conclude)"},
		{Key: KeyMetricsAddr, Type: TypeString, Description: "Serve Prometheus metrics on this address", EnvVar: "REACTREE_METRICS_ADDR"},
		{Key: KeyScriptTimeout, Type: TypeDuration, Default: "5s", Description: "Limit on a single script call"},
		{Key: KeyExprCacheSize, Type: TypeInt, Default: "1000", Description: "Compiled expression cache capacity"},

		{Key: KeyAgents, Section: SectionRun, Type: TypeInt, Default: "1", Description: "Agents spawned on the definition"},
		{Key: KeyView, Section: SectionRun, Type: TypeBool, Default: "false", Description: "Print the tree after every tick"},
		{Key: KeyExportTo, Section: SectionRun, Type: TypeString, Description: "Write the final tree of the first agent to this file"},
	})
	return s
}
