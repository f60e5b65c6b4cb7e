package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *ConfigSchema {
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: "level", Type: TypeEnum, Choices: []string{"low", "high"}, Default: "low", Description: "A level"},
		{Key: "count", Type: TypeInt, Default: "3", Description: "A count", EnvVar: "REACTREE_TEST_COUNT"},
		{Key: "wait", Type: TypeDuration, Description: "A wait"},
		{Key: "size", Section: "box", Type: TypeInt, Default: "9", Description: "Box size"},
	})
	return s
}

func TestSchema_LookupAndSections(t *testing.T) {
	t.Parallel()

	s := testSchema()
	require.NotNil(t, s.Lookup("", "count"))
	require.Nil(t, s.Lookup("", "size"))
	require.NotNil(t, s.Lookup("box", "size"))
	require.Nil(t, s.Lookup("nobox", "size"))

	assert.True(t, s.IsKnown("box", "size"))
	assert.True(t, s.IsKnown("box", "count"), "global keys are known in sections")
	assert.False(t, s.IsKnown("", "size"))

	assert.Len(t, s.GlobalOptions(), 3)
	assert.Len(t, s.SectionOptions("box"), 1)
	assert.Equal(t, []string{"box"}, s.Sections())

	s.Register(ConfigOption{Key: "count", Type: TypeString, Default: "x"})
	assert.Equal(t, "x", s.Lookup("", "count").Default, "last registration wins")
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	s := testSchema()
	for _, tt := range []struct {
		name   string
		src    string
		issues []string
	}{
		{"valid", "level HIGH\ncount 2\nwait 1s\n[box]\nsize 4\ncount 1\n", nil},
		{"unknown global", "colour red\n", []string{`unknown global option: "colour" (value: "red")`}},
		{"unknown section key", "[box]\nwidth 2\n", []string{`unknown option for command "box": "width" (value: "2")`}},
		{"bad enum", "level mid\n", []string{`global option "level": expected one of low, high, got "mid"`}},
		{"bad int", "count lots\n", []string{`global option "count": expected int, got "lots"`}},
		{"bad duration", "wait soon\n", []string{`global option "wait": expected duration, got "soon"`}},
		{"bad global in section", "[box]\ncount x\n", []string{`option "count" in [box]: expected int, got "x"`}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			var section string
			for _, line := range strings.Split(strings.TrimSpace(tt.src), "\n") {
				if strings.HasPrefix(line, "[") {
					section = strings.Trim(line, "[]")
					continue
				}
				k, v, _ := strings.Cut(line, " ")
				if section == "" {
					cfg.SetGlobalOption(k, v)
				} else {
					cfg.SetCommandOption(section, k, v)
				}
			}
			assert.Equal(t, tt.issues, ValidateConfig(cfg, s))
		})
	}
}

func TestValidateType(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		typ   OptionType
		value string
		ok    bool
	}{
		{TypeString, "anything", true},
		{"", "anything", true},
		{TypeBool, "yes", true},
		{TypeBool, "OFF", true},
		{TypeBool, "maybe", false},
		{TypeInt, "-4", true},
		{TypeInt, "4.5", false},
		{TypeDuration, "250ms", true},
		{TypeDuration, "250", false},
		{"float", "1", false},
	} {
		err := validateType(tt.typ, tt.value)
		assert.Equal(t, tt.ok, err == nil, "%s %q: %v", tt.typ, tt.value, err)
	}
}

func TestSchema_Resolve(t *testing.T) {
	s := testSchema()
	cfg := NewConfig()

	assert.Equal(t, "3", s.Resolve(cfg, "count"), "default")
	cfg.SetGlobalOption("count", "5")
	assert.Equal(t, "5", s.Resolve(cfg, "count"), "config beats default")
	t.Setenv("REACTREE_TEST_COUNT", "7")
	assert.Equal(t, "7", s.Resolve(cfg, "count"), "env beats config")
	assert.Equal(t, "", s.Resolve(cfg, "missing"))

	assert.Equal(t, "9", s.ResolveCommand(cfg, "box", "size"), "section default")
	cfg.SetCommandOption("box", "size", "2")
	assert.Equal(t, "2", s.ResolveCommand(cfg, "box", "size"))
	assert.Equal(t, "7", s.ResolveCommand(cfg, "box", "count"), "falls back to the global key")
	cfg.SetCommandOption("box", "count", "1")
	assert.Equal(t, "1", s.ResolveCommand(cfg, "box", "count"))
}

func TestTypedGetters(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.SetGlobalOption("b", "on")
	cfg.SetGlobalOption("i", "12")
	cfg.SetGlobalOption("d", "1.5s")
	cfg.SetGlobalOption("junk", "?")

	assert.True(t, cfg.GetBool("b"))
	assert.False(t, cfg.GetBool("junk"))
	assert.False(t, cfg.GetBool("missing"))
	assert.Equal(t, 12, cfg.GetInt("i"))
	assert.Equal(t, 0, cfg.GetInt("junk"))
	assert.Equal(t, 1500*time.Millisecond, cfg.GetDuration("d"))
	assert.Equal(t, time.Duration(0), cfg.GetDuration("junk"))
	assert.Equal(t, "fallback", cfg.GetStringDefault("missing", "fallback"))
	assert.Equal(t, "12", cfg.GetStringDefault("i", "fallback"))
}

func TestGetWithEnv(t *testing.T) {
	cfg := NewConfig()
	cfg.SetGlobalOption("k", "file")
	assert.Equal(t, "file", cfg.GetWithEnv("k", ""))
	t.Setenv("REACTREE_TEST_K", "")
	assert.Equal(t, "", cfg.GetWithEnv("k", "REACTREE_TEST_K"), "set but empty still wins")
}

func TestFormatHelp(t *testing.T) {
	t.Parallel()

	help := testSchema().FormatHelp()
	assert.Contains(t, help, "Global Options:\n")
	assert.Contains(t, help, "one of: low|high, default: low")
	assert.Contains(t, help, "type: int, default: 3, env: REACTREE_TEST_COUNT")
	assert.Contains(t, help, "\n[box] Options:\n")
	assert.Empty(t, NewSchema().FormatHelp())
}

func TestDefaultSchema(t *testing.T) {
	t.Parallel()

	s := DefaultSchema()
	for _, key := range []string{KeyLogLevel, KeyLogFile, KeyLogFormat, KeyLogMaxSizeMB, KeyLogMaxFiles, KeyColor, KeyTickInterval, KeyTickMax, KeyMetricsAddr, KeyScriptTimeout, KeyExprCacheSize} {
		opt := s.Lookup("", key)
		require.NotNil(t, opt, key)
		require.NotEmpty(t, opt.Description, key)
		if opt.Default != "" {
			require.NoError(t, opt.Check(opt.Default), key)
		}
	}
	for _, key := range []string{KeyAgents, KeyView, KeyExportTo} {
		require.NotNil(t, s.Lookup(SectionRun, key), key)
	}
	assert.Equal(t, "REACTREE_LOG_LEVEL", s.Lookup("", KeyLogLevel).EnvVar)
	assert.Equal(t, "100ms", s.Lookup("", KeyTickInterval).Default)
}
