// Package config assembles the adapter configuration from positional
// arguments, command-line flags and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/specvital/unittest-adapter/pkg/environ"
)

// Format selects the discovery output format.
type Format string

const (
	FormatProtocol Format = "protocol"
	FormatJSON     Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatProtocol, "":
		return FormatProtocol, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want %q or %q)", s, FormatProtocol, FormatJSON)
	}
}

// Config holds all configuration for one adapter invocation.
type Config struct {
	// Discovery settings
	StartDir    string
	Pattern     string
	TopLevelDir string
	Workers     int
	ExtraBases  []string
	Exclude     []string
	Format      Format

	// Django settings
	DjangoEnabled bool
	ManagePy      string
	Settings      string

	// Execution settings
	Python     string
	TestRunner string
	RunnerPath string
	Labels     []string

	LogLevel zerolog.Level

	// Command flags
	Flags Flags
}

// Flags holds command-line flags shared by the discover and run commands.
type Flags struct {
	Format     string
	Workers    int
	Settings   string
	BaseClass  []string
	Exclude    []string
	Python     string
	LogLevel   string
	StartDir   string
	ManagePy   string
	TestRunner string
	RunnerPath string
}

// New creates a new Config with defaults.
func New() *Config {
	cfg := &Config{
		StartDir:   DefaultStartDir,
		Pattern:    DefaultPattern,
		Workers:    DefaultWorkers,
		Format:     DefaultFormat,
		TestRunner: DefaultTestRunner,
		LogLevel:   zerolog.WarnLevel,
	}
	cfg.Exclude = make([]string, len(DefaultExcludePatterns))
	copy(cfg.Exclude, DefaultExcludePatterns)
	return cfg
}

// ForDiscover builds the configuration of a discovery run from
//
//	<start_dir> <pattern> [manage_py_path_or_enable_flag] [top_level_dir]
//
// The .env file of the start directory is loaded into env first, without
// overriding variables that are already set.
//
// The third argument enables Django: "true" and "false" toggle it, any other
// non-empty value names the manage.py file (or the directory holding it) and
// enables it. When absent, DJANGO_TEST_ENABLED decides.
func ForDiscover(args []string, flags Flags, env *environ.Env) (*Config, error) {
	if len(args) > 4 {
		return nil, fmt.Errorf("expected at most 4 arguments, got %d", len(args))
	}

	cfg := New()
	cfg.Flags = flags

	if v := arg(args, 0); v != "" {
		cfg.StartDir = v
	}
	if v := arg(args, 1); v != "" {
		cfg.Pattern = v
	}
	cfg.TopLevelDir = arg(args, 3)

	if err := env.LoadDotenv(filepath.Join(cfg.StartDir, DotenvFile)); err != nil {
		return nil, err
	}

	switch third := arg(args, 2); strings.ToLower(third) {
	case "true":
		cfg.DjangoEnabled = true
	case "false":
		cfg.DjangoEnabled = false
	case "":
		cfg.DjangoEnabled = strings.EqualFold(env.Get(environ.DjangoTestEnabled), "true")
	default:
		cfg.DjangoEnabled = true
		cfg.ManagePy = managePyFrom(third)
	}

	if err := cfg.applyFlags(flags); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ForRun builds the configuration of a Django test run. labels restrict the
// run to the given test labels.
func ForRun(labels []string, flags Flags, env *environ.Env) (*Config, error) {
	cfg := New()
	cfg.Flags = flags
	cfg.DjangoEnabled = true
	cfg.Labels = labels

	if flags.StartDir != "" {
		cfg.StartDir = flags.StartDir
	}

	if err := env.LoadDotenv(filepath.Join(cfg.StartDir, DotenvFile)); err != nil {
		return nil, err
	}

	if err := cfg.applyFlags(flags); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFlags(flags Flags) error {
	format, err := ParseFormat(flags.Format)
	if err != nil {
		return err
	}
	c.Format = format

	if flags.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", flags.Workers)
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}

	level := DefaultLogLevel
	if flags.LogLevel != "" {
		level = flags.LogLevel
	}
	c.LogLevel, err = zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	c.Settings = flags.Settings
	c.ExtraBases = append(c.ExtraBases, flags.BaseClass...)
	c.Exclude = append(c.Exclude, flags.Exclude...)
	c.Python = flags.Python

	if flags.ManagePy != "" {
		c.ManagePy = managePyFrom(flags.ManagePy)
	}
	if flags.TestRunner != "" {
		c.TestRunner = flags.TestRunner
	}
	c.RunnerPath = flags.RunnerPath
	return nil
}

// ManagePyFor returns the manage.py file a run uses: the configured one, or
// manage.py under the start directory.
func (c *Config) ManagePyFor(env *environ.Env) string {
	if c.ManagePy != "" {
		return c.ManagePy
	}
	if v := env.Get(environ.ManagePyPath); v != "" {
		return v
	}
	return filepath.Join(c.StartDir, "manage.py")
}

// managePyFrom accepts either a manage.py file or the project directory
// holding it.
func managePyFrom(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Join(path, "manage.py")
	}
	return path
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
