// Package django prepares a Django environment for test discovery and runs
// Django test suites through manage.py.
package django

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/specvital/unittest-adapter/pkg/environ"
	"github.com/specvital/unittest-adapter/pkg/python"
	"github.com/specvital/unittest-adapter/pkg/settings"
)

const (
	importCheckScript = "import django"
	setupScript       = "import django; django.setup()"
)

// Status is the outcome kind of a setup attempt.
type Status int

const (
	// StatusConfigured means django.setup() completed.
	StatusConfigured Status = iota
	// StatusNotInstalled means the interpreter cannot import django.
	StatusNotInstalled
	// StatusNoSettings means no settings module could be found.
	StatusNoSettings
	// StatusSetupFailed means django.setup() raised.
	StatusSetupFailed
)

func (s Status) String() string {
	switch s {
	case StatusConfigured:
		return "configured"
	case StatusNotInstalled:
		return "not-installed"
	case StatusNoSettings:
		return "no-settings"
	case StatusSetupFailed:
		return "setup-failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// SettingsSource records where the settings module came from.
type SettingsSource string

const (
	SourceNone        SettingsSource = ""
	SourceEnvironment SettingsSource = "environment"
	SourceExplicit    SettingsSource = "explicit"
	SourceManagePy    SettingsSource = "manage.py"
)

// Options selects the project to set up.
type Options struct {
	// Settings is an explicitly supplied settings module.
	Settings string
	// ManagePy is an explicit manage.py path; it overrides MANAGE_PY_PATH.
	ManagePy string
	// StartDir is the project root searched for manage.py.
	StartDir string
	// WorkDir is made importable; empty means the current directory.
	WorkDir string
}

// Setup is the result of Initializer.Setup. Failures are values, never errors
// returned to the caller.
type Setup struct {
	Status   Status
	Settings string
	Source   SettingsSource
	// ManagePy is the entry-point file consulted, if any.
	ManagePy string
	Err      error
}

// OK reports whether Django was configured.
func (s Setup) OK() bool {
	return s.Status == StatusConfigured
}

// Initializer configures the Django runtime of a project's interpreter.
type Initializer struct {
	python python.Executor
	logger zerolog.Logger
}

// NewInitializer creates an Initializer running its checks through py.
func NewInitializer(py python.Executor, logger zerolog.Logger) *Initializer {
	return &Initializer{python: py, logger: logger}
}

// Setup makes the working directory importable, resolves the settings module
// and runs django.setup() in a child interpreter.
//
// The settings module is taken from, in order: DJANGO_SETTINGS_MODULE in env,
// opts.Settings, the manage.py file. It is written to env with SetDefault, so
// a value already present is kept.
func (i *Initializer) Setup(ctx context.Context, env *environ.Env, opts Options) Setup {
	workDir := opts.WorkDir
	if workDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workDir = wd
		}
	}
	env.PrependPath(environ.PythonPath, workDir)

	if err := i.run(ctx, env, workDir, importCheckScript); err != nil {
		i.logger.Debug().Err(err).Msg("django is not importable")
		return Setup{Status: StatusNotInstalled, Err: err}
	}

	result := i.resolveSettings(env, opts)
	if result.Settings == "" {
		i.logger.Warn().Str("manage_py", result.ManagePy).Msg("django settings module not found")
		result.Status = StatusNoSettings
		return result
	}

	env.SetDefault(environ.DjangoSettingsModule, result.Settings)

	if err := i.run(ctx, env, workDir, setupScript); err != nil {
		i.logger.Warn().Err(err).Str("settings", result.Settings).Msg("django setup failed")
		result.Status = StatusSetupFailed
		result.Err = err
		return result
	}

	i.logger.Info().
		Str("settings", result.Settings).
		Str("source", string(result.Source)).
		Msg("django configured")
	result.Status = StatusConfigured
	return result
}

func (i *Initializer) resolveSettings(env *environ.Env, opts Options) Setup {
	if v, ok := env.Lookup(environ.DjangoSettingsModule); ok && v != "" {
		return Setup{Settings: v, Source: SourceEnvironment}
	}
	if opts.Settings != "" {
		return Setup{Settings: opts.Settings, Source: SourceExplicit}
	}

	i.logger.Warn().Msg("missing django settings module in environment, reading from manage.py")

	managePy := ManagePyPath(env, opts.ManagePy, opts.StartDir)
	if module, ok := settings.Resolve(managePy); ok {
		return Setup{Settings: module, Source: SourceManagePy, ManagePy: managePy}
	}
	return Setup{ManagePy: managePy}
}

func (i *Initializer) run(ctx context.Context, env *environ.Env, dir, script string) error {
	var stderr bytes.Buffer
	err := i.python.Exec(ctx, python.Invocation{
		Args:   []string{"-c", script},
		Dir:    dir,
		Env:    env.Environ(),
		Stderr: &stderr,
	})
	if err != nil {
		if msg := lastLine(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// ManagePyPath picks the entry-point file: explicit path, then MANAGE_PY_PATH,
// then manage.py under startDir.
func ManagePyPath(env *environ.Env, explicit, startDir string) string {
	if explicit != "" {
		return explicit
	}
	if v := env.Get(environ.ManagePyPath); v != "" {
		return v
	}
	if abs, err := filepath.Abs(startDir); err == nil {
		startDir = abs
	}
	return filepath.Join(startDir, settings.ManagePy)
}

// lastLine returns the final non-empty line of a traceback, which carries the
// exception type and message.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
