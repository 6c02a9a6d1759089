package django

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/specvital/unittest-adapter/pkg/environ"
	"github.com/specvital/unittest-adapter/pkg/python"
)

// DefaultTestRunner is the dotted path of the runner class handed to --testrunner.
const DefaultTestRunner = "django_test_runner.CustomTestRunner"

// RunOptions configures a manage.py test run.
type RunOptions struct {
	ManagePy string
	// TestRunner is the dotted path of the test runner class.
	TestRunner string
	// RunnerPath is prepended to PYTHONPATH so TestRunner can be imported.
	RunnerPath string
	// Labels restrict the run to the given test labels.
	Labels []string
	Stdout io.Writer
	Stderr io.Writer
}

// ExecutionError reports a failed manage.py test run.
type ExecutionError struct {
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("error running 'manage.py test': %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Runner executes Django test suites.
type Runner struct {
	python python.Executor
	logger zerolog.Logger
}

// NewRunner creates a Runner executing through py.
func NewRunner(py python.Executor, logger zerolog.Logger) *Runner {
	return &Runner{python: py, logger: logger}
}

// Run executes `manage.py test --testrunner <runner> [labels...]` in the
// directory of manage.py and blocks until it exits. Any failure, including a
// non-zero exit, is returned as *ExecutionError.
func (r *Runner) Run(ctx context.Context, env *environ.Env, opts RunOptions) error {
	testRunner := opts.TestRunner
	if testRunner == "" {
		testRunner = DefaultTestRunner
	}

	managePy, err := filepath.Abs(opts.ManagePy)
	if err != nil {
		return &ExecutionError{Command: opts.ManagePy, Err: err}
	}

	if opts.RunnerPath != "" {
		env.PrependPath(environ.PythonPath, opts.RunnerPath)
	}

	args := append([]string{managePy, "test", "--testrunner", testRunner}, opts.Labels...)
	inv := python.Invocation{
		Args:   args,
		Dir:    filepath.Dir(managePy),
		Env:    env.Environ(),
		Stdout: writerOr(opts.Stdout, os.Stdout),
		Stderr: writerOr(opts.Stderr, os.Stderr),
	}
	command := r.python.Command(inv)

	r.logger.Info().Str("command", command).Msg("running django tests")

	if _, err := os.Stat(managePy); err != nil {
		return &ExecutionError{Command: command, Err: err}
	}

	if err := r.python.Exec(ctx, inv); err != nil {
		r.logger.Error().Err(err).Msg("manage.py test failed")
		return &ExecutionError{Command: command, Err: err}
	}
	return nil
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
