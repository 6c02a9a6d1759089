// Package cli wires the adapter commands to cobra.
package cli

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/specvital/unittest-adapter/internal/config"
	"github.com/specvital/unittest-adapter/pkg/environ"
	"github.com/specvital/unittest-adapter/pkg/python"
)

// App holds the process-level dependencies of the commands.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	Env    *environ.Env
	// Python returns the interpreter for a --python value.
	Python func(path string, env *environ.Env) python.Executor
}

// NewApp returns an App bound to the real process.
func NewApp() *App {
	return &App{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Env:    environ.FromOS(),
		Python: func(path string, env *environ.Env) python.Executor {
			return python.New(path, env)
		},
	}
}

// NewRootCommand creates the root command with all subcommands registered.
func NewRootCommand(app *App, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "unittest-adapter",
		Short:   "Discover and run Python unittest and Django tests for an editor",
		Long:    `Discovers Python unittest test cases without importing them and reports them in a line protocol read by the editor. Django projects can be set up for discovery and run through manage.py test.`,
		Version: version,

		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.SetOut(app.Stdout)
	rootCmd.SetErr(app.Stderr)

	var flags config.Flags
	rootCmd.PersistentFlags().StringVar(&flags.Python, "python", "", "Python interpreter (default $PYTHON or python3)")
	rootCmd.PersistentFlags().StringVar(&flags.Settings, "settings", "", "Django settings module")
	rootCmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", config.DefaultLogLevel, "Log level written to stderr (debug, info, warn, error)")

	discover := &DiscoverCommand{app: app, flags: &flags}
	discoverCmd := &cobra.Command{
		Use:   "discover <start_dir> <pattern> [manage_py_path_or_enable_flag] [top_level_dir]",
		Short: "Discover unittest test cases",
		Long:  "Walk the start directory like unittest discovery and print every test case with its source line",
		Args:  cobra.ArbitraryArgs,
		RunE:  discover.Execute,
	}
	discoverCmd.Flags().StringVar(&flags.Format, "format", string(config.DefaultFormat), "Output format (protocol or json)")
	discoverCmd.Flags().IntVarP(&flags.Workers, "workers", "w", config.DefaultWorkers, "Number of modules parsed concurrently")
	discoverCmd.Flags().StringSliceVar(&flags.BaseClass, "base-class", nil, "Additional test case base class (repeatable)")
	discoverCmd.Flags().StringSliceVar(&flags.Exclude, "exclude", nil, "Directory name to skip (repeatable)")
	rootCmd.AddCommand(discoverCmd)

	run := &RunCommand{app: app, flags: &flags}
	runCmd := &cobra.Command{
		Use:   "run [labels...]",
		Short: "Run Django tests through manage.py",
		Long:  "Run manage.py test with the editor test runner and block until it finishes",
		RunE:  run.Execute,
	}
	runCmd.Flags().StringVar(&flags.StartDir, "start-dir", config.DefaultStartDir, "Project root holding manage.py")
	runCmd.Flags().StringVar(&flags.ManagePy, "manage-py", "", "Path to manage.py (default $MANAGE_PY_PATH or <start-dir>/manage.py)")
	runCmd.Flags().StringVar(&flags.TestRunner, "testrunner", config.DefaultTestRunner, "Dotted path of the Django test runner class")
	runCmd.Flags().StringVar(&flags.RunnerPath, "runner-path", "", "Directory added to PYTHONPATH so the test runner imports")
	rootCmd.AddCommand(runCmd)

	return rootCmd
}

// newLogger returns a logger writing to stderr. Standard output carries the
// protocol and never receives log lines.
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
