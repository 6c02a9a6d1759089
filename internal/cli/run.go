package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/specvital/unittest-adapter/internal/config"
	"github.com/specvital/unittest-adapter/pkg/django"
)

// RunCommand handles the run command.
type RunCommand struct {
	app   *App
	flags *config.Flags
}

// Execute sets up Django and runs manage.py test. A failed run is returned
// so the process exits non-zero.
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := config.ForRun(args, *rc.flags, rc.app.Env)
	if err != nil {
		return err
	}

	logger := newLogger(rc.app.Stderr, cfg.LogLevel)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	py := rc.app.Python(cfg.Python, rc.app.Env)

	managePy := cfg.ManagePyFor(rc.app.Env)
	setup := django.NewInitializer(py, logger).Setup(ctx, rc.app.Env, django.Options{
		Settings: cfg.Settings,
		ManagePy: managePy,
		StartDir: cfg.StartDir,
	})
	if !setup.OK() {
		logger.Warn().Str("status", setup.Status.String()).Msg("continuing without django setup")
	}

	return django.NewRunner(py, logger).Run(ctx, rc.app.Env, django.RunOptions{
		ManagePy:   managePy,
		TestRunner: cfg.TestRunner,
		RunnerPath: cfg.RunnerPath,
		Labels:     cfg.Labels,
		Stdout:     rc.app.Stdout,
		Stderr:     rc.app.Stderr,
	})
}
