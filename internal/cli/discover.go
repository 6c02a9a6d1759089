package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/specvital/unittest-adapter/internal/config"
	"github.com/specvital/unittest-adapter/pkg/discovery"
	"github.com/specvital/unittest-adapter/pkg/django"
	"github.com/specvital/unittest-adapter/pkg/report"
)

// DiscoverCommand handles the discover command.
type DiscoverCommand struct {
	app   *App
	flags *config.Flags
}

// Execute runs discovery and writes the report to stdout. Discovery failures
// are reported in the output, so only a failed write returns an error.
func (dc *DiscoverCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := config.ForDiscover(args, *dc.flags, dc.app.Env)
	if err != nil {
		return dc.writeFailure(config.FormatProtocol, err, nil)
	}

	logger := newLogger(dc.app.Stderr, cfg.LogLevel)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var summary *report.Django
	if cfg.DjangoEnabled {
		summary = dc.setupDjango(ctx, cfg, logger)
		if cfg.Format == config.FormatProtocol {
			// The protocol output has no place for the setup result.
			event := logger.Info()
			if summary.Error != "" {
				event = logger.Warn().Str("error", summary.Error)
			}
			event.
				Str("status", summary.Status).
				Str("settings", summary.Settings).
				Str("source", summary.Source).
				Msg("django setup finished; status is reported only with --format json")
		}
	}

	result, err := discovery.Discover(ctx, cfg.StartDir, cfg.Pattern,
		discovery.WithTopLevelDir(cfg.TopLevelDir),
		discovery.WithWorkers(cfg.Workers),
		discovery.WithExcludePatterns(cfg.Exclude),
		discovery.WithExtraBases(cfg.ExtraBases),
		discovery.WithLogger(logger),
	)
	if err != nil {
		logger.Error().Err(err).Msg("discovery failed")
		return dc.writeFailure(cfg.Format, err, summary)
	}

	logger.Info().
		Int("tests", result.Inventory.CountTests()).
		Int("loader_errors", len(result.Inventory.LoaderErrors)).
		Int("modules", result.Stats.ModulesFound).
		Dur("duration", result.Stats.Duration).
		Msg("discovery complete")

	if cfg.Format == config.FormatJSON {
		return report.WriteJSON(dc.app.Stdout, result.Inventory, summary)
	}
	return report.WriteProtocol(dc.app.Stdout, result.Inventory)
}

func (dc *DiscoverCommand) setupDjango(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *report.Django {
	py := dc.app.Python(cfg.Python, dc.app.Env)
	setup := django.NewInitializer(py, logger).Setup(ctx, dc.app.Env, django.Options{
		Settings: cfg.Settings,
		ManagePy: cfg.ManagePy,
		StartDir: cfg.StartDir,
	})
	return djangoSummary(setup)
}

func (dc *DiscoverCommand) writeFailure(format config.Format, err error, summary *report.Django) error {
	if format == config.FormatJSON {
		return report.WriteJSONFailure(dc.app.Stdout, err, summary)
	}
	return report.WriteFailure(dc.app.Stdout, err)
}

func djangoSummary(setup django.Setup) *report.Django {
	summary := &report.Django{
		Enabled:  true,
		Status:   setup.Status.String(),
		Settings: setup.Settings,
		Source:   string(setup.Source),
	}
	if setup.Err != nil {
		summary.Error = setup.Err.Error()
	}
	return summary
}
