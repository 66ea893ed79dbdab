package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/henrybloomingdale/pubmed-digest/internal/config"
	"github.com/henrybloomingdale/pubmed-digest/internal/observability"
)

func init() {
	f := scheduleCmd.Flags()
	f.String("cron", "", `cron expression for recurring runs (default "0 6 * * 1")`)
	f.String("timezone", "", "IANA timezone the expression is evaluated in (default UTC)")
	_ = v.BindPFlag("schedule.cron", f.Lookup("cron"))
	_ = v.BindPFlag("schedule.timezone", f.Lookup("timezone"))

	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the digest on a cron schedule",
	Long: `Stays in the foreground and runs the digest every time the cron
expression fires, overwriting the output file each run. A run that is still
in progress when the next one is due causes that tick to be skipped.

Stops on SIGINT or SIGTERM after the current run finishes its in-flight request.

Examples:
  pubmed-digest schedule
  pubmed-digest schedule --cron "0 7 * * *" --timezone Europe/Berlin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := observability.NewLogger(cfg.Logging)

		c, err := newScheduler(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		c.Start()
		logger.Info().
			Str("schedule", cfg.Schedule.Cron).
			Str("timezone", cfg.Schedule.Timezone).
			Msg("scheduler started")

		<-cmd.Context().Done()
		// Wait for a running digest to return.
		<-c.Stop().Done()
		logger.Info().Msg("scheduler stopped")
		return nil
	},
}

// newScheduler registers the digest job on a cron in the configured zone.
func newScheduler(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Schedule.Timezone, err)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithParser(config.CronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(cfg.Schedule.Cron, func() { scheduledRun(ctx, cfg, logger) }); err != nil {
		return nil, fmt.Errorf("failed to add cron job: %w", err)
	}
	return c, nil
}

func scheduledRun(ctx context.Context, cfg *config.Config, logger zerolog.Logger) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	summary, err := runOnce(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("scheduled run failed")
		return
	}
	ev := logger.Info()
	if summary.Err() != nil {
		ev = logger.Warn()
	}
	ev.Int("retained", summary.Retained).
		Dur("elapsed", time.Since(start)).
		Msg("scheduled run finished")
}
