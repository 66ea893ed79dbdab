package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/henrybloomingdale/pubmed-digest/internal/config"
	"github.com/henrybloomingdale/pubmed-digest/internal/eutils"
	"github.com/henrybloomingdale/pubmed-digest/internal/observability"
	"github.com/henrybloomingdale/pubmed-digest/internal/pipeline"
)

func init() {
	f := runCmd.Flags()
	f.Int("max-results", 0, "maximum number of PMIDs to request (default 1500)")
	f.StringP("output", "o", "", "CSV file to write (default pubmed_batch_articles.csv)")
	f.String("filter", "", "topical filter in PubMed query syntax")
	f.Duration("lookback", 0, "publication window ending now (default 168h)")
	f.Bool("group-filter", false, "apply the date range to the whole filter, not just its last OR term")
	f.String("api-key", "", "NCBI API key (or NCBI_API_KEY env)")
	f.String("pacing", "", "detail request pacing: sleep, rate or none")
	f.String("metrics-file", "", "write Prometheus text metrics to this file after the run")
	f.String("log-level", "", "log level: trace, debug, info, warn, error")

	for flag, key := range map[string]string{
		"max-results":  "search.max_results",
		"output":       "output.path",
		"filter":       "search.filter",
		"lookback":     "search.lookback",
		"group-filter": "search.group_filter",
		"api-key":      "ncbi.api_key",
		"pacing":       "pacing.mode",
		"metrics-file": "metrics.file",
		"log-level":    "logging.level",
	} {
		_ = v.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search, fetch and write the digest",
	Long: `Runs the digest once: one ESearch for the configured filter and window,
one EFetch per PMID (paced, strictly sequential), then the CSV.

Failures for individual PMIDs are logged and counted but never stop the run.
The command exits non-zero when no records were retained.

Examples:
  pubmed-digest run
  pubmed-digest run --lookback 72h -o digest.csv
  pubmed-digest run --filter '"SGLT2"[Abstract] OR "GLP-1"[Abstract]' --group-filter`,
	Args: cobra.NoArgs,
	RunE: runDigest,
}

func runDigest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	summary, err := runOnce(cmd.Context(), cfg, observability.NewLogger(cfg.Logging))
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), summary)

	if err := summary.Err(); err != nil {
		return &exitError{err: err}
	}
	return nil
}

// runOnce executes one digest run with fresh metrics. Every log event of the
// run carries a run_id.
func runOnce(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (pipeline.Summary, error) {
	logger = logger.With().Str("run_id", uuid.New().String()).Logger()
	metrics := observability.NewMetrics()

	client := newEutilsClient(cfg, metrics)
	runner := &pipeline.Runner{
		Searcher: client,
		Fetcher:  client,
		Pacer:    newPacer(cfg.Pacing),
		Breaker:  pipeline.NewBreaker(cfg.Breaker, logger),
		Logger:   logger,
		Metrics:  metrics,
	}

	summary, err := runner.Run(ctx, pipeline.OptionsFromConfig(cfg))
	if err != nil {
		return summary, err
	}

	if cfg.Metrics.File != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.File); err != nil {
			logger.Error().Err(err).Str("path", cfg.Metrics.File).Msg("writing metrics failed")
		}
	}
	return summary, nil
}

func newEutilsClient(cfg *config.Config, metrics *observability.Metrics) *eutils.Client {
	return eutils.NewClient(
		eutils.WithBaseURL(cfg.NCBI.BaseURL),
		eutils.WithAPIKey(cfg.NCBI.APIKey),
		eutils.WithTool(cfg.NCBI.Tool),
		eutils.WithEmail(cfg.NCBI.Email),
		eutils.WithTimeout(cfg.NCBI.Timeout),
		eutils.WithRequestObserver(metrics.ObserveRequest),
	)
}

func newPacer(cfg config.PacingConfig) eutils.Pacer {
	switch strings.ToLower(cfg.Mode) {
	case config.PacingRate:
		return eutils.NewRatePacer(cfg.Interval)
	case config.PacingNone:
		return eutils.NoPacer{}
	default:
		return eutils.SleepPacer{Interval: cfg.Interval}
	}
}

func printSummary(w io.Writer, s pipeline.Summary) {
	if s.Retained > 0 {
		fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✓ %d article(s) saved to %s", s.Retained, s.OutputPath)))
	} else {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("⚠ no articles retained; wrote header only to %s", s.OutputPath)))
	}
	if s.SearchErr != nil {
		fmt.Fprintln(w, warnStyle.Render("  search failed: "+s.SearchErr.Error()))
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("  %d PMID(s) found, %d skipped", s.Requested, s.TotalSkipped())))
	for _, k := range s.Kinds() {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("    %-13s %d", k, s.Skipped[k])))
	}
}
