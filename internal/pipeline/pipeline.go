// Package pipeline runs the digest: search PubMed, fetch and project each
// PMID, then write the retained records.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/henrybloomingdale/pubmed-digest/internal/config"
	"github.com/henrybloomingdale/pubmed-digest/internal/digest"
	"github.com/henrybloomingdale/pubmed-digest/internal/eutils"
	"github.com/henrybloomingdale/pubmed-digest/internal/observability"
	"github.com/henrybloomingdale/pubmed-digest/internal/output"
)

// Searcher runs an ESearch query.
type Searcher interface {
	Search(ctx context.Context, term string, opts *eutils.SearchOptions) ([]string, error)
}

// Fetcher retrieves the EFetch document of one PMID.
type Fetcher interface {
	FetchRaw(ctx context.Context, pmid string) ([]byte, error)
}

// Options are the run parameters.
type Options struct {
	MaxResults  int
	OutputPath  string
	Filter      string
	Lookback    time.Duration
	GroupFilter bool
}

// OptionsFromConfig extracts run parameters from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxResults:  cfg.Search.MaxResults,
		OutputPath:  cfg.Output.Path,
		Filter:      cfg.Search.Filter,
		Lookback:    cfg.Search.Lookback,
		GroupFilter: cfg.Search.GroupFilter,
	}
}

// Runner wires the stages together.
type Runner struct {
	Searcher Searcher
	Fetcher  Fetcher
	Pacer    eutils.Pacer
	Breaker  *Breaker
	Logger   zerolog.Logger
	Metrics  *observability.Metrics
	Now      func() time.Time
}

// Run executes search, fetch and write in sequence. Individual failures
// never abort the run; the returned error is non-nil only when the output
// file could not be written.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	end := now()
	query := eutils.DigestQuery(opts.Filter, end.Add(-opts.Lookback), end, opts.GroupFilter)

	summary := Summary{Query: query, OutputPath: opts.OutputPath}

	pmids, err := r.search(ctx, query, opts.MaxResults)
	if err != nil {
		summary.SearchErr = err
	}
	summary.Requested = len(pmids)

	records := r.fetchAll(ctx, pmids, &summary)
	summary.Retained = len(records)

	if err := output.WriteRecordsCSV(opts.OutputPath, records); err != nil {
		return summary, fmt.Errorf("writing output: %w", err)
	}

	r.logSummary(summary)
	return summary, nil
}

// search is the failure sink for the search stage: any error is logged and
// returned alongside an empty PMID list.
func (r *Runner) search(ctx context.Context, query string, limit int) ([]string, error) {
	r.Logger.Debug().Str("term", query).Int("retmax", limit).Msg("searching PubMed")

	pmids, err := r.Searcher.Search(ctx, query, &eutils.SearchOptions{Limit: limit})
	if err != nil {
		r.Logger.Error().Err(err).Msg("search failed")
		return nil, err
	}

	r.Logger.Info().Int("pmids", len(pmids)).Msg("search complete")
	return pmids, nil
}

func (r *Runner) fetchAll(ctx context.Context, pmids []string, summary *Summary) []digest.Record {
	records := make([]digest.Record, 0, len(pmids))

	for i, pmid := range pmids {
		if err := r.wait(ctx); err != nil {
			r.Logger.Warn().Err(err).Int("remaining", len(pmids)-i).Msg("fetch stage cancelled")
			summary.skip(KindCancelled, len(pmids)-i)
			r.countSkipped(KindCancelled, len(pmids)-i)
			break
		}

		out := r.FetchOne(ctx, pmid)
		if !out.OK() {
			summary.skip(out.Kind, 1)
			r.countSkipped(out.Kind, 1)
			continue
		}

		records = append(records, out.Record)
		if r.Metrics != nil {
			r.Metrics.RecordsRetained.Inc()
		}
	}

	return records
}

func (r *Runner) wait(ctx context.Context) error {
	if r.Pacer == nil {
		return ctx.Err()
	}
	return r.Pacer.Wait(ctx)
}

// FetchOne fetches and projects a single PMID.
func (r *Runner) FetchOne(ctx context.Context, pmid string) Outcome {
	logger := observability.WithPMID(r.Logger, pmid)

	body, err := r.Breaker.Do(func() ([]byte, error) {
		return r.Fetcher.FetchRaw(ctx, pmid)
	})
	if err == nil {
		var rec digest.Record
		rec, err = digest.Extract(pmid, body)
		if err == nil {
			logger.Debug().Msg("record retained")
			return Outcome{PMID: pmid, Record: rec}
		}
	}

	kind := Classify(ctx, err)
	switch kind {
	case KindExcluded:
		logger.Debug().Err(err).Msg("article excluded by publication type")
	default:
		logger.Warn().Err(err).Str("kind", string(kind)).Msg("skipping PMID")
	}
	return Outcome{PMID: pmid, Kind: kind, Err: err}
}

func (r *Runner) countSkipped(kind FailureKind, n int) {
	if r.Metrics != nil {
		r.Metrics.Skipped.WithLabelValues(string(kind)).Add(float64(n))
	}
}

func (r *Runner) logSummary(s Summary) {
	ev := r.Logger.Info().
		Str("output", s.OutputPath).
		Int("requested", s.Requested).
		Int("retained", s.Retained).
		Int("skipped", s.TotalSkipped())
	for _, k := range s.Kinds() {
		ev = ev.Int("skipped_"+string(k), s.Skipped[k])
	}
	ev.Msg("digest written")
}
