// Package ingest runs a full ingestion: it fetches every requested
// championship collection, optionally fetches per-match statistics, and
// builds the index.
//
// A collection that fails hard does not abort its siblings. Each
// collection ends with an explicit outcome (success, empty or failed) and
// failed collections are listed in the index metadata, so a partial index
// is never presented as complete.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/champ-index/pkg/index"
	"github.com/Sternrassler/champ-index/pkg/model"
	"github.com/Sternrassler/champ-index/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	collectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "champ_ingest_collections_total",
		Help: "Collections ingested by outcome (success, empty, failed)",
	}, []string{"outcome"})

	statsFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "champ_ingest_stats_failures_total",
		Help: "Match statistics fetches that failed and were skipped",
	})

	undecodableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "champ_ingest_undecodable_items_total",
		Help: "Collection items that could not be decoded as matches",
	})
)

// Outcome is the result of ingesting one collection.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailed  Outcome = "failed"
)

// Source is the upstream API as seen by the ingester.
type Source interface {
	pagination.PageSource
	FetchMatchStats(ctx context.Context, matchID string) (*model.MatchStatsRecord, error)
}

// CollectionResult describes one collection of a run.
type CollectionResult struct {
	CollectionID string  `json:"collection_id"`
	Outcome      Outcome `json:"outcome"`
	Items        int     `json:"items"`
	Undecodable  int     `json:"undecodable,omitempty"`
	Error        string  `json:"error,omitempty"`

	matches []model.MatchRecord
}

// Report summarizes a run.
type Report struct {
	Collections    []CollectionResult `json:"collections"`
	StatsRequested int                `json:"stats_requested"`
	StatsFetched   int                `json:"stats_fetched"`
	StatsFailed    int                `json:"stats_failed"`
	Build          index.Report       `json:"-"`
	Duration       time.Duration      `json:"duration"`
}

// Dropped returns the identifiers of failed collections in request order.
func (r Report) Dropped() []string {
	var out []string
	for _, c := range r.Collections {
		if c.Outcome == OutcomeFailed {
			out = append(out, c.CollectionID)
		}
	}
	return out
}

// Count returns the number of collections with outcome o.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, c := range r.Collections {
		if c.Outcome == o {
			n++
		}
	}
	return n
}

// Config holds ingester configuration.
type Config struct {
	Pagination pagination.Config

	// Concurrency bounds both parallel collections and parallel stats fetches.
	Concurrency int

	// FetchStats enables the per-match statistics pass.
	FetchStats bool

	// OnStatsProgress is called after each chunk of statistics fetches.
	OnStatsProgress pagination.ProgressFunc
}

// DefaultConfig returns the default ingester configuration.
func DefaultConfig() Config {
	return Config{
		Pagination:  pagination.DefaultConfig(),
		Concurrency: pagination.DefaultConcurrency,
		FetchStats:  true,
	}
}

// Ingester runs ingestions against one upstream source.
type Ingester struct {
	source  Source
	fetcher *pagination.CollectionFetcher
	config  Config
	logger  zerolog.Logger
}

// New creates an ingester.
func New(source Source, config Config, logger zerolog.Logger) *Ingester {
	if config.Concurrency <= 0 {
		config.Concurrency = pagination.DefaultConcurrency
	}
	return &Ingester{
		source:  source,
		fetcher: pagination.NewCollectionFetcher(source, config.Pagination),
		config:  config,
		logger:  logger,
	}
}

// Run ingests the given collections and builds an index. Duplicate
// collection identifiers are fetched once. Only context cancellation
// makes Run fail; upstream failures are reported per collection and per
// match in the Report.
func (in *Ingester) Run(ctx context.Context, collectionIDs []string) (*model.Index, Report, error) {
	start := time.Now()
	ids := model.NewIDSet(collectionIDs...).Values()

	results, err := pagination.BatchFetch(ctx, ids, in.fetchCollection, pagination.BatchConfig{
		Concurrency: in.config.Concurrency,
	})
	if err != nil {
		return nil, Report{}, fmt.Errorf("ingest collections: %w", err)
	}

	report := Report{Collections: make([]CollectionResult, 0, len(results))}
	var matches []model.MatchRecord
	for _, r := range results {
		collectionsTotal.WithLabelValues(string(r.Outcome)).Inc()
		matches = append(matches, r.matches...)
		report.Collections = append(report.Collections, r)
	}

	var stats []model.MatchStatsRecord
	if in.config.FetchStats && len(matches) > 0 {
		stats, err = in.fetchStats(ctx, matches, &report)
		if err != nil {
			return nil, Report{}, err
		}
	}

	idx, buildReport := index.NewBuilder(in.logger).Build(matches, stats)
	idx.Metadata.DroppedCollections = report.Dropped()
	report.Build = buildReport
	report.Duration = time.Since(start)

	event := in.logger.Info()
	if !idx.Metadata.Complete() {
		event = in.logger.Warn().Strs("dropped_collections", idx.Metadata.DroppedCollections)
	}
	event.
		Int("collections", len(ids)).
		Int("succeeded", report.Count(OutcomeSuccess)).
		Int("empty", report.Count(OutcomeEmpty)).
		Int("failed", report.Count(OutcomeFailed)).
		Int("matches", idx.Metadata.TotalMatches).
		Int("stats_failed", report.StatsFailed).
		Dur("duration", report.Duration).
		Msg("Ingestion complete")

	return idx, report, nil
}

// RestoreStats fetches the per-round statistics of every match in idx and
// attaches them, clearing StatsOmitted. It is meant for indexes restored
// from a compressed export. Entities are left as they are; failed fetches
// are counted in the report. Only context cancellation makes it fail.
func (in *Ingester) RestoreStats(ctx context.Context, idx *model.Index) (Report, error) {
	start := time.Now()
	var report Report

	stats, err := in.fetchStats(ctx, idx.Matches, &report)
	if err != nil {
		return Report{}, err
	}

	if idx.MatchStats == nil {
		idx.MatchStats = make(map[string]model.MatchStatsRecord, len(stats))
	}
	for _, s := range stats {
		idx.MatchStats[s.MatchID] = s
	}
	idx.StatsOmitted = false
	report.Duration = time.Since(start)

	in.logger.Info().
		Int("requested", report.StatsRequested).
		Int("fetched", report.StatsFetched).
		Int("stats_failed", report.StatsFailed).
		Dur("duration", report.Duration).
		Msg("Match stats restored")
	return report, nil
}

// fetchCollection never fails for upstream errors; it records them in the
// result so sibling collections keep going.
func (in *Ingester) fetchCollection(ctx context.Context, collectionID string) (CollectionResult, error) {
	result := CollectionResult{CollectionID: collectionID}

	items, err := in.fetcher.FetchCollection(ctx, collectionID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		in.logger.Warn().
			Err(err).
			Str("collection_id", collectionID).
			Msg("Collection failed - continuing with remaining collections")
		result.Outcome = OutcomeFailed
		result.Error = err.Error()
		return result, nil
	}

	result.Items = len(items)
	for i, raw := range items {
		var m model.MatchRecord
		if err := json.Unmarshal(raw, &m); err != nil {
			result.Undecodable++
			undecodableTotal.Inc()
			in.logger.Warn().
				Err(err).
				Str("collection_id", collectionID).
				Int("offset", i).
				Msg("Skipping undecodable item")
			continue
		}
		result.matches = append(result.matches, m)
	}

	result.Outcome = OutcomeSuccess
	if len(items) == 0 {
		result.Outcome = OutcomeEmpty
	}
	return result, nil
}

func (in *Ingester) fetchStats(ctx context.Context, matches []model.MatchRecord, report *Report) ([]model.MatchStatsRecord, error) {
	matchIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.MatchID != "" {
			matchIDs = append(matchIDs, m.MatchID)
		}
	}
	matchIDs = model.NewIDSet(matchIDs...).Values()
	report.StatsRequested = len(matchIDs)

	fetched, err := pagination.BatchFetch(ctx, matchIDs, func(ctx context.Context, matchID string) (*model.MatchStatsRecord, error) {
		stats, err := in.source.FetchMatchStats(ctx, matchID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			statsFailuresTotal.Inc()
			in.logger.Warn().
				Err(err).
				Str("match_id", matchID).
				Msg("Match stats unavailable - skipping")
			return nil, nil
		}
		return stats, nil
	}, pagination.BatchConfig{
		Concurrency: in.config.Concurrency,
		OnProgress:  in.statsProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest match stats: %w", err)
	}

	out := make([]model.MatchStatsRecord, 0, len(fetched))
	for _, s := range fetched {
		if s == nil {
			report.StatsFailed++
			continue
		}
		out = append(out, *s)
	}
	report.StatsFetched = len(out)
	return out, nil
}

func (in *Ingester) statsProgress(completed, total int) {
	in.logger.Debug().
		Int("completed", completed).
		Int("total", total).
		Msg("Match stats progress")
	if in.config.OnStatsProgress != nil {
		in.config.OnStatsProgress(completed, total)
	}
}
