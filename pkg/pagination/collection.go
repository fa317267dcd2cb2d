package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/champ-index/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "champ_collection_probes_total",
		Help: "Total count-discovery probes by result (hit, miss, error)",
	}, []string{"result"})

	pagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "champ_collection_pages_total",
		Help: "Total collection pages retrieved",
	})
)

const (
	// MaxPageSize is the largest page the upstream API serves.
	MaxPageSize = 100

	// DefaultUpperBound is the largest collection size the probe can discover.
	DefaultUpperBound = 10000
)

// PageSource is the interface the upstream client must implement for
// offset/limit retrieval of a collection.
type PageSource interface {
	// FetchItems fetches up to limit items starting at offset, in server order.
	FetchItems(ctx context.Context, collectionID string, offset, limit int) ([]json.RawMessage, error)
}

// Config holds collection fetcher configuration.
type Config struct {
	// PageSize is the number of items per page request (1..MaxPageSize).
	PageSize int

	// UpperBound is the largest offset domain searched by the count probe.
	UpperBound int
}

// DefaultConfig returns the default collection fetcher configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:   MaxPageSize,
		UpperBound: DefaultUpperBound,
	}
}

// CollectionFetcher discovers the exact size of a collection and
// retrieves it page by page.
type CollectionFetcher struct {
	source PageSource
	config Config
	logger zerolog.Logger
}

// NewCollectionFetcher creates a new collection fetcher.
func NewCollectionFetcher(source PageSource, config Config) *CollectionFetcher {
	if config.PageSize <= 0 || config.PageSize > MaxPageSize {
		config.PageSize = MaxPageSize
	}
	if config.UpperBound <= 0 {
		config.UpperBound = DefaultUpperBound
	}

	return &CollectionFetcher{
		source: source,
		config: config,
		logger: log.With().Str("component", "collection-fetcher").Logger(),
	}
}

// CountItems returns the exact number of items in a collection by binary
// search over [0, UpperBound]. Each probe requests one item at a candidate
// offset: an item proves the collection extends past it, while an empty
// page, a 400 or any other failure counts as "nothing here". Probe
// failures never abort the search; only context cancellation does.
//
// The search assumes the collection has no holes.
func (f *CollectionFetcher) CountItems(ctx context.Context, collectionID string) (int, error) {
	lo, hi := 0, f.config.UpperBound
	probes := 0

	// Invariant: the count lies in [lo, hi].
	for lo < hi {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		mid := lo + (hi-lo+1)/2
		probes++
		if f.probe(ctx, collectionID, mid-1) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	f.logger.Debug().
		Str("collection_id", collectionID).
		Int("count", lo).
		Int("probes", probes).
		Msg("Collection size discovered")

	return lo, nil
}

// probe reports whether an item exists at offset.
func (f *CollectionFetcher) probe(ctx context.Context, collectionID string, offset int) bool {
	items, err := f.source.FetchItems(ctx, collectionID, offset, 1)
	switch {
	case err == nil && len(items) > 0:
		probesTotal.WithLabelValues("hit").Inc()
		return true
	case err == nil:
		probesTotal.WithLabelValues("miss").Inc()
		return false
	case client.IsBadRequest(err):
		probesTotal.WithLabelValues("miss").Inc()
		f.logger.Debug().
			Str("collection_id", collectionID).
			Int("offset", offset).
			Msg("Probe beyond collection end")
		return false
	default:
		probesTotal.WithLabelValues("error").Inc()
		f.logger.Warn().
			Err(err).
			Str("collection_id", collectionID).
			Int("offset", offset).
			Msg("Probe failed - treating offset as absent")
		return false
	}
}

// FetchCollection retrieves every item of a collection in server order.
// The size is discovered first; an empty collection issues no page
// requests. A failed page aborts the call.
func (f *CollectionFetcher) FetchCollection(ctx context.Context, collectionID string) ([]json.RawMessage, error) {
	start := time.Now()

	total, err := f.CountItems(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("count collection %s: %w", collectionID, err)
	}

	if total == 0 {
		f.logger.Info().
			Str("collection_id", collectionID).
			Msg("Collection is empty")
		return []json.RawMessage{}, nil
	}

	f.logger.Info().
		Str("collection_id", collectionID).
		Int("count", total).
		Int("page_size", f.config.PageSize).
		Msg("Starting page retrieval")

	items := make([]json.RawMessage, 0, total)
	for offset := 0; offset < total; offset += f.config.PageSize {
		limit := f.config.PageSize
		if remaining := total - offset; remaining < limit {
			limit = remaining
		}

		page, err := f.source.FetchItems(ctx, collectionID, offset, limit)
		if err != nil {
			f.logger.Warn().
				Err(err).
				Str("collection_id", collectionID).
				Int("offset", offset).
				Int("limit", limit).
				Msg("Page fetch failed")
			return nil, fmt.Errorf("fetch collection %s at offset %d: %w", collectionID, offset, err)
		}
		pagesTotal.Inc()
		items = append(items, page...)

		f.logger.Debug().
			Str("collection_id", collectionID).
			Int("fetched", len(items)).
			Int("total", total).
			Msg("Fetch progress")
	}

	f.logger.Info().
		Str("collection_id", collectionID).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}
