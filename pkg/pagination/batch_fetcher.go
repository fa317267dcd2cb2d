package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var batchItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "champ_batch_items_total",
	Help: "Total items fetched by batch fetches",
})

// DefaultConcurrency is the number of fetches in flight per chunk.
const DefaultConcurrency = 5

// ProgressFunc is called after each chunk with the number of completed
// items and the total.
type ProgressFunc func(completed, total int)

// BatchConfig holds batch fetch configuration.
type BatchConfig struct {
	// Concurrency is the chunk size and the maximum number of fetches in flight.
	Concurrency int

	// OnProgress is optional.
	OnProgress ProgressFunc
}

// BatchFetch calls fetch for every item and returns the results in item
// order. Items are processed in consecutive chunks of Concurrency: every
// member of a chunk runs concurrently and the next chunk starts only after
// the whole chunk finished, so at most Concurrency fetches are in flight.
//
// The first fetch error aborts the call; the context passed to the other
// members of the failing chunk is cancelled. Callers that tolerate
// per-item failure should return a sentinel from fetch instead.
func BatchFetch[K any, R any](ctx context.Context, items []K, fetch func(ctx context.Context, item K) (R, error), config BatchConfig) ([]R, error) {
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	start := time.Now()
	total := len(items)
	results := make([]R, total)

	for chunkStart := 0; chunkStart < total; chunkStart += concurrency {
		chunkEnd := chunkStart + concurrency
		if chunkEnd > total {
			chunkEnd = total
		}

		g, gCtx := errgroup.WithContext(ctx)
		for i := chunkStart; i < chunkEnd; i++ {
			g.Go(func() error {
				r, err := fetch(gCtx, items[i])
				if err != nil {
					return fmt.Errorf("batch item %d: %w", i, err)
				}
				results[i] = r
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			log.Warn().
				Err(err).
				Int("completed", chunkStart).
				Int("total", total).
				Msg("Batch fetch aborted")
			return nil, err
		}

		batchItemsTotal.Add(float64(chunkEnd - chunkStart))
		if config.OnProgress != nil {
			config.OnProgress(chunkEnd, total)
		}
	}

	log.Debug().
		Int("items", total).
		Int("concurrency", concurrency).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}
