// Package pagination provides exact-count discovery and paged retrieval of
// remote collections, and bounded-concurrency batch fetching.
//
// The upstream collection API does not report a total. CollectionFetcher
// finds the exact size by binary search with single-item probes, then
// walks the collection sequentially in pages of up to 100 items:
//
//	fetcher := pagination.NewCollectionFetcher(apiClient, pagination.DefaultConfig())
//	items, err := fetcher.FetchCollection(ctx, championshipID)
//
// BatchFetch runs a fetch function over a list of keys in chunks, keeping
// at most Concurrency calls in flight and returning results in key order:
//
//	stats, err := pagination.BatchFetch(ctx, matchIDs, fetchStats, pagination.BatchConfig{
//		Concurrency: 5,
//		OnProgress:  func(done, total int) { ... },
//	})
package pagination
