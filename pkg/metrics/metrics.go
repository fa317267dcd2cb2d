// Package metrics provides the Prometheus registry and index gauges for the
// championship index. Component metrics are defined in their respective
// packages (client, ratelimit, pagination, index, ingest, cache,
// middleware) to keep them modular and avoid circular dependencies.
//
// This package also documents every metric the service exports.
package metrics

import (
	"net/http"

	"github.com/Sternrassler/champ-index/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the service.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

var (
	// IndexEntities tracks the size of the served index by kind
	IndexEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "champ_index_entities",
			Help: "Number of entities in the served index",
		},
		[]string{"kind"}, // "teams", "players", "matches", "match_stats", "competitions"
	)

	// IndexDroppedCollections tracks collections missing from the served index
	IndexDroppedCollections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "champ_index_dropped_collections",
			Help: "Collections that failed during the ingestion of the served index",
		},
	)

	// IndexLatestMatch is the unix time of the newest match in the served index
	IndexLatestMatch = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "champ_index_latest_match_timestamp_seconds",
			Help: "Start or finish time of the newest match in the served index",
		},
	)
)

// ObserveIndex publishes the size of idx.
func ObserveIndex(idx *model.Index) {
	md := idx.Metadata
	IndexEntities.WithLabelValues("teams").Set(float64(len(idx.Teams)))
	IndexEntities.WithLabelValues("players").Set(float64(len(idx.Players)))
	IndexEntities.WithLabelValues("matches").Set(float64(len(idx.Matches)))
	IndexEntities.WithLabelValues("match_stats").Set(float64(len(idx.MatchStats)))
	IndexEntities.WithLabelValues("competitions").Set(float64(md.Competitions.Len()))
	IndexDroppedCollections.Set(float64(len(md.DroppedCollections)))
	IndexLatestMatch.Set(float64(md.LatestMatch))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Upstream Metrics (pkg/client):
//   - champ_upstream_requests_total{route, status} (Counter): Requests by route and HTTP status
//   - champ_upstream_request_duration_seconds{route} (Histogram): Request duration by route
//   - champ_upstream_errors_total{class} (Counter): Errors by class (client, bad_request, not_found, rate_limit, server, network, decode)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - champ_upstream_ratelimit_remaining (Gauge): Requests remaining in the upstream window
//   - champ_upstream_ratelimit_waits_total (Counter): Waits for an exhausted window to reset
//
// Collection Metrics (pkg/pagination):
//   - champ_collection_probes_total{result} (Counter): Count probes by result (hit, miss, error)
//   - champ_collection_pages_total (Counter): Pages retrieved
//   - champ_batch_items_total (Counter): Items completed by batch fetches
//
// Ingestion Metrics (pkg/ingest, pkg/index):
//   - champ_ingest_collections_total{outcome} (Counter): Collections by outcome (success, empty, failed)
//   - champ_ingest_stats_failures_total (Counter): Skipped match statistics fetches
//   - champ_ingest_undecodable_items_total (Counter): Items that were not valid matches
//   - champ_index_skipped_records_total{kind} (Counter): Records skipped by the index builder
//
// Cache Metrics (pkg/cache):
//   - champ_cache_hits_total{layer} (Counter): Cache hits by layer (memory, redis)
//   - champ_cache_misses_total{layer} (Counter): Cache misses by layer
//   - champ_cache_entries{cache} (Gauge): Live entries per in-memory cache
//   - champ_cache_written_bytes_total{layer} (Counter): Bytes written
//   - champ_cache_errors_total{operation} (Counter): Cache operation errors
//
// HTTP Metrics (internal/middleware):
//   - champ_http_requests_total{method, status} (Counter): Requests served by method and status
//   - champ_http_request_duration_seconds{method} (Histogram): Request duration by method
//
// Index Metrics (this package):
//   - champ_index_entities{kind} (Gauge): Entities in the served index
//   - champ_index_dropped_collections (Gauge): Failed collections of the served index
//   - champ_index_latest_match_timestamp_seconds (Gauge): Newest match time
//
// Example Prometheus Queries:
//
//   # Search Cache Hit Rate
//   sum(rate(champ_cache_hits_total{layer="memory"}[5m])) /
//   (sum(rate(champ_cache_hits_total{layer="memory"}[5m])) + sum(rate(champ_cache_misses_total{layer="memory"}[5m])))
//
//   # Incomplete Index
//   champ_index_dropped_collections > 0
//
//   # Upstream Error Rate
//   rate(champ_upstream_errors_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(champ_upstream_request_duration_seconds_bucket[5m]))
