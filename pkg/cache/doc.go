// Package cache provides the two cache layers of the championship index:
// a Redis-backed entry manager and a time-bounded in-memory cache.
//
// # Redis Manager
//
// Manager stores CacheEntry values as JSON under deterministic keys. The
// Redis expiry is derived from the entry's Expires field; entries with a
// zero Expires are stored without expiry.
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{Namespace: "snapshot", ID: "latest"}
//	if err := manager.Set(ctx, key, cache.NewEntry(data, 24*time.Hour)); err != nil {
//		return err
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// not stored or expired
//	}
//
// # In-Memory TTL Cache
//
// TTL is a generic map with per-entry expiry. Time comes from an injected
// Clock so expiry is testable without sleeping:
//
//	results := cache.NewTTL[string, []Hit]("search", time.Minute, 1000, cache.SystemClock)
//	results.Set(query, hits)
//	hits, ok := results.Get(query)
//
// # Metrics
//
//   - champ_cache_hits_total{layer} - Cache hits ("memory", "redis")
//   - champ_cache_misses_total{layer} - Cache misses
//   - champ_cache_entries{cache} - Live entries per in-memory cache
//   - champ_cache_written_bytes_total{layer} - Bytes written
//   - champ_cache_errors_total{operation} - Cache operation errors
package cache
