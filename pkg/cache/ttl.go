package cache

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

type ttlItem[V any] struct {
	value   V
	expires time.Time
}

// TTL is an in-memory cache whose entries expire a fixed duration after
// they were stored. Time comes from the injected Clock. When MaxEntries
// is reached, expired entries are purged first and then the entry closest
// to expiry is evicted. A TTL is safe for concurrent use.
type TTL[K comparable, V any] struct {
	name       string
	ttl        time.Duration
	maxEntries int
	clock      Clock

	mu    sync.Mutex
	items map[K]ttlItem[V]
}

// NewTTL creates a cache named name (used as a metric label). A nil clock
// means SystemClock; maxEntries <= 0 means unbounded.
func NewTTL[K comparable, V any](name string, ttl time.Duration, maxEntries int, clock Clock) *TTL[K, V] {
	if clock == nil {
		clock = SystemClock
	}
	return &TTL[K, V]{
		name:       name,
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
		items:      make(map[K]ttlItem[V]),
	}
}

// Get returns the value stored under key if it has not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if ok && !c.clock.Now().Before(item.expires) {
		delete(c.items, key)
		c.updateGauge()
		ok = false
	}
	if !ok {
		CacheMisses.WithLabelValues(LayerMemory).Inc()
		var zero V
		return zero, false
	}

	CacheHits.WithLabelValues(LayerMemory).Inc()
	return item.value, true
}

// Set stores value under key.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.purgeLocked(now)
		if len(c.items) >= c.maxEntries {
			c.evictOldestLocked()
		}
	}

	c.items[key] = ttlItem[V]{value: value, expires: now.Add(c.ttl)}
	c.updateGauge()
}

// Delete removes key.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	c.updateGauge()
}

// Purge removes every expired entry and returns how many were removed.
func (c *TTL[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.purgeLocked(c.clock.Now())
	c.updateGauge()
	return n
}

// Clear removes every entry.
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]ttlItem[V])
	c.updateGauge()
}

// Len returns the number of stored entries, including expired ones not
// yet purged.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *TTL[K, V]) purgeLocked(now time.Time) int {
	n := 0
	for k, item := range c.items {
		if !now.Before(item.expires) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

func (c *TTL[K, V]) evictOldestLocked() {
	var (
		oldest K
		found  bool
		at     time.Time
	)
	for k, item := range c.items {
		if !found || item.expires.Before(at) {
			oldest, at, found = k, item.expires, true
		}
	}
	if found {
		delete(c.items, oldest)
	}
}

func (c *TTL[K, V]) updateGauge() {
	CacheEntries.WithLabelValues(c.name).Set(float64(len(c.items)))
}
