package cache

import (
	"time"
)

// CacheEntry is a value stored in Redis.
type CacheEntry struct {
	// Data is the stored payload
	Data []byte `json:"data"`

	// Meta carries small descriptive attributes (e.g. format version)
	Meta map[string]string `json:"meta,omitempty"`

	// Expires is when the entry becomes stale. Zero means it never expires.
	Expires time.Time `json:"expires"`

	// CachedAt is when the entry was stored
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry creates an entry holding data that expires after ttl.
// A ttl of zero or less creates an entry that never expires.
func NewEntry(data []byte, ttl time.Duration) *CacheEntry {
	now := time.Now()
	entry := &CacheEntry{
		Data:     data,
		CachedAt: now,
	}
	if ttl > 0 {
		entry.Expires = now.Add(ttl)
	}
	return entry
}

// Persistent reports whether the entry never expires.
func (e *CacheEntry) Persistent() bool {
	return e.Expires.IsZero()
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return !e.Persistent() && time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired or persistent.
func (e *CacheEntry) TTL() time.Duration {
	if e.Persistent() {
		return 0
	}
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
