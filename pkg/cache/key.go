package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix is the first segment of every cache key.
const KeyPrefix = "champ"

// CacheKey identifies a cached value.
type CacheKey struct {
	// Namespace groups related values (e.g. "snapshot", "search")
	Namespace string

	// ID identifies the value within its namespace
	ID string

	// Params are optional qualifiers (e.g. {"compressed": "true"})
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: champ:namespace:id:param1=val1:param2=val2
//
// Example:
//
//	champ:snapshot:latest:compressed=true
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if ns := strings.Trim(k.Namespace, ":"); ns != "" {
		parts = append(parts, ns)
	}
	if id := strings.TrimSpace(k.ID); id != "" {
		parts = append(parts, id)
	}

	// Params sorted for determinism
	if len(k.Params) > 0 {
		keys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Params.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
