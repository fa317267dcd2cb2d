// Package search finds teams in an index by approximate name.
package search

import (
	"sort"
	"strings"
	"time"

	"github.com/Sternrassler/champ-index/pkg/cache"
	"github.com/Sternrassler/champ-index/pkg/model"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"
)

// DefaultLimit caps the hits returned when no limit is given.
const DefaultLimit = 10

// maxCachedQueries bounds the result cache.
const maxCachedQueries = 1024

// Hit is a team matching a query.
type Hit struct {
	TeamID       string  `json:"team_id"`
	Name         string  `json:"name"`
	Distance     int     `json:"distance"`
	TotalMatches int     `json:"total_matches"`
	WinRate      float64 `json:"win_rate"`
}

// Searcher searches the teams of one index. Results are cached per
// normalized query for the configured TTL.
type Searcher struct {
	idx     *model.Index
	ids     []string
	names   []string
	results *cache.TTL[string, []Hit]
	logger  zerolog.Logger
}

// New creates a searcher over idx. A nil clock means cache.SystemClock.
func New(idx *model.Index, ttl time.Duration, clock cache.Clock, logger zerolog.Logger) *Searcher {
	ids := make([]string, 0, len(idx.Teams))
	for id := range idx.Teams {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = idx.Teams[id].Name
	}

	return &Searcher{
		idx:     idx,
		ids:     ids,
		names:   names,
		results: cache.NewTTL[string, []Hit]("search", ttl, maxCachedQueries, clock),
		logger:  logger,
	}
}

// Normalize folds a query to the form used as cache key.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Search returns teams whose name contains the query's characters in
// order, case-insensitively, best match first. Ties are ordered by name.
// A limit <= 0 means DefaultLimit.
func (s *Searcher) Search(query string, limit int) []Hit {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := Normalize(query)
	if q == "" {
		return []Hit{}
	}

	hits, ok := s.results.Get(q)
	if ok {
		s.logger.Debug().Str("query", q).Msg("Search cache hit")
	} else {
		hits = s.rank(q)
		s.results.Set(q, hits)
		s.logger.Debug().Str("query", q).Int("hits", len(hits)).Msg("Search cache miss")
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Hit, len(hits))
	copy(out, hits)
	return out
}

func (s *Searcher) rank(q string) []Hit {
	ranks := fuzzy.RankFindNormalizedFold(q, s.names)

	hits := make([]Hit, 0, len(ranks))
	for _, r := range ranks {
		team := s.idx.Teams[s.ids[r.OriginalIndex]]
		hits = append(hits, Hit{
			TeamID:       team.ID,
			Name:         team.Name,
			Distance:     r.Distance,
			TotalMatches: team.TotalMatches,
			WinRate:      team.WinRate(),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		if hits[i].Name != hits[j].Name {
			return hits[i].Name < hits[j].Name
		}
		return hits[i].TeamID < hits[j].TeamID
	})
	return hits
}
