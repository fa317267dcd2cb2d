// Package serialize exports an index to JSON text and imports it back.
//
// Two forms exist. The full form carries every entity, complete match
// payloads and per-round statistics, and round-trips losslessly. The
// compressed form keeps teams, players and metadata intact but reduces
// each match to its identifiers, timestamps and the {id, name} of each
// faction, and omits match statistics entirely. Every payload carries a
// format version and a compression flag; an index imported from a
// compressed payload has StatsOmitted set so callers know detail must be
// re-fetched.
package serialize

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/champ-index/pkg/model"
)

// FormatVersion is the version tag written by Export and required by Import.
const FormatVersion = 1

var (
	// ErrUnsupportedVersion is returned when a payload has a missing or
	// unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported export format version")

	// ErrMalformed is returned when a payload is not a valid export.
	ErrMalformed = errors.New("malformed export")
)

type header struct {
	Version    *int `json:"version"`
	Compressed bool `json:"compressed"`
}

type payload struct {
	Version    int                               `json:"version"`
	Compressed bool                              `json:"compressed"`
	ExportedAt time.Time                         `json:"exported_at"`
	Metadata   model.Metadata                    `json:"metadata"`
	Teams      map[string]*model.TeamEntry       `json:"teams"`
	Players    map[string]*model.PlayerEntry     `json:"players"`
	Matches    json.RawMessage                   `json:"matches"`
	MatchStats map[string]model.MatchStatsRecord `json:"match_stats,omitempty"`
}

type compactFaction struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type compactMatch struct {
	MatchID         string                    `json:"match_id"`
	CompetitionID   string                    `json:"competition_id,omitempty"`
	CompetitionName string                    `json:"competition_name,omitempty"`
	StartedAt       int64                     `json:"started_at,omitempty"`
	FinishedAt      int64                     `json:"finished_at,omitempty"`
	Teams           map[string]compactFaction `json:"teams,omitempty"`
}

// Export renders idx as JSON text.
func Export(idx *model.Index, compressed bool) (string, error) {
	if idx == nil {
		return "", errors.New("export: nil index")
	}

	var matches any = idx.Matches
	stats := idx.MatchStats
	if compressed {
		matches = compactMatches(idx.Matches)
		stats = nil
	}

	rawMatches, err := json.Marshal(matches)
	if err != nil {
		return "", fmt.Errorf("export matches: %w", err)
	}

	out, err := json.Marshal(payload{
		Version:    FormatVersion,
		Compressed: compressed,
		ExportedAt: time.Now().UTC(),
		Metadata:   idx.Metadata,
		Teams:      idx.Teams,
		Players:    idx.Players,
		Matches:    rawMatches,
		MatchStats: stats,
	})
	if err != nil {
		return "", fmt.Errorf("export index: %w", err)
	}
	return string(out), nil
}

func compactMatches(matches []model.MatchRecord) []compactMatch {
	out := make([]compactMatch, 0, len(matches))
	for _, m := range matches {
		cm := compactMatch{
			MatchID:         m.MatchID,
			CompetitionID:   m.CompetitionID,
			CompetitionName: m.CompetitionName,
			StartedAt:       m.StartedAt,
			FinishedAt:      m.FinishedAt,
		}
		for key, f := range m.Teams {
			id, ok := f.ResolveID()
			if !ok {
				continue
			}
			if cm.Teams == nil {
				cm.Teams = make(map[string]compactFaction, len(m.Teams))
			}
			name, _ := f.ResolveName()
			cm.Teams[key] = compactFaction{ID: id, Name: name}
		}
		out = append(out, cm)
	}
	return out
}

// Import parses text produced by Export. The result is validated; an index
// that breaks its reference or count invariants is rejected.
func Import(text string) (*model.Index, error) {
	data := []byte(text)

	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Version == nil {
		return nil, fmt.Errorf("%w: no version tag", ErrUnsupportedVersion)
	}
	if *h.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrUnsupportedVersion, *h.Version, FormatVersion)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	idx := model.NewIndex()
	idx.Metadata = p.Metadata
	idx.StatsOmitted = p.Compressed
	if p.Teams != nil {
		idx.Teams = p.Teams
	}
	if p.Players != nil {
		idx.Players = p.Players
	}
	if len(p.Matches) > 0 && string(p.Matches) != "null" {
		if err := json.Unmarshal(p.Matches, &idx.Matches); err != nil {
			return nil, fmt.Errorf("%w: matches: %v", ErrMalformed, err)
		}
	}
	if !p.Compressed && p.MatchStats != nil {
		idx.MatchStats = p.MatchStats
	}

	if err := idx.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return idx, nil
}
