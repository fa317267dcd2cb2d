// Package veto simulates the map ban/pick sequence between two teams.
//
// The simulation is deterministic: each step takes the first available map
// from one of four orderings of the map pool (each team's maps by
// ascending and by descending win rate). Orderings are stable, so maps
// with equal win rates keep their pool order.
//
// BO1 runs ban, ban, ban, ban, ban, ban, decider. BO3 runs ban, ban, pick,
// pick, ban, ban, decider. A ban or pick step runs only while at least two
// maps are available, which keeps the last map for the decider on small
// pools.
package veto

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// HighDiffThreshold is the win-rate gap, in percentage points, at which a
// map is reported as a mismatch.
const HighDiffThreshold = 15.0

// DefaultWinRate is assumed for maps a team has no data for.
const DefaultWinRate = 50.0

// DefaultPool is the active competitive map pool.
var DefaultPool = []string{
	"de_mirage",
	"de_inferno",
	"de_nuke",
	"de_ancient",
	"de_anubis",
	"de_vertigo",
	"de_dust2",
}

// ErrUnknownFormat is returned for a series format other than BO1 or BO3.
var ErrUnknownFormat = errors.New("unknown series format")

// Format is a series format.
type Format string

const (
	BO1 Format = "bo1"
	BO3 Format = "bo3"
)

// ParseFormat parses "bo1" or "bo3", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case BO1, BO3:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Side identifies which team acts in a step.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
	// SideNone acts in the decider step.
	SideNone Side = ""
)

// Action is what a step does with its map.
type Action string

const (
	ActionBan     Action = "ban"
	ActionPick    Action = "pick"
	ActionDecider Action = "decider"
)

// MapStat is a team's record on one map.
type MapStat struct {
	WinRate       float64 `json:"win_rate"`
	MatchesPlayed int     `json:"matches_played"`
}

// TeamSummary is the per-map input for one team. FirstBans and FirstPicks
// count how often each map was the team's first ban or first pick in
// earlier series; both are optional.
type TeamSummary struct {
	TeamID     string             `json:"team_id"`
	Name       string             `json:"name,omitempty"`
	Maps       map[string]MapStat `json:"maps"`
	FirstBans  map[string]int     `json:"first_bans,omitempty"`
	FirstPicks map[string]int     `json:"first_picks,omitempty"`
}

// WinRate returns the team's win rate on mapName, or DefaultWinRate when
// the map is unknown.
func (s TeamSummary) WinRate(mapName string) float64 {
	if st, ok := s.Maps[mapName]; ok {
		return st.WinRate
	}
	return DefaultWinRate
}

// Step is one action in the veto sequence.
type Step struct {
	Number int    `json:"number"`
	Side   Side   `json:"side,omitempty"`
	Action Action `json:"action"`
	Map    string `json:"map"`
}

// MapDiff is a map where the two teams' win rates differ widely.
type MapDiff struct {
	Map      string  `json:"map"`
	WinRateA float64 `json:"win_rate_a"`
	WinRateB float64 `json:"win_rate_b"`
	Gap      float64 `json:"gap"`
}

// SidePair holds one map per side.
type SidePair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Prediction is the simulated veto.
type Prediction struct {
	Format        Format    `json:"format"`
	Steps         []Step    `json:"steps"`
	PredictedPool []string  `json:"predicted_pool"`
	HighDiffMaps  []MapDiff `json:"high_diff_maps"`
	LikelyBan     SidePair  `json:"likely_ban"`
	LikelyPick    SidePair  `json:"likely_pick"`
}

type stepRule struct {
	side   Side
	action Action
	choose func(s *simulation) (string, bool)
}

type simulation struct {
	a, b                     TeamSummary
	pool                     []string
	ascA, descA, ascB, descB []string
	used                     map[string]bool
}

// PredictVeto simulates the veto between a and b over pool. A nil pool
// means DefaultPool; duplicate map names are ignored.
func PredictVeto(a, b TeamSummary, format Format, pool []string) (Prediction, error) {
	if pool == nil {
		pool = DefaultPool
	}
	pool = uniqueMaps(pool)

	s := &simulation{
		a:     a,
		b:     b,
		pool:  pool,
		ascA:  ordered(pool, a, true),
		descA: ordered(pool, a, false),
		ascB:  ordered(pool, b, true),
		descB: ordered(pool, b, false),
		used:  make(map[string]bool, len(pool)),
	}

	var rules []stepRule
	switch format {
	case BO1:
		rules = []stepRule{
			{SideA, ActionBan, func(s *simulation) (string, bool) { return s.firstBan(s.a, s.ascA) }},
			{SideB, ActionBan, func(s *simulation) (string, bool) { return s.firstBan(s.b, s.ascB) }},
			{SideA, ActionBan, func(s *simulation) (string, bool) { return s.first(s.ascA) }},
			{SideB, ActionBan, func(s *simulation) (string, bool) { return s.first(s.ascB) }},
			{SideA, ActionBan, func(s *simulation) (string, bool) { return s.first(s.descB) }},
			{SideB, ActionBan, func(s *simulation) (string, bool) { return s.first(s.descA) }},
		}
	case BO3:
		rules = []stepRule{
			{SideA, ActionBan, func(s *simulation) (string, bool) { return s.firstBan(s.a, s.ascA) }},
			{SideB, ActionBan, func(s *simulation) (string, bool) { return s.firstBan(s.b, s.ascB) }},
			{SideA, ActionPick, func(s *simulation) (string, bool) { return s.first(s.descA) }},
			{SideB, ActionPick, func(s *simulation) (string, bool) { return s.first(s.descB) }},
			{SideA, ActionBan, func(s *simulation) (string, bool) { return s.first(s.descB) }},
			{SideB, ActionBan, func(s *simulation) (string, bool) { return s.first(s.descA) }},
		}
	default:
		return Prediction{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	p := Prediction{
		Format:        format,
		Steps:         []Step{},
		PredictedPool: []string{},
		HighDiffMaps:  highDiffMaps(pool, a, b),
		LikelyBan: SidePair{
			A: likely(a.FirstBans, ordered(pool, a, true)),
			B: likely(b.FirstBans, ordered(pool, b, true)),
		},
		LikelyPick: SidePair{
			A: likely(a.FirstPicks, ordered(pool, a, false)),
			B: likely(b.FirstPicks, ordered(pool, b, false)),
		},
	}

	for i, rule := range rules {
		if s.available() < 2 {
			continue
		}
		m, ok := rule.choose(s)
		if !ok {
			continue
		}
		s.used[m] = true
		p.Steps = append(p.Steps, Step{Number: i + 1, Side: rule.side, Action: rule.action, Map: m})
		if rule.action == ActionPick {
			p.PredictedPool = append(p.PredictedPool, m)
		}
	}

	if m, ok := s.first(s.pool); ok {
		s.used[m] = true
		p.Steps = append(p.Steps, Step{Number: len(rules) + 1, Side: SideNone, Action: ActionDecider, Map: m})
		p.PredictedPool = append(p.PredictedPool, m)
	}

	return p, nil
}

func (s *simulation) available() int {
	return len(s.pool) - len(s.used)
}

// first returns the first map of order that is neither banned nor picked.
func (s *simulation) first(order []string) (string, bool) {
	for _, m := range order {
		if !s.used[m] {
			return m, true
		}
	}
	return "", false
}

// firstBan prefers the team's most frequent historical first ban among the
// available maps, then falls back to its weakest available map.
func (s *simulation) firstBan(team TeamSummary, asc []string) (string, bool) {
	if m, ok := mostFrequent(team.FirstBans, asc, s.used); ok {
		return m, true
	}
	return s.first(asc)
}

// mostFrequent returns the map in order with the highest positive count,
// skipping used maps. Ties go to the earlier map in order.
func mostFrequent(counts map[string]int, order []string, used map[string]bool) (string, bool) {
	best, bestCount := "", 0
	for _, m := range order {
		if used[m] {
			continue
		}
		if c := counts[m]; c > bestCount {
			best, bestCount = m, c
		}
	}
	return best, bestCount > 0
}

func likely(history map[string]int, order []string) string {
	if m, ok := mostFrequent(history, order, nil); ok {
		return m
	}
	if len(order) == 0 {
		return ""
	}
	return order[0]
}

func ordered(pool []string, team TeamSummary, ascending bool) []string {
	out := make([]string, len(pool))
	copy(out, pool)
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return team.WinRate(out[i]) < team.WinRate(out[j])
		}
		return team.WinRate(out[i]) > team.WinRate(out[j])
	})
	return out
}

func highDiffMaps(pool []string, a, b TeamSummary) []MapDiff {
	diffs := []MapDiff{}
	for _, m := range pool {
		ra, rb := a.WinRate(m), b.WinRate(m)
		if gap := math.Abs(ra - rb); gap >= HighDiffThreshold {
			diffs = append(diffs, MapDiff{Map: m, WinRateA: ra, WinRateB: rb, Gap: gap})
		}
	}
	sort.SliceStable(diffs, func(i, j int) bool {
		return diffs[i].Gap > diffs[j].Gap
	})
	return diffs
}

func uniqueMaps(pool []string) []string {
	seen := make(map[string]bool, len(pool))
	out := make([]string, 0, len(pool))
	for _, m := range pool {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
