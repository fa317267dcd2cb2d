package model

import (
	"errors"
	"fmt"
)

// ErrInvariant is wrapped by every error returned from Validate.
var ErrInvariant = errors.New("index invariant violated")

// Validate checks the structural invariants of the index:
// map keys match entry identifiers, team and player references are
// symmetric, every recorded match identifier is known, and the metadata
// counts equal the collection sizes. Match references are not checked on
// indexes with StatsOmitted, since stats-only matches are not retained.
func (idx *Index) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...)))
	}

	known := make(map[string]struct{}, len(idx.Matches)+len(idx.MatchStats))
	for _, m := range idx.Matches {
		if _, dup := known[m.MatchID]; dup {
			fail("duplicate match %q", m.MatchID)
		}
		known[m.MatchID] = struct{}{}
	}
	for id, s := range idx.MatchStats {
		if s.MatchID != id {
			fail("match stats keyed %q carry match id %q", id, s.MatchID)
		}
		known[id] = struct{}{}
	}

	for id, team := range idx.Teams {
		if team == nil || team.ID != id {
			fail("team keyed %q has mismatched entry", id)
			continue
		}
		for _, pid := range team.Players.Values() {
			player, ok := idx.Players[pid]
			if !ok || player == nil {
				fail("team %q references unknown player %q", id, pid)
				continue
			}
			if !player.Teams.Has(id) {
				fail("player %q does not reference team %q", pid, id)
			}
		}
		for _, mid := range team.Matches.Values() {
			if _, ok := known[mid]; !ok && !idx.StatsOmitted {
				fail("team %q references unknown match %q", id, mid)
			}
		}
	}

	for id, player := range idx.Players {
		if player == nil || player.ID != id {
			fail("player keyed %q has mismatched entry", id)
			continue
		}
		for _, tid := range player.Teams.Values() {
			team, ok := idx.Teams[tid]
			if !ok || team == nil {
				fail("player %q references unknown team %q", id, tid)
				continue
			}
			if !team.Players.Has(id) {
				fail("team %q does not reference player %q", tid, id)
			}
		}
		for _, mid := range player.Matches.Values() {
			if _, ok := known[mid]; !ok && !idx.StatsOmitted {
				fail("player %q references unknown match %q", id, mid)
			}
		}
	}

	md := idx.Metadata
	if md.TotalMatches != len(idx.Matches) {
		fail("metadata total_matches %d != %d matches", md.TotalMatches, len(idx.Matches))
	}
	if md.TotalTeams != len(idx.Teams) {
		fail("metadata total_teams %d != %d teams", md.TotalTeams, len(idx.Teams))
	}
	if md.TotalPlayers != len(idx.Players) {
		fail("metadata total_players %d != %d players", md.TotalPlayers, len(idx.Players))
	}

	return errors.Join(errs...)
}
