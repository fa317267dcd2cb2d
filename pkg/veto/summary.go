package veto

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/champ-index/pkg/model"
)

// ErrUnknownTeam is returned by Summarize for a team not in the index.
var ErrUnknownTeam = errors.New("unknown team")

// Summarize derives a team's per-map record from the per-round statistics
// of every match it played. Rounds without a map name are ignored. The
// historical ban and pick counters are left empty; callers holding veto
// history can fill them in.
func Summarize(idx *model.Index, teamID string) (TeamSummary, error) {
	team, ok := idx.Teams[teamID]
	if !ok {
		return TeamSummary{}, fmt.Errorf("%w: %s", ErrUnknownTeam, teamID)
	}

	type tally struct{ played, won int }
	tallies := make(map[string]*tally)

	for _, matchID := range team.Matches.Values() {
		stats, ok := idx.MatchStats[matchID]
		if !ok {
			continue
		}
		for _, round := range stats.Rounds {
			mapName := round.Map()
			if mapName == "" || !playedRound(round, teamID) {
				continue
			}
			t := tallies[mapName]
			if t == nil {
				t = &tally{}
				tallies[mapName] = t
			}
			t.played++
			if round.Winner() == teamID {
				t.won++
			}
		}
	}

	summary := TeamSummary{
		TeamID: team.ID,
		Name:   team.Name,
		Maps:   make(map[string]MapStat, len(tallies)),
	}
	for mapName, t := range tallies {
		summary.Maps[mapName] = MapStat{
			WinRate:       float64(t.won) / float64(t.played) * 100,
			MatchesPlayed: t.played,
		}
	}
	return summary, nil
}

func playedRound(round model.RoundStats, teamID string) bool {
	for _, ts := range round.Teams {
		if id, ok := ts.ResolveID(); ok && id == teamID {
			return true
		}
	}
	return false
}
