// Package index folds raw match and match-statistics records into a
// cross-referenced team, player and match index.
package index

import (
	"sort"
	"time"

	"github.com/Sternrassler/champ-index/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var skippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "champ_index_skipped_records_total",
	Help: "Records skipped during index builds by kind",
}, []string{"kind"})

// Skip kinds reported in Report and metrics.
const (
	SkipMatchNoID     = "match_no_id"
	SkipMatchDup      = "match_duplicate"
	SkipStatsNoID     = "stats_no_id"
	SkipStatsDup      = "stats_duplicate"
	SkipFactionNoID   = "faction_no_id"
	SkipPlayerNoID    = "player_no_id"
	SkipRoundTeamNoID = "round_team_no_id"
)

// Report summarizes what a build skipped.
type Report struct {
	Skipped map[string]int
}

// Total returns the number of skipped records of every kind.
func (r Report) Total() int {
	n := 0
	for _, v := range r.Skipped {
		n += v
	}
	return n
}

// Builder builds an Index. A Builder is single-use.
type Builder struct {
	idx       *model.Index
	statsSeen map[string]bool
	matchPos  map[string]int
	report    Report
	logger    zerolog.Logger
}

// NewBuilder creates a builder logging through logger.
func NewBuilder(logger zerolog.Logger) *Builder {
	return &Builder{
		idx:       model.NewIndex(),
		statsSeen: make(map[string]bool),
		matchPos:  make(map[string]int),
		report:    Report{Skipped: make(map[string]int)},
		logger:    logger,
	}
}

// BuildDatabase builds an index from match records and optional match
// statistics using the global logger.
func BuildDatabase(matches []model.MatchRecord, matchStats []model.MatchStatsRecord) *model.Index {
	idx, _ := NewBuilder(log.With().Str("component", "index-builder").Logger()).Build(matches, matchStats)
	return idx
}

// Build runs both ingestion passes and returns the index.
//
// Pass one upserts teams and players from each match's factions and
// rosters. Pass two applies the same upsert to the per-round team and
// player tables of the statistics, so entities seen only in detailed
// statistics are created too. Match references are kept in sets, so a
// match seen in both passes is recorded once. Records without a
// resolvable identifier are skipped and counted in the report.
func (b *Builder) Build(matches []model.MatchRecord, matchStats []model.MatchStatsRecord) (*model.Index, Report) {
	start := time.Now()

	for _, m := range matches {
		b.addMatch(m)
	}
	for _, s := range matchStats {
		b.addStats(s)
	}
	b.finalize()

	b.logger.Info().
		Int("matches", b.idx.Metadata.TotalMatches).
		Int("match_stats", len(b.idx.MatchStats)).
		Int("teams", b.idx.Metadata.TotalTeams).
		Int("players", b.idx.Metadata.TotalPlayers).
		Int("skipped", b.report.Total()).
		Dur("duration", time.Since(start)).
		Msg("Index built")

	return b.idx, b.report
}

func (b *Builder) skip(kind string, event *zerolog.Event, msg string) {
	b.report.Skipped[kind]++
	skippedTotal.WithLabelValues(kind).Inc()
	event.Str("kind", kind).Msg(msg)
}

func (b *Builder) addMatch(m model.MatchRecord) {
	if m.MatchID == "" {
		b.skip(SkipMatchNoID, b.logger.Warn().Str("competition_id", m.CompetitionID), "Skipping match without identifier")
		return
	}
	if _, dup := b.matchPos[m.MatchID]; dup {
		b.skip(SkipMatchDup, b.logger.Debug().Str("match_id", m.MatchID), "Skipping duplicate match")
		return
	}

	b.matchPos[m.MatchID] = len(b.idx.Matches)
	b.idx.Matches = append(b.idx.Matches, m)

	md := &b.idx.Metadata
	if m.CompetitionID != "" {
		md.Competitions.Add(m.CompetitionID)
	}
	md.ObserveTimestamp(m.StartedAt)
	md.ObserveTimestamp(m.FinishedAt)

	for _, key := range factionKeys(m.Teams) {
		faction := m.Teams[key]
		teamID, ok := faction.ResolveID()
		if !ok {
			b.skip(SkipFactionNoID, b.logger.Warn().Str("match_id", m.MatchID).Str("faction", key), "Skipping faction without identifier")
			continue
		}
		name, _ := faction.ResolveName()
		team := b.upsertTeam(teamID, name)
		team.Matches.Add(m.MatchID)

		for _, rp := range faction.Roster {
			playerID, ok := rp.ResolveID()
			if !ok {
				b.skip(SkipPlayerNoID, b.logger.Warn().Str("match_id", m.MatchID).Str("team_id", teamID), "Skipping roster player without identifier")
				continue
			}
			playerName, _ := rp.ResolveName()
			b.linkPlayer(team, playerID, playerName, m.MatchID)
		}
	}
}

func (b *Builder) addStats(s model.MatchStatsRecord) {
	if s.MatchID == "" {
		b.skip(SkipStatsNoID, b.logger.Warn(), "Skipping match stats without match identifier")
		return
	}
	if b.statsSeen[s.MatchID] {
		b.skip(SkipStatsDup, b.logger.Debug().Str("match_id", s.MatchID), "Skipping duplicate match stats")
		return
	}
	b.statsSeen[s.MatchID] = true
	b.idx.MatchStats[s.MatchID] = s

	for _, round := range s.Rounds {
		for _, ts := range round.Teams {
			teamID, ok := ts.ResolveID()
			if !ok {
				b.skip(SkipRoundTeamNoID, b.logger.Warn().Str("match_id", s.MatchID), "Skipping round team without identifier")
				continue
			}
			name, _ := ts.ResolveName()
			team := b.upsertTeam(teamID, name)
			team.Matches.Add(s.MatchID)

			for _, ps := range ts.Players {
				playerID, ok := ps.ResolveID()
				if !ok {
					b.skip(SkipPlayerNoID, b.logger.Warn().Str("match_id", s.MatchID).Str("team_id", teamID), "Skipping round player without identifier")
					continue
				}
				playerName, _ := ps.ResolveName()
				b.linkPlayer(team, playerID, playerName, s.MatchID)
			}
		}
	}
}

func (b *Builder) upsertTeam(id, name string) *model.TeamEntry {
	team, ok := b.idx.Teams[id]
	if !ok {
		team = &model.TeamEntry{ID: id, Name: id}
		b.idx.Teams[id] = team
	}
	if name != "" && team.Name == id {
		team.Name = name
	}
	return team
}

func (b *Builder) linkPlayer(team *model.TeamEntry, playerID, name, matchID string) {
	player, ok := b.idx.Players[playerID]
	if !ok {
		player = &model.PlayerEntry{ID: playerID, Name: playerID}
		b.idx.Players[playerID] = player
	}
	if name != "" && player.Name == playerID {
		player.Name = name
	}

	team.Players.Add(playerID)
	player.Teams.Add(team.ID)
	player.Matches.Add(matchID)
}

// finalize derives team aggregates and metadata counts. Each distinct
// match counts once per team.
func (b *Builder) finalize() {
	for _, team := range b.idx.Teams {
		team.Wins, team.Losses = 0, 0
		for _, matchID := range team.Matches.Values() {
			switch b.outcome(team.ID, matchID) {
			case outcomeWin:
				team.Wins++
			case outcomeLoss:
				team.Losses++
			}
		}
		team.TotalMatches = team.Matches.Len()
	}

	md := &b.idx.Metadata
	md.TotalMatches = len(b.idx.Matches)
	md.TotalTeams = len(b.idx.Teams)
	md.TotalPlayers = len(b.idx.Players)
}

type outcome int

const (
	outcomeUnknown outcome = iota
	outcomeWin
	outcomeLoss
)

// outcome decides a team's result in a match from the match result when
// present, otherwise from the majority of rounds won in the statistics.
func (b *Builder) outcome(teamID, matchID string) outcome {
	if pos, ok := b.matchPos[matchID]; ok {
		m := b.idx.Matches[pos]
		if m.Results != nil && m.Results.Winner != "" {
			for key, faction := range m.Teams {
				if id, ok := faction.ResolveID(); ok && id == teamID {
					if key == m.Results.Winner {
						return outcomeWin
					}
					return outcomeLoss
				}
			}
		}
	}

	stats, ok := b.idx.MatchStats[matchID]
	if !ok {
		return outcomeUnknown
	}
	won, lost := 0, 0
	for _, round := range stats.Rounds {
		winner := round.Winner()
		if winner == "" || !roundHasTeam(round, teamID) {
			continue
		}
		if winner == teamID {
			won++
		} else {
			lost++
		}
	}
	switch {
	case won > lost:
		return outcomeWin
	case lost > won:
		return outcomeLoss
	default:
		return outcomeUnknown
	}
}

func roundHasTeam(round model.RoundStats, teamID string) bool {
	for _, ts := range round.Teams {
		if id, ok := ts.ResolveID(); ok && id == teamID {
			return true
		}
	}
	return false
}

func factionKeys(teams map[string]model.Faction) []string {
	keys := make([]string, 0, len(teams))
	for k := range teams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
