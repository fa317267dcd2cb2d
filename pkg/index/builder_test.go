package index

import (
	"testing"

	"github.com/Sternrassler/champ-index/pkg/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func faction(id, name string, players ...string) model.Faction {
	f := model.Faction{FactionID: id, Name: name}
	for _, p := range players {
		f.Roster = append(f.Roster, model.RosterPlayer{PlayerID: p, Nickname: "nick-" + p})
	}
	return f
}

func match(id, competition string, started int64, a, b model.Faction, winner string) model.MatchRecord {
	m := model.MatchRecord{
		MatchID:       id,
		CompetitionID: competition,
		StartedAt:     started,
		Teams:         map[string]model.Faction{"faction1": a, "faction2": b},
	}
	if winner != "" {
		m.Results = &model.MatchResult{Winner: winner}
	}
	return m
}

func round(mapName, winner string, teams ...model.TeamStats) model.RoundStats {
	return model.RoundStats{
		RoundStats: map[string]string{"Map": mapName, "Winner": winner},
		Teams:      teams,
	}
}

func teamStats(id, name string, players ...string) model.TeamStats {
	ts := model.TeamStats{TeamID: id, TeamStats: map[string]string{"Team": name}}
	for _, p := range players {
		ts.Players = append(ts.Players, model.PlayerStats{PlayerID: p, Nickname: "nick-" + p})
	}
	return ts
}

func build(matches []model.MatchRecord, stats []model.MatchStatsRecord) (*model.Index, Report) {
	return NewBuilder(zerolog.Nop()).Build(matches, stats)
}

func TestBuildDatabase_Empty(t *testing.T) {
	idx := BuildDatabase(nil, nil)

	require.NotNil(t, idx)
	assert.Empty(t, idx.Teams)
	assert.Empty(t, idx.Players)
	assert.Empty(t, idx.Matches)
	assert.Empty(t, idx.MatchStats)
	assert.Zero(t, idx.Metadata.TotalMatches)
	assert.Zero(t, idx.Metadata.TotalTeams)
	assert.Zero(t, idx.Metadata.TotalPlayers)
	assert.Zero(t, idx.Metadata.EarliestMatch)
	assert.Zero(t, idx.Metadata.LatestMatch)
	assert.Zero(t, idx.Metadata.Competitions.Len())
	assert.NoError(t, idx.Validate())
}

func TestBuild_SymmetricUpsert(t *testing.T) {
	matches := []model.MatchRecord{
		match("m1", "c1", 1000, faction("t1", "Alpha", "p1", "p2"), faction("t2", "Bravo", "p3"), "faction1"),
		match("m2", "c1", 3000, faction("t1", "Alpha", "p1"), faction("t3", "Charlie", "p4"), "faction2"),
	}

	idx, report := build(matches, nil)
	require.NoError(t, idx.Validate())
	assert.Zero(t, report.Total())

	require.Contains(t, idx.Teams, "t1")
	t1 := idx.Teams["t1"]
	assert.Equal(t, "Alpha", t1.Name)
	assert.Equal(t, []string{"m1", "m2"}, t1.Matches.Values())
	assert.Equal(t, []string{"p1", "p2"}, t1.Players.Values())

	p1 := idx.Players["p1"]
	require.NotNil(t, p1)
	assert.Equal(t, "nick-p1", p1.Name)
	assert.Equal(t, []string{"t1"}, p1.Teams.Values())
	assert.Equal(t, []string{"m1", "m2"}, p1.Matches.Values())

	assert.Equal(t, 2, idx.Metadata.TotalMatches)
	assert.Equal(t, 3, idx.Metadata.TotalTeams)
	assert.Equal(t, 4, idx.Metadata.TotalPlayers)
	assert.Equal(t, int64(1000), idx.Metadata.EarliestMatch)
	assert.Equal(t, int64(3000), idx.Metadata.LatestMatch)
	assert.Equal(t, []string{"c1"}, idx.Metadata.Competitions.Values())
}

func TestBuild_Aggregates(t *testing.T) {
	matches := []model.MatchRecord{
		match("m1", "c1", 1, faction("t1", "A"), faction("t2", "B"), "faction1"),
		match("m2", "c1", 2, faction("t2", "B"), faction("t1", "A"), "faction1"),
		match("m3", "c1", 3, faction("t1", "A"), faction("t2", "B"), ""),
	}

	idx, _ := build(matches, nil)

	t1 := idx.Teams["t1"]
	assert.Equal(t, 1, t1.Wins)
	assert.Equal(t, 1, t1.Losses)
	assert.Equal(t, 3, t1.TotalMatches)
	assert.InDelta(t, 50.0, t1.WinRate(), 0.001)
}

func TestBuild_SecondPassDoesNotDoubleCount(t *testing.T) {
	matches := []model.MatchRecord{
		match("m1", "c1", 1, faction("t1", "A", "p1"), faction("t2", "B", "p2"), "faction1"),
	}
	stats := []model.MatchStatsRecord{{
		MatchID: "m1",
		Rounds: []model.RoundStats{
			round("de_mirage", "t1", teamStats("t1", "A", "p1"), teamStats("t2", "B", "p2")),
			round("de_nuke", "t1", teamStats("t1", "A", "p1"), teamStats("t2", "B", "p2")),
		},
	}}

	idx, _ := build(matches, stats)
	require.NoError(t, idx.Validate())

	assert.Equal(t, []string{"m1"}, idx.Teams["t1"].Matches.Values())
	assert.Equal(t, []string{"m1"}, idx.Players["p1"].Matches.Values())
	assert.Equal(t, 1, idx.Teams["t1"].TotalMatches)
	assert.Equal(t, 1, idx.Teams["t1"].Wins)
	assert.Contains(t, idx.MatchStats, "m1")
}

func TestBuild_StatsOnlyEntities(t *testing.T) {
	stats := []model.MatchStatsRecord{{
		MatchID: "m9",
		Rounds: []model.RoundStats{
			round("de_inferno", "t8", teamStats("t8", "Echo", "p8"), teamStats("t9", "Foxtrot", "p9")),
		},
	}}

	idx, _ := build(nil, stats)
	require.NoError(t, idx.Validate())

	require.Contains(t, idx.Teams, "t8")
	assert.Equal(t, "Echo", idx.Teams["t8"].Name)
	assert.Equal(t, 1, idx.Teams["t8"].Wins)
	assert.Equal(t, 1, idx.Teams["t9"].Losses)
	assert.Equal(t, []string{"t9"}, idx.Players["p9"].Teams.Values())
	assert.Zero(t, idx.Metadata.TotalMatches, "stats-only matches are not match records")
}

func TestBuild_SkipsMalformed(t *testing.T) {
	noID := model.Faction{Name: "Ghost"}
	matches := []model.MatchRecord{
		{MatchID: ""},
		match("m1", "", 0, faction("t1", "A", "p1"), noID, ""),
		match("m1", "", 0, faction("t1", "A"), faction("t2", "B"), ""),
	}
	matches[1].Teams["faction1"] = model.Faction{
		FactionID: "t1",
		Name:      "A",
		Roster:    []model.RosterPlayer{{PlayerID: "p1"}, {Nickname: "anon"}},
	}

	idx, report := build(matches, []model.MatchStatsRecord{{MatchID: ""}})
	require.NoError(t, idx.Validate())

	assert.Equal(t, 1, report.Skipped[SkipMatchNoID])
	assert.Equal(t, 1, report.Skipped[SkipMatchDup])
	assert.Equal(t, 1, report.Skipped[SkipFactionNoID])
	assert.Equal(t, 1, report.Skipped[SkipPlayerNoID])
	assert.Equal(t, 1, report.Skipped[SkipStatsNoID])

	assert.Len(t, idx.Teams, 1)
	assert.Len(t, idx.Players, 1)
	assert.Len(t, idx.Matches, 1)
	assert.Zero(t, idx.Metadata.EarliestMatch, "matches without timestamps leave the range empty")
	assert.Zero(t, idx.Metadata.Competitions.Len())
}

func TestBuild_ResolvesDriftingFieldNames(t *testing.T) {
	m := model.MatchRecord{
		MatchID: "m1",
		Teams: map[string]model.Faction{
			"faction1": {TeamID: "t1", Nickname: "Alpha", Roster: []model.RosterPlayer{{ID: "p1", GamePlayerName: "ace"}}},
			"faction2": {ID: "t2", TeamName: "Bravo", Roster: []model.RosterPlayer{{GamePlayerID: "p2"}}},
		},
	}

	idx, _ := build([]model.MatchRecord{m}, nil)

	assert.Equal(t, "Alpha", idx.Teams["t1"].Name)
	assert.Equal(t, "Bravo", idx.Teams["t2"].Name)
	assert.Equal(t, "ace", idx.Players["p1"].Name)
	assert.Equal(t, "p2", idx.Players["p2"].Name, "name falls back to identifier")
}

func TestBuild_NameFilledFromLaterSighting(t *testing.T) {
	stats := []model.MatchStatsRecord{{
		MatchID: "m1",
		Rounds:  []model.RoundStats{round("de_nuke", "", model.TeamStats{TeamID: "t1"})},
	}}
	matches := []model.MatchRecord{}

	idx, _ := build(matches, stats)
	assert.Equal(t, "t1", idx.Teams["t1"].Name)

	stats = append(stats, model.MatchStatsRecord{
		MatchID: "m2",
		Rounds:  []model.RoundStats{round("de_nuke", "", teamStats("t1", "Alpha"))},
	})
	idx, _ = build(matches, stats)
	assert.Equal(t, "Alpha", idx.Teams["t1"].Name)
}

func TestBuild_FinishedAtWidensRange(t *testing.T) {
	m := match("m1", "c1", 0, faction("t1", "A"), faction("t2", "B"), "")
	m.FinishedAt = 5000
	m2 := match("m2", "c2", 4000, faction("t1", "A"), faction("t2", "B"), "")

	idx, _ := build([]model.MatchRecord{m, m2}, nil)
	assert.Equal(t, int64(4000), idx.Metadata.EarliestMatch)
	assert.Equal(t, int64(5000), idx.Metadata.LatestMatch)
	assert.Equal(t, []string{"c1", "c2"}, idx.Metadata.Competitions.Values())
}
