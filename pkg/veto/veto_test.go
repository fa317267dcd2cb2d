package veto

import (
	"fmt"
	"testing"

	"github.com/Sternrassler/champ-index/pkg/index"
	"github.com/Sternrassler/champ-index/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPool = []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"}

func summary(id string, rates map[string]float64) TeamSummary {
	s := TeamSummary{TeamID: id, Maps: make(map[string]MapStat, len(rates))}
	for m, r := range rates {
		s.Maps[m] = MapStat{WinRate: r, MatchesPlayed: 10}
	}
	return s
}

// teamA is strong on high-numbered maps, teamB on low-numbered maps.
func opposedTeams() (TeamSummary, TeamSummary) {
	a := summary("a", map[string]float64{"m1": 10, "m2": 20, "m3": 30, "m4": 40, "m5": 50, "m6": 60, "m7": 70})
	b := summary("b", map[string]float64{"m1": 70, "m2": 60, "m3": 50, "m4": 40, "m5": 30, "m6": 20, "m7": 10})
	return a, b
}

func stepMaps(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Map
	}
	return out
}

func TestPredictVeto_AlwaysSevenSteps(t *testing.T) {
	a, b := opposedTeams()
	pools := [][]string{
		testPool,
		DefaultPool,
		append(append([]string{}, testPool...), "m8", "m9"),
	}

	for _, format := range []Format{BO1, BO3} {
		for _, pool := range pools {
			t.Run(fmt.Sprintf("%s/%d", format, len(pool)), func(t *testing.T) {
				p, err := PredictVeto(a, b, format, pool)
				require.NoError(t, err)
				assert.Len(t, p.Steps, 7)
				assert.Equal(t, ActionDecider, p.Steps[6].Action)

				seen := make(map[string]bool)
				for _, s := range p.Steps {
					assert.False(t, seen[s.Map], "map %s chosen twice", s.Map)
					seen[s.Map] = true
				}
			})
		}
	}
}

func TestPredictVeto_BO1Sequence(t *testing.T) {
	a, b := opposedTeams()

	p, err := PredictVeto(a, b, BO1, testPool)
	require.NoError(t, err)

	assert.Equal(t, []string{"m1", "m7", "m2", "m6", "m3", "m5", "m4"}, stepMaps(p.Steps))
	for _, s := range p.Steps[:6] {
		assert.Equal(t, ActionBan, s.Action)
	}
	assert.Equal(t, []Side{SideA, SideB, SideA, SideB, SideA, SideB, SideNone}, []Side{
		p.Steps[0].Side, p.Steps[1].Side, p.Steps[2].Side, p.Steps[3].Side, p.Steps[4].Side, p.Steps[5].Side, p.Steps[6].Side,
	})
	assert.Equal(t, []string{"m4"}, p.PredictedPool)
}

func TestPredictVeto_BO3Sequence(t *testing.T) {
	a, b := opposedTeams()

	p, err := PredictVeto(a, b, BO3, testPool)
	require.NoError(t, err)

	assert.Equal(t, []string{"m1", "m7", "m6", "m2", "m3", "m5", "m4"}, stepMaps(p.Steps))
	assert.Equal(t, []Action{ActionBan, ActionBan, ActionPick, ActionPick, ActionBan, ActionBan, ActionDecider}, []Action{
		p.Steps[0].Action, p.Steps[1].Action, p.Steps[2].Action, p.Steps[3].Action, p.Steps[4].Action, p.Steps[5].Action, p.Steps[6].Action,
	})
	assert.Equal(t, []string{"m6", "m2", "m4"}, p.PredictedPool)
	assert.Equal(t, SidePair{A: "m7", B: "m1"}, p.LikelyPick)
	assert.Equal(t, SidePair{A: "m1", B: "m7"}, p.LikelyBan)
}

func TestPredictVeto_IdenticalTeamsUseStablePoolOrder(t *testing.T) {
	even := map[string]float64{}
	for _, m := range testPool {
		even[m] = 50
	}
	a, b := summary("a", even), summary("b", even)

	for _, format := range []Format{BO1, BO3} {
		p, err := PredictVeto(a, b, format, testPool)
		require.NoError(t, err)

		assert.Equal(t, "m1", p.Steps[0].Map)
		assert.Equal(t, "m2", p.Steps[1].Map)
		assert.Equal(t, SidePair{A: "m1", B: "m1"}, p.LikelyBan)
		assert.Empty(t, p.HighDiffMaps)
	}
}

func TestPredictVeto_NoDataDefaultsToEven(t *testing.T) {
	p, err := PredictVeto(TeamSummary{TeamID: "a"}, TeamSummary{TeamID: "b"}, BO1, testPool)
	require.NoError(t, err)

	assert.Equal(t, testPool, stepMaps(p.Steps))
	assert.Empty(t, p.HighDiffMaps)
}

func TestPredictVeto_HighDiffMaps(t *testing.T) {
	a := summary("a", map[string]float64{"m3": 80})
	b := summary("b", map[string]float64{"m3": 20})

	p, err := PredictVeto(a, b, BO3, testPool)
	require.NoError(t, err)

	require.Len(t, p.HighDiffMaps, 1)
	assert.Equal(t, "m3", p.HighDiffMaps[0].Map)
	assert.InDelta(t, 60.0, p.HighDiffMaps[0].Gap, 0.0001)
	assert.InDelta(t, 80.0, p.HighDiffMaps[0].WinRateA, 0.0001)
	assert.InDelta(t, 20.0, p.HighDiffMaps[0].WinRateB, 0.0001)
}

func TestPredictVeto_HighDiffOrderingAndThreshold(t *testing.T) {
	a := summary("a", map[string]float64{"m1": 65, "m2": 64.9, "m4": 90, "m6": 30})
	b := summary("b", map[string]float64{"m6": 60})

	p, err := PredictVeto(a, b, BO1, testPool)
	require.NoError(t, err)

	var got []string
	for _, d := range p.HighDiffMaps {
		got = append(got, d.Map)
	}
	assert.Equal(t, []string{"m4", "m6", "m1"}, got, "sorted by gap, m2 below threshold")
}

func TestPredictVeto_SixMapBO3KeepsDecider(t *testing.T) {
	a, b := opposedTeams()
	pool := testPool[:6]

	p, err := PredictVeto(a, b, BO3, pool)
	require.NoError(t, err)

	require.Len(t, p.PredictedPool, 3)
	last := p.Steps[len(p.Steps)-1]
	assert.Equal(t, ActionDecider, last.Action)
	assert.Equal(t, last.Map, p.PredictedPool[2])
	assert.Len(t, p.Steps, 6)
}

func TestPredictVeto_SmallPools(t *testing.T) {
	a, b := opposedTeams()

	p, err := PredictVeto(a, b, BO1, []string{})
	require.NoError(t, err)
	assert.Empty(t, p.Steps)
	assert.Empty(t, p.PredictedPool)

	p, err = PredictVeto(a, b, BO1, []string{"m4"})
	require.NoError(t, err)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, Step{Number: 7, Action: ActionDecider, Map: "m4"}, p.Steps[0])

	p, err = PredictVeto(a, b, BO1, []string{"m4", "m4", "m5"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m5"}, stepMaps(p.Steps))
}

func TestPredictVeto_NilPoolUsesDefault(t *testing.T) {
	p, err := PredictVeto(TeamSummary{}, TeamSummary{}, BO1, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPool, stepMaps(p.Steps))
}

func TestPredictVeto_HistoricalFirstBan(t *testing.T) {
	a, b := opposedTeams()
	a.FirstBans = map[string]int{"m5": 4, "m3": 1}
	b.FirstBans = map[string]int{"m5": 9, "m2": 2, "m4": 2}

	p, err := PredictVeto(a, b, BO1, testPool)
	require.NoError(t, err)

	assert.Equal(t, "m5", p.Steps[0].Map)
	// m5 is gone; m2 and m4 tie and B's ascending order puts m4 first.
	assert.Equal(t, "m4", p.Steps[1].Map)
	assert.Equal(t, SidePair{A: "m5", B: "m5"}, p.LikelyBan)
}

func TestPredictVeto_HistoryFallsBackWhenExhausted(t *testing.T) {
	a, b := opposedTeams()
	a.FirstBans = map[string]int{"m7": 3}
	b.FirstBans = map[string]int{"m7": 3}

	p, err := PredictVeto(a, b, BO1, testPool)
	require.NoError(t, err)

	assert.Equal(t, "m7", p.Steps[0].Map)
	assert.Equal(t, "m6", p.Steps[1].Map, "history map taken, so B bans its weakest")
}

func TestPredictVeto_HistoricalFirstPick(t *testing.T) {
	a, b := opposedTeams()
	a.FirstPicks = map[string]int{"m2": 5}

	p, err := PredictVeto(a, b, BO3, testPool)
	require.NoError(t, err)
	assert.Equal(t, SidePair{A: "m2", B: "m1"}, p.LikelyPick)
}

func TestPredictVeto_UnknownFormat(t *testing.T) {
	_, err := PredictVeto(TeamSummary{}, TeamSummary{}, Format("bo5"), testPool)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"bo1", BO1, false},
		{"BO3", BO3, false},
		{" Bo1 ", BO1, false},
		{"bo5", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownFormat, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestSummarize(t *testing.T) {
	round := func(mapName, winner string) model.RoundStats {
		return model.RoundStats{
			RoundStats: map[string]string{"Map": mapName, "Winner": winner},
			Teams:      []model.TeamStats{{TeamID: "t1"}, {TeamID: "t2"}},
		}
	}
	stats := []model.MatchStatsRecord{
		{MatchID: "m1", Rounds: []model.RoundStats{round("de_nuke", "t1"), round("de_mirage", "t2")}},
		{MatchID: "m2", Rounds: []model.RoundStats{round("de_nuke", "t2"), round("", "t1")}},
		{MatchID: "m3", Rounds: []model.RoundStats{round("de_nuke", "t1")}},
	}
	idx := index.BuildDatabase(nil, stats)

	s, err := Summarize(idx, "t1")
	require.NoError(t, err)

	assert.Equal(t, "t1", s.TeamID)
	assert.Len(t, s.Maps, 2)
	assert.Equal(t, 3, s.Maps["de_nuke"].MatchesPlayed)
	assert.InDelta(t, 66.666, s.Maps["de_nuke"].WinRate, 0.01)
	assert.Equal(t, 0.0, s.Maps["de_mirage"].WinRate)
	assert.Equal(t, DefaultWinRate, s.WinRate("de_inferno"))

	_, err = Summarize(idx, "nope")
	assert.ErrorIs(t, err, ErrUnknownTeam)
}
