// Package model defines the championship index: raw match and statistics
// records as delivered by the upstream API, and the cross-referenced
// team, player and match entries built from them.
package model

// Faction is one side of a match as represented by the upstream API.
// Identifier and name fields vary between API variants; use ResolveID and
// ResolveName rather than reading the fields directly.
type Faction struct {
	FactionID string         `json:"faction_id,omitempty"`
	TeamID    string         `json:"team_id,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Nickname  string         `json:"nickname,omitempty"`
	TeamName  string         `json:"team_name,omitempty"`
	Avatar    string         `json:"avatar,omitempty"`
	Roster    []RosterPlayer `json:"roster,omitempty"`
}

// RosterPlayer is a player listed on a faction's roster.
type RosterPlayer struct {
	PlayerID       string `json:"player_id,omitempty"`
	ID             string `json:"id,omitempty"`
	GamePlayerID   string `json:"game_player_id,omitempty"`
	Nickname       string `json:"nickname,omitempty"`
	Name           string `json:"name,omitempty"`
	GamePlayerName string `json:"game_player_name,omitempty"`
	SkillLevel     int    `json:"game_skill_level,omitempty"`
}

// MatchResult holds the outcome of a match. Winner is a faction key.
type MatchResult struct {
	Winner string         `json:"winner,omitempty"`
	Score  map[string]int `json:"score,omitempty"`
}

// MatchRecord is a match as delivered by a championship collection.
// Teams is keyed by faction key ("faction1", "faction2").
type MatchRecord struct {
	MatchID         string             `json:"match_id"`
	CompetitionID   string             `json:"competition_id,omitempty"`
	CompetitionName string             `json:"competition_name,omitempty"`
	CompetitionType string             `json:"competition_type,omitempty"`
	Game            string             `json:"game,omitempty"`
	Region          string             `json:"region,omitempty"`
	BestOf          int                `json:"best_of,omitempty"`
	Status          string             `json:"status,omitempty"`
	StartedAt       int64              `json:"started_at,omitempty"`
	FinishedAt      int64              `json:"finished_at,omitempty"`
	Teams           map[string]Faction `json:"teams,omitempty"`
	Results         *MatchResult       `json:"results,omitempty"`
	FaceitURL       string             `json:"faceit_url,omitempty"`
}

// MatchStatsRecord is the detailed statistics of one match.
type MatchStatsRecord struct {
	MatchID string       `json:"match_id"`
	Rounds  []RoundStats `json:"rounds"`
}

// RoundStats is one played map of a match. RoundStats carries keys such
// as "Map", "Winner" and "Score".
type RoundStats struct {
	BestOf     string            `json:"best_of,omitempty"`
	MatchRound string            `json:"match_round,omitempty"`
	Played     string            `json:"played,omitempty"`
	RoundStats map[string]string `json:"round_stats,omitempty"`
	Teams      []TeamStats       `json:"teams,omitempty"`
}

// Map returns the map played in this round.
func (r RoundStats) Map() string {
	return r.RoundStats["Map"]
}

// Winner returns the identifier of the team that won this round.
func (r RoundStats) Winner() string {
	return r.RoundStats["Winner"]
}

// TeamStats is a team's statistic table for one round.
type TeamStats struct {
	TeamID    string            `json:"team_id,omitempty"`
	FactionID string            `json:"faction_id,omitempty"`
	Name      string            `json:"name,omitempty"`
	Nickname  string            `json:"nickname,omitempty"`
	Premade   bool              `json:"premade,omitempty"`
	TeamStats map[string]string `json:"team_stats,omitempty"`
	Players   []PlayerStats     `json:"players,omitempty"`
}

// PlayerStats is a player's statistic table for one round.
type PlayerStats struct {
	PlayerID    string            `json:"player_id,omitempty"`
	ID          string            `json:"id,omitempty"`
	Nickname    string            `json:"nickname,omitempty"`
	Name        string            `json:"name,omitempty"`
	PlayerStats map[string]string `json:"player_stats,omitempty"`
}

// TeamEntry is a team in the index.
type TeamEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Matches      IDSet  `json:"matches"`
	Players      IDSet  `json:"players"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	TotalMatches int    `json:"total_matches"`
}

// WinRate returns the share of decided matches won, in percent.
func (t *TeamEntry) WinRate() float64 {
	decided := t.Wins + t.Losses
	if decided == 0 {
		return 0
	}
	return float64(t.Wins) / float64(decided) * 100
}

// PlayerEntry is a player in the index.
type PlayerEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Teams   IDSet  `json:"teams"`
	Matches IDSet  `json:"matches"`
}

// Metadata summarizes an index. Timestamps are unix seconds; zero means
// no match carried a timestamp.
type Metadata struct {
	TotalMatches       int      `json:"total_matches"`
	TotalTeams         int      `json:"total_teams"`
	TotalPlayers       int      `json:"total_players"`
	EarliestMatch      int64    `json:"earliest_match,omitempty"`
	LatestMatch        int64    `json:"latest_match,omitempty"`
	Competitions       IDSet    `json:"competitions"`
	DroppedCollections []string `json:"dropped_collections,omitempty"`
}

// Complete reports whether every requested collection was ingested.
func (m Metadata) Complete() bool {
	return len(m.DroppedCollections) == 0
}

// ObserveTimestamp widens the date range to include ts. Zero is ignored.
func (m *Metadata) ObserveTimestamp(ts int64) {
	if ts == 0 {
		return
	}
	if m.EarliestMatch == 0 || ts < m.EarliestMatch {
		m.EarliestMatch = ts
	}
	if ts > m.LatestMatch {
		m.LatestMatch = ts
	}
}

// Index is the cross-referenced championship database.
type Index struct {
	Teams      map[string]*TeamEntry       `json:"teams"`
	Players    map[string]*PlayerEntry     `json:"players"`
	Matches    []MatchRecord               `json:"matches"`
	MatchStats map[string]MatchStatsRecord `json:"match_stats"`
	Metadata   Metadata                    `json:"metadata"`

	// StatsOmitted is set on indexes restored from a compressed export:
	// per-match rosters and per-round statistics must be re-fetched.
	StatsOmitted bool `json:"-"`
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		Teams:      make(map[string]*TeamEntry),
		Players:    make(map[string]*PlayerEntry),
		Matches:    []MatchRecord{},
		MatchStats: make(map[string]MatchStatsRecord),
	}
}

// Match returns the match record with the given identifier.
func (idx *Index) Match(matchID string) (MatchRecord, bool) {
	for _, m := range idx.Matches {
		if m.MatchID == matchID {
			return m, true
		}
	}
	return MatchRecord{}, false
}
