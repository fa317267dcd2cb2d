package model

// FirstDefined returns the first non-empty candidate.
// Upstream API variants carry the same attribute under different field
// names; callers list the candidates in priority order.
func FirstDefined(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if c != "" {
			return c, true
		}
	}
	return "", false
}

// ResolveID returns the faction's team identifier.
func (f Faction) ResolveID() (string, bool) {
	return FirstDefined(f.FactionID, f.TeamID, f.ID)
}

// ResolveName returns the faction's display name.
func (f Faction) ResolveName() (string, bool) {
	return FirstDefined(f.Name, f.Nickname, f.TeamName)
}

// ResolveID returns the roster player's identifier.
func (p RosterPlayer) ResolveID() (string, bool) {
	return FirstDefined(p.PlayerID, p.ID, p.GamePlayerID)
}

// ResolveName returns the roster player's display name.
func (p RosterPlayer) ResolveName() (string, bool) {
	return FirstDefined(p.Nickname, p.Name, p.GamePlayerName)
}

// ResolveID returns the team identifier of a per-round team entry.
func (t TeamStats) ResolveID() (string, bool) {
	return FirstDefined(t.TeamID, t.FactionID)
}

// ResolveName returns the display name of a per-round team entry.
func (t TeamStats) ResolveName() (string, bool) {
	return FirstDefined(t.TeamStats["Team"], t.Name, t.Nickname)
}

// ResolveID returns the identifier of a per-round player entry.
func (p PlayerStats) ResolveID() (string, bool) {
	return FirstDefined(p.PlayerID, p.ID)
}

// ResolveName returns the display name of a per-round player entry.
func (p PlayerStats) ResolveName() (string, bool) {
	return FirstDefined(p.Nickname, p.Name)
}
