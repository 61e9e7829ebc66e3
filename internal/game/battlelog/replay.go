package battlelog

// Totals is the replayable part of a battle's state.
type Totals struct {
	CharacterHP     int `json:"character_hp"`
	CharacterEnergy int `json:"character_energy"`
	MonsterHP       int `json:"monster_hp"`
}

// Replay applies the deltas of entries, in order, to initial.
func Replay(initial Totals, entries []Entry) Totals {
	t := initial
	for _, e := range entries {
		switch e.Target {
		case TargetCharacter:
			t.CharacterHP += e.HPDelta
			t.CharacterEnergy += e.EnergyDelta
		case TargetMonster:
			t.MonsterHP += e.HPDelta
		}
	}
	return t
}
