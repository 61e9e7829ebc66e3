package effect

// Stats is the working copy of a character's stats the engine operates on.
type Stats struct {
	HP           int
	MaxHP        int
	Strength     int
	Intelligence int
}

// Adjust returns base with every flat and percent effect applied.
//
// Flat amounts for a stat are summed. Percent amounts for a stat are summed
// first and applied once against the base value, so several percent effects on
// one stat never compound and the result does not depend on effect order.
// HP is returned unchanged.
//
// Postcondition: Strength >= 0, Intelligence >= 0, MaxHP >= 1.
func Adjust(base Stats, effects []Active) Stats {
	flat := map[Stat]int{}
	pct := map[Stat]int{}
	for _, e := range effects {
		switch e.Mode {
		case ModeFlat:
			flat[e.Stat] += e.Amount
		case ModePercent:
			pct[e.Stat] += e.Amount
		}
	}
	apply := func(stat Stat, v, floor int) int {
		out := v + flat[stat] + v*pct[stat]/100
		if out < floor {
			return floor
		}
		return out
	}
	return Stats{
		HP:           base.HP,
		MaxHP:        apply(StatMaxHP, base.MaxHP, 1),
		Strength:     apply(StatStrength, base.Strength, 0),
		Intelligence: apply(StatIntelligence, base.Intelligence, 0),
	}
}

// TickRecord describes one hp change produced by a heal or damage effect.
type TickRecord struct {
	Name    string
	Mode    Mode
	HPDelta int
}

// TickResult is the outcome of one round-boundary tick.
type TickResult struct {
	// HP is the character's hp after all ticks and clamping.
	HP int
	// Adjusted holds the stats under the surviving effects, with HP set.
	Adjusted Stats
	// Surviving are the effects still active, remaining turns decremented.
	Surviving []Active
	// Expired lists, in order, the names of effects removed by this tick.
	Expired []string
	// Ticks lists the heal/damage applications in effect order.
	Ticks []TickRecord
	// ClampDelta is the hp change not covered by Ticks, caused by clamping
	// hp to a max hp that shrank when a max_hp effect expired.
	// HP == base.HP + sum(Ticks.HPDelta) + ClampDelta.
	ClampDelta int
}

// Tick applies one round of effects to base.
//
// Heal and damage effects change hp, clamped to [0, max hp under the current
// effects]. Every effect then loses exactly one remaining turn and is dropped
// when it reaches zero. Finally hp is clamped to the max hp under the
// surviving effects.
//
// Postcondition: 0 <= HP <= Adjusted.MaxHP; every surviving Remaining equals
// the input Remaining - 1 and is >= 1; base and effects are not modified.
func Tick(base Stats, effects []Active) TickResult {
	current := Adjust(base, effects)
	hp := clamp(base.HP, 0, current.MaxHP)

	var res TickResult
	for _, e := range effects {
		var delta int
		switch e.Mode {
		case ModeHeal:
			delta = clamp(hp+e.Amount, 0, current.MaxHP) - hp
		case ModeDamage:
			delta = clamp(hp-e.Amount, 0, current.MaxHP) - hp
		default:
			continue
		}
		hp += delta
		res.Ticks = append(res.Ticks, TickRecord{Name: e.Name, Mode: e.Mode, HPDelta: delta})
	}

	res.Surviving = make([]Active, 0, len(effects))
	for _, e := range effects {
		e.Remaining--
		if e.Remaining <= 0 {
			res.Expired = append(res.Expired, e.Name)
			continue
		}
		res.Surviving = append(res.Surviving, e)
	}

	res.Adjusted = Adjust(base, res.Surviving)
	if hp > res.Adjusted.MaxHP {
		hp = res.Adjusted.MaxHP
	}
	res.HP = hp
	res.Adjusted.HP = hp
	res.ClampDelta = hp - base.HP
	for _, t := range res.Ticks {
		res.ClampDelta -= t.HPDelta
	}
	return res
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
