// Package effect implements timed stat modifiers attached to a character:
// how they stack, how they adjust stats and how they tick down and expire.
//
// Every function in this package is pure: inputs are never mutated.
package effect

import "fmt"

// Mode selects how an effect changes its target each round.
type Mode string

const (
	// ModeFlat adds Amount to Stat while active.
	ModeFlat Mode = "flat"
	// ModePercent adds Amount percent of the base Stat while active.
	ModePercent Mode = "percent"
	// ModeHeal restores Amount hp on every tick.
	ModeHeal Mode = "heal"
	// ModeDamage removes Amount hp on every tick.
	ModeDamage Mode = "damage"
)

// Stat names a stat an effect can modify.
type Stat string

const (
	StatStrength     Stat = "strength"
	StatIntelligence Stat = "intelligence"
	StatMaxHP        Stat = "max_hp"
)

// Def is the static definition of an effect, as declared by a skill.
type Def struct {
	Name   string `yaml:"name"`
	Mode   Mode   `yaml:"mode"`
	Stat   Stat   `yaml:"stat"`
	Amount int    `yaml:"amount"`
	// Turns counts round-end ticks, including the tick of the round the
	// effect is applied in; a stat buff with Turns n covers the next n-1 turns.
	Turns    int `yaml:"turns"`
	MaxLevel int `yaml:"max_level"` // 0 = unbounded independent stacking
}

// Validate checks the definition's invariants.
//
// Postcondition: Returns nil iff Name is non-empty, Turns >= 1, MaxLevel >= 0,
// Mode is known, and Stat is a known stat when Mode is flat or percent.
func (d Def) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("effect: name must not be empty")
	}
	if d.Turns < 1 {
		return fmt.Errorf("effect %q: turns must be >= 1, got %d", d.Name, d.Turns)
	}
	if d.MaxLevel < 0 {
		return fmt.Errorf("effect %q: max_level must be >= 0, got %d", d.Name, d.MaxLevel)
	}
	switch d.Mode {
	case ModeFlat, ModePercent:
		switch d.Stat {
		case StatStrength, StatIntelligence, StatMaxHP:
		default:
			return fmt.Errorf("effect %q: unknown stat %q", d.Name, d.Stat)
		}
	case ModeHeal, ModeDamage:
		if d.Amount < 0 {
			return fmt.Errorf("effect %q: %s amount must be >= 0", d.Name, d.Mode)
		}
	default:
		return fmt.Errorf("effect %q: unknown mode %q", d.Name, d.Mode)
	}
	return nil
}

// Instance creates a fresh Active effect from the definition.
func (d Def) Instance() Active {
	return Active{
		Name:      d.Name,
		Mode:      d.Mode,
		Stat:      d.Stat,
		Amount:    d.Amount,
		Remaining: d.Turns,
		MaxLevel:  d.MaxLevel,
	}
}

// Active is one applied effect instance.
// Invariant: Remaining >= 1 while the effect is held by a character.
type Active struct {
	Name      string `json:"name"`
	Mode      Mode   `json:"mode"`
	Stat      Stat   `json:"stat,omitempty"`
	Amount    int    `json:"amount"`
	Remaining int    `json:"remaining"`
	MaxLevel  int    `json:"max_level,omitempty"`
}

// Stack returns effects with next applied.
//
// Effects sharing a name are independent entries. When next.MaxLevel > 0 and
// that many entries of the name already exist, the entry with the fewest
// remaining turns (earliest on ties) is replaced instead of appending.
//
// Postcondition: the input slice is not modified.
func Stack(effects []Active, next Active) []Active {
	out := make([]Active, len(effects), len(effects)+1)
	copy(out, effects)
	if next.MaxLevel > 0 {
		count, victim := 0, -1
		for i, e := range out {
			if e.Name != next.Name {
				continue
			}
			count++
			if victim < 0 || e.Remaining < out[victim].Remaining {
				victim = i
			}
		}
		if count >= next.MaxLevel {
			out[victim] = next
			return out
		}
	}
	return append(out, next)
}

// Names returns the names of effects in order.
func Names(effects []Active) []string {
	out := make([]string, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.Name)
	}
	return out
}
