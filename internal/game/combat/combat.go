// Package combat resolves quiz-gated turns between a character and a monster.
package combat

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/quizbattle/internal/game/character"
	"github.com/cory-johannsen/quizbattle/internal/game/effect"
	"github.com/cory-johannsen/quizbattle/internal/game/monster"
)

var (
	// ErrUnknownSkill is returned when a use_skill action names a skill that does not exist.
	ErrUnknownSkill = errors.New("unknown skill")
	// ErrInsufficientEnergy is returned when the character cannot pay a skill's cost.
	ErrInsufficientEnergy = errors.New("insufficient energy")
	// ErrInvariantViolation is returned when a combatant's stats are out of range.
	ErrInvariantViolation = errors.New("combatant invariant violated")
)

// Character is the battle-local copy of a player character.
type Character struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	Experience int    `json:"experience"`
	HP         int    `json:"hp"`
	MaxHP      int    `json:"max_hp"` // base value before effects
	Energy     int    `json:"energy"`
	MaxEnergy  int    `json:"max_energy"`
	Strength   int    `json:"strength"`
	// Intelligence scales skill output.
	Intelligence int             `json:"intelligence"`
	IsDefending  bool            `json:"is_defending"`
	Effects      []effect.Active `json:"effects"`
}

// NewCharacter copies the persistent record into a combatant.
//
// Precondition: c must not be nil.
func NewCharacter(c *character.Character) *Character {
	return &Character{
		ID:           c.ID,
		Name:         c.Name,
		Level:        c.Level,
		Experience:   c.Experience,
		HP:           c.CurrentHP,
		MaxHP:        c.MaxHP,
		Energy:       c.Energy,
		MaxEnergy:    c.MaxEnergy,
		Strength:     c.Strength,
		Intelligence: c.Intelligence,
	}
}

// Base returns the character's stats without effects.
func (c *Character) Base() effect.Stats {
	return effect.Stats{HP: c.HP, MaxHP: c.MaxHP, Strength: c.Strength, Intelligence: c.Intelligence}
}

// Effective returns the character's stats with every active effect applied.
func (c *Character) Effective() effect.Stats {
	return effect.Adjust(c.Base(), c.Effects)
}

// Clone returns a deep copy of c.
func (c *Character) Clone() *Character {
	cp := *c
	cp.Effects = append([]effect.Active(nil), c.Effects...)
	return &cp
}

// ApplyDamage reduces HP by amount, flooring at zero, and returns the hp change.
//
// Precondition: amount >= 0.
// Postcondition: HP >= 0; the returned delta is <= 0.
func (c *Character) ApplyDamage(amount int) int {
	before := c.HP
	c.HP = max(0, c.HP-amount)
	return c.HP - before
}

// Heal raises HP by amount, capped at the effective max hp, and returns the hp change.
//
// Postcondition: HP <= Effective().MaxHP; the returned delta is >= 0.
func (c *Character) Heal(amount int) int {
	before := c.HP
	c.HP = min(c.Effective().MaxHP, c.HP+amount)
	if c.HP < before {
		c.HP = before
	}
	return c.HP - before
}

// AddEnergy changes energy by delta, clamped to [0, MaxEnergy], and returns
// the applied change.
func (c *Character) AddEnergy(delta int) int {
	before := c.Energy
	c.Energy = min(c.MaxEnergy, max(0, c.Energy+delta))
	return c.Energy - before
}

// CheckInvariants reports whether hp and energy are within bounds.
//
// Postcondition: returns an error wrapping ErrInvariantViolation on the first
// out-of-range value.
func (c *Character) CheckInvariants() error {
	maxHP := c.Effective().MaxHP
	switch {
	case c.HP < 0:
		return fmt.Errorf("character hp %d is negative: %w", c.HP, ErrInvariantViolation)
	case c.HP > maxHP:
		return fmt.Errorf("character hp %d exceeds max %d: %w", c.HP, maxHP, ErrInvariantViolation)
	case c.Energy < 0:
		return fmt.Errorf("character energy %d is negative: %w", c.Energy, ErrInvariantViolation)
	case c.Energy > c.MaxEnergy:
		return fmt.Errorf("character energy %d exceeds max %d: %w", c.Energy, c.MaxEnergy, ErrInvariantViolation)
	}
	for _, e := range c.Effects {
		if e.Remaining < 1 {
			return fmt.Errorf("effect %q has %d remaining turns: %w", e.Name, e.Remaining, ErrInvariantViolation)
		}
	}
	return nil
}

// Monster is a catalog monster in battle. It has no energy and no effects.
type Monster struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	HP         int    `json:"hp"`
	MaxHP      int    `json:"max_hp"`
	BaseDamage int    `json:"base_damage"`
	XPReward   int    `json:"xp_reward"`
}

// NewMonster creates a full-health monster from its template.
//
// Precondition: t must not be nil and must be valid.
func NewMonster(t *monster.Template) *Monster {
	return &Monster{
		ID:         t.ID,
		Name:       t.Name,
		HP:         t.HP,
		MaxHP:      t.HP,
		BaseDamage: t.BaseDamage,
		XPReward:   t.XPReward,
	}
}

// Clone returns a copy of m.
func (m *Monster) Clone() *Monster {
	cp := *m
	return &cp
}

// ApplyDamage reduces HP by amount, flooring at zero, and returns the hp change.
//
// Precondition: amount >= 0.
func (m *Monster) ApplyDamage(amount int) int {
	before := m.HP
	m.HP = max(0, m.HP-amount)
	return m.HP - before
}

// IsDead reports whether the monster has no hp left.
func (m *Monster) IsDead() bool { return m.HP <= 0 }

// CheckInvariants reports whether hp is within [0, MaxHP].
func (m *Monster) CheckInvariants() error {
	if m.HP < 0 || m.HP > m.MaxHP {
		return fmt.Errorf("monster hp %d outside [0, %d]: %w", m.HP, m.MaxHP, ErrInvariantViolation)
	}
	return nil
}
