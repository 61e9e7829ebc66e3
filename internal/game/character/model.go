// Package character defines the persistent player character model and pure
// creation logic.
package character

import (
	"fmt"
	"time"
)

// Character represents a player character's persistent state.
//
// ID is set by the persistence layer; zero indicates an unsaved character.
type Character struct {
	ID int64

	Name       string
	Level      int
	Experience int

	MaxHP     int
	CurrentHP int
	MaxEnergy int
	Energy    int

	Strength     int
	Intelligence int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the character's stat invariants.
//
// Precondition: c must not be nil.
// Postcondition: Returns nil iff Level >= 1, MaxHP >= 1, 0 <= CurrentHP <= MaxHP,
// 0 <= Energy <= MaxEnergy and no stat is negative.
func (c *Character) Validate() error {
	switch {
	case c.Level < 1:
		return fmt.Errorf("character %q: level must be >= 1", c.Name)
	case c.Experience < 0:
		return fmt.Errorf("character %q: experience must be >= 0", c.Name)
	case c.MaxHP < 1:
		return fmt.Errorf("character %q: max_hp must be >= 1", c.Name)
	case c.CurrentHP < 0 || c.CurrentHP > c.MaxHP:
		return fmt.Errorf("character %q: current_hp %d outside [0, %d]", c.Name, c.CurrentHP, c.MaxHP)
	case c.MaxEnergy < 0:
		return fmt.Errorf("character %q: max_energy must be >= 0", c.Name)
	case c.Energy < 0 || c.Energy > c.MaxEnergy:
		return fmt.Errorf("character %q: energy %d outside [0, %d]", c.Name, c.Energy, c.MaxEnergy)
	case c.Strength < 0 || c.Intelligence < 0:
		return fmt.Errorf("character %q: stats must be >= 0", c.Name)
	}
	return nil
}
