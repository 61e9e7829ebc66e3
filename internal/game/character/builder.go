package character

import "errors"

// Starting values for a freshly built character.
const (
	StartingHP           = 100
	StartingEnergy       = 100
	StartingStrength     = 10
	StartingIntelligence = 10
)

// Build constructs a new level 1 character at full hp and energy.
//
// Precondition: name must be non-empty.
// Postcondition: Returns a Character ready for persistence, or a non-nil error.
func Build(name string) (*Character, error) {
	if name == "" {
		return nil, errors.New("character name must not be empty")
	}
	return &Character{
		Name:         name,
		Level:        1,
		MaxHP:        StartingHP,
		CurrentHP:    StartingHP,
		MaxEnergy:    StartingEnergy,
		Energy:       StartingEnergy,
		Strength:     StartingStrength,
		Intelligence: StartingIntelligence,
	}, nil
}

// AwardExperience adds xp to the character's experience total.
//
// Precondition: xp >= 0.
func (c *Character) AwardExperience(xp int) {
	if xp > 0 {
		c.Experience += xp
	}
}
