package battle

import (
	"errors"

	"github.com/cory-johannsen/quizbattle/internal/game/combat"
	"github.com/cory-johannsen/quizbattle/internal/game/question"
)

var (
	// ErrNotFound is returned when no session is registered under a battle id.
	ErrNotFound = errors.New("battle not found")
	// ErrInvalidMonster is returned when a battle names a monster missing from the catalog.
	ErrInvalidMonster = errors.New("invalid monster")
	// ErrInvalidDifficulty is returned for an unknown difficulty tier.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrInvalidCharacter is returned when a battle is started with an unusable character.
	ErrInvalidCharacter = errors.New("invalid character")
	// ErrInvalidAction is returned for a malformed action.
	ErrInvalidAction = errors.New("invalid action")
	// ErrInvalidState is returned when an operation is not allowed in the current phase.
	ErrInvalidState = errors.New("operation not allowed in current phase")
	// ErrBattleBusy is returned when another request on the same battle is in flight.
	ErrBattleBusy = errors.New("battle is busy")
	// ErrCharacterInBattle is returned when a character already has an unfinished battle.
	ErrCharacterInBattle = errors.New("character is already in a battle")
	// ErrNotSaved is returned when a battle cannot be archived because its
	// final state could not be stored.
	ErrNotSaved = errors.New("battle result not saved")

	ErrInsufficientEnergy  = combat.ErrInsufficientEnergy
	ErrUnknownSkill        = combat.ErrUnknownSkill
	ErrInvariantViolation  = combat.ErrInvariantViolation
	ErrStaleQuestion       = question.ErrStaleQuestion
	ErrNoQuestionAvailable = question.ErrNoQuestionAvailable
)
