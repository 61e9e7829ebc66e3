package battle

import (
	"github.com/cory-johannsen/quizbattle/internal/game/battlelog"
	"github.com/cory-johannsen/quizbattle/internal/game/combat"
	"github.com/cory-johannsen/quizbattle/internal/game/effect"
	"github.com/cory-johannsen/quizbattle/internal/game/question"
)

// Phase is a step of the battle state machine.
type Phase string

const (
	PhaseAwaitingAction Phase = "awaiting_action"
	PhaseAwaitingAnswer Phase = "awaiting_answer"
	// PhaseResolving is held only while a turn is being applied.
	PhaseResolving Phase = "resolving"
	PhaseFinished  Phase = "finished"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseAwaitingAction, PhaseAwaitingAnswer, PhaseResolving, PhaseFinished:
		return true
	}
	return false
}

// Winner names the side that won a finished battle.
type Winner string

const (
	WinnerUndecided Winner = ""
	WinnerCharacter Winner = "character"
	WinnerMonster   Winner = "monster"
	// WinnerNone marks a battle aborted by an invariant violation or
	// abandoned by its player.
	WinnerNone Winner = "none"
)

// CharacterView is the character as shown to clients, with effects applied.
type CharacterView struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Level        int             `json:"level"`
	Experience   int             `json:"experience"`
	HP           int             `json:"hp"`
	MaxHP        int             `json:"max_hp"`
	Energy       int             `json:"energy"`
	MaxEnergy    int             `json:"max_energy"`
	Strength     int             `json:"strength"`
	Intelligence int             `json:"intelligence"`
	IsDefending  bool            `json:"is_defending"`
	Effects      []effect.Active `json:"effects"`
}

func characterView(c *combat.Character) CharacterView {
	eff := c.Effective()
	return CharacterView{
		ID:           c.ID,
		Name:         c.Name,
		Level:        c.Level,
		Experience:   c.Experience,
		HP:           c.HP,
		MaxHP:        eff.MaxHP,
		Energy:       c.Energy,
		MaxEnergy:    c.MaxEnergy,
		Strength:     eff.Strength,
		Intelligence: eff.Intelligence,
		IsDefending:  c.IsDefending,
		Effects:      append([]effect.Active{}, c.Effects...),
	}
}

// MonsterView is the monster as shown to clients.
type MonsterView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	HP         int    `json:"hp"`
	MaxHP      int    `json:"max_hp"`
	BaseDamage int    `json:"base_damage"`
}

func monsterView(m *combat.Monster) MonsterView {
	return MonsterView{ID: m.ID, Name: m.Name, HP: m.HP, MaxHP: m.MaxHP, BaseDamage: m.BaseDamage}
}

// TurnResult describes one resolved round.
type TurnResult struct {
	Round         int               `json:"round"`
	Action        combat.Action     `json:"action"`
	QuestionID    string            `json:"question_id"`
	Answer        string            `json:"answer"`
	Correct       bool              `json:"correct"`
	CorrectAnswer string            `json:"correct_answer"`
	Entries       []battlelog.Entry `json:"entries"`
	XPAwarded     int               `json:"xp_awarded,omitempty"`
}

// Response is the snapshot returned after every operation.
type Response struct {
	BattleID        string              `json:"battle_id"`
	Difficulty      question.Difficulty `json:"difficulty"`
	Phase           Phase               `json:"phase"`
	Round           int                 `json:"round"`
	Character       CharacterView       `json:"character"`
	Monster         MonsterView         `json:"monster"`
	PendingAction   *combat.Action      `json:"pending_action,omitempty"`
	CurrentQuestion *question.View      `json:"current_question,omitempty"`
	IsFinished      bool                `json:"is_finished"`
	TurnResult      *TurnResult         `json:"turn_result,omitempty"`
	Message         string              `json:"message"`
	Winner          Winner              `json:"winner,omitempty"`
	Warning         string              `json:"warning,omitempty"`
}

func messageFor(phase Phase, winner Winner, monsterName string) string {
	switch phase {
	case PhaseAwaitingAction:
		return "Choose your action."
	case PhaseAwaitingAnswer:
		return "Answer the question to carry out your action."
	case PhaseFinished:
		switch winner {
		case WinnerCharacter:
			return "Victory! The " + monsterName + " is defeated."
		case WinnerMonster:
			return "Defeat. The " + monsterName + " has bested you."
		default:
			return "The battle was aborted."
		}
	default:
		return ""
	}
}
