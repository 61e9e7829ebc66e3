package battle

import (
	"context"

	"github.com/cory-johannsen/quizbattle/internal/game/battlelog"
	"github.com/cory-johannsen/quizbattle/internal/game/combat"
	"github.com/cory-johannsen/quizbattle/internal/game/question"
)

// Snapshot is the complete persisted form of a session, sufficient to
// resume it.
type Snapshot struct {
	BattleID        string              `json:"battle_id"`
	CharacterID     int64               `json:"character_id"`
	Difficulty      question.Difficulty `json:"difficulty"`
	ContentID       string              `json:"content_id,omitempty"`
	Phase           Phase               `json:"phase"`
	Winner          Winner              `json:"winner,omitempty"`
	Round           int                 `json:"round"`
	Seed            uint64              `json:"seed,string"`
	Character       combat.Character    `json:"character"`
	Monster         combat.Monster      `json:"monster"`
	PendingAction   *combat.Action      `json:"pending_action,omitempty"`
	PendingQuestion *question.Info      `json:"pending_question,omitempty"`
	Asked           []string            `json:"asked"`
	Initial         battlelog.Totals    `json:"initial"`
	Log             []battlelog.Entry   `json:"log"`
	// XPAwarded is the experience this battle granted; zero until a win.
	XPAwarded int `json:"xp_awarded,omitempty"`
}

// IsFinished reports whether the snapshot is of a finished battle.
func (s Snapshot) IsFinished() bool { return s.Phase == PhaseFinished }

// Progress returns the hp a finished battle leaves its character with and the
// experience it gained. A character knocked out is revived at half its max hp
// so a defeat never retires it.
//
// Postcondition: 1 <= hp <= Character.MaxHP; xpGained >= 0.
func (s Snapshot) Progress() (hp, xpGained int) {
	maxHP := max(1, s.Character.MaxHP)
	hp = min(s.Character.HP, maxHP)
	if hp <= 0 {
		hp = max(1, maxHP/2)
	}
	return hp, max(0, s.XPAwarded)
}

// Saver persists snapshots. A failed save never fails a battle operation.
type Saver interface {
	SaveBattleState(ctx context.Context, characterID int64, battleID string, snap Snapshot) error
}

// NopSaver discards every snapshot.
type NopSaver struct{}

// SaveBattleState implements Saver.
func (NopSaver) SaveBattleState(context.Context, int64, string, Snapshot) error { return nil }
