package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/quizbattle/internal/game/battlelog"
	"github.com/cory-johannsen/quizbattle/internal/game/combat"
	"github.com/cory-johannsen/quizbattle/internal/game/dice"
	"github.com/cory-johannsen/quizbattle/internal/game/effect"
)

// TestProperty_HPBoundsAndReplay drives random action sequences and checks
// that hp stays in bounds and the entries' deltas reproduce the final totals.
func TestProperty_HPBoundsAndReplay(t *testing.T) {
	book, err := combat.NewSkillBook([]*combat.Skill{
		{ID: "fireball", Name: "Fireball", Cost: 20, Kind: combat.SkillDamage, Power: 10},
		{ID: "mend", Name: "Mend", Cost: 10, Kind: combat.SkillHeal, Power: 15,
			Effect: &effect.Def{Name: "Regen", Mode: effect.ModeHeal, Amount: 3, Turns: 2}},
		{ID: "vigor", Name: "Vigor", Cost: 5, Kind: combat.SkillBuff,
			Effect: &effect.Def{Name: "Vigor", Mode: effect.ModePercent, Stat: effect.StatMaxHP, Amount: 20, Turns: 2, MaxLevel: 2}},
		{ID: "curse", Name: "Curse", Cost: 0, Kind: combat.SkillBuff,
			Effect: &effect.Def{Name: "Curse", Mode: effect.ModeDamage, Amount: 4, Turns: 3}},
	})
	if err != nil {
		t.Fatal(err)
	}
	r := combat.NewResolver(combat.DefaultRules(), book, nil, zap.NewNop())
	actions := []combat.Action{
		{Kind: combat.ActionAttack},
		{Kind: combat.ActionDefend},
		{Kind: combat.ActionUseSkill, SkillID: "fireball"},
		{Kind: combat.ActionUseSkill, SkillID: "mend"},
		{Kind: combat.ActionUseSkill, SkillID: "vigor"},
		{Kind: combat.ActionUseSkill, SkillID: "curse"},
	}

	rapid.Check(t, func(rt *rapid.T) {
		ch := hero()
		ch.HP = rapid.IntRange(1, ch.MaxHP).Draw(rt, "hp")
		m := goblin()
		m.HP = rapid.IntRange(1, 200).Draw(rt, "monster_hp")
		m.MaxHP = m.HP
		m.BaseDamage = rapid.IntRange(0, 20).Draw(rt, "base_damage")
		initial := battlelog.Totals{CharacterHP: ch.HP, CharacterEnergy: ch.Energy, MonsterHP: m.HP}
		seed := rapid.Uint64().Draw(rt, "seed")

		var all []battlelog.Entry
		turns := rapid.IntRange(1, 30).Draw(rt, "turns")
		for turn := 0; turn < turns && ch.HP > 0 && m.HP > 0; turn++ {
			act := actions[rapid.IntRange(0, len(actions)-1).Draw(rt, "action")]
			if r.CheckAction(ch, act) != nil {
				act = combat.Action{Kind: combat.ActionAttack}
			}
			correct := rapid.Bool().Draw(rt, "correct")
			entries, err := r.ResolveCharacterTurn(ch, m, act, correct, dice.NewSeededSource(seed, uint64(turn)))
			if err != nil {
				rt.Fatalf("resolve: %v", err)
			}
			all = append(all, entries...)
			if m.HP > 0 {
				all = append(all, r.ResolveMonsterTurn(ch, m)...)
			}
			all = append(all, r.TickEffects(ch)...)

			assert.NoError(rt, ch.CheckInvariants())
			assert.NoError(rt, m.CheckInvariants())
		}

		final := battlelog.Replay(initial, all)
		assert.Equal(rt, ch.HP, final.CharacterHP)
		assert.Equal(rt, ch.Energy, final.CharacterEnergy)
		assert.Equal(rt, m.HP, final.MonsterHP)
	})
}

func TestProperty_MonsterDamageNeverExceedsBase(t *testing.T) {
	r := combat.NewResolver(combat.DefaultRules(), mustBook(t), nil, zap.NewNop())
	rapid.Check(t, func(rt *rapid.T) {
		ch, m := hero(), goblin()
		m.BaseDamage = rapid.IntRange(0, 1000).Draw(rt, "base")
		ch.IsDefending = rapid.Bool().Draw(rt, "defending")
		dmg := r.MonsterDamage(ch, m)
		assert.GreaterOrEqual(rt, dmg, 0)
		assert.LessOrEqual(rt, dmg, m.BaseDamage)
		if ch.IsDefending {
			assert.Equal(rt, m.BaseDamage/2, dmg)
		}
	})
}

func mustBook(t *testing.T) *combat.SkillBook {
	book, err := combat.NewSkillBook(nil)
	if err != nil {
		t.Fatal(err)
	}
	return book
}
