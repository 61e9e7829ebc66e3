package combat_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/quizbattle/internal/game/battlelog"
	"github.com/cory-johannsen/quizbattle/internal/game/character"
	"github.com/cory-johannsen/quizbattle/internal/game/combat"
	"github.com/cory-johannsen/quizbattle/internal/game/effect"
	"github.com/cory-johannsen/quizbattle/internal/game/monster"
)

// fixedSrc returns val for every Intn call. val 1 makes 1d3-2 roll zero.
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(_ int) int { return f.val }

var zeroVariance = fixedSrc{val: 1}

type stubFormulas struct {
	result int
	err    error
	vars   map[string]int
}

func (s *stubFormulas) Evaluate(_ string, vars map[string]int) (int, error) {
	s.vars = vars
	return s.result, s.err
}

func testSkills(t *testing.T) *combat.SkillBook {
	t.Helper()
	book, err := combat.NewSkillBook([]*combat.Skill{
		{ID: "fireball", Name: "Fireball", Cost: 20, Kind: combat.SkillDamage, Power: 10},
		{ID: "mend", Name: "Mend", Cost: 10, Kind: combat.SkillHeal, Power: 15},
		{ID: "might", Name: "Might", Cost: 15, Kind: combat.SkillBuff,
			Effect: &effect.Def{Name: "Might", Mode: effect.ModeFlat, Stat: effect.StatStrength, Amount: 5, Turns: 2}},
		{ID: "smite", Name: "Smite", Cost: 5, Kind: combat.SkillDamage, Power: 1, Formula: "power * 100"},
	})
	require.NoError(t, err)
	return book
}

func newResolver(t *testing.T, formulas combat.FormulaEvaluator) *combat.Resolver {
	t.Helper()
	return combat.NewResolver(combat.DefaultRules(), testSkills(t), formulas, zaptest.NewLogger(t))
}

func hero() *combat.Character {
	c, _ := character.Build("Hero")
	c.CurrentHP = 50
	c.MaxHP = 50
	return combat.NewCharacter(c)
}

func goblin() *combat.Monster {
	return combat.NewMonster(&monster.Template{ID: "goblin", Name: "Goblin", HP: 30, BaseDamage: 8, XPReward: 25})
}

func TestAttack_CorrectDealsStrengthDamage(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()

	entries, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionAttack}, true, zeroVariance)
	require.NoError(t, err)

	assert.Equal(t, 20, m.HP, "30 - (strength 10 + 0 level bonus + 0 variance)")
	require.Len(t, entries, 1)
	assert.Equal(t, battlelog.TypeDamage, entries[0].Type)
	assert.Equal(t, battlelog.TargetMonster, entries[0].Target)
	assert.Equal(t, -10, entries[0].HPDelta)
	require.NotNil(t, entries[0].Amount)
	assert.Equal(t, 10, *entries[0].Amount)
}

func TestAttack_LevelAndEffectsRaiseDamage(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()
	ch.Level = 3
	ch.Effects = []effect.Active{{Name: "Might", Mode: effect.ModeFlat, Stat: effect.StatStrength, Amount: 5, Remaining: 2}}

	_, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionAttack}, true, zeroVariance)
	require.NoError(t, err)
	assert.Equal(t, 30-(15+4), m.HP)
}

func TestAttackDamage_MinimumOne(t *testing.T) {
	ch := hero()
	ch.Strength = 0
	assert.Equal(t, 1, combat.AttackDamage(ch, -1))
}

func TestAttack_MonsterHPFloorsAtZero(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()
	m.HP = 4

	entries, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionAttack}, true, zeroVariance)
	require.NoError(t, err)
	assert.Equal(t, 0, m.HP)
	assert.True(t, m.IsDead())
	assert.Equal(t, -4, entries[0].HPDelta)
}

func TestAttack_IncorrectMisses(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()

	entries, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionAttack}, false, zeroVariance)
	require.NoError(t, err)
	assert.Equal(t, 30, m.HP)
	require.Len(t, entries, 1)
	assert.Equal(t, battlelog.TypeInfo, entries[0].Type)
	assert.Contains(t, entries[0].Message, "misses")
}

func TestDefend_HalvesMonsterDamageAndResets(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()

	_, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionDefend}, false, zeroVariance)
	require.NoError(t, err)
	assert.True(t, ch.IsDefending)

	entries := r.ResolveMonsterTurn(ch, m)
	assert.Equal(t, 46, ch.HP)
	assert.False(t, ch.IsDefending)
	require.Len(t, entries, 1)
	assert.Equal(t, battlelog.ActorMonster, entries[0].Actor)
	assert.Equal(t, -4, entries[0].HPDelta)
}

func TestDefend_CorrectGrantsEnergy(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()
	ch.Energy = 50

	entries, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionDefend}, true, zeroVariance)
	require.NoError(t, err)
	assert.Equal(t, 60, ch.Energy)
	require.Len(t, entries, 2)
	assert.Equal(t, battlelog.TypeStatus, entries[1].Type)
	assert.Equal(t, 10, entries[1].EnergyDelta)
}

func TestDefend_EnergyBonusClamped(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()
	ch.Energy = ch.MaxEnergy - 3

	entries, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionDefend}, true, zeroVariance)
	require.NoError(t, err)
	assert.Equal(t, ch.MaxEnergy, ch.Energy)
	assert.Equal(t, 3, entries[1].EnergyDelta)
}

func TestMonsterTurn_UndefendedFullDamage(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()
	r.ResolveMonsterTurn(ch, m)
	assert.Equal(t, 42, ch.HP)
}

func TestMonsterTurn_HPFloorsAtZero(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()
	ch.HP = 3
	entries := r.ResolveMonsterTurn(ch, m)
	assert.Equal(t, 0, ch.HP)
	assert.Equal(t, -3, entries[0].HPDelta)
}

func TestUseSkill_DamageDefaultFormula(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()

	entries, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionUseSkill, SkillID: "fireball"}, true, zeroVariance)
	require.NoError(t, err)
	assert.Equal(t, 80, ch.Energy)
	assert.Equal(t, 30-(10+5), m.HP)
	require.Len(t, entries, 2)
	assert.Equal(t, -20, entries[0].EnergyDelta)
	assert.Equal(t, battlelog.TypeDamage, entries[1].Type)
}

func TestUseSkill_IncorrectStillSpendsEnergy(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()

	entries, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionUseSkill, SkillID: "fireball"}, false, zeroVariance)
	require.NoError(t, err)
	assert.Equal(t, 80, ch.Energy)
	assert.Equal(t, 30, m.HP)
	require.Len(t, entries, 2)
	assert.Equal(t, battlelog.TypeInfo, entries[1].Type)
}

func TestUseSkill_HealClampsToMax(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()
	ch.HP = 45

	entries, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionUseSkill, SkillID: "mend"}, true, zeroVariance)
	require.NoError(t, err)
	assert.Equal(t, 50, ch.HP)
	assert.Equal(t, 5, entries[1].HPDelta)
	assert.Equal(t, 20, *entries[1].Amount)
}

func TestUseSkill_BuffStacksEffect(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()

	_, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionUseSkill, SkillID: "might"}, true, zeroVariance)
	require.NoError(t, err)
	require.Len(t, ch.Effects, 1)
	assert.Equal(t, 15, ch.Effective().Strength)
}

func TestUseSkill_Formula(t *testing.T) {
	f := &stubFormulas{result: 7}
	r := newResolver(t, f)
	ch, m := hero(), goblin()

	_, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionUseSkill, SkillID: "smite"}, true, zeroVariance)
	require.NoError(t, err)
	assert.Equal(t, 23, m.HP)
	assert.Equal(t, 1, f.vars["power"])
	assert.Equal(t, 30, f.vars["monster_hp"])
}

func TestUseSkill_FormulaErrorFallsBack(t *testing.T) {
	r := newResolver(t, &stubFormulas{err: errors.New("boom")})
	ch, m := hero(), goblin()

	_, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionUseSkill, SkillID: "smite"}, true, zeroVariance)
	require.NoError(t, err)
	assert.Equal(t, 30-(1+5), m.HP)
}

func TestCheckAction(t *testing.T) {
	r := newResolver(t, nil)
	ch := hero()

	assert.NoError(t, r.CheckAction(ch, combat.Action{Kind: combat.ActionAttack}))
	assert.ErrorIs(t, r.CheckAction(ch, combat.Action{Kind: combat.ActionUseSkill, SkillID: "nope"}), combat.ErrUnknownSkill)

	ch.Energy = 19
	assert.ErrorIs(t, r.CheckAction(ch, combat.Action{Kind: combat.ActionUseSkill, SkillID: "fireball"}), combat.ErrInsufficientEnergy)
	assert.Error(t, r.CheckAction(ch, combat.Action{Kind: "dance"}))
	assert.Error(t, r.CheckAction(ch, combat.Action{Kind: combat.ActionAttack, SkillID: "fireball"}))
}

func TestResolveCharacterTurn_InsufficientEnergyLeavesStateUnchanged(t *testing.T) {
	r := newResolver(t, nil)
	ch, m := hero(), goblin()
	ch.Energy = 5
	before := ch.Clone()

	_, err := r.ResolveCharacterTurn(ch, m, combat.Action{Kind: combat.ActionUseSkill, SkillID: "fireball"}, true, zeroVariance)
	assert.ErrorIs(t, err, combat.ErrInsufficientEnergy)
	assert.Equal(t, before, ch)
	assert.Equal(t, 30, m.HP)
}

func TestTickEffects_HealDamageAndExpiry(t *testing.T) {
	r := newResolver(t, nil)
	ch := hero()
	ch.HP = 40
	ch.Effects = []effect.Active{
		{Name: "Regen", Mode: effect.ModeHeal, Amount: 5, Remaining: 1},
		{Name: "Poison", Mode: effect.ModeDamage, Amount: 3, Remaining: 2},
	}

	entries := r.TickEffects(ch)
	assert.Equal(t, 42, ch.HP)
	require.Len(t, ch.Effects, 1)
	assert.Equal(t, "Poison", ch.Effects[0].Name)
	assert.Equal(t, 1, ch.Effects[0].Remaining)

	require.Len(t, entries, 3)
	assert.Equal(t, battlelog.TypeHeal, entries[0].Type)
	assert.Equal(t, battlelog.TypeDamage, entries[1].Type)
	assert.Equal(t, battlelog.TypeStatus, entries[2].Type)
	assert.Contains(t, entries[2].Message, "Regen")
}

func TestTickEffects_MaxHPExpiryClamps(t *testing.T) {
	r := newResolver(t, nil)
	ch := hero()
	ch.Effects = []effect.Active{{Name: "Vigor", Mode: effect.ModeFlat, Stat: effect.StatMaxHP, Amount: 20, Remaining: 1}}
	ch.HP = 65

	entries := r.TickEffects(ch)
	assert.Equal(t, 50, ch.HP)
	assert.Empty(t, ch.Effects)
	last := entries[len(entries)-1]
	assert.Equal(t, -15, last.HPDelta)
}

func TestTickEffects_NoEffectsNoEntries(t *testing.T) {
	r := newResolver(t, nil)
	assert.Empty(t, r.TickEffects(hero()))
}

func TestCharacter_CheckInvariants(t *testing.T) {
	ch := hero()
	require.NoError(t, ch.CheckInvariants())

	bad := ch.Clone()
	bad.HP = -1
	assert.ErrorIs(t, bad.CheckInvariants(), combat.ErrInvariantViolation)

	bad = ch.Clone()
	bad.Energy = bad.MaxEnergy + 1
	assert.ErrorIs(t, bad.CheckInvariants(), combat.ErrInvariantViolation)

	m := goblin()
	m.HP = m.MaxHP + 1
	assert.ErrorIs(t, m.CheckInvariants(), combat.ErrInvariantViolation)
}

func TestCharacter_CloneIsDeep(t *testing.T) {
	ch := hero()
	ch.Effects = []effect.Active{{Name: "a", Mode: effect.ModeHeal, Remaining: 2}}
	cp := ch.Clone()
	cp.Effects[0].Remaining = 9
	assert.Equal(t, 2, ch.Effects[0].Remaining)
}

func TestRules_Validate(t *testing.T) {
	require.NoError(t, combat.DefaultRules().Validate())
	r := combat.DefaultRules()
	r.DefendReductionPercent = 120
	r.DefendEnergyBonus = -1
	assert.Error(t, r.Validate())
}

func TestLoadSkills(t *testing.T) {
	dir := t.TempDir()
	data := `skills:
  - id: fireball
    name: Fireball
    cost: 20
    kind: damage
    power: 10
  - id: shield
    name: Shield
    cost: 10
    kind: buff
    effect:
      name: Shielded
      mode: flat
      stat: max_hp
      amount: 10
      turns: 3
      max_level: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skills.yaml"), []byte(data), 0o644))
	skills, err := combat.LoadSkills(dir)
	require.NoError(t, err)
	require.Len(t, skills, 2)

	book, err := combat.NewSkillBook(skills)
	require.NoError(t, err)
	s, ok := book.Get("shield")
	require.True(t, ok)
	assert.Equal(t, 3, s.Effect.Turns)
	assert.Len(t, book.All(), 2)
}

func TestLoadSkills_BuffWithoutEffect(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"),
		[]byte("skills:\n  - id: x\n    name: X\n    kind: buff\n"), 0o644))
	_, err := combat.LoadSkills(dir)
	assert.Error(t, err)
}

func TestParseActionKind(t *testing.T) {
	k, err := combat.ParseActionKind("use_skill")
	require.NoError(t, err)
	assert.Equal(t, combat.ActionUseSkill, k)
	_, err = combat.ParseActionKind("flee")
	assert.Error(t, err)
}
