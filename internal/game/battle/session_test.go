package battle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/quizbattle/internal/game/battle"
	"github.com/cory-johannsen/quizbattle/internal/game/battlelog"
	"github.com/cory-johannsen/quizbattle/internal/game/combat"
	"github.com/cory-johannsen/quizbattle/internal/game/dice"
	"github.com/cory-johannsen/quizbattle/internal/game/monster"
)

var attack = combat.Action{Kind: combat.ActionAttack}

func firstRoundVariance() int {
	return dice.Roll(combat.DefaultRules().Variance, dice.NewSeededSource(testSeed, 1)).Total()
}

func TestStart_IssuesFirstQuestion(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")

	resp := s.State()
	assert.Equal(t, battle.PhaseAwaitingAction, resp.Phase)
	require.NotNil(t, resp.CurrentQuestion)
	assert.Equal(t, "q1", resp.CurrentQuestion.ID)
	assert.Equal(t, 1, resp.Round)
	assert.Equal(t, 50, resp.Character.HP)
	assert.Equal(t, 30, resp.Monster.HP)
	assert.False(t, resp.IsFinished)

	entries := s.Log()
	require.Len(t, entries, 1)
	assert.Equal(t, battlelog.ActorSystem, entries[0].Actor)
	assert.Equal(t, 1, f.reg.Count())
	assert.NotEmpty(t, f.saver.snaps, "start is persisted")
}

func TestStart_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reg.Start(ctx, battle.StartRequest{Character: hero(), MonsterID: "dragon", Difficulty: "easy"})
	assert.ErrorIs(t, err, battle.ErrInvalidMonster)

	_, err = f.reg.Start(ctx, battle.StartRequest{Character: hero(), MonsterID: "goblin", Difficulty: "impossible"})
	assert.ErrorIs(t, err, battle.ErrInvalidDifficulty)

	_, err = f.reg.Start(ctx, battle.StartRequest{MonsterID: "goblin", Difficulty: "easy"})
	assert.ErrorIs(t, err, battle.ErrInvalidCharacter)

	dead := hero()
	dead.CurrentHP = 0
	_, err = f.reg.Start(ctx, battle.StartRequest{Character: dead, MonsterID: "goblin", Difficulty: "easy"})
	assert.ErrorIs(t, err, battle.ErrInvalidCharacter)

	f.provider.limit = 0
	_, err = f.reg.Start(ctx, battle.StartRequest{Character: hero(), MonsterID: "goblin", Difficulty: "easy"})
	assert.ErrorIs(t, err, battle.ErrNoQuestionAvailable)

	assert.Zero(t, f.reg.Count())
}

func TestStart_StartingEnergyOverride(t *testing.T) {
	f := newFixture(t)
	catalog, _ := monster.NewCatalog([]*monster.Template{goblinTemplate()})
	reg := battle.NewRegistry(catalog, f.provider, combat.NewResolver(combat.DefaultRules(), mustSkills(t), nil, nopLogger()), nil, nopLogger(),
		battle.Options{StartingEnergy: 30})
	c := hero()
	c.Energy = 100
	resp, err := reg.Start(context.Background(), battle.StartRequest{Character: c, MonsterID: "goblin", Difficulty: "easy"})
	require.NoError(t, err)
	assert.Equal(t, 30, resp.Character.Energy)
}

func TestSubmitAction_MovesToAwaitingAnswer(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")

	resp, err := s.SubmitAction(context.Background(), attack)
	require.NoError(t, err)
	assert.Equal(t, battle.PhaseAwaitingAnswer, resp.Phase)
	require.NotNil(t, resp.PendingAction)
	assert.Equal(t, combat.ActionAttack, resp.PendingAction.Kind)
	assert.Equal(t, "q1", resp.CurrentQuestion.ID, "the prefetched question is bound to the action")
}

func TestSubmitAction_WrongPhase(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")
	_, err := s.SubmitAction(context.Background(), attack)
	require.NoError(t, err)

	before := s.State()
	resp, err := s.SubmitAction(context.Background(), attack)
	assert.ErrorIs(t, err, battle.ErrInvalidState)
	assert.Equal(t, before, resp)
}

func TestSubmitAction_InsufficientEnergyDoesNotAdvance(t *testing.T) {
	f := newFixture(t)
	c := hero()
	c.Energy = 5
	resp, err := f.reg.Start(context.Background(), battle.StartRequest{CharacterID: 7, Character: c, MonsterID: "goblin", Difficulty: "easy"})
	require.NoError(t, err)
	s, _ := f.reg.Get(resp.BattleID)
	before := s.State()
	logLen := len(s.Log())

	got, err := s.SubmitAction(context.Background(), combat.Action{Kind: combat.ActionUseSkill, SkillID: "fireball"})
	assert.ErrorIs(t, err, battle.ErrInsufficientEnergy)
	assert.Equal(t, before, got)
	assert.Equal(t, before, s.State())
	assert.Len(t, s.Log(), logLen)
}

func TestSubmitAction_UnknownSkillAndBadAction(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")

	_, err := s.SubmitAction(context.Background(), combat.Action{Kind: combat.ActionUseSkill, SkillID: "meteor"})
	assert.ErrorIs(t, err, battle.ErrUnknownSkill)

	_, err = s.SubmitAction(context.Background(), combat.Action{Kind: "flee"})
	assert.ErrorIs(t, err, battle.ErrInvalidAction)
	assert.Equal(t, battle.PhaseAwaitingAction, s.State().Phase)
}

func TestSubmitAnswer_StaleQuestionLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")
	ctx := context.Background()

	before := s.State()
	_, err := s.SubmitAnswer(ctx, "q1", "right")
	assert.ErrorIs(t, err, battle.ErrStaleQuestion, "no action submitted yet")
	assert.Equal(t, before, s.State())

	_, err = s.SubmitAction(ctx, attack)
	require.NoError(t, err)
	before = s.State()
	logLen := len(s.Log())

	resp, err := s.SubmitAnswer(ctx, "q99", "right")
	assert.ErrorIs(t, err, battle.ErrStaleQuestion)
	assert.Equal(t, before, resp)
	assert.Equal(t, before, s.State())
	assert.Len(t, s.Log(), logLen)
}

func TestScenario_CorrectAttack(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")
	logLen := len(s.Log())

	resp, err := s.SubmitAction(context.Background(), attack)
	require.NoError(t, err)
	qid := resp.CurrentQuestion.ID
	resp, err = s.SubmitAnswer(context.Background(), qid, "  RIGHT ")
	require.NoError(t, err)

	dmg := max(1, 10+firstRoundVariance())
	assert.Equal(t, 30-dmg, resp.Monster.HP)
	require.NotNil(t, resp.TurnResult)
	assert.True(t, resp.TurnResult.Correct)
	assert.Equal(t, qid, resp.TurnResult.QuestionID)

	var damageToMonster int
	for _, e := range s.Log()[logLen:] {
		if e.Type == battlelog.TypeDamage && e.Target == battlelog.TargetMonster {
			damageToMonster++
		}
	}
	assert.Equal(t, 1, damageToMonster)
	assert.Equal(t, 42, resp.Character.HP, "monster hits back for 8")
	assert.Equal(t, battle.PhaseAwaitingAction, resp.Phase)
	assert.Equal(t, 2, resp.Round)
	require.NotNil(t, resp.CurrentQuestion)
	assert.NotEqual(t, qid, resp.CurrentQuestion.ID)
}

func TestScenario_CorrectAttackFinishesWeakMonster(t *testing.T) {
	f := newFixture(t, &monster.Template{ID: "rat", Name: "Rat", HP: 5, BaseDamage: 8, XPReward: 25})
	s := f.start(t, "rat")

	resp := play(t, s, attack, true)
	assert.Equal(t, 0, resp.Monster.HP)
	assert.True(t, resp.IsFinished)
	assert.Equal(t, battle.PhaseFinished, resp.Phase)
	assert.Equal(t, battle.WinnerCharacter, resp.Winner)
	assert.Equal(t, 50, resp.Character.HP, "a dead monster does not attack")
	assert.Equal(t, 25, resp.Character.Experience)
	assert.Equal(t, 25, resp.TurnResult.XPAwarded)
	assert.Nil(t, resp.CurrentQuestion)

	snap := f.saver.last()
	assert.True(t, snap.IsFinished())
	assert.Equal(t, battle.WinnerCharacter, snap.Winner)
	assert.Equal(t, 25, snap.XPAwarded)
	hp, xp := snap.Progress()
	assert.Equal(t, 50, hp)
	assert.Equal(t, 25, xp)

	_, err := s.SubmitAction(context.Background(), attack)
	assert.ErrorIs(t, err, battle.ErrInvalidState)
}

func TestScenario_DefendHalvesDamage(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")

	resp := play(t, s, combat.Action{Kind: combat.ActionDefend}, false)
	assert.Equal(t, 46, resp.Character.HP)
	assert.False(t, resp.Character.IsDefending)
	assert.Equal(t, 30, resp.Monster.HP)
}

func TestScenario_DefendCorrectGrantsEnergy(t *testing.T) {
	f := newFixture(t)
	c := hero()
	c.Energy = 40
	resp, err := f.reg.Start(context.Background(), battle.StartRequest{Character: c, MonsterID: "goblin", Difficulty: "easy"})
	require.NoError(t, err)
	s, _ := f.reg.Get(resp.BattleID)

	resp = play(t, s, combat.Action{Kind: combat.ActionDefend}, true)
	assert.Equal(t, 50, resp.Character.Energy)
	assert.Equal(t, 46, resp.Character.HP)
}

func TestScenario_IncorrectAttackMisses(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")

	resp := play(t, s, attack, false)
	assert.Equal(t, 30, resp.Monster.HP)
	assert.Equal(t, 42, resp.Character.HP, "the turn still advances to the monster")
	assert.False(t, resp.TurnResult.Correct)
	assert.Equal(t, "right", resp.TurnResult.CorrectAnswer)
	assert.Equal(t, "wrong", resp.TurnResult.Answer)
	require.NotEmpty(t, resp.TurnResult.Entries)
	assert.Equal(t, battlelog.TypeInfo, resp.TurnResult.Entries[0].Type)
	assert.Equal(t, battlelog.ActorMonster, resp.TurnResult.Entries[1].Actor)
}

func TestScenario_CharacterDefeated(t *testing.T) {
	f := newFixture(t, &monster.Template{ID: "ogre", Name: "Ogre", HP: 100, BaseDamage: 80, XPReward: 50})
	s := f.start(t, "ogre")

	resp := play(t, s, attack, false)
	assert.Equal(t, 0, resp.Character.HP)
	assert.Equal(t, battle.WinnerMonster, resp.Winner)
	assert.Zero(t, resp.Character.Experience)
	assert.Zero(t, resp.TurnResult.XPAwarded)
}

func TestScenario_DefeatedCharacterCanFightAgain(t *testing.T) {
	f := newFixture(t, &monster.Template{ID: "ogre", Name: "Ogre", HP: 100, BaseDamage: 80, XPReward: 50})
	s := f.start(t, "ogre")
	play(t, s, attack, true)
	require.True(t, s.IsFinished())

	hp, xp := f.saver.last().Progress()
	assert.Equal(t, 25, hp, "revived at half of 50 max hp")
	assert.Zero(t, xp)

	c := hero()
	c.CurrentHP = hp
	resp, err := f.reg.Start(context.Background(), battle.StartRequest{
		CharacterID: 99, Character: c, MonsterID: "ogre", Difficulty: "easy",
	})
	require.NoError(t, err)
	assert.Equal(t, 25, resp.Character.HP)
}

func TestSnapshotProgress(t *testing.T) {
	cases := []struct {
		name       string
		hp, maxHP  int
		xp         int
		wantHP     int
		wantXPGain int
	}{
		{"survivor keeps hp", 30, 50, 25, 30, 25},
		{"knocked out revives at half", 0, 50, 0, 25, 0},
		{"tiny max hp revives at one", 0, 1, 0, 1, 0},
		{"hp above max is clamped", 70, 50, 0, 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := battle.Snapshot{XPAwarded: tc.xp}
			snap.Character.HP = tc.hp
			snap.Character.MaxHP = tc.maxHP
			hp, xp := snap.Progress()
			assert.Equal(t, tc.wantHP, hp)
			assert.Equal(t, tc.wantXPGain, xp)
		})
	}
}

func TestUseSkill_IncorrectStillSpendsEnergy(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")

	resp := play(t, s, combat.Action{Kind: combat.ActionUseSkill, SkillID: "fireball"}, false)
	assert.Equal(t, 80, resp.Character.Energy)
	assert.Equal(t, 30, resp.Monster.HP)
}

func TestState_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")
	play(t, s, attack, true)

	first := s.State()
	logBefore := s.Log()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.State())
	}
	assert.Equal(t, logBefore, s.Log())
}

func TestSave_FailureBecomesWarning(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")
	f.saver.fail = true

	resp, err := s.SubmitAction(context.Background(), attack)
	require.NoError(t, err)
	assert.Contains(t, resp.Warning, "not saved")

	resp, err = s.SubmitAnswer(context.Background(), resp.CurrentQuestion.ID, "right")
	require.NoError(t, err)
	assert.Contains(t, resp.Warning, "not saved")
	assert.Equal(t, battle.PhaseAwaitingAction, resp.Phase)
}

func TestNextQuestionUnavailable(t *testing.T) {
	f := newFixture(t)
	f.provider.limit = 1
	s := f.start(t, "goblin")

	resp := play(t, s, attack, true)
	assert.Equal(t, battle.PhaseAwaitingAction, resp.Phase)
	assert.Nil(t, resp.CurrentQuestion)
	assert.NotEmpty(t, resp.Warning)

	before := s.State()
	_, err := s.SubmitAction(context.Background(), attack)
	assert.ErrorIs(t, err, battle.ErrNoQuestionAvailable)
	assert.Equal(t, before, s.State())
}

func TestBusy_ConcurrentMutationRejected(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")
	resp, err := s.SubmitAction(context.Background(), attack)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.provider.mu.Lock()
	f.provider.onFetch = func(int) {
		close(entered)
		<-release
	}
	f.provider.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := s.SubmitAnswer(context.Background(), resp.CurrentQuestion.ID, "right")
		done <- err
	}()
	<-entered

	_, err = s.SubmitAction(context.Background(), attack)
	assert.ErrorIs(t, err, battle.ErrBattleBusy)
	_, err = s.SubmitAnswer(context.Background(), "q2", "right")
	assert.ErrorIs(t, err, battle.ErrBattleBusy)

	stateDone := make(chan battle.Response, 1)
	go func() { stateDone <- s.State() }()
	select {
	case st := <-stateDone:
		assert.Equal(t, battle.PhaseAwaitingAction, st.Phase, "the round is committed before the next fetch")
	case <-time.After(2 * time.Second):
		t.Fatal("State blocked on an in-flight request")
	}

	close(release)
	require.NoError(t, <-done)
	_, err = s.SubmitAction(context.Background(), attack)
	assert.NoError(t, err)
}

func TestReplay_ReproducesFinalState(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")
	sequence := []struct {
		act     combat.Action
		correct bool
	}{
		{attack, true},
		{combat.Action{Kind: combat.ActionDefend}, true},
		{combat.Action{Kind: combat.ActionUseSkill, SkillID: "fireball"}, true},
		{combat.Action{Kind: combat.ActionUseSkill, SkillID: "mend"}, false},
		{attack, false},
		{attack, true},
	}
	for _, step := range sequence {
		if s.IsFinished() {
			break
		}
		play(t, s, step.act, step.correct)
	}

	snap := s.Snapshot()
	got := battlelog.Replay(snap.Initial, snap.Log)
	assert.Equal(t, snap.Character.HP, got.CharacterHP)
	assert.Equal(t, snap.Character.Energy, got.CharacterEnergy)
	assert.Equal(t, snap.Monster.HP, got.MonsterHP)
}

func TestLogIDsAreMonotonic(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, "goblin")
	play(t, s, attack, true)
	play(t, s, attack, false)

	entries := s.Log()
	for i, e := range entries {
		assert.Equal(t, i+1, e.ID)
	}
	assert.Equal(t, entries[2:], s.LogSince(2))
}
