package battle_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/quizbattle/internal/game/battle"
	"github.com/cory-johannsen/quizbattle/internal/game/character"
	"github.com/cory-johannsen/quizbattle/internal/game/combat"
	"github.com/cory-johannsen/quizbattle/internal/game/monster"
	"github.com/cory-johannsen/quizbattle/internal/game/question"
)

const testSeed = 42

// testingT is satisfied by both *testing.T and *rapid.T.
type testingT interface {
	require.TestingT
	Helper()
}

// stubProvider serves questions q1..qN, all answered "right".
type stubProvider struct {
	limit int

	mu      sync.Mutex
	calls   int
	onFetch func(call int)
}

func (p *stubProvider) FetchQuestion(_ context.Context, req question.Request) (question.Info, error) {
	p.mu.Lock()
	p.calls++
	call, hook := p.calls, p.onFetch
	p.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	for i := 1; i <= p.limit; i++ {
		id := fmt.Sprintf("q%d", i)
		if slices.Contains(req.Exclude, id) {
			continue
		}
		return question.Info{
			ID:            id,
			Text:          "Question " + id,
			Options:       []string{"right", "wrong"},
			CorrectAnswer: "right",
			Difficulty:    req.Difficulty,
			MinLevel:      1,
		}, nil
	}
	return question.Info{}, question.ErrNoQuestionAvailable
}

// recordingSaver keeps every snapshot and optionally fails.
type recordingSaver struct {
	mu    sync.Mutex
	snaps []battle.Snapshot
	fail  bool
}

func (r *recordingSaver) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = fail
}

func (r *recordingSaver) SaveBattleState(_ context.Context, _ int64, _ string, snap battle.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("database unavailable")
	}
	r.snaps = append(r.snaps, snap)
	return nil
}

func (r *recordingSaver) last() battle.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

type fixture struct {
	reg      *battle.Registry
	provider *stubProvider
	saver    *recordingSaver
	// characters hands each started battle its own character id.
	characters atomic.Int64
}

func goblinTemplate() *monster.Template {
	return &monster.Template{ID: "goblin", Name: "Goblin", HP: 30, BaseDamage: 8, XPReward: 25}
}

func newFixture(t testingT, templates ...*monster.Template) *fixture {
	t.Helper()
	if len(templates) == 0 {
		templates = []*monster.Template{goblinTemplate()}
	}
	catalog, err := monster.NewCatalog(templates)
	require.NoError(t, err)
	skills, err := combat.NewSkillBook([]*combat.Skill{
		{ID: "fireball", Name: "Fireball", Cost: 20, Kind: combat.SkillDamage, Power: 10},
		{ID: "mend", Name: "Mend", Cost: 10, Kind: combat.SkillHeal, Power: 15},
	})
	require.NoError(t, err)
	logger := zap.NewNop()
	resolver := combat.NewResolver(combat.DefaultRules(), skills, nil, logger)

	f := &fixture{provider: &stubProvider{limit: 100}, saver: &recordingSaver{}}
	f.reg = battle.NewRegistry(catalog, f.provider, resolver, f.saver, logger, battle.Options{
		NewSeed: func() uint64 { return testSeed },
	})
	return f
}

func hero() *character.Character {
	c, _ := character.Build("Hero")
	c.ID = 7
	c.MaxHP = 50
	c.CurrentHP = 50
	return c
}

func (f *fixture) start(t testingT, monsterID string) *battle.Session {
	t.Helper()
	resp, err := f.reg.Start(context.Background(), battle.StartRequest{
		CharacterID: f.characters.Add(1),
		Character:   hero(),
		MonsterID:   monsterID,
		Difficulty:  "easy",
	})
	require.NoError(t, err)
	s, err := f.reg.Get(resp.BattleID)
	require.NoError(t, err)
	return s
}

// play submits act and answers its question correctly or not.
func play(t testingT, s *battle.Session, act combat.Action, correct bool) battle.Response {
	t.Helper()
	ctx := context.Background()
	resp, err := s.SubmitAction(ctx, act)
	require.NoError(t, err)
	require.NotNil(t, resp.CurrentQuestion)
	answer := "wrong"
	if correct {
		answer = "right"
	}
	resp, err = s.SubmitAnswer(ctx, resp.CurrentQuestion.ID, answer)
	require.NoError(t, err)
	return resp
}

func mustSkills(t testingT) *combat.SkillBook {
	t.Helper()
	book, err := combat.NewSkillBook(nil)
	require.NoError(t, err)
	return book
}

func nopLogger() *zap.Logger { return zap.NewNop() }
