package battle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizbattle/internal/game/battlelog"
	"github.com/cory-johannsen/quizbattle/internal/game/combat"
	"github.com/cory-johannsen/quizbattle/internal/game/dice"
	"github.com/cory-johannsen/quizbattle/internal/game/question"
)

// Session is one battle between a character and a monster.
//
// All methods are safe for concurrent use. Mutating operations are serialized
// by a busy flag: a second mutation arriving while one is in flight fails with
// ErrBattleBusy. The busy flag is held across question fetches and saves; the
// state mutex is not, so State never waits on I/O.
type Session struct {
	id          string
	characterID int64
	difficulty  question.Difficulty
	contentID   string
	seed        uint64

	resolver *combat.Resolver
	gate     *question.Gate
	saver    Saver
	logger   *zap.Logger

	mu      sync.Mutex
	busy    bool
	phase   Phase
	winner  Winner
	round   int
	ch      *combat.Character
	m       *combat.Monster
	pending *combat.Action
	initial battlelog.Totals
	log     *battlelog.Log
	// xpAwarded is the experience granted on a win.
	xpAwarded int
	// saved reports whether the latest state reached the Saver.
	saved bool
}

// ID returns the battle id.
func (s *Session) ID() string { return s.id }

// CharacterID returns the id of the fighting character.
func (s *Session) CharacterID() int64 { return s.characterID }

// State returns the current snapshot. It has no side effects.
func (s *Session) State() Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responseLocked()
}

// Log returns a copy of every log entry.
func (s *Session) Log() []battlelog.Entry { return s.log.Entries() }

// LogSince returns a copy of the entries with id greater than afterID.
func (s *Session) LogSince(afterID int) []battlelog.Entry { return s.log.Since(afterID) }

// IsFinished reports whether the battle has ended.
func (s *Session) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == PhaseFinished
}

// Snapshot returns the persistable form of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SubmitAction records the character's intended action and binds it to the
// turn's question, issuing one if none is pending.
//
// Precondition: phase is awaiting_action.
// Postcondition: on success phase is awaiting_answer and CurrentQuestion is
// set; on error the session is unchanged.
func (s *Session) SubmitAction(ctx context.Context, act combat.Action) (Response, error) {
	if err := s.acquire(); err != nil {
		return s.State(), err
	}
	defer s.release()

	s.mu.Lock()
	if s.phase != PhaseAwaitingAction {
		resp := s.responseLocked()
		s.mu.Unlock()
		return resp, fmt.Errorf("submit action in phase %s: %w", resp.Phase, ErrInvalidState)
	}
	if err := s.resolver.CheckAction(s.ch, act); err != nil {
		resp := s.responseLocked()
		s.mu.Unlock()
		if errors.Is(err, ErrUnknownSkill) || errors.Is(err, ErrInsufficientEnergy) {
			return resp, err
		}
		return resp, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	level := s.ch.Level
	s.mu.Unlock()

	if _, ok := s.gate.Current(); !ok {
		if _, err := s.gate.Issue(ctx, s.difficulty, level, s.contentID); err != nil {
			s.logger.Warn("question issue failed", zap.String("battle_id", s.id), zap.Error(err))
			return s.State(), err
		}
	}

	s.mu.Lock()
	s.ch.IsDefending = false
	s.pending = &act
	s.phase = PhaseAwaitingAnswer
	s.mu.Unlock()

	s.logger.Debug("action submitted",
		zap.String("battle_id", s.id),
		zap.String("action", string(act.Kind)),
		zap.String("skill_id", act.SkillID),
	)
	warning := s.save(ctx)
	resp := s.State()
	resp.Warning = warning
	return resp, nil
}

// SubmitAnswer validates the answer to the pending question and resolves the
// round: the character's action, the monster's attack and the effect tick,
// checking for a winner after each.
//
// Precondition: phase is awaiting_answer and questionID is the pending question.
// Postcondition: returns ErrStaleQuestion with the session unchanged when the
// precondition does not hold; otherwise phase is awaiting_action or finished.
func (s *Session) SubmitAnswer(ctx context.Context, questionID, answer string) (Response, error) {
	if err := s.acquire(); err != nil {
		return s.State(), err
	}
	defer s.release()

	s.mu.Lock()
	cur, ok := s.gate.Current()
	if s.phase != PhaseAwaitingAnswer || !ok || cur.ID != questionID || s.pending == nil {
		resp := s.responseLocked()
		s.mu.Unlock()
		return resp, fmt.Errorf("answer for question %q in phase %s: %w", questionID, resp.Phase, ErrStaleQuestion)
	}
	if err := s.checkInvariantsLocked(); err != nil {
		err = s.abortLocked(err)
		resp := s.responseLocked()
		s.mu.Unlock()
		return resp, err
	}

	result, err := s.gate.Validate(questionID, answer)
	if err != nil {
		resp := s.responseLocked()
		s.mu.Unlock()
		return resp, err
	}
	turn, err := s.resolveLocked(*s.pending, result)
	if err != nil {
		resp := s.responseLocked()
		s.mu.Unlock()
		return resp, err
	}
	finished := s.phase == PhaseFinished
	level := s.ch.Level
	s.mu.Unlock()

	var warnings []string
	if !finished {
		if _, err := s.gate.Issue(ctx, s.difficulty, level, s.contentID); err != nil {
			s.logger.Warn("next question issue failed", zap.String("battle_id", s.id), zap.Error(err))
			warnings = append(warnings, "no next question yet: "+err.Error())
		}
	}
	if w := s.save(ctx); w != "" {
		warnings = append(warnings, w)
	}

	resp := s.State()
	resp.TurnResult = turn
	resp.Warning = strings.Join(warnings, "; ")
	return resp, nil
}

// resolveLocked applies one round on copies of the combatants and commits
// them only when every invariant holds.
func (s *Session) resolveLocked(act combat.Action, result question.Result) (*TurnResult, error) {
	s.phase = PhaseResolving
	s.pending = nil

	ch, m := s.ch.Clone(), s.m.Clone()
	src := dice.NewSeededSource(s.seed, uint64(s.round))

	drafts, err := s.resolver.ResolveCharacterTurn(ch, m, act, result.Correct, src)
	if err != nil {
		return nil, s.abortLocked(fmt.Errorf("resolving %s: %w", act.Kind, errors.Join(ErrInvariantViolation, err)))
	}
	winner := decide(ch, m)
	if winner == WinnerUndecided {
		drafts = append(drafts, s.resolver.ResolveMonsterTurn(ch, m)...)
		winner = decide(ch, m)
	}
	if winner == WinnerUndecided {
		drafts = append(drafts, s.resolver.TickEffects(ch)...)
		winner = decide(ch, m)
	}
	if err := errors.Join(ch.CheckInvariants(), m.CheckInvariants()); err != nil {
		return nil, s.abortLocked(err)
	}

	s.ch, s.m = ch, m
	turn := &TurnResult{
		Round:         s.round,
		Action:        act,
		QuestionID:    result.QuestionID,
		Answer:        result.Submitted,
		Correct:       result.Correct,
		CorrectAnswer: result.CorrectAnswer,
	}
	for _, d := range drafts {
		turn.Entries = append(turn.Entries, s.appendLocked(d))
	}

	if winner == WinnerUndecided {
		s.round++
		s.phase = PhaseAwaitingAction
	} else {
		xp, entry := s.finishLocked(winner)
		turn.XPAwarded = xp
		turn.Entries = append(turn.Entries, entry)
	}

	s.logger.Info("round resolved",
		zap.String("battle_id", s.id),
		zap.Int("round", turn.Round),
		zap.String("action", string(act.Kind)),
		zap.Bool("correct", result.Correct),
		zap.String("phase", string(s.phase)),
		zap.Int("character_hp", s.ch.HP),
		zap.Int("monster_hp", s.m.HP),
	)
	return turn, nil
}

// decide returns the winner given the combatants' hp.
func decide(ch *combat.Character, m *combat.Monster) Winner {
	switch {
	case ch.HP <= 0:
		return WinnerMonster
	case m.HP <= 0:
		return WinnerCharacter
	default:
		return WinnerUndecided
	}
}

// finishLocked ends the battle and awards experience on a character win.
// It returns the experience awarded and the closing log entry.
func (s *Session) finishLocked(winner Winner) (int, battlelog.Entry) {
	s.phase = PhaseFinished
	s.winner = winner
	s.pending = nil

	xp := 0
	var entry battlelog.Entry
	if winner == WinnerCharacter {
		xp = s.m.XPReward
		s.xpAwarded = xp
		s.ch.Experience += xp
		entry = s.appendLocked(battlelog.Entry{
			Actor:   battlelog.ActorSystem,
			Type:    battlelog.TypeInfo,
			Message: fmt.Sprintf("You defeated the %s and earned %d XP.", s.m.Name, xp),
		}.WithAmount(xp))
	} else {
		entry = s.appendLocked(battlelog.Entry{
			Actor:   battlelog.ActorSystem,
			Type:    battlelog.TypeInfo,
			Message: fmt.Sprintf("You were defeated by the %s.", s.m.Name),
		})
	}
	s.logger.Info("battle finished",
		zap.String("battle_id", s.id),
		zap.String("winner", string(winner)),
		zap.Int("round", s.round),
		zap.Int("xp_awarded", xp),
	)
	return xp, entry
}

// abortLocked finishes the battle with no winner after an invariant violation.
func (s *Session) abortLocked(cause error) error {
	s.phase = PhaseFinished
	s.winner = WinnerNone
	s.pending = nil
	s.appendLocked(battlelog.Entry{
		Actor:   battlelog.ActorSystem,
		Type:    battlelog.TypeInfo,
		Message: "The battle was aborted because its state became inconsistent.",
	})
	s.logger.Error("battle invariant violated",
		zap.String("battle_id", s.id),
		zap.Int("round", s.round),
		zap.Error(cause),
	)
	if errors.Is(cause, ErrInvariantViolation) {
		return fmt.Errorf("battle %s: %w", s.id, cause)
	}
	return fmt.Errorf("battle %s: %w: %v", s.id, ErrInvariantViolation, cause)
}

// close readies the session for archival. An unfinished battle is abandoned:
// it finishes with winner none and awards nothing. The final state is saved
// again if the last save failed.
//
// Postcondition: on nil error the session is finished and its final state is
// stored; otherwise the error wraps ErrBattleBusy or ErrNotSaved.
func (s *Session) close(ctx context.Context) (Response, error) {
	if err := s.acquire(); err != nil {
		return s.State(), err
	}
	defer s.release()

	s.mu.Lock()
	if s.phase != PhaseFinished {
		s.phase = PhaseFinished
		s.winner = WinnerNone
		s.pending = nil
		s.saved = false
		s.appendLocked(battlelog.Entry{
			Actor:   battlelog.ActorSystem,
			Type:    battlelog.TypeInfo,
			Message: fmt.Sprintf("You fled from the %s.", s.m.Name),
		})
		s.logger.Info("battle abandoned", zap.String("battle_id", s.id), zap.Int("round", s.round))
	}
	saved := s.saved
	s.mu.Unlock()

	if !saved {
		if w := s.save(ctx); w != "" {
			resp := s.State()
			resp.Warning = w
			return resp, fmt.Errorf("archiving battle %s: %w", s.id, ErrNotSaved)
		}
	}
	return s.State(), nil
}

func (s *Session) checkInvariantsLocked() error {
	return errors.Join(s.ch.CheckInvariants(), s.m.CheckInvariants())
}

func (s *Session) appendLocked(e battlelog.Entry) battlelog.Entry {
	e.Round = s.round
	return s.log.Append(e)
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return fmt.Errorf("battle %s: %w", s.id, ErrBattleBusy)
	}
	s.busy = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// save persists the current snapshot and returns a warning on failure.
func (s *Session) save(ctx context.Context) string {
	snap := s.Snapshot()
	err := s.saver.SaveBattleState(ctx, s.characterID, s.id, snap)
	s.mu.Lock()
	s.saved = err == nil
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("battle save failed",
			zap.String("battle_id", s.id),
			zap.String("phase", string(snap.Phase)),
			zap.Error(err),
		)
		return "battle progress was not saved: " + err.Error()
	}
	return ""
}

func (s *Session) responseLocked() Response {
	resp := Response{
		BattleID:   s.id,
		Difficulty: s.difficulty,
		Phase:      s.phase,
		Round:      s.round,
		Character:  characterView(s.ch),
		Monster:    monsterView(s.m),
		IsFinished: s.phase == PhaseFinished,
		Message:    messageFor(s.phase, s.winner, s.m.Name),
		Winner:     s.winner,
	}
	if s.pending != nil {
		act := *s.pending
		resp.PendingAction = &act
	}
	if s.phase != PhaseFinished {
		if q, ok := s.gate.Current(); ok {
			resp.CurrentQuestion = &q
		}
	}
	return resp
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		BattleID:    s.id,
		CharacterID: s.characterID,
		Difficulty:  s.difficulty,
		ContentID:   s.contentID,
		Phase:       s.phase,
		Winner:      s.winner,
		Round:       s.round,
		Seed:        s.seed,
		Character:   *s.ch.Clone(),
		Monster:     *s.m.Clone(),
		Asked:       s.gate.Asked(),
		Initial:     s.initial,
		Log:         s.log.Entries(),
		XPAwarded:   s.xpAwarded,
	}
	if s.pending != nil {
		act := *s.pending
		snap.PendingAction = &act
	}
	if info, ok := s.gate.PendingInfo(); ok && s.phase != PhaseFinished {
		snap.PendingQuestion = &info
	}
	return snap
}
