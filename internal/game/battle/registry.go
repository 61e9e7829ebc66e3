// Package battle implements the battle state machine and the registry of
// live battle sessions.
package battle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/quizbattle/internal/game/battlelog"
	"github.com/cory-johannsen/quizbattle/internal/game/character"
	"github.com/cory-johannsen/quizbattle/internal/game/combat"
	"github.com/cory-johannsen/quizbattle/internal/game/dice"
	"github.com/cory-johannsen/quizbattle/internal/game/monster"
	"github.com/cory-johannsen/quizbattle/internal/game/question"
)

// MonsterCatalog looks up monster templates by id.
type MonsterCatalog interface {
	Get(id string) (*monster.Template, bool)
}

// StartRequest describes a new battle.
type StartRequest struct {
	CharacterID int64
	Character   *character.Character
	MonsterID   string
	Difficulty  string
	// ContentID restricts questions to one content pack; empty means any.
	ContentID string
}

// Options tunes a Registry.
type Options struct {
	// StartingEnergy, when positive, replaces the character's stored energy at
	// battle start (capped at max energy).
	StartingEnergy int
	// NewID generates battle ids; nil uses random UUIDs.
	NewID func() string
	// NewSeed generates variance seeds; nil uses dice.NewSeed.
	NewSeed func() uint64
}

// Registry owns every live session, keyed by battle id.
// All methods are safe for concurrent use.
type Registry struct {
	catalog  MonsterCatalog
	provider question.Provider
	resolver *combat.Resolver
	saver    Saver
	logger   *zap.Logger
	opts     Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry.
//
// Precondition: catalog, provider, resolver and logger must be non-nil; a nil
// saver disables persistence.
func NewRegistry(catalog MonsterCatalog, provider question.Provider, resolver *combat.Resolver, saver Saver, logger *zap.Logger, opts Options) *Registry {
	if saver == nil {
		saver = NopSaver{}
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.NewSeed == nil {
		opts.NewSeed = dice.NewSeed
	}
	return &Registry{
		catalog:  catalog,
		provider: provider,
		resolver: resolver,
		saver:    saver,
		logger:   logger,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Start creates a session, announces the battle in its log and issues the
// first question. A character with a positive CharacterID may hold only one
// unfinished battle at a time.
//
// Postcondition: on success the session is registered, its phase is
// awaiting_action and CurrentQuestion is set; on error nothing is registered.
func (r *Registry) Start(ctx context.Context, req StartRequest) (Response, error) {
	difficulty, err := question.ParseDifficulty(req.Difficulty)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidDifficulty, err)
	}
	tmpl, ok := r.catalog.Get(req.MonsterID)
	if !ok {
		return Response{}, fmt.Errorf("monster %q: %w", req.MonsterID, ErrInvalidMonster)
	}
	if req.Character == nil {
		return Response{}, fmt.Errorf("%w: character is required", ErrInvalidCharacter)
	}
	if err := req.Character.Validate(); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidCharacter, err)
	}
	if req.Character.CurrentHP <= 0 {
		return Response{}, fmt.Errorf("%w: character %q has no hp left", ErrInvalidCharacter, req.Character.Name)
	}
	r.mu.RLock()
	err = r.checkIdleLocked(req.CharacterID, "")
	r.mu.RUnlock()
	if err != nil {
		return Response{}, err
	}

	ch := combat.NewCharacter(req.Character)
	ch.ID = req.CharacterID
	if r.opts.StartingEnergy > 0 {
		ch.Energy = min(r.opts.StartingEnergy, ch.MaxEnergy)
	}
	m := combat.NewMonster(tmpl)

	s := &Session{
		id:          r.opts.NewID(),
		characterID: req.CharacterID,
		difficulty:  difficulty,
		contentID:   req.ContentID,
		seed:        r.opts.NewSeed(),
		resolver:    r.resolver,
		gate:        question.NewGate(r.provider),
		saver:       r.saver,
		logger:      r.logger,
		phase:       PhaseAwaitingAction,
		round:       1,
		ch:          ch,
		m:           m,
		initial:     battlelog.Totals{CharacterHP: ch.HP, CharacterEnergy: ch.Energy, MonsterHP: m.HP},
		log:         battlelog.New(),
	}
	s.appendLocked(battlelog.Entry{
		Actor:   battlelog.ActorSystem,
		Type:    battlelog.TypeInfo,
		Message: fmt.Sprintf("A wild %s appears! The battle begins.", m.Name),
	})

	if _, err := s.gate.Issue(ctx, difficulty, ch.Level, req.ContentID); err != nil {
		return Response{}, fmt.Errorf("starting battle against %q: %w", m.ID, err)
	}

	r.mu.Lock()
	if err := r.checkIdleLocked(req.CharacterID, ""); err != nil {
		r.mu.Unlock()
		return Response{}, err
	}
	r.sessions[s.id] = s
	r.mu.Unlock()

	r.logger.Info("battle started",
		zap.String("battle_id", s.id),
		zap.Int64("character_id", req.CharacterID),
		zap.String("monster_id", m.ID),
		zap.String("difficulty", string(difficulty)),
	)

	resp := s.State()
	resp.Warning = s.save(ctx)
	return resp, nil
}

// Restore registers a session rebuilt from a persisted snapshot, returning
// the live session if one with the same id is already registered.
//
// Postcondition: returns ErrInvariantViolation (wrapped) for a snapshot whose
// combatants are out of range; nothing is registered in that case.
func (r *Registry) Restore(snap Snapshot) (*Session, error) {
	r.mu.RLock()
	existing, ok := r.sessions[snap.BattleID]
	r.mu.RUnlock()
	if ok {
		return existing, nil
	}

	if snap.BattleID == "" {
		return nil, errors.New("snapshot has no battle id")
	}
	if !snap.Phase.Valid() {
		return nil, fmt.Errorf("restoring battle %s: unknown phase %q: %w", snap.BattleID, snap.Phase, ErrInvalidState)
	}
	if _, err := question.ParseDifficulty(string(snap.Difficulty)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDifficulty, err)
	}
	ch, m := snap.Character, snap.Monster
	if err := errors.Join(ch.CheckInvariants(), m.CheckInvariants()); err != nil {
		return nil, fmt.Errorf("restoring battle %s: %w", snap.BattleID, err)
	}

	gate := question.NewGate(r.provider, snap.Asked...)
	if snap.PendingQuestion != nil {
		gate.Restore(*snap.PendingQuestion)
	}
	phase := snap.Phase
	pending := snap.PendingAction
	switch {
	case phase == PhaseResolving:
		phase = PhaseAwaitingAction
	case phase == PhaseAwaitingAnswer && (pending == nil || snap.PendingQuestion == nil):
		phase, pending = PhaseAwaitingAction, nil
	case phase != PhaseAwaitingAnswer:
		pending = nil
	}
	round := max(1, snap.Round)

	s := &Session{
		id:          snap.BattleID,
		characterID: snap.CharacterID,
		difficulty:  snap.Difficulty,
		contentID:   snap.ContentID,
		seed:        snap.Seed,
		resolver:    r.resolver,
		gate:        gate,
		saver:       r.saver,
		logger:      r.logger,
		phase:       phase,
		winner:      snap.Winner,
		round:       round,
		ch:          ch.Clone(),
		m:           m.Clone(),
		pending:     pending,
		initial:     snap.Initial,
		log:         battlelog.Restore(snap.Log),
		xpAwarded:   snap.XPAwarded,
		saved:       true,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[s.id]; ok {
		return existing, nil
	}
	if phase != PhaseFinished {
		if err := r.checkIdleLocked(s.characterID, s.id); err != nil {
			return nil, err
		}
	}
	r.sessions[s.id] = s
	r.logger.Info("battle restored",
		zap.String("battle_id", s.id),
		zap.String("phase", string(phase)),
		zap.Int("round", round),
	)
	return s, nil
}

// Get returns the session registered under id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("battle %q: %w", id, ErrNotFound)
	}
	return s, nil
}

// Archive removes the session registered under id once its outcome is
// stored, and returns its final state. An unfinished battle is abandoned
// first. Finished sessions stay registered, and readable, until archived.
//
// Postcondition: on nil error the session is finished, saved and no longer
// registered; on ErrNotSaved or ErrBattleBusy it stays registered and the
// archive may be retried.
func (r *Registry) Archive(ctx context.Context, id string) (Response, error) {
	s, err := r.Get(id)
	if err != nil {
		return Response{}, err
	}
	resp, err := s.close(ctx)
	if err != nil {
		return resp, err
	}
	r.mu.Lock()
	if r.sessions[id] == s {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	r.logger.Info("battle archived",
		zap.String("battle_id", id),
		zap.String("winner", string(resp.Winner)),
		zap.Int("round", resp.Round),
	)
	return resp, nil
}

// checkIdleLocked fails with ErrCharacterInBattle when characterID has an
// unfinished session other than exceptID. Zero ids are never checked.
// Callers hold r.mu.
func (r *Registry) checkIdleLocked(characterID int64, exceptID string) error {
	if characterID <= 0 {
		return nil
	}
	for id, s := range r.sessions {
		if id == exceptID || s.characterID != characterID || s.IsFinished() {
			continue
		}
		return fmt.Errorf("character %d has battle %s: %w", characterID, id, ErrCharacterInBattle)
	}
	return nil
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns every registered battle id, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
