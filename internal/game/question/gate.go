package question

import (
	"context"
	"fmt"
	"sync"
)

// Result is the outcome of validating one answer.
type Result struct {
	QuestionID    string
	Submitted     string
	Correct       bool
	CorrectAnswer string
}

// Gate holds at most one pending question and remembers every id it has
// issued so a battle never repeats a question. It is safe for concurrent use;
// the provider call in Issue runs without holding the gate's lock.
type Gate struct {
	provider Provider
	mu       sync.Mutex
	pending  *Info
	asked    []string
}

// NewGate creates a Gate drawing from provider. asked seeds the ids already
// used, for a battle restored from a snapshot.
//
// Precondition: provider must be non-nil.
func NewGate(provider Provider, asked ...string) *Gate {
	a := make([]string, len(asked))
	copy(a, asked)
	return &Gate{provider: provider, asked: a}
}

// Issue fetches a question for the given tier and level and makes it pending,
// replacing any question still pending.
//
// Postcondition: on success the returned View is pending and its id is
// recorded as asked; on error the gate is unchanged.
func (g *Gate) Issue(ctx context.Context, difficulty Difficulty, level int, contentID string) (View, error) {
	g.mu.Lock()
	req := Request{
		Difficulty:  difficulty,
		PlayerLevel: level,
		ContentID:   contentID,
		Exclude:     append([]string(nil), g.asked...),
	}
	g.mu.Unlock()

	info, err := g.provider.FetchQuestion(ctx, req)
	if err != nil {
		return View{}, fmt.Errorf("issuing %s question: %w", difficulty, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = &info
	g.asked = append(g.asked, info.ID)
	return info.View(), nil
}

// Current returns the pending question, if any.
func (g *Gate) Current() (View, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return View{}, false
	}
	return g.pending.View(), true
}

// Validate checks answer against the pending question with id questionID.
// The pending slot is cleared whatever the outcome.
//
// Postcondition: returns ErrStaleQuestion and leaves the gate unchanged when
// nothing is pending or questionID does not match.
func (g *Gate) Validate(questionID, answer string) (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil || g.pending.ID != questionID {
		return Result{}, fmt.Errorf("question %q: %w", questionID, ErrStaleQuestion)
	}
	p := g.pending
	g.pending = nil
	return Result{
		QuestionID:    p.ID,
		Submitted:     answer,
		Correct:       Matches(answer, p.CorrectAnswer),
		CorrectAnswer: p.CorrectAnswer,
	}, nil
}

// Restore makes info pending again, as loaded from a persisted snapshot.
func (g *Gate) Restore(info Info) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = &info
}

// PendingInfo returns the full pending question including its answer, for
// persistence.
func (g *Gate) PendingInfo() (Info, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return Info{}, false
	}
	return *g.pending, true
}

// Asked returns a copy of every question id issued so far.
func (g *Gate) Asked() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.asked...)
}
