// Package question binds combat turns to trivia questions: the provider
// contract, a YAML-backed bank and the per-battle gate that issues and
// validates the pending question.
package question

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoQuestionAvailable is returned by a Provider when no eligible question remains.
var ErrNoQuestionAvailable = errors.New("no question available")

// ErrStaleQuestion is returned when an answer targets a question that is not pending.
var ErrStaleQuestion = errors.New("question is not pending")

// Difficulty is a battle and question tier.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty validates s as a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case Easy, Medium, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// Info is a question as delivered by a Provider, including its answer.
type Info struct {
	ID            string     `yaml:"id" json:"id"`
	Text          string     `yaml:"text" json:"text"`
	Options       []string   `yaml:"options" json:"options,omitempty"`
	CorrectAnswer string     `yaml:"answer" json:"answer"`
	Difficulty    Difficulty `yaml:"difficulty" json:"difficulty"`
	MinLevel      int        `yaml:"min_level" json:"min_level,omitempty"`
	ContentID     string     `yaml:"content_id" json:"content_id,omitempty"`
}

// Validate checks the question's invariants.
//
// Postcondition: Returns nil iff ID, Text and CorrectAnswer are non-empty,
// Difficulty is known, and, when Options are given, the answer is one of them.
func (q Info) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question: id must not be empty")
	}
	if q.Text == "" {
		return fmt.Errorf("question %q: text must not be empty", q.ID)
	}
	if q.CorrectAnswer == "" {
		return fmt.Errorf("question %q: answer must not be empty", q.ID)
	}
	if _, err := ParseDifficulty(string(q.Difficulty)); err != nil {
		return fmt.Errorf("question %q: %w", q.ID, err)
	}
	if len(q.Options) == 0 {
		return nil
	}
	for _, o := range q.Options {
		if Matches(o, q.CorrectAnswer) {
			return nil
		}
	}
	return fmt.Errorf("question %q: answer %q is not one of the options", q.ID, q.CorrectAnswer)
}

// View is the public part of a question, safe to show to the player.
type View struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Options    []string   `json:"options"`
	Difficulty Difficulty `json:"difficulty"`
}

// View strips the answer from q.
func (q Info) View() View {
	opts := make([]string, len(q.Options))
	copy(opts, q.Options)
	return View{ID: q.ID, Text: q.Text, Options: opts, Difficulty: q.Difficulty}
}

// Request selects a question.
type Request struct {
	Difficulty  Difficulty
	PlayerLevel int
	// ContentID restricts the pick to one content pack; empty means any.
	ContentID string
	// Exclude lists ids already asked in this battle.
	Exclude []string
}

// Provider is the question-bank collaborator.
type Provider interface {
	// FetchQuestion returns an eligible question or ErrNoQuestionAvailable.
	FetchQuestion(ctx context.Context, req Request) (Info, error)
}

// Eligible reports whether q satisfies req.
func Eligible(q Info, req Request) bool {
	if q.Difficulty != req.Difficulty {
		return false
	}
	if q.MinLevel > req.PlayerLevel {
		return false
	}
	if req.ContentID != "" && q.ContentID != req.ContentID {
		return false
	}
	for _, id := range req.Exclude {
		if id == q.ID {
			return false
		}
	}
	return true
}
