package importer

import (
	"context"

	"github.com/cory-johannsen/quizbattle/internal/game/question"
)

// Source loads questions from a format-specific source directory.
//
// Precondition: sourceDir must exist and contain the expected layout for the format.
// Postcondition: returns the questions found, or a non-nil error.
// Validation is left to the Importer.
type Source interface {
	Load(sourceDir string) ([]question.Info, error)
}

// Sink stores imported questions.
type Sink interface {
	Upsert(ctx context.Context, q question.Info) error
}

// YAMLSource reads the question bank's own YAML layout: one or more *.yaml
// files, each holding a top-level questions list.
type YAMLSource struct{}

// Load implements Source.
func (YAMLSource) Load(sourceDir string) ([]question.Info, error) {
	return question.LoadQuestions(sourceDir)
}
