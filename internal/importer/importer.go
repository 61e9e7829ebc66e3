// Package importer loads trivia questions from external formats and stores
// them in the question bank.
package importer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizbattle/internal/game/question"
)

// Importer orchestrates question import from a Source to a Sink.
type Importer struct {
	source Source
	sink   Sink
	logger *zap.Logger
}

// New constructs an Importer backed by the given Source and Sink.
//
// Precondition: source, sink and logger must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(source Source, sink Sink, logger *zap.Logger) *Importer {
	return &Importer{source: source, sink: sink, logger: logger}
}

// Run loads questions from sourceDir, validates all of them, and upserts
// each into the sink. Nothing is written when any question is invalid or
// two questions share an id.
//
// Precondition: sourceDir must satisfy the source's layout requirements.
// Postcondition: returns the number of questions written, or an error.
func (imp *Importer) Run(ctx context.Context, sourceDir string) (int, error) {
	overall := time.Now()

	qs, err := imp.source.Load(sourceDir)
	if err != nil {
		return 0, fmt.Errorf("loading source: %w", err)
	}
	imp.logger.Info("questions loaded", zap.Int("count", len(qs)), zap.Duration("elapsed", time.Since(overall)))

	seen := make(map[string]bool, len(qs))
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return 0, fmt.Errorf("validating: %w", err)
		}
		if seen[q.ID] {
			return 0, fmt.Errorf("question %q: duplicate id", q.ID)
		}
		seen[q.ID] = true
	}

	perDifficulty := map[question.Difficulty]int{}
	for i, q := range qs {
		if err := imp.sink.Upsert(ctx, q); err != nil {
			return i, fmt.Errorf("storing question %q: %w", q.ID, err)
		}
		perDifficulty[q.Difficulty]++
	}

	imp.logger.Info("questions imported",
		zap.Int("easy", perDifficulty[question.Easy]),
		zap.Int("medium", perDifficulty[question.Medium]),
		zap.Int("hard", perDifficulty[question.Hard]),
		zap.Duration("elapsed", time.Since(overall)),
	)
	return len(qs), nil
}
