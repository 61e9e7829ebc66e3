package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/quizbattle/internal/game/question"
)

// QuestionRepository serves the question bank from PostgreSQL and implements
// question.Provider.
type QuestionRepository struct {
	db *pgxpool.Pool
}

// NewQuestionRepository creates a QuestionRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewQuestionRepository(db *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// FetchQuestion returns a random question eligible for req.
//
// Postcondition: The returned question satisfies question.Eligible(q, req),
// or the error is question.ErrNoQuestionAvailable.
func (r *QuestionRepository) FetchQuestion(ctx context.Context, req question.Request) (question.Info, error) {
	exclude := req.Exclude
	if exclude == nil {
		exclude = []string{}
	}
	row := r.db.QueryRow(ctx, `
		SELECT id, text, options, correct_answer, difficulty, min_level, content_id
		FROM questions
		WHERE difficulty = $1
		  AND min_level <= $2
		  AND ($3 = '' OR content_id = $3)
		  AND NOT (id = ANY($4))
		ORDER BY random()
		LIMIT 1`,
		string(req.Difficulty), req.PlayerLevel, req.ContentID, exclude,
	)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return question.Info{}, question.ErrNoQuestionAvailable
		}
		return question.Info{}, fmt.Errorf("querying question: %w", err)
	}
	return q, nil
}

// Upsert inserts q or replaces the stored question with the same id.
//
// Precondition: q must pass Validate.
func (r *QuestionRepository) Upsert(ctx context.Context, q question.Info) error {
	if err := q.Validate(); err != nil {
		return err
	}
	options := q.Options
	if options == nil {
		options = []string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO questions (id, text, options, correct_answer, difficulty, min_level, content_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			options = EXCLUDED.options,
			correct_answer = EXCLUDED.correct_answer,
			difficulty = EXCLUDED.difficulty,
			min_level = EXCLUDED.min_level,
			content_id = EXCLUDED.content_id`,
		q.ID, q.Text, options, q.CorrectAnswer, string(q.Difficulty), q.MinLevel, q.ContentID,
	)
	if err != nil {
		return fmt.Errorf("upserting question %s: %w", q.ID, err)
	}
	return nil
}

// Count returns the number of stored questions.
func (r *QuestionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting questions: %w", err)
	}
	return n, nil
}

func scanQuestion(row pgx.Row) (question.Info, error) {
	var (
		q          question.Info
		difficulty string
	)
	if err := row.Scan(&q.ID, &q.Text, &q.Options, &q.CorrectAnswer, &difficulty, &q.MinLevel, &q.ContentID); err != nil {
		return question.Info{}, err
	}
	q.Difficulty = question.Difficulty(difficulty)
	return q, nil
}
