package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/quizbattle/internal/game/character"
)

// ErrCharacterNotFound is returned when a character lookup yields no results.
var ErrCharacterNotFound = errors.New("character not found")

// ErrCharacterNameTaken is returned when creating a character with a name already in use.
var ErrCharacterNameTaken = errors.New("character name already taken")

const characterColumns = `id, name, level, experience, max_hp, current_hp, max_energy, energy,
		       strength, intelligence, created_at, updated_at`

// CharacterRepository provides character persistence operations.
type CharacterRepository struct {
	db *pgxpool.Pool
}

// NewCharacterRepository creates a CharacterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

// Create inserts a new character and returns it with ID and timestamps set.
//
// Precondition: c must pass Validate.
// Postcondition: Returns the created character with ID set, or ErrCharacterNameTaken on duplicate.
func (r *CharacterRepository) Create(ctx context.Context, c *character.Character) (*character.Character, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO characters
			(name, level, experience, max_hp, current_hp, max_energy, energy, strength, intelligence)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+characterColumns,
		c.Name, c.Level, c.Experience, c.MaxHP, c.CurrentHP, c.MaxEnergy, c.Energy,
		c.Strength, c.Intelligence,
	)
	out, err := scanCharacter(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrCharacterNameTaken
		}
		return nil, fmt.Errorf("inserting character: %w", err)
	}
	return out, nil
}

// GetByID retrieves a character by its primary key.
//
// Precondition: id must be > 0.
// Postcondition: Returns the Character or ErrCharacterNotFound.
func (r *CharacterRepository) GetByID(ctx context.Context, id int64) (*character.Character, error) {
	row := r.db.QueryRow(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = $1`, id)
	c, err := scanCharacter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("querying character: %w", err)
	}
	return c, nil
}

// SaveProgress persists the character's hp and experience after a battle.
//
// Precondition: id must be > 0; currentHP and experience must be >= 0.
// Postcondition: Returns nil on success, ErrCharacterNotFound if no row updated.
func (r *CharacterRepository) SaveProgress(ctx context.Context, id int64, currentHP, experience int) error {
	return saveProgress(ctx, r.db, id, currentHP, experience)
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// recordOutcome sets the character's hp and adds xpGained to its experience.
func recordOutcome(ctx context.Context, db execer, id int64, currentHP, xpGained int) error {
	tag, err := db.Exec(ctx, `
		UPDATE characters
		SET current_hp = LEAST($2, max_hp), experience = experience + $3, updated_at = NOW()
		WHERE id = $1`,
		id, currentHP, xpGained,
	)
	if err != nil {
		return fmt.Errorf("recording battle outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

func saveProgress(ctx context.Context, db execer, id int64, currentHP, experience int) error {
	tag, err := db.Exec(ctx, `
		UPDATE characters
		SET current_hp = LEAST($2, max_hp), experience = $3, updated_at = NOW()
		WHERE id = $1`,
		id, currentHP, experience,
	)
	if err != nil {
		return fmt.Errorf("saving character progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

func scanCharacter(row pgx.Row) (*character.Character, error) {
	var c character.Character
	if err := row.Scan(
		&c.ID, &c.Name, &c.Level, &c.Experience,
		&c.MaxHP, &c.CurrentHP, &c.MaxEnergy, &c.Energy,
		&c.Strength, &c.Intelligence, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
