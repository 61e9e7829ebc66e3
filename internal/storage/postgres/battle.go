package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/quizbattle/internal/game/battle"
)

// ErrBattleNotFound is returned when no snapshot is stored for a battle id.
var ErrBattleNotFound = errors.New("battle not found")

// BattleRepository stores battle snapshots as JSONB and implements battle.Saver.
type BattleRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewBattleRepository creates a BattleRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool; logger must not be nil.
func NewBattleRepository(db *pgxpool.Pool, logger *zap.Logger) *BattleRepository {
	return &BattleRepository{db: db, logger: logger}
}

// SaveBattleState upserts the snapshot for battleID. The first save of a
// finished battle also records its outcome on the character in the same
// transaction: hp from snap.Progress and the experience gained added to the
// stored total. Saving an already finished battle again records nothing.
//
// Precondition: characterID must reference an existing character.
// Postcondition: On nil return the stored snapshot equals snap and the
// battle's outcome has been applied to the character exactly once.
func (r *BattleRepository) SaveBattleState(ctx context.Context, characterID int64, battleID string, snap battle.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding battle snapshot: %w", err)
	}
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var wasFinished bool
		err := tx.QueryRow(ctx, `SELECT finished FROM battles WHERE id = $1 FOR UPDATE`, battleID).Scan(&wasFinished)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("locking battle: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO battles (id, character_id, phase, winner, round, finished, snapshot)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				phase = EXCLUDED.phase,
				winner = EXCLUDED.winner,
				round = EXCLUDED.round,
				finished = EXCLUDED.finished,
				snapshot = EXCLUDED.snapshot,
				updated_at = NOW()`,
			battleID, characterID, string(snap.Phase), string(snap.Winner), snap.Round,
			snap.IsFinished(), data,
		); err != nil {
			return fmt.Errorf("upserting battle: %w", err)
		}
		if !snap.IsFinished() || wasFinished {
			return nil
		}
		hp, xp := snap.Progress()
		return recordOutcome(ctx, tx, characterID, hp, xp)
	})
	if err != nil {
		return err
	}
	r.logger.Debug("battle saved",
		zap.String("battle_id", battleID),
		zap.Int64("character_id", characterID),
		zap.String("phase", string(snap.Phase)),
		zap.Int("round", snap.Round),
	)
	return nil
}

// LoadBattleState returns the stored snapshot for battleID.
//
// Postcondition: Returns the snapshot or ErrBattleNotFound.
func (r *BattleRepository) LoadBattleState(ctx context.Context, battleID string) (battle.Snapshot, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT snapshot FROM battles WHERE id = $1`, battleID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return battle.Snapshot{}, ErrBattleNotFound
		}
		return battle.Snapshot{}, fmt.Errorf("querying battle: %w", err)
	}
	var snap battle.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return battle.Snapshot{}, fmt.Errorf("decoding battle snapshot %s: %w", battleID, err)
	}
	return snap, nil
}

// ActiveBattleIDs returns the ids of unfinished battles for a character,
// most recently updated first.
func (r *BattleRepository) ActiveBattleIDs(ctx context.Context, characterID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text FROM battles
		WHERE character_id = $1 AND NOT finished
		ORDER BY updated_at DESC`,
		characterID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing active battles: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning battle ids: %w", err)
	}
	return ids, nil
}
