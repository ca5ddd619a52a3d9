package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresRepository persists balances in the balances table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a balance repository backed by Postgres.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetBalance(ctx context.Context, userID string, gameID uuid.UUID) (int, bool, error) {
	var money int
	err := r.db.QueryRowContext(ctx,
		`SELECT money FROM balances WHERE user_id = $1 AND game_id = $2`,
		userID, gameID,
	).Scan(&money)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get balance: %w", err)
	}
	return money, true, nil
}

func (r *PostgresRepository) UpsertBalance(ctx context.Context, userID string, gameID uuid.UUID, money int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO balances (user_id, game_id, money, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, game_id) DO UPDATE SET money = $3, updated_at = NOW()`,
		userID, gameID, money,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert balance: %w", err)
	}
	return nil
}
