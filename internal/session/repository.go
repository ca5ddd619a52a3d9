package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/models"
)

// PostgresRepository persists game session records.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a game repository backed by Postgres.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateGame(ctx context.Context, game *models.GameSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO games
		 (id, status, name, elapsed_time_ms, is_paused, game_duration_hours, turn_based, turn_number, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		game.ID, string(game.Status), game.Name, game.ElapsedTimeMs, game.IsPaused,
		game.GameDurationHours, game.TurnBased, game.TurnNumber, game.CreatedBy,
		game.CreatedAt, game.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetGame(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, status, name, elapsed_time_ms, is_paused, game_duration_hours, turn_based, turn_number, created_by, created_at, updated_at
		 FROM games WHERE id = $1`, id)

	var game models.GameSession
	var status string
	if err := row.Scan(&game.ID, &status, &game.Name, &game.ElapsedTimeMs, &game.IsPaused,
		&game.GameDurationHours, &game.TurnBased, &game.TurnNumber, &game.CreatedBy,
		&game.CreatedAt, &game.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	game.Status = models.GameStatus(status)
	return &game, nil
}

func (r *PostgresRepository) UpdateGame(ctx context.Context, game *models.GameSession) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE games SET status = $2, name = $3, elapsed_time_ms = $4, is_paused = $5,
		 game_duration_hours = $6, turn_based = $7, turn_number = $8, updated_at = $9
		 WHERE id = $1`,
		game.ID, string(game.Status), game.Name, game.ElapsedTimeMs, game.IsPaused,
		game.GameDurationHours, game.TurnBased, game.TurnNumber, game.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteGame(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListGames(ctx context.Context) ([]models.GameSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, status, name, elapsed_time_ms, is_paused, game_duration_hours, turn_based, turn_number, created_by, created_at, updated_at
		 FROM games ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []models.GameSession
	for rows.Next() {
		var game models.GameSession
		var status string
		if err := rows.Scan(&game.ID, &status, &game.Name, &game.ElapsedTimeMs, &game.IsPaused,
			&game.GameDurationHours, &game.TurnBased, &game.TurnNumber, &game.CreatedBy,
			&game.CreatedAt, &game.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		game.Status = models.GameStatus(status)
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	return games, nil
}
