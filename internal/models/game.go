package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus defines the lifecycle state of a game.
type GameStatus string

const (
	GameStatusDraft    GameStatus = "DRAFT"
	GameStatusLive     GameStatus = "LIVE"
	GameStatusFinished GameStatus = "FINISHED"
)

// GameSettings holds per-game configuration supplied at creation or start.
type GameSettings struct {
	Name              string `json:"name"`
	GameDurationHours int    `json:"game_duration_hours"`
	TurnBased         bool   `json:"turn_based,omitempty"`
}

// GameSession is the authoritative server-side record for one game.
type GameSession struct {
	ID                uuid.UUID  `json:"id"`
	Status            GameStatus `json:"status"`
	Name              string     `json:"name"`
	ElapsedTimeMs     int64      `json:"elapsed_time_ms"`
	IsPaused          bool       `json:"is_paused"`
	GameDurationHours int        `json:"game_duration_hours"`
	TurnBased         bool       `json:"turn_based"`
	TurnNumber        int        `json:"turn_number"`
	CreatedBy         string     `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
