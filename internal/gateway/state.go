package gateway

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/models"
)

// Ledger defines what the gateway needs from the money ledger when building
// join snapshots.
type Ledger interface {
	GetBalance(ctx context.Context, userID string, gameID uuid.UUID) int
}

// LobbyJoinState is the ack payload for a lobby-channel join.
type LobbyJoinState struct {
	GameID  string               `json:"game_id"`
	Players []models.LobbyPlayer `json:"players"`
}

// GameJoinState is the ack payload for a live-session join or reconnect. It
// carries everything a client needs to rebuild its view and restart local
// time prediction from the authoritative elapsed value.
type GameJoinState struct {
	Session       models.GameSession      `json:"session"`
	Players       []models.LobbyPlayer    `json:"players"`
	Locations     []models.PlacedLocation `json:"locations"`
	Money         int                     `json:"money"`
	CurrentUserID string                  `json:"current_user_id,omitempty"`
}

// GlobalJoinState is the ack payload for the lobby-browser channel.
type GlobalJoinState struct {
	Games []models.GameSession `json:"games"`
}
