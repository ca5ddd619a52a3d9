package events

import "github.com/mcdev12/franchisewars/internal/models"

// Payload types shared between the domain packages and the gateway.

// LobbyUpdatedPayload carries the de-duplicated roster after any lobby change.
type LobbyUpdatedPayload struct {
	Players []models.LobbyPlayer `json:"players"`
}

// GameStartingPayload tells every lobby member to transition views together.
type GameStartingPayload struct {
	GameID  string               `json:"game_id"`
	Name    string               `json:"name"`
	Players []models.LobbyPlayer `json:"players"`
}

// LobbyListUpdatedPayload refreshes the welcome-screen game browser.
type LobbyListUpdatedPayload struct {
	Games []models.GameSession `json:"games"`
}

// TimeUpdatePayload is the periodic authoritative clock broadcast.
type TimeUpdatePayload struct {
	ElapsedTimeMs int64 `json:"elapsed_time_ms"`
	Month         int   `json:"month"`
	Year          int   `json:"year"`
}

// ClockPausedPayload identifies who paused the shared clock.
type ClockPausedPayload struct {
	PausedBy      string `json:"paused_by,omitempty"`
	ElapsedTimeMs int64  `json:"elapsed_time_ms"`
}

// ClockResumedPayload identifies who resumed the shared clock.
type ClockResumedPayload struct {
	ResumedBy     string `json:"resumed_by,omitempty"`
	ElapsedTimeMs int64  `json:"elapsed_time_ms"`
}

// LocationPlacedPayload announces a committed placement to the game group.
type LocationPlacedPayload struct {
	Location models.PlacedLocation `json:"location"`
	Cost     int                   `json:"cost"`
}

// LocationRemovedPayload announces an owner-initiated deletion.
type LocationRemovedPayload struct {
	LocationID string `json:"location_id"`
	OwnerID    string `json:"owner_id"`
}

// LocationUpdatedPayload carries backfilled geo labels for a placement.
type LocationUpdatedPayload struct {
	Location models.PlacedLocation `json:"location"`
}

// MoneyUpdatedPayload is unicast to the affected user's connections only.
type MoneyUpdatedPayload struct {
	UserID   string `json:"user_id"`
	NewMoney int    `json:"new_money"`
}

// TurnUpdatePayload announces the new current player.
type TurnUpdatePayload struct {
	TurnNumber    int    `json:"turn_number"`
	CurrentUserID string `json:"current_user_id"`
}

// GameFinishedPayload is broadcast when the simulated timeline ends.
type GameFinishedPayload struct {
	GameID        string `json:"game_id"`
	ElapsedTimeMs int64  `json:"elapsed_time_ms"`
}
