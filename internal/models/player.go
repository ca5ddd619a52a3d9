package models

// LobbyPlayer represents one member of a pre-game lobby roster.
// Lifetime is scoped to the DRAFT phase of a single game; the roster is never
// persisted and is rebuilt from socket presence after a restart.
type LobbyPlayer struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsHost   bool   `json:"is_host"`
	IsReady  bool   `json:"is_ready"`
}
