package gateway

import (
	"encoding/json"

	"github.com/mcdev12/franchisewars/internal/models"
)

// CommandType is the closed set of inbound client commands. Every client
// frame is dispatched through this enum; unknown types are rejected.
type CommandType string

const (
	// CommandJoin never arrives as a frame; joining happens at upgrade time
	// and this value labels the join ack.
	CommandJoin CommandType = "join"

	CommandPlaceLocation  CommandType = "place-location"
	CommandRemoveLocation CommandType = "remove-location"
	CommandPause          CommandType = "pause"
	CommandResume         CommandType = "resume"
	CommandStartGame      CommandType = "start-game"
	CommandPlayerReady    CommandType = "player-ready"
	CommandAdvanceTurn    CommandType = "advance-turn"
)

// Command is the inbound frame envelope. The sender's identity comes from
// the connection, never from the frame.
type Command struct {
	Type      CommandType     `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Response is the request/response frame sent back on the issuing
// connection only.
type Response struct {
	RequestID string      `json:"request_id,omitempty"`
	Cmd       CommandType `json:"cmd"`
	OK        bool        `json:"ok"`
	Error     string      `json:"error,omitempty"`
	Data      any         `json:"data,omitempty"`
}

// PlaceLocationCommand requests a franchise or distribution-center
// placement.
type PlaceLocationCommand struct {
	Lat  float64             `json:"lat"`
	Lng  float64             `json:"lng"`
	Name string              `json:"name"`
	Mode models.LocationType `json:"mode"`
}

// RemoveLocationCommand requests deletion of an owned placement.
type RemoveLocationCommand struct {
	LocationID string `json:"location_id"`
}

// StartGameCommand optionally overrides game settings at start.
type StartGameCommand struct {
	Settings *models.GameSettings `json:"settings,omitempty"`
}

// PlayerReadyCommand flips the sender's lobby ready flag.
type PlayerReadyCommand struct {
	Ready bool `json:"ready"`
}
