package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of realtime event names. The gateway routes
// every outbound frame through this enum; free-text event names are not
// allowed anywhere.
type EventType string

const (
	EventTypeLobbyUpdated     EventType = "LobbyUpdated"
	EventTypeLobbyListUpdated EventType = "LobbyListUpdated"
	EventTypeGameStarting     EventType = "GameStarting"
	EventTypeTimeUpdate       EventType = "TimeUpdate"
	EventTypeClockPaused      EventType = "ClockPaused"
	EventTypeClockResumed     EventType = "ClockResumed"
	EventTypeLocationPlaced   EventType = "LocationPlaced"
	EventTypeLocationRemoved  EventType = "LocationRemoved"
	EventTypeLocationUpdated  EventType = "LocationUpdated"
	EventTypeMoneyUpdated     EventType = "MoneyUpdated"
	EventTypeTurnUpdate       EventType = "TurnUpdate"
	EventTypeGameFinished     EventType = "GameFinished"
)

// Channel identifies which logical broadcast group an event belongs to.
// Clients only receive events for the channel matching their current screen.
type Channel string

const (
	// ChannelGlobal carries lobby-browser updates to every connected client
	// sitting on the welcome screen.
	ChannelGlobal Channel = "global"
	// ChannelLobby carries pre-game roster updates for one game.
	ChannelLobby Channel = "lobby"
	// ChannelGame carries live-session updates for one game.
	ChannelGame Channel = "game"
)

// GameEvent is the envelope for every realtime event emitted by the engine.
type GameEvent struct {
	ID        uuid.UUID       `json:"id"`
	GameID    uuid.UUID       `json:"game_id"`
	Channel   Channel         `json:"channel"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	// UserID, when set, restricts delivery to that user's connections
	// (unicast, e.g. MoneyUpdated).
	UserID string          `json:"user_id,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// Publisher is implemented by anything that accepts domain events for
// delivery to clients and external consumers.
type Publisher interface {
	Publish(evt GameEvent)
}

// New builds an event envelope, marshaling the payload. A payload that fails
// to marshal is a programming error; the event is returned with nil data and
// the error surfaced to the caller.
func New(gameID uuid.UUID, channel Channel, eventType EventType, payload any) (GameEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return GameEvent{}, err
	}
	return GameEvent{
		ID:        uuid.New(),
		GameID:    gameID,
		Channel:   channel,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}
