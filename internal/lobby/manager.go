// Package lobby holds the pre-game roster state machine: join/leave with
// reconnect handling, ready flags, deterministic host promotion, and the
// host-only transition to a live game.
package lobby

import (
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/mcdev12/franchisewars/internal/gamerr"
	"github.com/mcdev12/franchisewars/internal/models"
	"github.com/rs/zerolog/log"
)

// Manager owns every forming lobby in the process, keyed by game id.
type Manager struct {
	publisher events.Publisher

	mu      sync.Mutex
	lobbies map[uuid.UUID]*lobbyState
}

// lobbyState is one game's roster in join order.
type lobbyState struct {
	players []models.LobbyPlayer
}

// NewManager creates a lobby manager.
func NewManager(publisher events.Publisher) *Manager {
	return &Manager{
		publisher: publisher,
		lobbies:   make(map[uuid.UUID]*lobbyState),
	}
}

// Join adds a user to the lobby. Membership is keyed by user id, not
// connection identity: a reconnecting user is never duplicated. The first
// player to join an empty roster becomes host.
func (m *Manager) Join(gameID uuid.UUID, userID, username string) []models.LobbyPlayer {
	m.mu.Lock()
	state, ok := m.lobbies[gameID]
	if !ok {
		state = &lobbyState{}
		m.lobbies[gameID] = state
	}

	existing := false
	for i := range state.players {
		if state.players[i].UserID == userID {
			existing = true
			break
		}
	}
	if !existing {
		state.players = append(state.players, models.LobbyPlayer{
			UserID:   userID,
			Username: username,
			IsHost:   len(state.players) == 0,
		})
	}
	roster := snapshotRoster(state.players)
	m.mu.Unlock()

	log.Info().
		Str("game_id", gameID.String()).
		Str("user_id", userID).
		Bool("reconnect", existing).
		Int("roster_size", len(roster)).
		Msg("player joined lobby")

	m.broadcastRoster(gameID, roster)
	return roster
}

// Leave removes a user from the lobby and returns the remaining roster size.
// If the departing player was host and the roster is non-empty, the earliest
// remaining joiner is promoted; there is no vote.
func (m *Manager) Leave(gameID uuid.UUID, userID string) int {
	m.mu.Lock()
	state, ok := m.lobbies[gameID]
	if !ok {
		m.mu.Unlock()
		return 0
	}

	removed := false
	for i := range state.players {
		if state.players[i].UserID == userID {
			state.players = append(state.players[:i], state.players[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		remaining := len(state.players)
		m.mu.Unlock()
		return remaining
	}

	state.players = PromoteHost(state.players)
	if len(state.players) == 0 {
		delete(m.lobbies, gameID)
		m.mu.Unlock()
		log.Info().Str("game_id", gameID.String()).Msg("lobby emptied and removed")
		return 0
	}
	roster := snapshotRoster(state.players)
	m.mu.Unlock()

	log.Info().
		Str("game_id", gameID.String()).
		Str("user_id", userID).
		Int("roster_size", len(roster)).
		Msg("player left lobby")

	m.broadcastRoster(gameID, roster)
	return len(roster)
}

// SetReady flips a player's ready flag and rebroadcasts the roster.
func (m *Manager) SetReady(gameID uuid.UUID, userID string, ready bool) {
	m.mu.Lock()
	state, ok := m.lobbies[gameID]
	if !ok {
		m.mu.Unlock()
		return
	}
	for i := range state.players {
		if state.players[i].UserID == userID {
			state.players[i].IsReady = ready
			break
		}
	}
	roster := snapshotRoster(state.players)
	m.mu.Unlock()

	m.broadcastRoster(gameID, roster)
}

// StartGame validates that the requester is the current host and hands a
// roster snapshot over for the session transition. The lobby stays intact
// until the caller confirms the transition with Close, so a failed start
// loses nothing.
func (m *Manager) StartGame(gameID uuid.UUID, requesterID string) ([]models.LobbyPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.lobbies[gameID]
	if !ok {
		return nil, gamerr.NewConflict(gamerr.CodeGameNotFound, "no lobby for game %s", gameID)
	}

	host := ""
	for i := range state.players {
		if state.players[i].IsHost {
			host = state.players[i].UserID
			break
		}
	}
	if host != requesterID {
		return nil, gamerr.NewConflict(gamerr.CodeNotHost, "start-game requires host, requester %s", requesterID)
	}

	return snapshotRoster(state.players), nil
}

// Close removes a lobby whose game has gone live.
func (m *Manager) Close(gameID uuid.UUID) {
	m.mu.Lock()
	delete(m.lobbies, gameID)
	m.mu.Unlock()
}

// Roster returns the current de-duplicated roster, for state sync on join.
func (m *Manager) Roster(gameID uuid.UUID) []models.LobbyPlayer {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.lobbies[gameID]
	if !ok {
		return nil
	}
	return snapshotRoster(state.players)
}

func (m *Manager) broadcastRoster(gameID uuid.UUID, roster []models.LobbyPlayer) {
	if m.publisher == nil {
		return
	}
	evt, err := events.New(gameID, events.ChannelLobby, events.EventTypeLobbyUpdated, events.LobbyUpdatedPayload{
		Players: roster,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build lobby update event")
		return
	}
	m.publisher.Publish(evt)
}

// PromoteHost re-establishes the single-host invariant by list order: the
// first player is host, everyone else is not. Pure; safe on an empty roster.
func PromoteHost(players []models.LobbyPlayer) []models.LobbyPlayer {
	for i := range players {
		players[i].IsHost = i == 0
	}
	return players
}

// DedupeByUserID drops repeated entries, keeping first occurrence. Rapid
// reconnects can otherwise put duplicates into an in-transit roster
// broadcast.
func DedupeByUserID(players []models.LobbyPlayer) []models.LobbyPlayer {
	seen := make(map[string]bool, len(players))
	out := players[:0:0]
	for _, p := range players {
		if seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		out = append(out, p)
	}
	return out
}

// snapshotRoster copies and de-duplicates the roster for broadcast.
func snapshotRoster(players []models.LobbyPlayer) []models.LobbyPlayer {
	copied := make([]models.LobbyPlayer, len(players))
	copy(copied, players)
	return DedupeByUserID(copied)
}
