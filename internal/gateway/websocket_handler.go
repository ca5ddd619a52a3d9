package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/mcdev12/franchisewars/internal/gamerr"
	"github.com/mcdev12/franchisewars/internal/lobby"
	"github.com/mcdev12/franchisewars/internal/models"
	"github.com/mcdev12/franchisewars/internal/placement"
	"github.com/mcdev12/franchisewars/internal/session"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades HTTP requests into channel-bound connections and
// performs the join handshake. Identity comes from query parameters; the
// stronger trust boundary (token verification) lives in the HTTP layer in
// front of this handler.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	lobbies           *lobby.Manager
	registry          *session.Registry
	placement         *placement.App
	ledger            Ledger
}

// NewWebSocketHandler creates a websocket handler.
func NewWebSocketHandler(cm *ConnectionManager, lobbies *lobby.Manager,
	registry *session.Registry, placementApp *placement.App, ledger Ledger) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		lobbies:           lobbies,
		registry:          registry,
		placement:         placementApp,
		ledger:            ledger,
	}
}

// HandleConnection handles websocket upgrade requests for all three logical
// channels.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		username = userID
	}

	channel := events.Channel(r.URL.Query().Get("channel"))
	if channel == "" {
		channel = events.ChannelGlobal
	}

	gameID := uuid.Nil
	switch channel {
	case events.ChannelGlobal:
	case events.ChannelLobby, events.ChannelGame:
		parsed, err := uuid.Parse(r.URL.Query().Get("game_id"))
		if err != nil {
			http.Error(w, "valid game_id is required", http.StatusBadRequest)
			return
		}
		gameID = parsed
	default:
		http.Error(w, "unknown channel", http.StatusBadRequest)
		return
	}

	conn, err := h.connectionManager.UpgradeConnection(w, r, userID, gameID, channel)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("game_id", gameID.String()).
			Msg("failed to upgrade websocket connection")
		return
	}

	h.sendJoinAck(conn, username)
}

// sendJoinAck joins the domain-side state for the channel and acks with the
// snapshot the client needs for its screen.
func (h *WebSocketHandler) sendJoinAck(conn *Connection, username string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch conn.Channel {
	case events.ChannelGlobal:
		games, err := h.registry.ListGames(ctx)
		if err != nil {
			conn.SendJSON(Response{Cmd: CommandJoin, OK: false, Error: gamerr.Code(err)})
			return
		}
		conn.SendJSON(Response{Cmd: CommandJoin, OK: true, Data: GlobalJoinState{Games: games}})

	case events.ChannelLobby:
		// A lobby only exists for a real DRAFT game; an arbitrary game_id
		// must not conjure a phantom roster.
		sess, _, err := h.registry.Snapshot(ctx, conn.GameID)
		if err != nil {
			conn.SendJSON(Response{Cmd: CommandJoin, OK: false, Error: gamerr.Code(err)})
			return
		}
		if sess.Status != models.GameStatusDraft {
			conn.SendJSON(Response{Cmd: CommandJoin, OK: false, Error: gamerr.CodeGameNotLive})
			return
		}
		roster := h.lobbies.Join(conn.GameID, conn.UserID, username)
		conn.SendJSON(Response{Cmd: CommandJoin, OK: true, Data: LobbyJoinState{
			GameID:  conn.GameID.String(),
			Players: roster,
		}})

	case events.ChannelGame:
		state, err := h.gameJoinState(ctx, conn)
		if err != nil {
			conn.SendJSON(Response{Cmd: CommandJoin, OK: false, Error: gamerr.Code(err)})
			return
		}
		conn.SendJSON(Response{Cmd: CommandJoin, OK: true, Data: state})
	}
}

// gameJoinState assembles the reconnect snapshot for a live-session join.
func (h *WebSocketHandler) gameJoinState(ctx context.Context, conn *Connection) (*GameJoinState, error) {
	sess, players, err := h.registry.Snapshot(ctx, conn.GameID)
	if err != nil {
		return nil, err
	}
	locations, err := h.placement.Locations(ctx, conn.GameID)
	if err != nil {
		return nil, err
	}
	current, err := h.registry.CurrentPlayer(ctx, conn.GameID)
	if err != nil {
		return nil, err
	}

	return &GameJoinState{
		Session:       sess,
		Players:       players,
		Locations:     locations,
		Money:         h.ledger.GetBalance(ctx, conn.UserID, conn.GameID),
		CurrentUserID: current,
	}, nil
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	total, groups := h.connectionManager.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"total_connections": total,
		"groups":            groups,
	})
}

// RegisterRoutes registers websocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
