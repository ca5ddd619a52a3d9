package gateway

import (
	"context"
	"net/http"

	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/mcdev12/franchisewars/internal/lobby"
	"github.com/mcdev12/franchisewars/internal/placement"
	"github.com/mcdev12/franchisewars/internal/session"
	"github.com/rs/zerolog/log"
)

// Service is the realtime gateway: it owns the connection manager, the
// inbound command router, the websocket handler, and the pump that fans
// domain events out to broadcast groups.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	router            *Router
	bus               *events.Bus
	lobbies           *lobby.Manager
	registry          *session.Registry
	busBuffer         int
}

// Config holds gateway configuration.
type Config struct {
	ConnectionConfig ConnectionConfig
	// BusBuffer sizes the gateway's event bus subscription.
	BusBuffer int
}

// DefaultConfig returns gateway defaults.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		BusBuffer:        1000,
	}
}

// NewService wires the gateway to the domain components.
func NewService(config Config, bus *events.Bus, lobbies *lobby.Manager,
	registry *session.Registry, placementApp *placement.App, ledger Ledger) *Service {
	if config.BusBuffer <= 0 {
		config.BusBuffer = DefaultConfig().BusBuffer
	}
	cm := NewConnectionManager(config.ConnectionConfig)
	router := NewRouter(lobbies, registry, placementApp, bus)

	s := &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, lobbies, registry, placementApp, ledger),
		router:            router,
		bus:               bus,
		lobbies:           lobbies,
		registry:          registry,
		busBuffer:         config.BusBuffer,
	}

	cm.SetMessageHandler(router.HandleMessage)
	cm.SetDisconnectHandler(s.handleDisconnect)

	// Connected players earn annual income.
	registry.SetPresence(cm)

	return s
}

// Start runs the gateway until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting realtime gateway")

	go s.connectionManager.Start(ctx)

	sub := s.bus.Subscribe(s.busBuffer)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("realtime gateway shutting down")
			return nil
		case evt := <-sub:
			s.connectionManager.Broadcast(evt)
		}
	}
}

// handleDisconnect runs synchronously when a connection unregisters. Lobby
// membership follows socket presence: when a user's last lobby connection
// for a game drops, their leave (and any host reassignment) happens before
// anything else is processed for that connection.
func (s *Service) handleDisconnect(conn *Connection) {
	if conn.Channel != events.ChannelLobby {
		return
	}
	if s.connectionManager.HasConnection(conn.GameID, events.ChannelLobby, conn.UserID) {
		// A newer connection for the same user is alive; this was a
		// reconnect, not a departure.
		return
	}
	if s.lobbies.Leave(conn.GameID, conn.UserID) == 0 {
		// Nobody is waiting on this game anymore; a DRAFT session drops
		// from memory and rehydrates if someone comes back. Evict refuses
		// LIVE games, so an abandoned lobby cannot unload a running one.
		s.registry.Evict(conn.GameID)
	}
}

// RegisterRoutes registers the websocket HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("realtime gateway routes registered")
}

// ConnectionManager exposes the connection registry for presence queries.
func (s *Service) ConnectionManager() *ConnectionManager {
	return s.connectionManager
}
