package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/rs/zerolog/log"
)

// groupKey identifies one broadcast group: a game and a logical concern.
// Three separate channels (global lobby browser, per-game lobby, per-game
// live session) keep clients from receiving broadcasts irrelevant to their
// current screen. The global group uses the nil game id.
type groupKey struct {
	GameID  uuid.UUID
	Channel events.Channel
}

// ConnectionManager owns every websocket connection, organized into
// broadcast groups.
type ConnectionManager struct {
	groups map[groupKey]map[*Connection]bool
	mu     sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan events.GameEvent

	// onDisconnect runs synchronously when a connection unregisters, so
	// lobby leave-handling (host reassignment, roster broadcast) is not
	// delayed behind other work.
	onDisconnect func(conn *Connection)

	// onMessage routes inbound client frames.
	onMessage func(conn *Connection, message []byte)
}

// Connection represents one websocket client bound to (user, game, channel).
// It is ephemeral and rebuilt on every reconnect; a disconnect removes it
// from future group membership but does not cancel mutations already in
// flight on its read loop.
type Connection struct {
	ID      string
	UserID  string
	GameID  uuid.UUID
	Channel events.Channel
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	// done signals writePump to exit. Send itself is never closed: the
	// read loop may still be finishing a command whose response goes out
	// through SendJSON, and the broadcast pump may be mid-delivery; a send
	// after unregistration must drop, not panic.
	done      chan struct{}
	closeOnce sync.Once

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds websocket tuning.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default websocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a websocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		groups: make(map[groupKey]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan events.GameEvent, 1000),
	}
}

// SetDisconnectHandler registers the synchronous disconnect hook.
func (cm *ConnectionManager) SetDisconnectHandler(fn func(conn *Connection)) {
	cm.onDisconnect = fn
}

// SetMessageHandler registers the inbound command router.
func (cm *ConnectionManager) SetMessageHandler(fn func(conn *Connection, message []byte)) {
	cm.onMessage = fn
}

// Start processes broadcast messages until the context is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case evt := <-cm.broadcastCh:
			cm.handleBroadcast(evt)
		}
	}
}

// UpgradeConnection upgrades an HTTP request to a websocket bound to the
// given identity and broadcast group.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request,
	userID string, gameID uuid.UUID, channel events.Channel) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		GameID:      gameID,
		Channel:     channel,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		done:        make(chan struct{}),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("game_id", gameID.String()).
		Str("channel", string(channel)).
		Msg("websocket connection established")

	return connection, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	key := groupKey{GameID: conn.GameID, Channel: conn.Channel}

	cm.mu.Lock()
	if cm.groups[key] == nil {
		cm.groups[key] = make(map[*Connection]bool)
	}
	cm.groups[key][conn] = true
	total := len(cm.groups[key])
	cm.mu.Unlock()

	log.Debug().
		Str("connection_id", conn.ID).
		Str("game_id", conn.GameID.String()).
		Str("channel", string(conn.Channel)).
		Int("group_connections", total).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	key := groupKey{GameID: conn.GameID, Channel: conn.Channel}

	cm.mu.Lock()
	removed := false
	if group, exists := cm.groups[key]; exists {
		if _, exists := group[conn]; exists {
			delete(group, conn)
			removed = true
			if len(group) == 0 {
				delete(cm.groups, key)
			}
		}
	}
	cm.mu.Unlock()

	if !removed {
		return
	}

	conn.signalClose()

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("game_id", conn.GameID.String()).
		Str("channel", string(conn.Channel)).
		Msg("connection unregistered")

	if cm.onDisconnect != nil {
		cm.onDisconnect(conn)
	}
}

// Broadcast queues an event for delivery to its broadcast group. Within one
// group, events are delivered to all current members in emission order.
func (cm *ConnectionManager) Broadcast(evt events.GameEvent) {
	select {
	case cm.broadcastCh <- evt:
	default:
		log.Warn().
			Str("game_id", evt.GameID.String()).
			Str("event_type", string(evt.Type)).
			Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(evt events.GameEvent) {
	key := groupKey{GameID: evt.GameID, Channel: evt.Channel}

	cm.mu.RLock()
	group, exists := cm.groups[key]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Snapshot so the lock is not held during sends.
	var targets []*Connection
	for conn := range group {
		// An envelope with a user id is unicast to that user only.
		if evt.UserID != "" && conn.UserID != evt.UserID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case <-conn.done:
			// Unregistered between the snapshot and the send.
		case conn.Send <- data:
		default:
			log.Warn().
				Str("connection_id", conn.ID).
				Str("user_id", conn.UserID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(evt.Type)).
		Str("game_id", evt.GameID.String()).
		Str("channel", string(evt.Channel)).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// ConnectedUserIDs returns the distinct users holding live-session
// connections to a game. The session clock uses this to pay annual income to
// connected players.
func (cm *ConnectionManager) ConnectedUserIDs(gameID uuid.UUID) []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	group, exists := cm.groups[groupKey{GameID: gameID, Channel: events.ChannelGame}]
	if !exists {
		return nil
	}

	seen := make(map[string]bool, len(group))
	var userIDs []string
	for conn := range group {
		if !seen[conn.UserID] {
			seen[conn.UserID] = true
			userIDs = append(userIDs, conn.UserID)
		}
	}
	return userIDs
}

// HasConnection reports whether the user still holds any connection in the
// given group. Disconnect handling uses it to distinguish a real departure
// from an old socket dying after a reconnect.
func (cm *ConnectionManager) HasConnection(gameID uuid.UUID, channel events.Channel, userID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	group, exists := cm.groups[groupKey{GameID: gameID, Channel: channel}]
	if !exists {
		return false
	}
	for conn := range group {
		if conn.UserID == userID {
			return true
		}
	}
	return false
}

// Stats returns connection counts per group.
func (cm *ConnectionManager) Stats() (total int, groups map[string]int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	groups = make(map[string]int, len(cm.groups))
	for key, group := range cm.groups {
		count := len(group)
		total += count
		groups[fmt.Sprintf("%s/%s", key.GameID, key.Channel)] = count
	}
	return total, groups
}

// SendJSON marshals and queues a frame on this connection only, used for
// request/response traffic outside the broadcast path.
func (c *Connection) SendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal frame")
		return
	}
	select {
	case <-c.done:
		// The connection unregistered while this frame was being built.
	case c.Send <- data:
	default:
		log.Warn().Str("connection_id", c.ID).Msg("connection send buffer full, dropping frame")
	}
}

// signalClose tells writePump to stop accepting frames. Safe to call more
// than once; read and write pumps both unregister on exit.
func (c *Connection) signalClose() {
	c.closeOnce.Do(func() {
		if c.done != nil {
			close(c.done)
		}
	})
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump reads client frames and routes each one synchronously, so
// commands from one connection apply in the order they were sent and an
// in-flight command always completes even if the read that follows fails.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			break
		}

		if c.Manager.onMessage != nil {
			c.Manager.onMessage(c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
