package gateway

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConnection(cm *ConnectionManager, userID string, gameID uuid.UUID, channel events.Channel) *Connection {
	conn := &Connection{
		ID:      uuid.New().String(),
		UserID:  userID,
		GameID:  gameID,
		Channel: channel,
		Send:    make(chan []byte, 16),
		done:    make(chan struct{}),
		Manager: cm,
	}
	cm.registerConnection(conn)
	return conn
}

func drain(t *testing.T, conn *Connection) []events.GameEvent {
	t.Helper()
	var out []events.GameEvent
	for {
		select {
		case raw := <-conn.Send:
			var evt events.GameEvent
			require.NoError(t, json.Unmarshal(raw, &evt))
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestBroadcastTargetsGroup(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	gameID := uuid.New()
	otherGame := uuid.New()

	inGame := testConnection(cm, "alice", gameID, events.ChannelGame)
	inLobby := testConnection(cm, "bob", gameID, events.ChannelLobby)
	elsewhere := testConnection(cm, "carol", otherGame, events.ChannelGame)

	evt, err := events.New(gameID, events.ChannelGame, events.EventTypeTimeUpdate, events.TimeUpdatePayload{ElapsedTimeMs: 1000})
	require.NoError(t, err)
	cm.handleBroadcast(evt)

	assert.Len(t, drain(t, inGame), 1)
	assert.Empty(t, drain(t, inLobby), "lobby channel does not see game events")
	assert.Empty(t, drain(t, elsewhere), "other games are isolated")
}

func TestBroadcastUnicast(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	gameID := uuid.New()

	alice := testConnection(cm, "alice", gameID, events.ChannelGame)
	aliceSecond := testConnection(cm, "alice", gameID, events.ChannelGame)
	bob := testConnection(cm, "bob", gameID, events.ChannelGame)

	evt, err := events.New(gameID, events.ChannelGame, events.EventTypeMoneyUpdated, events.MoneyUpdatedPayload{
		UserID:   "alice",
		NewMoney: 2000,
	})
	require.NoError(t, err)
	evt.UserID = "alice"
	cm.handleBroadcast(evt)

	assert.Len(t, drain(t, alice), 1)
	assert.Len(t, drain(t, aliceSecond), 1, "every connection of the addressee gets it")
	assert.Empty(t, drain(t, bob), "money updates are private")
}

func TestBroadcastGlobalChannel(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())

	welcome := testConnection(cm, "alice", uuid.Nil, events.ChannelGlobal)
	inGame := testConnection(cm, "bob", uuid.New(), events.ChannelGame)

	evt, err := events.New(uuid.Nil, events.ChannelGlobal, events.EventTypeLobbyListUpdated, events.LobbyListUpdatedPayload{})
	require.NoError(t, err)
	cm.handleBroadcast(evt)

	assert.Len(t, drain(t, welcome), 1)
	assert.Empty(t, drain(t, inGame))
}

func TestConnectedUserIDs(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	gameID := uuid.New()

	testConnection(cm, "alice", gameID, events.ChannelGame)
	testConnection(cm, "alice", gameID, events.ChannelGame) // second tab
	testConnection(cm, "bob", gameID, events.ChannelGame)
	testConnection(cm, "carol", gameID, events.ChannelLobby)

	userIDs := cm.ConnectedUserIDs(gameID)
	assert.ElementsMatch(t, []string{"alice", "bob"}, userIDs, "distinct users on the game channel only")

	assert.Nil(t, cm.ConnectedUserIDs(uuid.New()))
}

func TestHasConnection(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	gameID := uuid.New()

	conn := testConnection(cm, "alice", gameID, events.ChannelLobby)

	assert.True(t, cm.HasConnection(gameID, events.ChannelLobby, "alice"))
	assert.False(t, cm.HasConnection(gameID, events.ChannelGame, "alice"))
	assert.False(t, cm.HasConnection(gameID, events.ChannelLobby, "bob"))

	cm.unregisterConnection(conn)
	assert.False(t, cm.HasConnection(gameID, events.ChannelLobby, "alice"))
}

func TestUnregisterFiresDisconnectHandlerOnce(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	var fired int
	cm.SetDisconnectHandler(func(conn *Connection) { fired++ })

	conn := testConnection(cm, "alice", uuid.New(), events.ChannelLobby)

	cm.unregisterConnection(conn)
	cm.unregisterConnection(conn) // write pump and read pump both call it

	assert.Equal(t, 1, fired)
}

func TestSendAfterUnregisterDropsFrame(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	gameID := uuid.New()

	conn := testConnection(cm, "alice", gameID, events.ChannelGame)
	survivor := testConnection(cm, "bob", gameID, events.ChannelGame)

	// The write pump unregisters on a failed write while the read loop may
	// still be finishing a command; the late response must drop silently.
	cm.unregisterConnection(conn)

	require.NotPanics(t, func() {
		conn.SendJSON(Response{Cmd: CommandJoin, OK: true})
	})

	evt, err := events.New(gameID, events.ChannelGame, events.EventTypeTimeUpdate, events.TimeUpdatePayload{ElapsedTimeMs: 1000})
	require.NoError(t, err)
	require.NotPanics(t, func() { cm.handleBroadcast(evt) })
	assert.Len(t, drain(t, survivor), 1, "remaining members still receive broadcasts")
}

func TestStats(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	gameID := uuid.New()

	testConnection(cm, "alice", gameID, events.ChannelGame)
	testConnection(cm, "bob", gameID, events.ChannelGame)
	testConnection(cm, "carol", uuid.Nil, events.ChannelGlobal)

	total, groups := cm.Stats()
	assert.Equal(t, 3, total)
	assert.Len(t, groups, 2)
}
