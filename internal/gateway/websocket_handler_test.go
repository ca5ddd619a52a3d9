package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/mcdev12/franchisewars/internal/gamerr"
	"github.com/mcdev12/franchisewars/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinAck(t *testing.T, h *WebSocketHandler, conn *Connection, username string) Response {
	t.Helper()
	h.sendJoinAck(conn, username)

	select {
	case raw := <-conn.Send:
		var resp Response
		require.NoError(t, json.Unmarshal(raw, &resp))
		return resp
	default:
		t.Fatal("no join ack written")
		return Response{}
	}
}

func lobbyConn(userID string, gameID uuid.UUID) *Connection {
	return &Connection{
		ID:      uuid.New().String(),
		UserID:  userID,
		GameID:  gameID,
		Channel: events.ChannelLobby,
		Send:    make(chan []byte, 16),
	}
}

func TestLobbyJoinRequiresExistingDraftGame(t *testing.T) {
	svc, registry, lobbies := newTestService(t)
	h := svc.wsHandler
	ctx := context.Background()

	game, err := registry.CreateGame(ctx, "alice", models.GameSettings{Name: "test"})
	require.NoError(t, err)

	t.Run("unknown game", func(t *testing.T) {
		phantom := uuid.New()
		resp := joinAck(t, h, lobbyConn("alice", phantom), "Alice")

		assert.False(t, resp.OK)
		assert.Equal(t, gamerr.CodeGameNotFound, resp.Error)
		assert.Nil(t, lobbies.Roster(phantom), "no phantom lobby is created")
	})

	t.Run("draft game", func(t *testing.T) {
		resp := joinAck(t, h, lobbyConn("alice", game.ID), "Alice")

		require.True(t, resp.OK)
		require.Len(t, lobbies.Roster(game.ID), 1)
	})

	t.Run("live game", func(t *testing.T) {
		_, err := registry.StartGame(ctx, game.ID, nil,
			[]models.LobbyPlayer{{UserID: "alice", IsHost: true}})
		require.NoError(t, err)
		lobbies.Close(game.ID)

		resp := joinAck(t, h, lobbyConn("bob", game.ID), "Bob")

		assert.False(t, resp.OK)
		assert.Equal(t, gamerr.CodeGameNotLive, resp.Error)
		assert.Nil(t, lobbies.Roster(game.ID), "a closed lobby stays closed")
	})
}
