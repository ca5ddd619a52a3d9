package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/mcdev12/franchisewars/internal/gamerr"
	"github.com/mcdev12/franchisewars/internal/lobby"
	"github.com/mcdev12/franchisewars/internal/models"
	"github.com/mcdev12/franchisewars/internal/placement"
	"github.com/mcdev12/franchisewars/internal/session"
	"github.com/rs/zerolog/log"
)

const commandTimeout = 15 * time.Second

// Router dispatches inbound client commands to the domain components and
// writes the response frame back on the issuing connection.
type Router struct {
	lobbies   *lobby.Manager
	registry  *session.Registry
	placement *placement.App
	publisher events.Publisher
}

// NewRouter creates a command router.
func NewRouter(lobbies *lobby.Manager, registry *session.Registry,
	placementApp *placement.App, publisher events.Publisher) *Router {
	return &Router{
		lobbies:   lobbies,
		registry:  registry,
		placement: placementApp,
		publisher: publisher,
	}
}

// HandleMessage routes one client frame. It runs on the connection's read
// loop, so commands from one connection execute in the order they were sent,
// and a command already executing completes even if the connection drops.
// The context is deliberately not tied to the connection for the same
// reason.
func (rt *Router) HandleMessage(conn *Connection, message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		conn.SendJSON(Response{OK: false, Error: gamerr.CodeBadRequest})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var (
		data any
		err  error
	)

	switch cmd.Type {
	case CommandPlaceLocation:
		data, err = rt.handlePlaceLocation(ctx, conn, cmd.Data)
	case CommandRemoveLocation:
		err = rt.handleRemoveLocation(ctx, conn, cmd.Data)
	case CommandPause:
		err = rt.registry.Pause(ctx, conn.GameID, conn.UserID)
	case CommandResume:
		err = rt.registry.Resume(ctx, conn.GameID, conn.UserID)
	case CommandStartGame:
		err = rt.handleStartGame(ctx, conn, cmd.Data)
	case CommandPlayerReady:
		err = rt.handlePlayerReady(conn, cmd.Data)
	case CommandAdvanceTurn:
		err = rt.registry.AdvanceTurn(ctx, conn.GameID, conn.UserID)
	default:
		err = gamerr.NewValidation(gamerr.CodeBadRequest, "unknown command %q", cmd.Type)
	}

	resp := Response{RequestID: cmd.RequestID, Cmd: cmd.Type, OK: err == nil, Data: data}
	if err != nil {
		resp.Error = gamerr.Code(err)
		log.Debug().
			Err(err).
			Str("command", string(cmd.Type)).
			Str("user_id", conn.UserID).
			Str("game_id", conn.GameID.String()).
			Msg("command rejected")
	}
	conn.SendJSON(resp)
}

func (rt *Router) handlePlaceLocation(ctx context.Context, conn *Connection, data []byte) (any, error) {
	var payload PlaceLocationCommand
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, gamerr.NewValidation(gamerr.CodeBadRequest, "bad place-location payload: %v", err)
	}
	if payload.Mode != models.LocationTypeFranchise && payload.Mode != models.LocationTypeDistributionCenter {
		return nil, gamerr.NewValidation(gamerr.CodeBadRequest, "unknown location mode %q", payload.Mode)
	}

	snapshot, _, err := rt.registry.Snapshot(ctx, conn.GameID)
	if err != nil {
		return nil, err
	}
	if snapshot.Status != models.GameStatusLive {
		return nil, gamerr.NewConflict(gamerr.CodeGameNotLive, "game %s is not live", conn.GameID)
	}

	return rt.placement.PlaceLocation(ctx, placement.PlaceLocationRequest{
		GameID:    conn.GameID,
		OwnerID:   conn.UserID,
		Lat:       payload.Lat,
		Lng:       payload.Lng,
		Name:      payload.Name,
		Mode:      payload.Mode,
		ElapsedMs: snapshot.ElapsedTimeMs,
	})
}

func (rt *Router) handleRemoveLocation(ctx context.Context, conn *Connection, data []byte) error {
	var payload RemoveLocationCommand
	if err := json.Unmarshal(data, &payload); err != nil {
		return gamerr.NewValidation(gamerr.CodeBadRequest, "bad remove-location payload: %v", err)
	}
	locationID, err := uuid.Parse(payload.LocationID)
	if err != nil {
		return gamerr.NewValidation(gamerr.CodeBadRequest, "bad location id %q", payload.LocationID)
	}
	return rt.placement.RemoveLocation(ctx, conn.GameID, locationID, conn.UserID)
}

// handleStartGame runs the host-only DRAFT to LIVE transition: validate the
// host, move the roster into the session, then tell every lobby member to
// switch views at once.
func (rt *Router) handleStartGame(ctx context.Context, conn *Connection, data []byte) error {
	var payload StartGameCommand
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			return gamerr.NewValidation(gamerr.CodeBadRequest, "bad start-game payload: %v", err)
		}
	}

	roster, err := rt.lobbies.StartGame(conn.GameID, conn.UserID)
	if err != nil {
		return err
	}

	started, err := rt.registry.StartGame(ctx, conn.GameID, payload.Settings, roster)
	if err != nil {
		return err
	}
	rt.lobbies.Close(conn.GameID)

	evt, err := events.New(conn.GameID, events.ChannelLobby, events.EventTypeGameStarting, events.GameStartingPayload{
		GameID:  started.ID.String(),
		Name:    started.Name,
		Players: roster,
	})
	if err != nil {
		return err
	}
	rt.publisher.Publish(evt)
	return nil
}

func (rt *Router) handlePlayerReady(conn *Connection, data []byte) error {
	var payload PlayerReadyCommand
	if err := json.Unmarshal(data, &payload); err != nil {
		return gamerr.NewValidation(gamerr.CodeBadRequest, "bad player-ready payload: %v", err)
	}
	rt.lobbies.SetReady(conn.GameID, conn.UserID, payload.Ready)
	return nil
}
