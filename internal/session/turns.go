package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/mcdev12/franchisewars/internal/gamerr"
	"github.com/mcdev12/franchisewars/internal/models"
)

// Turn order is linear round-robin over the session's player list; a single
// integer index is the entire state.

// CurrentPlayer returns the user id whose turn it is, or "" for a free-form
// or empty game.
func (r *Registry) CurrentPlayer(ctx context.Context, gameID uuid.UUID) (string, error) {
	game, err := r.getOrLoad(ctx, gameID)
	if err != nil {
		return "", err
	}

	game.mu.Lock()
	defer game.mu.Unlock()
	return currentPlayerLocked(game), nil
}

// AdvanceTurn moves to the next player. Only the current player may advance;
// this is enforced here, server-side, regardless of client checks.
func (r *Registry) AdvanceTurn(ctx context.Context, gameID uuid.UUID, userID string) error {
	game, err := r.getOrLoad(ctx, gameID)
	if err != nil {
		return err
	}

	game.mu.Lock()
	if game.session.Status != models.GameStatusLive {
		status := game.session.Status
		game.mu.Unlock()
		return gamerr.NewConflict(gamerr.CodeGameNotLive, "cannot advance turn in status %s", status)
	}
	if !game.session.TurnBased {
		game.mu.Unlock()
		return gamerr.NewConflict(gamerr.CodeNotYourTurn, "game %s is not turn based", gameID)
	}
	if len(game.players) == 0 {
		game.mu.Unlock()
		return gamerr.NewConflict(gamerr.CodeNotYourTurn, "game %s has no players", gameID)
	}
	if current := currentPlayerLocked(game); current != userID {
		game.mu.Unlock()
		return gamerr.NewConflict(gamerr.CodeNotYourTurn, "turn belongs to %s", current)
	}

	game.session.TurnNumber = (game.session.TurnNumber + 1) % len(game.players)
	turn := game.session.TurnNumber
	next := game.players[turn].UserID
	session := game.session
	game.mu.Unlock()

	r.persistAsync(&session)
	r.broadcast(gameID, events.ChannelGame, events.EventTypeTurnUpdate, events.TurnUpdatePayload{
		TurnNumber:    turn,
		CurrentUserID: next,
	})
	return nil
}

// currentPlayerLocked resolves the turn index to a user id. Caller holds
// game.mu.
func currentPlayerLocked(game *Game) string {
	if !game.session.TurnBased || len(game.players) == 0 {
		return ""
	}
	return game.players[game.session.TurnNumber%len(game.players)].UserID
}
