package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/mcdev12/franchisewars/internal/models"
	"github.com/rs/zerolog/log"
)

// startClock launches the per-game tick loop. The clock runs independently of
// client traffic on a fixed-period ticker and is the single writer of
// elapsed time: monotonic while RUNNING, frozen while PAUSED.
func (r *Registry) startClock(game *Game) {
	r.mu.Lock()
	rootCtx := r.rootCtx
	r.mu.Unlock()
	if rootCtx == nil {
		rootCtx = context.Background()
	}

	game.mu.Lock()
	if game.stopClock != nil {
		// Restarting a game replaces its running clock.
		game.stopClock()
	}
	ctx, cancel := context.WithCancel(rootCtx)
	game.stopClock = cancel
	gameID := game.session.ID
	game.mu.Unlock()

	go func() {
		ticker := r.clock.NewTicker(r.config.TickPeriod)
		defer ticker.Stop()

		log.Info().Str("game_id", gameID.String()).Msg("session clock started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Str("game_id", gameID.String()).Msg("session clock stopped")
				return
			case <-ticker.Chan():
				if !r.tick(ctx, game) {
					return
				}
			}
		}
	}()
}

// tick advances the clock one increment and returns false when the timeline
// is exhausted and the clock should stop.
func (r *Registry) tick(ctx context.Context, game *Game) bool {
	game.mu.Lock()

	if game.session.Status != models.GameStatusLive {
		game.mu.Unlock()
		return false
	}
	if game.session.IsPaused {
		game.mu.Unlock()
		return true
	}

	game.session.ElapsedTimeMs += r.config.TickIncrementMs
	elapsed := game.session.ElapsedTimeMs
	duration := game.session.GameDurationHours

	month, year, done := r.calendar.At(elapsed, duration)
	newIdx := r.calendar.MonthIndex(elapsed, duration)
	crossed := YearsCrossed(game.prevMonthIndex, newIdx)
	game.prevMonthIndex = newIdx

	gameID := game.session.ID
	var finished bool
	if done {
		// End of the simulated timeline: force the pause and stop
		// incrementing. The session stays queryable until deleted.
		game.session.IsPaused = true
		game.session.Status = models.GameStatusFinished
		finished = true
	}

	game.ticksSincePersist++
	persist := finished || game.ticksSincePersist >= r.config.PersistEveryTicks
	if persist {
		game.ticksSincePersist = 0
	}
	session := game.session
	players := game.players
	game.mu.Unlock()

	// Income is granted before the time broadcast so clients observing the
	// new year already see the credited balance.
	if crossed > 0 {
		r.grantIncome(ctx, gameID, players, crossed)
	}

	r.broadcast(gameID, events.ChannelGame, events.EventTypeTimeUpdate, events.TimeUpdatePayload{
		ElapsedTimeMs: elapsed,
		Month:         month,
		Year:          year,
	})

	if persist {
		r.persistAsync(&session)
	}

	if finished {
		r.broadcast(gameID, events.ChannelGame, events.EventTypeGameFinished, events.GameFinishedPayload{
			GameID:        gameID.String(),
			ElapsedTimeMs: elapsed,
		})
		log.Info().Str("game_id", gameID.String()).Msg("game timeline finished, clock auto-paused")
		return false
	}
	return true
}

// grantIncome credits the annual stipend once per crossed year boundary to
// every connected player, falling back to the session's player set when no
// presence source is wired.
func (r *Registry) grantIncome(ctx context.Context, gameID uuid.UUID, players []models.LobbyPlayer, years int) {
	var userIDs []string
	if r.presence != nil {
		userIDs = r.presence.ConnectedUserIDs(gameID)
	}
	if len(userIDs) == 0 {
		for _, p := range players {
			userIDs = append(userIDs, p.UserID)
		}
	}

	for _, userID := range userIDs {
		for i := 0; i < years; i++ {
			r.ledger.GrantAnnualIncome(ctx, userID, gameID, r.config.AnnualIncome)
		}
	}
}
