// Package session owns the authoritative per-game state: the session
// registry, the shared game clock with its simulated calendar, and the
// optional turn order. One process owns all sessions; there is no sharding.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/mcdev12/franchisewars/internal/gamerr"
	"github.com/mcdev12/franchisewars/internal/models"
	"github.com/rs/zerolog/log"
)

// Repository defines what the registry needs from the persistent store.
type Repository interface {
	CreateGame(ctx context.Context, game *models.GameSession) error
	GetGame(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
	UpdateGame(ctx context.Context, game *models.GameSession) error
	DeleteGame(ctx context.Context, id uuid.UUID) error
	ListGames(ctx context.Context) ([]models.GameSession, error)
}

// Ledger defines what the clock needs to grant annual income.
type Ledger interface {
	GrantAnnualIncome(ctx context.Context, userID string, gameID uuid.UUID, amount int)
}

// Presence reports which users currently hold live connections to a game, so
// income grants go to connected players.
type Presence interface {
	ConnectedUserIDs(gameID uuid.UUID) []string
}

// Config holds clock and economy tuning for all sessions.
type Config struct {
	// TickPeriod is the wall-time interval between clock ticks.
	TickPeriod time.Duration `yaml:"-"`
	// TickIncrementMs is the fixed amount added to elapsed time per tick.
	TickIncrementMs int64 `yaml:"tick_increment_ms"`
	// PersistEveryTicks throttles elapsed-time store writes; pauses and
	// finishes always persist immediately.
	PersistEveryTicks int `yaml:"persist_every_ticks"`
	BaseYear          int `yaml:"base_year"`
	EndYear           int `yaml:"end_year"`
	AnnualIncome      int `yaml:"annual_income"`
	// DefaultDurationHours applies when a game is started without one.
	DefaultDurationHours int `yaml:"default_duration_hours"`
}

// DefaultConfig returns the shipped clock settings.
func DefaultConfig() Config {
	return Config{
		TickPeriod:           time.Second,
		TickIncrementMs:      1000,
		PersistEveryTicks:    15,
		BaseYear:             1955,
		EndYear:              1974,
		AnnualIncome:         1000,
		DefaultDurationHours: 2,
	}
}

// Game is one registered session. Its mutex is the per-game sequencing
// primitive: every mutating handler for the game runs under it to
// completion, while handlers for other games interleave freely.
type Game struct {
	mu      sync.Mutex
	session models.GameSession
	players []models.LobbyPlayer

	prevMonthIndex    int
	ticksSincePersist int
	stopClock         context.CancelFunc
}

// Registry is the supervising owner of all in-memory sessions, exposing
// explicit get-or-create/remove lifecycle instead of ambient globals. LIVE
// sessions stay resident; DRAFT and FINISHED sessions may be evicted and are
// rehydrated from the store on demand.
type Registry struct {
	repo      Repository
	ledger    Ledger
	presence  Presence
	publisher events.Publisher
	clock     clockwork.Clock
	config    Config
	calendar  Calendar

	// onEvict runs whenever a game leaves memory, so sibling caches keyed
	// by game id (placed locations) drop their entries too.
	onEvict func(gameID uuid.UUID)

	mu      sync.Mutex
	games   map[uuid.UUID]*Game
	rootCtx context.Context
}

// NewRegistry creates a session registry.
func NewRegistry(repo Repository, ledger Ledger, publisher events.Publisher,
	clock clockwork.Clock, config Config) *Registry {
	return &Registry{
		repo:      repo,
		ledger:    ledger,
		publisher: publisher,
		clock:     clock,
		config:    config,
		calendar:  Calendar{BaseYear: config.BaseYear, EndYear: config.EndYear},
		games:     make(map[uuid.UUID]*Game),
	}
}

// SetPresence wires the gateway's connection registry in after construction;
// the gateway itself depends on the registry.
func (r *Registry) SetPresence(p Presence) {
	r.presence = p
}

// SetEvictHook registers a callback invoked with the game id whenever a
// session leaves memory, via Evict or DeleteGame.
func (r *Registry) SetEvictHook(fn func(gameID uuid.UUID)) {
	r.onEvict = fn
}

// Start anchors session clock goroutines to ctx and blocks until shutdown.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	r.rootCtx = ctx
	r.mu.Unlock()

	log.Info().Msg("session registry started")
	<-ctx.Done()
	log.Info().Msg("session registry shutting down")
}

// CreateGame registers a new DRAFT session and persists it.
func (r *Registry) CreateGame(ctx context.Context, createdBy string, settings models.GameSettings) (*models.GameSession, error) {
	if settings.GameDurationHours <= 0 {
		settings.GameDurationHours = r.config.DefaultDurationHours
	}

	now := time.Now().UTC()
	session := models.GameSession{
		ID:                uuid.New(),
		Status:            models.GameStatusDraft,
		Name:              settings.Name,
		GameDurationHours: settings.GameDurationHours,
		TurnBased:         settings.TurnBased,
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := r.repo.CreateGame(ctx, &session); err != nil {
		return nil, &gamerr.PersistenceError{Op: "create game", Err: err}
	}

	r.mu.Lock()
	r.games[session.ID] = &Game{session: session}
	r.mu.Unlock()

	log.Info().
		Str("game_id", session.ID.String()).
		Str("created_by", createdBy).
		Msg("game created")

	r.broadcastLobbyList(ctx)
	return &session, nil
}

// Snapshot returns a copy of the session and its player set, rehydrating
// from the store when the game is not resident.
func (r *Registry) Snapshot(ctx context.Context, gameID uuid.UUID) (models.GameSession, []models.LobbyPlayer, error) {
	game, err := r.getOrLoad(ctx, gameID)
	if err != nil {
		return models.GameSession{}, nil, err
	}

	game.mu.Lock()
	defer game.mu.Unlock()
	players := make([]models.LobbyPlayer, len(game.players))
	copy(players, game.players)
	return game.session, players, nil
}

// StartGame transitions a DRAFT session to LIVE: applies any supplied
// settings, copies the lobby roster into the session's player set, persists
// the status change, and starts the clock RUNNING.
func (r *Registry) StartGame(ctx context.Context, gameID uuid.UUID, settings *models.GameSettings,
	roster []models.LobbyPlayer) (*models.GameSession, error) {
	game, err := r.getOrLoad(ctx, gameID)
	if err != nil {
		return nil, err
	}

	game.mu.Lock()
	if game.session.Status != models.GameStatusDraft {
		status := game.session.Status
		game.mu.Unlock()
		return nil, gamerr.NewConflict(gamerr.CodeGameNotLive, "cannot start game in status %s", status)
	}

	if settings != nil {
		if settings.Name != "" {
			game.session.Name = settings.Name
		}
		if settings.GameDurationHours > 0 {
			game.session.GameDurationHours = settings.GameDurationHours
		}
		game.session.TurnBased = settings.TurnBased
	}
	game.session.Status = models.GameStatusLive
	game.session.IsPaused = false
	game.session.ElapsedTimeMs = 0
	game.session.TurnNumber = 0
	game.session.UpdatedAt = time.Now().UTC()
	game.players = make([]models.LobbyPlayer, len(roster))
	copy(game.players, roster)
	game.prevMonthIndex = 0
	session := game.session
	game.mu.Unlock()

	if err := r.repo.UpdateGame(ctx, &session); err != nil {
		return nil, &gamerr.PersistenceError{Op: "persist game start", Err: err}
	}

	r.startClock(game)

	log.Info().
		Str("game_id", gameID.String()).
		Int("players", len(roster)).
		Msg("game started")

	r.broadcastLobbyList(ctx)
	return &session, nil
}

// Pause freezes the shared clock. Any connected player may pause; this is
// intentional shared control, not a host privilege.
func (r *Registry) Pause(ctx context.Context, gameID uuid.UUID, userID string) error {
	game, err := r.getOrLoad(ctx, gameID)
	if err != nil {
		return err
	}

	game.mu.Lock()
	if game.session.Status != models.GameStatusLive {
		status := game.session.Status
		game.mu.Unlock()
		return gamerr.NewConflict(gamerr.CodeGameNotLive, "cannot pause game in status %s", status)
	}
	if game.session.IsPaused {
		game.mu.Unlock()
		return nil
	}
	game.session.IsPaused = true
	game.session.UpdatedAt = time.Now().UTC()
	session := game.session
	game.mu.Unlock()

	r.persistAsync(&session)
	r.broadcast(gameID, events.ChannelGame, events.EventTypeClockPaused, events.ClockPausedPayload{
		PausedBy:      userID,
		ElapsedTimeMs: session.ElapsedTimeMs,
	})
	return nil
}

// Resume unfreezes the shared clock. Any connected player may resume.
func (r *Registry) Resume(ctx context.Context, gameID uuid.UUID, userID string) error {
	game, err := r.getOrLoad(ctx, gameID)
	if err != nil {
		return err
	}

	game.mu.Lock()
	if game.session.Status != models.GameStatusLive {
		status := game.session.Status
		game.mu.Unlock()
		return gamerr.NewConflict(gamerr.CodeGameNotLive, "cannot resume game in status %s", status)
	}
	if !game.session.IsPaused {
		game.mu.Unlock()
		return nil
	}
	game.session.IsPaused = false
	game.session.UpdatedAt = time.Now().UTC()
	session := game.session
	game.mu.Unlock()

	r.persistAsync(&session)
	r.broadcast(gameID, events.ChannelGame, events.EventTypeClockResumed, events.ClockResumedPayload{
		ResumedBy:     userID,
		ElapsedTimeMs: session.ElapsedTimeMs,
	})
	return nil
}

// DeleteGame stops the clock, evicts the session, and removes the record.
func (r *Registry) DeleteGame(ctx context.Context, gameID uuid.UUID) error {
	r.mu.Lock()
	game, ok := r.games[gameID]
	if ok {
		delete(r.games, gameID)
	}
	r.mu.Unlock()

	if ok {
		game.mu.Lock()
		if game.stopClock != nil {
			game.stopClock()
			game.stopClock = nil
		}
		game.mu.Unlock()
	}

	// The record is going away entirely; drop dependent caches even if the
	// session was not resident.
	if r.onEvict != nil {
		r.onEvict(gameID)
	}

	if err := r.repo.DeleteGame(ctx, gameID); err != nil {
		return &gamerr.PersistenceError{Op: "delete game", Err: err}
	}

	log.Info().Str("game_id", gameID.String()).Msg("game deleted")
	r.broadcastLobbyList(ctx)
	return nil
}

// ListGames returns all game records for the lobby browser.
func (r *Registry) ListGames(ctx context.Context) ([]models.GameSession, error) {
	games, err := r.repo.ListGames(ctx)
	if err != nil {
		return nil, &gamerr.PersistenceError{Op: "list games", Err: err}
	}
	return games, nil
}

// Evict drops a non-LIVE session from memory; it rehydrates on next access.
func (r *Registry) Evict(gameID uuid.UUID) {
	r.mu.Lock()
	game, ok := r.games[gameID]
	if !ok {
		r.mu.Unlock()
		return
	}
	game.mu.Lock()
	live := game.session.Status == models.GameStatusLive
	game.mu.Unlock()
	if live {
		r.mu.Unlock()
		return
	}
	delete(r.games, gameID)
	r.mu.Unlock()

	if r.onEvict != nil {
		r.onEvict(gameID)
	}
}

// getOrLoad returns the resident game or rehydrates it from the store.
func (r *Registry) getOrLoad(ctx context.Context, gameID uuid.UUID) (*Game, error) {
	r.mu.Lock()
	game, ok := r.games[gameID]
	r.mu.Unlock()
	if ok {
		return game, nil
	}

	session, err := r.repo.GetGame(ctx, gameID)
	if err != nil {
		return nil, gamerr.NewConflict(gamerr.CodeGameNotFound, "game %s not found", gameID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another handler may have loaded it while we were at the store.
	if existing, ok := r.games[gameID]; ok {
		return existing, nil
	}
	game = &Game{session: *session}
	game.prevMonthIndex = r.calendar.MonthIndex(session.ElapsedTimeMs, session.GameDurationHours)
	r.games[gameID] = game
	return game, nil
}

// persistAsync writes the session record behind the in-memory mutation. The
// in-memory state is not rolled back on failure; that window closes on the
// next successful write.
func (r *Registry) persistAsync(session *models.GameSession) {
	s := *session
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.repo.UpdateGame(ctx, &s); err != nil {
			log.Error().
				Err(err).
				Str("game_id", s.ID.String()).
				Msg("failed to persist game session")
		}
	}()
}

func (r *Registry) broadcast(gameID uuid.UUID, channel events.Channel, eventType events.EventType, payload any) {
	if r.publisher == nil {
		return
	}
	evt, err := events.New(gameID, channel, eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build session event")
		return
	}
	r.publisher.Publish(evt)
}

// broadcastLobbyList refreshes every welcome-screen client.
func (r *Registry) broadcastLobbyList(ctx context.Context) {
	games, err := r.repo.ListGames(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list games for lobby browser")
		return
	}
	r.broadcast(uuid.Nil, events.ChannelGlobal, events.EventTypeLobbyListUpdated, events.LobbyListUpdatedPayload{
		Games: games,
	})
}
