package placement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/mcdev12/franchisewars/internal/gamerr"
	"github.com/mcdev12/franchisewars/internal/geocode"
	"github.com/mcdev12/franchisewars/internal/models"
	"github.com/rs/zerolog/log"
)

// Repository defines what the placement app needs from the persistent store.
type Repository interface {
	CreateLocation(ctx context.Context, loc *models.PlacedLocation) error
	ListLocations(ctx context.Context, gameID uuid.UUID) ([]models.PlacedLocation, error)
	DeleteLocation(ctx context.Context, id uuid.UUID) error
	UpdateLocationLabels(ctx context.Context, id uuid.UUID, labels models.GeoLabels) error
	ListUnlabeledLocations(ctx context.Context, limit int) ([]models.PlacedLocation, error)
}

// Ledger defines what the placement app needs from the money ledger.
type Ledger interface {
	GetBalance(ctx context.Context, userID string, gameID uuid.UUID) int
	Debit(ctx context.Context, userID string, gameID uuid.UUID, amount int) bool
	Credit(ctx context.Context, userID string, gameID uuid.UUID, amount int)
}

// PlaceLocationRequest is a commit-time placement request.
type PlaceLocationRequest struct {
	GameID    uuid.UUID
	OwnerID   string
	Lat       float64
	Lng       float64
	Name      string
	Mode      models.LocationType
	ElapsedMs int64
}

// PlaceLocationResponse reports a committed placement back to the requester.
type PlaceLocationResponse struct {
	Location       *models.PlacedLocation `json:"location"`
	Cost           int                    `json:"cost"`
	RemainingMoney int                    `json:"remaining_money"`
}

// App orchestrates placement commits: validation, pricing, the
// debit / persist / compensating-refund transaction, cache upkeep, and
// broadcasts. Server memory is authoritative for a live game's locations; the
// repository rehydrates the cache on first access.
type App struct {
	repo      Repository
	ledger    Ledger
	geocoder  geocode.Lookup
	publisher events.Publisher
	validator *Validator
	costs     CostSchedule

	mu    sync.Mutex
	games map[uuid.UUID]*gameLocations
}

// gameLocations serializes mutations for one game. Holding its lock across
// the persist call is the per-game operation queue: two placements for the
// same game never interleave around the store await point.
type gameLocations struct {
	mu        sync.Mutex
	loaded    bool
	locations []models.PlacedLocation
}

// NewApp creates a placement app.
func NewApp(repo Repository, ledger Ledger, geocoder geocode.Lookup, publisher events.Publisher,
	validator *Validator, costs CostSchedule) *App {
	return &App{
		repo:      repo,
		ledger:    ledger,
		geocoder:  geocoder,
		publisher: publisher,
		validator: validator,
		costs:     costs,
		games:     make(map[uuid.UUID]*gameLocations),
	}
}

// PlaceLocation validates and commits a placement. Validation runs here,
// server-side, regardless of any client-side pre-check.
func (a *App) PlaceLocation(ctx context.Context, req PlaceLocationRequest) (*PlaceLocationResponse, error) {
	game := a.gameFor(req.GameID)
	game.mu.Lock()
	defer game.mu.Unlock()

	if err := a.ensureLoadedLocked(ctx, req.GameID, game); err != nil {
		return nil, &gamerr.PersistenceError{Op: "load locations", Err: err}
	}

	franchises, centers := splitByType(game.locations)
	result := a.validator.Validate(req.Lat, req.Lng, req.OwnerID, req.Mode, franchises, centers)
	if !result.OK {
		return nil, &gamerr.ValidationError{Code: result.Reason}
	}

	labels, cost := a.price(ctx, req, centers)

	// The debited amount and any refund must be this exact variable, never a
	// re-derived cost.
	amount := cost
	if !a.ledger.Debit(ctx, req.OwnerID, req.GameID, amount) {
		return nil, &gamerr.ValidationError{Code: gamerr.CodeInsufficientFunds}
	}

	loc := &models.PlacedLocation{
		ID:           uuid.New(),
		OwnerID:      req.OwnerID,
		GameID:       req.GameID,
		Lat:          req.Lat,
		Lng:          req.Lng,
		Name:         req.Name,
		LocationType: req.Mode,
		PlacedAtMs:   req.ElapsedMs,
		Labels:       labels,
		CreatedAt:    time.Now().UTC(),
	}

	if err := a.repo.CreateLocation(ctx, loc); err != nil {
		a.ledger.Credit(ctx, req.OwnerID, req.GameID, amount)
		log.Error().
			Err(err).
			Str("game_id", req.GameID.String()).
			Str("owner_id", req.OwnerID).
			Int("refunded", amount).
			Msg("placement persistence failed, debit refunded")
		return nil, &gamerr.PersistenceError{Op: "create location", Err: err}
	}

	game.locations = append(game.locations, *loc)

	a.broadcast(req.GameID, events.EventTypeLocationPlaced, events.LocationPlacedPayload{
		Location: *loc,
		Cost:     cost,
	})

	return &PlaceLocationResponse{
		Location:       loc,
		Cost:           cost,
		RemainingMoney: a.ledger.GetBalance(ctx, req.OwnerID, req.GameID),
	}, nil
}

// RemoveLocation deletes a placement. Only the owner may remove it; removal
// refunds nothing.
func (a *App) RemoveLocation(ctx context.Context, gameID, locationID uuid.UUID, requesterID string) error {
	game := a.gameFor(gameID)
	game.mu.Lock()
	defer game.mu.Unlock()

	if err := a.ensureLoadedLocked(ctx, gameID, game); err != nil {
		return &gamerr.PersistenceError{Op: "load locations", Err: err}
	}

	idx := -1
	for i := range game.locations {
		if game.locations[i].ID == locationID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return gamerr.NewValidation(gamerr.CodeBadRequest, "location %s not found", locationID)
	}
	if game.locations[idx].OwnerID != requesterID {
		return gamerr.NewConflict(gamerr.CodeNotOwner, "location %s is not owned by %s", locationID, requesterID)
	}

	if err := a.repo.DeleteLocation(ctx, locationID); err != nil {
		return &gamerr.PersistenceError{Op: "delete location", Err: err}
	}

	game.locations = append(game.locations[:idx], game.locations[idx+1:]...)

	a.broadcast(gameID, events.EventTypeLocationRemoved, events.LocationRemovedPayload{
		LocationID: locationID.String(),
		OwnerID:    requesterID,
	})
	return nil
}

// Locations returns a snapshot of the game's committed placements, for state
// sync on join/reconnect.
func (a *App) Locations(ctx context.Context, gameID uuid.UUID) ([]models.PlacedLocation, error) {
	game := a.gameFor(gameID)
	game.mu.Lock()
	defer game.mu.Unlock()

	if err := a.ensureLoadedLocked(ctx, gameID, game); err != nil {
		return nil, &gamerr.PersistenceError{Op: "load locations", Err: err}
	}

	snapshot := make([]models.PlacedLocation, len(game.locations))
	copy(snapshot, game.locations)
	return snapshot, nil
}

// Evict drops a game's location cache, used when a session is removed.
func (a *App) Evict(gameID uuid.UUID) {
	a.mu.Lock()
	delete(a.games, gameID)
	a.mu.Unlock()
}

// price determines the commit cost and any labels known up front. Franchise
// pricing needs destination population; a failed geocoder lookup charges the
// cap and leaves labels for the backfill worker. Distribution centers are
// priced purely by the owner's ordinal count.
func (a *App) price(ctx context.Context, req PlaceLocationRequest, centers []models.PlacedLocation) (*models.GeoLabels, int) {
	if req.Mode == models.LocationTypeDistributionCenter {
		owned := 0
		for i := range centers {
			if centers[i].OwnerID == req.OwnerID {
				owned++
			}
		}
		return nil, a.costs.DistributionCenterCost(owned)
	}

	if a.geocoder == nil {
		return nil, a.costs.FranchiseCost(0, false)
	}

	info, err := a.geocoder.ReverseGeocode(ctx, req.Lat, req.Lng)
	if err != nil {
		log.Warn().
			Err(err).
			Float64("lat", req.Lat).
			Float64("lng", req.Lng).
			Msg("geocoder lookup failed, charging franchise cap")
		return nil, a.costs.FranchiseCost(0, false)
	}
	if info == nil {
		return nil, a.costs.FranchiseCost(0, false)
	}

	return &models.GeoLabels{
		County:     info.County,
		State:      info.State,
		MetroArea:  info.MetroArea,
		Population: info.Population,
	}, a.costs.FranchiseCost(info.Population, true)
}

func (a *App) gameFor(gameID uuid.UUID) *gameLocations {
	a.mu.Lock()
	defer a.mu.Unlock()

	game, ok := a.games[gameID]
	if !ok {
		game = &gameLocations{}
		a.games[gameID] = game
	}
	return game
}

// ensureLoadedLocked rehydrates the cache from the store. Caller holds game.mu.
func (a *App) ensureLoadedLocked(ctx context.Context, gameID uuid.UUID, game *gameLocations) error {
	if game.loaded {
		return nil
	}
	locations, err := a.repo.ListLocations(ctx, gameID)
	if err != nil {
		return err
	}
	game.locations = locations
	game.loaded = true
	return nil
}

// applyLabels patches backfilled labels into the cache and returns the
// updated location, or nil when the game is not cached.
func (a *App) applyLabels(gameID, locationID uuid.UUID, labels models.GeoLabels) *models.PlacedLocation {
	a.mu.Lock()
	game, ok := a.games[gameID]
	a.mu.Unlock()
	if !ok {
		return nil
	}

	game.mu.Lock()
	defer game.mu.Unlock()
	for i := range game.locations {
		if game.locations[i].ID == locationID {
			game.locations[i].Labels = &labels
			updated := game.locations[i]
			return &updated
		}
	}
	return nil
}

func (a *App) broadcast(gameID uuid.UUID, eventType events.EventType, payload any) {
	if a.publisher == nil {
		return
	}
	evt, err := events.New(gameID, events.ChannelGame, eventType, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build placement event")
		return
	}
	a.publisher.Publish(evt)
}

func splitByType(locations []models.PlacedLocation) (franchises, centers []models.PlacedLocation) {
	for _, loc := range locations {
		switch loc.LocationType {
		case models.LocationTypeFranchise:
			franchises = append(franchises, loc)
		case models.LocationTypeDistributionCenter:
			centers = append(centers, loc)
		}
	}
	return franchises, centers
}
