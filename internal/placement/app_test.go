package placement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/mcdev12/franchisewars/internal/gamerr"
	"github.com/mcdev12/franchisewars/internal/geo"
	"github.com/mcdev12/franchisewars/internal/geocode"
	"github.com/mcdev12/franchisewars/internal/ledger"
	"github.com/mcdev12/franchisewars/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu         sync.Mutex
	created    []models.PlacedLocation
	failCreate error
	failList   error
}

func (r *fakeRepo) CreateLocation(ctx context.Context, loc *models.PlacedLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	r.created = append(r.created, *loc)
	return nil
}

func (r *fakeRepo) ListLocations(ctx context.Context, gameID uuid.UUID) ([]models.PlacedLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList != nil {
		return nil, r.failList
	}
	var out []models.PlacedLocation
	for _, loc := range r.created {
		if loc.GameID == gameID {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.created {
		if r.created[i].ID == id {
			r.created = append(r.created[:i], r.created[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeRepo) UpdateLocationLabels(ctx context.Context, id uuid.UUID, labels models.GeoLabels) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.created {
		if r.created[i].ID == id {
			r.created[i].Labels = &labels
		}
	}
	return nil
}

func (r *fakeRepo) ListUnlabeledLocations(ctx context.Context, limit int) ([]models.PlacedLocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PlacedLocation
	for _, loc := range r.created {
		if loc.Labels == nil {
			out = append(out, loc)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.GameEvent
}

func (p *fakePublisher) Publish(evt events.GameEvent) {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
}

func (p *fakePublisher) byType(t events.EventType) []events.GameEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.GameEvent
	for _, evt := range p.events {
		if evt.Type == t {
			out = append(out, evt)
		}
	}
	return out
}

type fakeGeocoder struct {
	info *geocode.PlaceInfo
	err  error
}

func (g *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*geocode.PlaceInfo, error) {
	return g.info, g.err
}

type appFixture struct {
	app    *App
	repo   *fakeRepo
	ledger *ledger.App
	pub    *fakePublisher
	gameID uuid.UUID
}

func newAppFixture(t *testing.T, geocoder geocode.Lookup, startingBalance int) *appFixture {
	t.Helper()
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	led := ledger.NewApp(nil, nil, startingBalance)
	app := NewApp(repo, led, geocoder, pub, NewValidator(geo.ContinentalUS), DefaultCostSchedule())
	return &appFixture{app: app, repo: repo, ledger: led, pub: pub, gameID: uuid.New()}
}

func (f *appFixture) place(t *testing.T, owner string, mode models.LocationType, lat, lng float64) (*PlaceLocationResponse, error) {
	t.Helper()
	return f.app.PlaceLocation(context.Background(), PlaceLocationRequest{
		GameID:  f.gameID,
		OwnerID: owner,
		Lat:     lat,
		Lng:     lng,
		Name:    "test",
		Mode:    mode,
	})
}

func TestPlaceFirstDistributionCenterIsFree(t *testing.T) {
	f := newAppFixture(t, nil, 3000)

	resp, err := f.place(t, "alice", models.LocationTypeDistributionCenter, baseLat, baseLng)
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Cost)
	assert.Equal(t, 3000, resp.RemainingMoney)
	require.Len(t, f.repo.created, 1)
	assert.Len(t, f.pub.byType(events.EventTypeLocationPlaced), 1)
}

func TestPlaceSecondDistributionCenterCharges(t *testing.T) {
	f := newAppFixture(t, nil, 3000)

	_, err := f.place(t, "alice", models.LocationTypeDistributionCenter, baseLat, baseLng)
	require.NoError(t, err)

	resp, err := f.place(t, "alice", models.LocationTypeDistributionCenter, baseLat+1, baseLng)
	require.NoError(t, err)

	assert.Equal(t, 1000, resp.Cost)
	assert.Equal(t, 2000, resp.RemainingMoney)
}

func TestPlaceFranchiseWithGeocodedPopulation(t *testing.T) {
	geocoder := &fakeGeocoder{info: &geocode.PlaceInfo{
		County:     "Sedgwick",
		State:      "KS",
		Population: 125_000,
	}}
	f := newAppFixture(t, geocoder, 3000)

	_, err := f.place(t, "alice", models.LocationTypeDistributionCenter, baseLat, baseLng)
	require.NoError(t, err)

	resp, err := f.place(t, "alice", models.LocationTypeFranchise, baseLat+latOffset(10), baseLng)
	require.NoError(t, err)

	assert.Equal(t, 500, resp.Cost)
	require.NotNil(t, resp.Location.Labels)
	assert.Equal(t, "Sedgwick", resp.Location.Labels.County)
	assert.Equal(t, 2500, resp.RemainingMoney)
}

func TestPlaceFranchiseGeocoderDownChargesCap(t *testing.T) {
	geocoder := &fakeGeocoder{err: errors.New("upstream timeout")}
	f := newAppFixture(t, geocoder, 3000)

	_, err := f.place(t, "alice", models.LocationTypeDistributionCenter, baseLat, baseLng)
	require.NoError(t, err)

	resp, err := f.place(t, "alice", models.LocationTypeFranchise, baseLat+latOffset(10), baseLng)
	require.NoError(t, err)

	assert.Equal(t, 1000, resp.Cost, "unknown population charges the cap")
	assert.Nil(t, resp.Location.Labels, "labels left for the backfill worker")
}

func TestPlaceInsufficientFunds(t *testing.T) {
	f := newAppFixture(t, nil, 500)

	_, err := f.place(t, "alice", models.LocationTypeDistributionCenter, baseLat, baseLng)
	require.NoError(t, err)

	// Franchise without a geocoder charges the 1000 cap; alice holds 500.
	_, err = f.place(t, "alice", models.LocationTypeFranchise, baseLat+latOffset(10), baseLng)
	require.Error(t, err)
	assert.Equal(t, gamerr.CodeInsufficientFunds, gamerr.Code(err))

	// No partial debit.
	assert.Equal(t, 500, f.ledger.GetBalance(context.Background(), "alice", f.gameID))
	assert.Len(t, f.repo.created, 1, "nothing persisted for the failed placement")
}

func TestPlacePersistenceFailureRefundsDebit(t *testing.T) {
	f := newAppFixture(t, nil, 3000)

	_, err := f.place(t, "alice", models.LocationTypeDistributionCenter, baseLat, baseLng)
	require.NoError(t, err)

	f.repo.failCreate = errors.New("connection reset")
	_, err = f.place(t, "alice", models.LocationTypeFranchise, baseLat+latOffset(10), baseLng)
	require.Error(t, err)
	assert.Equal(t, gamerr.CodePersistence, gamerr.Code(err))

	// The compensating credit restores the exact debited amount.
	assert.Equal(t, 3000, f.ledger.GetBalance(context.Background(), "alice", f.gameID))

	// The failed placement never reached the cache or the broadcast stream.
	locs, err := f.app.Locations(context.Background(), f.gameID)
	require.NoError(t, err)
	assert.Len(t, locs, 1)
	assert.Len(t, f.pub.byType(events.EventTypeLocationPlaced), 1)
}

func TestPlaceValidationRejectionIsFree(t *testing.T) {
	f := newAppFixture(t, nil, 3000)

	// No distribution center yet: franchise placement fails validation
	// before any money moves.
	_, err := f.place(t, "alice", models.LocationTypeFranchise, baseLat, baseLng)
	require.Error(t, err)
	assert.Equal(t, gamerr.CodeNoDistributionCenter, gamerr.Code(err))
	assert.Equal(t, 3000, f.ledger.GetBalance(context.Background(), "alice", f.gameID))
}

func TestRemoveLocation(t *testing.T) {
	f := newAppFixture(t, nil, 3000)

	resp, err := f.place(t, "alice", models.LocationTypeDistributionCenter, baseLat, baseLng)
	require.NoError(t, err)

	t.Run("non-owner rejected", func(t *testing.T) {
		err := f.app.RemoveLocation(context.Background(), f.gameID, resp.Location.ID, "bob")
		require.Error(t, err)
		assert.Equal(t, gamerr.CodeNotOwner, gamerr.Code(err))
	})

	t.Run("owner removes, no refund", func(t *testing.T) {
		before := f.ledger.GetBalance(context.Background(), "alice", f.gameID)

		err := f.app.RemoveLocation(context.Background(), f.gameID, resp.Location.ID, "alice")
		require.NoError(t, err)

		locs, err := f.app.Locations(context.Background(), f.gameID)
		require.NoError(t, err)
		assert.Empty(t, locs)
		assert.Equal(t, before, f.ledger.GetBalance(context.Background(), "alice", f.gameID))
		assert.Len(t, f.pub.byType(events.EventTypeLocationRemoved), 1)
	})

	t.Run("unknown location", func(t *testing.T) {
		err := f.app.RemoveLocation(context.Background(), f.gameID, uuid.New(), "alice")
		require.Error(t, err)
		assert.Equal(t, gamerr.CodeBadRequest, gamerr.Code(err))
	})
}

func TestLocationsRehydratesFromStore(t *testing.T) {
	repo := &fakeRepo{}
	gameID := uuid.New()
	repo.created = []models.PlacedLocation{
		{ID: uuid.New(), GameID: gameID, OwnerID: "alice", LocationType: models.LocationTypeDistributionCenter, Lat: baseLat, Lng: baseLng},
	}

	led := ledger.NewApp(nil, nil, 3000)
	app := NewApp(repo, led, nil, nil, NewValidator(geo.ContinentalUS), DefaultCostSchedule())

	locs, err := app.Locations(context.Background(), gameID)
	require.NoError(t, err)
	assert.Len(t, locs, 1)

	// A rehydrated cache satisfies the ownership rule for new placements.
	resp, err := app.PlaceLocation(context.Background(), PlaceLocationRequest{
		GameID:  gameID,
		OwnerID: "alice",
		Lat:     baseLat + latOffset(10),
		Lng:     baseLng,
		Mode:    models.LocationTypeFranchise,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, resp.Cost)
}
