package placement

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/mcdev12/franchisewars/internal/geocode"
	"github.com/mcdev12/franchisewars/internal/models"
	"github.com/rs/zerolog/log"
)

// BackfillWorker resolves geo labels for placements that committed while the
// geocoding collaborator was unavailable. Placement never waits on it; the
// worker patches records after the fact and announces the update.
type BackfillWorker struct {
	app       *App
	geocoder  geocode.Lookup
	clock     clockwork.Clock
	interval  time.Duration
	batchSize int
}

// NewBackfillWorker creates a backfill worker.
func NewBackfillWorker(app *App, geocoder geocode.Lookup, clock clockwork.Clock,
	interval time.Duration, batchSize int) *BackfillWorker {
	return &BackfillWorker{
		app:       app,
		geocoder:  geocoder,
		clock:     clock,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run loops until the context is cancelled.
func (w *BackfillWorker) Run(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("geo-label backfill worker started")

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("geo-label backfill worker shutting down")
			return
		case <-ticker.Chan():
			w.runOnce(ctx)
		}
	}
}

// runOnce labels one batch of unlabeled placements.
func (w *BackfillWorker) runOnce(ctx context.Context) {
	locations, err := w.app.repo.ListUnlabeledLocations(ctx, w.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to list unlabeled locations")
		return
	}

	for _, loc := range locations {
		if err := w.backfill(ctx, loc); err != nil {
			log.Warn().
				Err(err).
				Str("location_id", loc.ID.String()).
				Msg("geo-label backfill failed, will retry next cycle")
		}
	}
}

func (w *BackfillWorker) backfill(ctx context.Context, loc models.PlacedLocation) error {
	info, err := w.geocoder.ReverseGeocode(ctx, loc.Lat, loc.Lng)
	if err != nil {
		return err
	}
	if info == nil {
		// Collaborator has no data for the point, nothing to patch.
		return nil
	}

	labels := models.GeoLabels{
		County:     info.County,
		State:      info.State,
		MetroArea:  info.MetroArea,
		Population: info.Population,
	}

	if err := w.app.repo.UpdateLocationLabels(ctx, loc.ID, labels); err != nil {
		return err
	}

	updated := w.app.applyLabels(loc.GameID, loc.ID, labels)
	if updated == nil {
		loc.Labels = &labels
		updated = &loc
	}

	w.app.broadcast(loc.GameID, events.EventTypeLocationUpdated, events.LocationUpdatedPayload{
		Location: *updated,
	})
	return nil
}
