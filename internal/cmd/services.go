package main

import (
	"database/sql"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/franchisewars/internal/events"
	"github.com/mcdev12/franchisewars/internal/gateway"
	"github.com/mcdev12/franchisewars/internal/geocode"
	"github.com/mcdev12/franchisewars/internal/ledger"
	"github.com/mcdev12/franchisewars/internal/lobby"
	"github.com/mcdev12/franchisewars/internal/placement"
	"github.com/mcdev12/franchisewars/internal/session"
	"github.com/rs/zerolog/log"
)

// Services holds all initialized application components.
type Services struct {
	Bus      *events.Bus
	Ledger   *ledger.App
	Placer   *placement.App
	Backfill *placement.BackfillWorker
	Registry *session.Registry
	Lobbies  *lobby.Manager
	Gateway  *gateway.Service
	NATS     *events.NATSPublisher
}

// setupServices wires the dependency chain:
// repositories -> apps -> registry -> gateway.
func setupServices(db *sql.DB, config *Config) (*Services, error) {
	bus := events.NewBus()
	clock := clockwork.NewRealClock()

	// Repository layer
	ledgerRepo := ledger.NewPostgresRepository(db)
	placementRepo := placement.NewPostgresRepository(db)
	sessionRepo := session.NewPostgresRepository(db)

	// App layer
	ledgerApp := ledger.NewApp(ledgerRepo, bus, config.Game.StartingBalance)

	var geocoder geocode.Lookup
	if baseURL := getEnv("GEOCODE_URL", ""); baseURL != "" {
		geocoder = geocode.NewClient(baseURL)
	}

	validator := placement.NewValidator(config.bounds())
	placementApp := placement.NewApp(placementRepo, ledgerApp, geocoder, bus,
		validator, config.costSchedule())

	var backfill *placement.BackfillWorker
	if geocoder != nil {
		interval := time.Duration(getEnvAsInt("BACKFILL_INTERVAL_SECONDS", 300)) * time.Second
		backfill = placement.NewBackfillWorker(placementApp, geocoder, clock,
			interval, getEnvAsInt("BACKFILL_BATCH_SIZE", 25))
	}

	registry := session.NewRegistry(sessionRepo, ledgerApp, bus, clock, config.sessionConfig())
	// A session leaving memory takes its location cache with it.
	registry.SetEvictHook(placementApp.Evict)
	lobbies := lobby.NewManager(bus)

	gatewayService := gateway.NewService(gateway.DefaultConfig(), bus, lobbies,
		registry, placementApp, ledgerApp)

	// Outbound republisher is optional; the in-process bus drives the
	// gateway either way.
	var nats *events.NATSPublisher
	if url := getEnv("NATS_URL", ""); url != "" {
		natsCfg := events.DefaultNATSConfig()
		natsCfg.URL = url
		var err error
		nats, err = events.NewNATSPublisher(natsCfg)
		if err != nil {
			return nil, err
		}
		log.Info().Str("url", url).Msg("nats republisher connected")
	}

	return &Services{
		Bus:      bus,
		Ledger:   ledgerApp,
		Placer:   placementApp,
		Backfill: backfill,
		Registry: registry,
		Lobbies:  lobbies,
		Gateway:  gatewayService,
		NATS:     nats,
	}, nil
}
