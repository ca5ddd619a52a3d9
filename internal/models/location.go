package models

import (
	"time"

	"github.com/google/uuid"
)

// LocationType defines the kind of marker a player can place.
type LocationType string

const (
	LocationTypeFranchise          LocationType = "franchise"
	LocationTypeDistributionCenter LocationType = "distribution-center"
)

// GeoLabels holds derived geographic attributes for a placement. They are
// resolved asynchronously after creation and backfilled onto the record.
type GeoLabels struct {
	County     string `json:"county,omitempty"`
	State      string `json:"state,omitempty"`
	MetroArea  string `json:"metro_area,omitempty"`
	Population int    `json:"population,omitempty"`
}

// PlacedLocation is a committed franchise or distribution-center marker.
// Immutable once created except for geo-label backfill.
type PlacedLocation struct {
	ID           uuid.UUID    `json:"id"`
	OwnerID      string       `json:"owner_id"`
	GameID       uuid.UUID    `json:"game_id"`
	Lat          float64      `json:"lat"`
	Lng          float64      `json:"lng"`
	Name         string       `json:"name"`
	LocationType LocationType `json:"location_type"`
	// PlacedAtMs is game-clock elapsed time at commit, not wall clock.
	PlacedAtMs int64      `json:"placed_at_ms"`
	Labels     *GeoLabels `json:"labels,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
