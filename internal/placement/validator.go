package placement

import (
	"math"

	"github.com/mcdev12/franchisewars/internal/gamerr"
	"github.com/mcdev12/franchisewars/internal/geo"
	"github.com/mcdev12/franchisewars/internal/models"
)

const (
	// MinFranchiseSpacingMiles rejects a franchise strictly closer than this
	// to any existing franchise; exactly 5.0 miles is accepted.
	MinFranchiseSpacingMiles = 5.0
	// MaxSupplyRangeMiles is the farthest a franchise may sit from its
	// nearest qualifying distribution center; exactly 500.0 is accepted.
	MaxSupplyRangeMiles = 500.0
)

// Result is the outcome of validating a prospective placement.
type Result struct {
	OK            bool                   `json:"ok"`
	Reason        string                 `json:"reason,omitempty"`
	Nearest       *models.PlacedLocation `json:"nearest,omitempty"`
	DistanceMiles float64                `json:"distance_miles,omitempty"`
}

// Validator applies the spatial placement rules. It holds no state beyond the
// playable boundary; existing locations are supplied per call so the same
// check runs identically on client-replayed and server-commit paths.
type Validator struct {
	bounds geo.Bounds
}

// NewValidator creates a validator for the given playable boundary.
func NewValidator(bounds geo.Bounds) *Validator {
	return &Validator{bounds: bounds}
}

// Validate applies the placement rules in order; the first failing rule wins.
// It is pure: calling it twice with identical inputs yields identical
// results. It must run server-side at commit time even when the client
// already ran it, since client state can be stale or adversarial.
func (v *Validator) Validate(lat, lng float64, ownerID string, mode models.LocationType,
	franchises, centers []models.PlacedLocation) Result {

	if mode == models.LocationTypeFranchise {
		// Rule 1: no franchise of any owner within 5 miles.
		for i := range franchises {
			f := &franchises[i]
			d := geo.DistanceMiles(lat, lng, f.Lat, f.Lng)
			if tooClose(d) {
				return Result{
					Reason:        gamerr.CodeTooCloseToFranchise,
					Nearest:       f,
					DistanceMiles: round1(d),
				}
			}
		}

		// Rule 2: placing player must own at least one distribution center.
		owned := false
		for i := range centers {
			if centers[i].OwnerID == ownerID {
				owned = true
				break
			}
		}
		if !owned {
			return Result{Reason: gamerr.CodeNoDistributionCenter}
		}

		// Rule 3: any center within range qualifies; only when none qualifies
		// is the nearest one reported.
		var nearest *models.PlacedLocation
		nearestDist := math.MaxFloat64
		inRange := false
		for i := range centers {
			c := &centers[i]
			d := geo.DistanceMiles(lat, lng, c.Lat, c.Lng)
			if inSupplyRange(d) {
				inRange = true
				break
			}
			if d < nearestDist {
				nearestDist = d
				nearest = c
			}
		}
		if !inRange {
			return Result{
				Reason:        gamerr.CodeTooFarFromDistributionCenter,
				Nearest:       nearest,
				DistanceMiles: math.Round(nearestDist),
			}
		}
	}

	// Geographic containment applies to both modes.
	if !v.bounds.Contains(lat, lng) {
		return Result{Reason: gamerr.CodeOutOfBounds}
	}

	return Result{OK: true}
}

// tooClose is the spacing comparison: strict, so a franchise at exactly the
// minimum spacing is legal.
func tooClose(d float64) bool {
	return d < MinFranchiseSpacingMiles
}

// inSupplyRange is the supply comparison: inclusive, so a center at exactly
// the maximum range qualifies.
func inSupplyRange(d float64) bool {
	return d <= MaxSupplyRangeMiles
}

func round1(d float64) float64 {
	return math.Round(d*10) / 10
}
