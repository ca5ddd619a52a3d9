package geo

import "math"

// Two Earth radii are deliberately kept side by side: gameplay distance rules
// (franchise adjacency, distribution-center range) are tuned in miles, while
// population-radius aggregation is tuned in meters. Callers must pick the
// constant matching their unit; unifying them would silently change gameplay
// thresholds.
const (
	// EarthRadiusMiles is used for placement-rule distances.
	EarthRadiusMiles = 3959.0
	// EarthRadiusMeters is used for population-radius aggregation.
	EarthRadiusMeters = 6371000.0
)

// DistanceMiles returns the great-circle distance in miles between two
// coordinates. NaN inputs propagate NaN; callers reject bad input upstream.
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	return haversine(lat1, lng1, lat2, lng2, EarthRadiusMiles)
}

// DistanceMeters returns the great-circle distance in meters between two
// coordinates.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	return haversine(lat1, lng1, lat2, lng2, EarthRadiusMeters)
}

func haversine(lat1, lng1, lat2, lng2, radius float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return radius * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
