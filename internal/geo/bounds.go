package geo

// Bounds is a lat/lng bounding box describing the playable map extent.
type Bounds struct {
	MinLat float64 `yaml:"min_lat" json:"min_lat"`
	MaxLat float64 `yaml:"max_lat" json:"max_lat"`
	MinLng float64 `yaml:"min_lng" json:"min_lng"`
	MaxLng float64 `yaml:"max_lng" json:"max_lng"`
}

// ContinentalUS is the default playable boundary.
var ContinentalUS = Bounds{
	MinLat: 24.396308,
	MaxLat: 49.384358,
	MinLng: -124.848974,
	MaxLng: -66.885444,
}

// Contains reports whether the point falls inside the bounds, edges inclusive.
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat &&
		lng >= b.MinLng && lng <= b.MaxLng
}
