package common

import (
	"fmt"
	"math"

	"github.com/ternarybob/placefinder/internal/models"
)

const earthRadiusMeters = 6371000.0

// DefaultRegion is shown when nothing is selected (San Francisco)
var DefaultRegion = models.MapRegion{
	Latitude:       37.7749,
	Longitude:      -122.4194,
	LatitudeDelta:  0.0922,
	LongitudeDelta: 0.0421,
}

// FormatDistance renders meters as "850m" below one kilometer and "1.5km" above
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int64(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

// IsValidCoordinate reports whether lat/lng fall within WGS84 bounds
func IsValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// DistanceMeters returns the haversine great-circle distance between two points
func DistanceMeters(a, b models.LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// RegionFor centers the map tightly on a place, or returns DefaultRegion
// when there is no place or it carries no usable coordinate.
func RegionFor(place *models.Place) models.MapRegion {
	loc, ok := place.Location()
	if !ok || !IsValidCoordinate(loc.Lat, loc.Lng) {
		return DefaultRegion
	}
	return models.MapRegion{
		Latitude:       loc.Lat,
		Longitude:      loc.Lng,
		LatitudeDelta:  0.01,
		LongitudeDelta: 0.01,
	}
}
