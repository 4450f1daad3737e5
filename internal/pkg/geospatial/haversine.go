package geospatial

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometres between two points.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// BoundingBox returns a box around a point that contains every location within
// radiusKm. Longitude spans widen towards the poles and are clamped to the
// valid range.
func BoundingBox(lat, lon, radiusKm float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusKm / EarthRadiusKm * 180 / math.Pi

	minLat = math.Max(-90, lat-latDelta)
	maxLat = math.Min(90, lat+latDelta)

	cos := math.Cos(toRad(math.Max(math.Abs(minLat), math.Abs(maxLat))))
	if cos < 1e-9 {
		return minLat, -180, maxLat, 180
	}
	lonDelta := latDelta / cos
	if lonDelta >= 180 {
		return minLat, -180, maxLat, 180
	}
	return minLat, math.Max(-180, lon-lonDelta), maxLat, math.Min(180, lon+lonDelta)
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
