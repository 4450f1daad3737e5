package domain

import (
	"math"
	"strconv"
	"strings"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate rejects non-finite or out-of-range coordinates. Values are never clamped.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return &ValidationError{Field: "latitude", Message: "latitude must be a number between -90 and 90"}
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || p.Lon < -180 || p.Lon > 180 {
		return &ValidationError{Field: "longitude", Message: "longitude must be a number between -180 and 180"}
	}
	return nil
}

// ParseGeoPoint parses decimal-degree strings as typed into a form.
func ParseGeoPoint(lat, lon string) (GeoPoint, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return GeoPoint{}, &ValidationError{Field: "latitude", Message: "latitude must be a number"}
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return GeoPoint{}, &ValidationError{Field: "longitude", Message: "longitude must be a number"}
	}
	p := GeoPoint{Lat: la, Lon: lo}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// GeoLineString represents an ordered sequence of geographic coordinates.
type GeoLineString struct {
	Coordinates []GeoPoint `json:"coordinates"`
}

// Drawable reports whether the line has enough points to render as a polyline.
func (l GeoLineString) Drawable() bool {
	return len(l.Coordinates) >= 2
}

// First returns the first coordinate, if any.
func (l GeoLineString) First() (GeoPoint, bool) {
	if len(l.Coordinates) == 0 {
		return GeoPoint{}, false
	}
	return l.Coordinates[0], true
}

// Last returns the last coordinate, if any.
func (l GeoLineString) Last() (GeoPoint, bool) {
	if len(l.Coordinates) == 0 {
		return GeoPoint{}, false
	}
	return l.Coordinates[len(l.Coordinates)-1], true
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}
