package evapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/pkg/geospatial"
	"github.com/samirrijal/voltroute/internal/pkg/telemetry"
)

// GetStationCatalogue fetches the GeoJSON station collection. Features that are
// not points, sit at (0,0), or carry a rating off the 0-5 scale are skipped.
func (c *Client) GetStationCatalogue(ctx context.Context) ([]domain.Station, error) {
	ctx, span := startSpan(ctx, "charging_stations")
	defer span.End()

	var fc geojson.FeatureCollection
	if err := c.do(ctx, "charging_stations", http.MethodGet, "/charging-stations", nil, &fc); err != nil {
		c.log.Warn("station catalogue fetch failed", "error", err)
		return nil, transport("fetch station catalogue", err)
	}

	stations := make([]domain.Station, 0, len(fc.Features))
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok || (pt.Lat() == 0 && pt.Lon() == 0) {
			continue
		}
		pos := domain.GeoPoint{Lat: pt.Lat(), Lon: pt.Lon()}
		if pos.Validate() != nil {
			continue
		}
		rating := propFloat(f.Properties, "rating")
		if !domain.ValidRating(rating) {
			c.log.Debug("skipping station with invalid rating", "station_id", propString(f.Properties, "station_id"), "rating", rating)
			continue
		}
		stations = append(stations, domain.Station{
			ID:           propString(f.Properties, "station_id"),
			Location:     pos,
			Rating:       rating,
			CostPerKWh:   propFloat(f.Properties, "cost"),
			ChargerClass: propString(f.Properties, "charger_type"),
		})
	}
	span.SetAttributes(attribute.Int(telemetry.AttrStationCount, len(stations)))
	return stations, nil
}

type bestStationWire struct {
	StationID  any     `json:"station_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distance_km"`
	Rating     float64 `json:"rating"`
	Cost       float64 `json:"cost"`
}

// FindNearestReachableStation asks the backend for the best station. A 404 is
// the backend's "no reachable station" answer. The remaining range is derived
// locally as budget minus distance, floored at zero.
func (c *Client) FindNearestReachableStation(ctx context.Context, q domain.ReachabilityQuery) (*domain.BestStationResult, error) {
	q = q.WithDefaults()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	budget := q.RangeBudgetKm()

	ctx, span := startSpan(ctx, "best_station")
	defer span.End()
	span.SetAttributes(attribute.Float64(telemetry.AttrRangeBudgetKm, budget))

	params := url.Values{}
	params.Set("vehicle_lat", strconv.FormatFloat(q.Position.Lat, 'f', -1, 64))
	params.Set("vehicle_lon", strconv.FormatFloat(q.Position.Lon, 'f', -1, 64))
	params.Set("battery_percent", strconv.FormatFloat(q.BatteryPercent, 'f', -1, 64))
	params.Set("battery_capacity_kwh", strconv.FormatFloat(q.CapacityKWh, 'f', -1, 64))
	params.Set("efficiency_km_per_kwh", strconv.FormatFloat(q.EfficiencyKmPerKW, 'f', -1, 64))

	var w bestStationWire
	if err := c.do(ctx, "best_station", http.MethodGet, "/best-station?"+params.Encode(), nil, &w); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, domain.ErrNotFound
		}
		c.log.Warn("best station lookup failed", "error", err)
		return nil, transport("find best station", err)
	}

	pos := domain.GeoPoint{Lat: w.Latitude, Lon: w.Longitude}
	if err := pos.Validate(); err != nil {
		return nil, transport("find best station", fmt.Errorf("invalid station position: %w", err))
	}
	if !domain.ValidRating(w.Rating) {
		return nil, transport("find best station", fmt.Errorf("station rating %v out of range", w.Rating))
	}
	id := anyString(w.StationID)
	span.SetAttributes(attribute.String(telemetry.AttrStationID, id))

	return &domain.BestStationResult{
		Station: domain.Station{
			ID:         id,
			Location:   pos,
			Rating:     w.Rating,
			CostPerKWh: w.Cost,
		},
		DistanceKm:       w.DistanceKm,
		RemainingRangeKm: geospatial.RoundTo(math.Max(0, budget-w.DistanceKm), 2),
		Query:            q.Position,
	}, nil
}

func propString(p geojson.Properties, key string) string {
	return anyString(p[key])
}

func anyString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func propFloat(p geojson.Properties, key string) float64 {
	switch t := p[key].(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0
		}
		return t
	case string:
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return v
	default:
		return 0
	}
}
