package evapi

import (
	"context"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/pkg/telemetry"
)

type routeWire struct {
	DistanceKm          float64           `json:"distance_km"`
	DurationMin         float64           `json:"duration_min"`
	EnergyConsumedKWh   float64           `json:"energy_consumed_kWh"`
	BatteryUsagePercent *float64          `json:"battery_percentage_usage"`
	StartBattery        *float64          `json:"start_battery"`
	ElevationGainM      float64           `json:"elevation_gain_m"`
	TrafficLevel        float64           `json:"traffic_level"`
	GreenScore          float64           `json:"green_score"`
	Feasible            *bool             `json:"feasible"`
	IsOptimal           bool              `json:"is_optimal"`
	Explanation         string            `json:"route_explanation"`
	Geometry            *geojson.Geometry `json:"geometry"`
}

type optimizeResponse struct {
	Routes []routeWire `json:"routes"`
}

// optimizeRequest flattens trip parameters into the backend's form: vehicle
// figures sit beside the trip fields at the top level.
func optimizeRequest(p domain.TripParameters) map[string]any {
	body := make(map[string]any, len(p.Vehicle)+4)
	for k, v := range p.Vehicle {
		body[k] = v
	}
	body["start_location"] = p.StartLocation
	body["end_location"] = p.EndLocation
	if p.BatteryCapacityKWh > 0 {
		body["Battery_Capacity_kWh"] = p.BatteryCapacityKWh
	}
	if p.StartBattery > 0 {
		body["start_battery"] = p.StartBattery
	}
	return body
}

// OptimizeRoute posts the trip and converts the returned candidates.
func (c *Client) OptimizeRoute(ctx context.Context, params domain.TripParameters) (*domain.RouteResult, error) {
	ctx, span := startSpan(ctx, "optimize_route")
	defer span.End()

	var resp optimizeResponse
	if err := c.do(ctx, "optimize_route", http.MethodPost, "/optimize-route", optimizeRequest(params), &resp); err != nil {
		if isStatus(err, http.StatusBadRequest) || isStatus(err, http.StatusUnprocessableEntity) {
			return nil, &domain.ValidationError{Message: "invalid location or route not found"}
		}
		c.log.Warn("route optimization failed", "error", err)
		return nil, transport("optimize route", err)
	}

	result := &domain.RouteResult{Routes: make([]domain.Route, 0, len(resp.Routes))}
	for _, w := range resp.Routes {
		result.Routes = append(result.Routes, w.toDomain())
	}
	span.SetAttributes(attribute.Int(telemetry.AttrRouteCount, len(result.Routes)))
	return result, nil
}

func (w routeWire) toDomain() domain.Route {
	feasible := true
	if w.Feasible != nil {
		feasible = *w.Feasible
	}
	return domain.Route{
		DistanceKm:          w.DistanceKm,
		DurationMin:         w.DurationMin,
		EnergyConsumedKWh:   w.EnergyConsumedKWh,
		BatteryUsagePercent: w.BatteryUsagePercent,
		StartBattery:        w.StartBattery,
		ElevationGainM:      w.ElevationGainM,
		TrafficLevel:        w.TrafficLevel,
		GreenScore:          w.GreenScore,
		Feasible:            feasible,
		IsOptimal:           w.IsOptimal,
		Explanation:         w.Explanation,
		Geometry:            lineFromGeoJSON(w.Geometry),
	}
}

// lineFromGeoJSON converts [lon, lat] positions. Anything other than a
// LineString yields an empty line.
func lineFromGeoJSON(g *geojson.Geometry) domain.GeoLineString {
	if g == nil || g.Coordinates == nil {
		return domain.GeoLineString{}
	}
	ls, ok := g.Geometry().(orb.LineString)
	if !ok {
		return domain.GeoLineString{}
	}
	coords := make([]domain.GeoPoint, 0, len(ls))
	for _, p := range ls {
		coords = append(coords, domain.GeoPoint{Lat: p.Lat(), Lon: p.Lon()})
	}
	return domain.GeoLineString{Coordinates: coords}
}
