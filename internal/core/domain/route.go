package domain

import (
	"math"
	"time"
)

// DefaultStartBattery is assumed when the optimizer omits a route's starting charge.
const DefaultStartBattery = 85.0

// Route is one candidate returned by the optimization service.
type Route struct {
	DistanceKm          float64       `json:"distance_km"`
	DurationMin         float64       `json:"duration_min"`
	EnergyConsumedKWh   float64       `json:"energy_consumed_kWh"`
	BatteryUsagePercent *float64      `json:"battery_percentage_usage,omitempty"`
	StartBattery        *float64      `json:"start_battery,omitempty"`
	ElevationGainM      float64       `json:"elevation_gain_m"`
	TrafficLevel        float64       `json:"traffic_level"`
	GreenScore          float64       `json:"green_score"`
	Feasible            bool          `json:"feasible"`
	IsOptimal           bool          `json:"is_optimal"`
	Explanation         string        `json:"route_explanation,omitempty"`
	Geometry            GeoLineString `json:"geometry"`
}

// StartBatteryPercent returns the starting charge, defaulting to 85.
func (r Route) StartBatteryPercent() float64 {
	if r.StartBattery == nil {
		return DefaultStartBattery
	}
	return *r.StartBattery
}

// UsagePercent returns the battery percentage consumed, defaulting to 0.
func (r Route) UsagePercent() float64 {
	if r.BatteryUsagePercent == nil {
		return 0
	}
	return *r.BatteryUsagePercent
}

// EndBattery is the charge left on arrival.
func (r Route) EndBattery() float64 {
	return r.StartBatteryPercent() - r.UsagePercent()
}

// RouteResult is a single optimization response. It is replaced wholesale, never merged.
type RouteResult struct {
	Routes     []Route   `json:"routes"`
	ReceivedAt time.Time `json:"received_at"`
}

// Preferred returns the route flagged optimal, or the first candidate.
func (r *RouteResult) Preferred() (*Route, bool) {
	if r == nil || len(r.Routes) == 0 {
		return nil, false
	}
	for i := range r.Routes {
		if r.Routes[i].IsOptimal {
			return &r.Routes[i], true
		}
	}
	return &r.Routes[0], true
}

// AnyFeasible reports whether at least one candidate is feasible.
func (r *RouteResult) AnyFeasible() bool {
	if r == nil {
		return false
	}
	for _, rt := range r.Routes {
		if rt.Feasible {
			return true
		}
	}
	return false
}

// SustainabilityMetrics are derived from the preferred route for dashboard views.
type SustainabilityMetrics struct {
	DistanceKm        float64 `json:"distance_km"`
	DurationMin       float64 `json:"duration_min"`
	EnergyConsumedKWh float64 `json:"energy_consumed_kwh"`
	EnergySavedKWh    float64 `json:"energy_saved_kwh"`
	CO2SavedKg        float64 `json:"co2_saved_kg"`
	GreenScore        float64 `json:"green_score"`
	EcoLevel          int     `json:"eco_level"`
	EndBattery        float64 `json:"end_battery"`
}

const (
	energySavingRatio = 0.15
	co2PerKWhSaved    = 0.5
)

// MetricsFor derives sustainability figures for one route.
func MetricsFor(r Route) SustainabilityMetrics {
	saved := r.EnergyConsumedKWh * energySavingRatio
	level := int(math.Floor(r.GreenScore/20)) + 1
	if level > 5 {
		level = 5
	}
	if level < 1 {
		level = 1
	}
	return SustainabilityMetrics{
		DistanceKm:        r.DistanceKm,
		DurationMin:       r.DurationMin,
		EnergyConsumedKWh: r.EnergyConsumedKWh,
		EnergySavedKWh:    saved,
		CO2SavedKg:        saved * co2PerKWhSaved,
		GreenScore:        r.GreenScore,
		EcoLevel:          level,
		EndBattery:        r.EndBattery(),
	}
}

// TripParameters is what the route form submits to the optimizer.
type TripParameters struct {
	UserID             string             `json:"user_id,omitempty"`
	StartLocation      string             `json:"start_location"`
	EndLocation        string             `json:"end_location"`
	BatteryCapacityKWh float64            `json:"battery_capacity_kwh"`
	StartBattery       float64            `json:"start_battery"`
	Vehicle            map[string]float64 `json:"vehicle,omitempty"`
}

// Validate checks the fields the optimizer cannot default.
func (p TripParameters) Validate() error {
	if p.StartLocation == "" {
		return &ValidationError{Field: "start_location", Message: "start location is required"}
	}
	if p.EndLocation == "" {
		return &ValidationError{Field: "end_location", Message: "end location is required"}
	}
	if p.BatteryCapacityKWh < 0 {
		return &ValidationError{Field: "battery_capacity_kwh", Message: "capacity must not be negative"}
	}
	if p.StartBattery < 0 || p.StartBattery > 100 {
		return &ValidationError{Field: "start_battery", Message: "start battery must be between 0 and 100"}
	}
	return nil
}
