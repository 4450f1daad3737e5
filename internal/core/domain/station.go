package domain

import (
	"math"
	"strconv"
	"strings"
)

// Station is a charging station from the catalogue.
type Station struct {
	ID           string   `json:"station_id"`
	Location     GeoPoint `json:"location"`
	Rating       float64  `json:"rating"`
	CostPerKWh   float64  `json:"cost"`
	ChargerClass string   `json:"charger_class,omitempty"`
}

// MaxRating is the top of the review scale.
const MaxRating = 5.0

// ValidRating reports whether r is on the 0 to MaxRating review scale.
func ValidRating(r float64) bool {
	return finite(r) && r >= 0 && r <= MaxRating
}

// Default vehicle figures applied when a reachability query leaves them unset.
const (
	DefaultCapacityKWh      = 60.0
	DefaultEfficiencyKmPerK = 6.0
)

// ReachabilityQuery asks for the nearest station within the vehicle's range budget.
type ReachabilityQuery struct {
	Position          GeoPoint `json:"position"`
	BatteryPercent    float64  `json:"battery_percent"`
	CapacityKWh       float64  `json:"battery_capacity_kwh"`
	EfficiencyKmPerKW float64  `json:"efficiency_km_per_kwh"`
}

// Validate enforces battery in (0,100], finite positive capacity and efficiency,
// and a finite range budget.
func (q ReachabilityQuery) Validate() error {
	if err := q.Position.Validate(); err != nil {
		return err
	}
	if !finite(q.BatteryPercent) || q.BatteryPercent <= 0 || q.BatteryPercent > 100 {
		return &ValidationError{Field: "battery_percent", Message: "battery percentage must be greater than 0 and at most 100"}
	}
	if !finite(q.CapacityKWh) || q.CapacityKWh <= 0 {
		return &ValidationError{Field: "battery_capacity_kwh", Message: "battery capacity must be a finite positive number"}
	}
	if !finite(q.EfficiencyKmPerKW) || q.EfficiencyKmPerKW <= 0 {
		return &ValidationError{Field: "efficiency_km_per_kwh", Message: "efficiency must be a finite positive number"}
	}
	if !finite(q.RangeBudgetKm()) {
		return &ValidationError{Field: "battery_capacity_kwh", Message: "battery capacity and efficiency are too large"}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RangeBudgetKm is battery/100 x capacity x efficiency.
func (q ReachabilityQuery) RangeBudgetKm() float64 {
	return q.BatteryPercent / 100 * q.CapacityKWh * q.EfficiencyKmPerKW
}

// WithDefaults fills zero capacity and efficiency with the service defaults.
func (q ReachabilityQuery) WithDefaults() ReachabilityQuery {
	if q.CapacityKWh == 0 {
		q.CapacityKWh = DefaultCapacityKWh
	}
	if q.EfficiencyKmPerKW == 0 {
		q.EfficiencyKmPerKW = DefaultEfficiencyKmPerK
	}
	return q
}

// ReachabilityInputs are the raw form values of a reachability query.
type ReachabilityInputs struct {
	Latitude       string `json:"latitude"`
	Longitude      string `json:"longitude"`
	BatteryPercent string `json:"battery_percent"`
	CapacityKWh    string `json:"battery_capacity_kwh"`
	Efficiency     string `json:"efficiency_km_per_kwh"`
}

// Parse converts the form values into a validated query.
func (in ReachabilityInputs) Parse() (ReachabilityQuery, error) {
	pos, err := ParseGeoPoint(in.Latitude, in.Longitude)
	if err != nil {
		return ReachabilityQuery{}, err
	}
	battery, err := parseField("battery_percent", in.BatteryPercent)
	if err != nil {
		return ReachabilityQuery{}, err
	}
	capacity, err := parseField("battery_capacity_kwh", in.CapacityKWh)
	if err != nil {
		return ReachabilityQuery{}, err
	}
	efficiency, err := parseField("efficiency_km_per_kwh", in.Efficiency)
	if err != nil {
		return ReachabilityQuery{}, err
	}
	q := ReachabilityQuery{
		Position:          pos,
		BatteryPercent:    battery,
		CapacityKWh:       capacity,
		EfficiencyKmPerKW: efficiency,
	}
	if err := q.Validate(); err != nil {
		return ReachabilityQuery{}, err
	}
	return q, nil
}

func parseField(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !finite(v) {
		return 0, &ValidationError{Field: field, Message: "must be a number"}
	}
	return v, nil
}

// BestStationResult is the nearest reachable station for one query.
type BestStationResult struct {
	Station          Station  `json:"station"`
	DistanceKm       float64  `json:"distance_km"`
	RemainingRangeKm float64  `json:"remaining_range_km"`
	Query            GeoPoint `json:"query_position"`
}
