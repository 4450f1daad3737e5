package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/ports"
	"github.com/samirrijal/voltroute/internal/pkg/metrics"
)

// TripService submits trips to the optimizer and publishes results to the
// shared route state.
type TripService struct {
	optimizer ports.RouteOptimizer
	profiles  ports.ProfileStore
	state     *RouteState
	now       func() time.Time
}

// NewTripService creates a new TripService. profiles may be nil.
func NewTripService(optimizer ports.RouteOptimizer, profiles ports.ProfileStore, state *RouteState) *TripService {
	return &TripService{optimizer: optimizer, profiles: profiles, state: state, now: time.Now}
}

// Optimize fills missing vehicle figures from the user's profile, requests routes
// and replaces the shared route state with the response.
func (s *TripService) Optimize(ctx context.Context, params domain.TripParameters) (*domain.RouteResult, error) {
	if params.UserID != "" && s.profiles != nil {
		p, err := s.profiles.GetProfile(ctx, params.UserID)
		switch {
		case err == nil:
			params = applyProfile(params, p)
		case domain.IsNotFound(err):
			// no stored profile; use the submitted values
		default:
			return nil, fmt.Errorf("load profile %s: %w", params.UserID, err)
		}
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	result, err := s.optimizer.OptimizeRoute(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("optimize route: %w", err)
	}

	s.Accept(ctx, result, "optimizer")
	return result, nil
}

// Accept applies a result produced elsewhere, e.g. delivered over the broker.
func (s *TripService) Accept(ctx context.Context, result *domain.RouteResult, source string) {
	if result.ReceivedAt.IsZero() {
		result.ReceivedAt = s.now()
	}
	metrics.RouteResultsReceived.WithLabelValues(source).Inc()
	s.state.Replace(ctx, result)
}

func applyProfile(params domain.TripParameters, p *domain.Profile) domain.TripParameters {
	if params.BatteryCapacityKWh == 0 {
		params.BatteryCapacityKWh = p.BatteryCapacity
	}
	if params.StartBattery == 0 {
		params.StartBattery = float64(p.CurrentBattery)
	}
	if params.Vehicle == nil {
		params.Vehicle = make(map[string]float64)
	}
	if _, ok := params.Vehicle["SoH_Percent"]; !ok && p.BatteryHealth > 0 {
		params.Vehicle["SoH_Percent"] = float64(p.BatteryHealth)
	}
	if p.VehicleLoad != nil {
		if _, ok := params.Vehicle["Vehicle_Load_kg"]; !ok {
			params.Vehicle["Vehicle_Load_kg"] = *p.VehicleLoad
		}
	}
	if p.AmbientTemperature != nil {
		if _, ok := params.Vehicle["Avg_Temperature_C"]; !ok {
			params.Vehicle["Avg_Temperature_C"] = *p.AmbientTemperature
		}
	}
	return params
}
