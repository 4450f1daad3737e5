package usecases

import (
	"context"
	"fmt"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/ports"
)

// ProfileService reads and merges EV profiles held by the external profile store.
type ProfileService struct {
	store ports.ProfileStore
}

// NewProfileService creates a new ProfileService.
func NewProfileService(store ports.ProfileStore) *ProfileService {
	return &ProfileService{store: store}
}

// Get returns the profile for userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, &domain.ValidationError{Field: "user_id", Message: "user id is required"}
	}
	return s.store.GetProfile(ctx, userID)
}

// Update merges the non-nil fields of u into the stored profile, creating it
// when absent.
func (s *ProfileService) Update(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.Profile, error) {
	if userID == "" {
		return nil, &domain.ValidationError{Field: "user_id", Message: "user id is required"}
	}

	p, err := s.store.GetProfile(ctx, userID)
	switch {
	case err == nil:
	case domain.IsNotFound(err):
		if u.EVModel == nil || u.BatteryCapacity == nil {
			return nil, &domain.ValidationError{Field: "ev_model", Message: "ev_model and battery_capacity are required for a new profile"}
		}
		p = &domain.Profile{UserID: userID}
	default:
		return nil, fmt.Errorf("load profile: %w", err)
	}

	p.Apply(u)
	if p.BatteryCapacity <= 0 {
		return nil, &domain.ValidationError{Field: "battery_capacity", Message: "battery capacity must be positive"}
	}
	if p.CurrentBattery < 0 || p.CurrentBattery > 100 {
		return nil, &domain.ValidationError{Field: "current_battery", Message: "current battery must be between 0 and 100"}
	}

	if err := s.store.SaveProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}
