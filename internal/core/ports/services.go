package ports

import (
	"context"

	"github.com/samirrijal/voltroute/internal/core/domain"
)

// RouteOptimizer computes candidate routes for a trip.
type RouteOptimizer interface {
	OptimizeRoute(ctx context.Context, params domain.TripParameters) (*domain.RouteResult, error)
}

// StationCatalogue returns the full charging-station set. An empty slice is a valid
// answer; a failed fetch must return an error.
type StationCatalogue interface {
	GetStationCatalogue(ctx context.Context) ([]domain.Station, error)
}

// ReachabilityService finds the nearest station within a vehicle's range. It returns
// domain.ErrNotFound when nothing qualifies and a *domain.TransportError on failure.
type ReachabilityService interface {
	FindNearestReachableStation(ctx context.Context, q domain.ReachabilityQuery) (*domain.BestStationResult, error)
}

// ProfileStore reads and writes EV profiles. Missing profiles yield domain.ErrNotFound.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	SaveProfile(ctx context.Context, p *domain.Profile) error
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRouteUpdated(ctx context.Context, result *domain.RouteResult, metrics *domain.SustainabilityMetrics) error
	PublishNotification(ctx context.Context, n domain.Notification) error
	PublishBestStation(ctx context.Context, result *domain.BestStationResult) error
}

// EventSubscriber receives route results produced outside this process.
type EventSubscriber interface {
	SubscribeRouteResults(ctx context.Context, handler func(ctx context.Context, result *domain.RouteResult) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
