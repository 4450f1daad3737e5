package ports

import (
	"context"

	"github.com/samirrijal/voltroute/internal/core/domain"
)

// StationRepository persists the charging-station catalogue.
type StationRepository interface {
	StationCatalogue
	ReachabilityService
	UpsertBatch(ctx context.Context, stations []domain.Station) error
	Count(ctx context.Context) (int, error)
}
