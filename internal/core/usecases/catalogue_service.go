package usecases

import (
	"context"
	"encoding/json"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/ports"
	"github.com/samirrijal/voltroute/internal/pkg/metrics"
)

const catalogueCacheKey = "stations:catalogue:v1"

// CatalogueService serves the station catalogue through a read-through cache.
type CatalogueService struct {
	catalogue ports.StationCatalogue
	cache     ports.CacheService
	ttl       int
}

// NewCatalogueService creates a new CatalogueService. cache may be nil.
func NewCatalogueService(catalogue ports.StationCatalogue, cache ports.CacheService, ttlSeconds int) *CatalogueService {
	if ttlSeconds <= 0 {
		ttlSeconds = 600
	}
	return &CatalogueService{catalogue: catalogue, cache: cache, ttl: ttlSeconds}
}

// GetStationCatalogue returns every station. Upstream errors are returned as-is so
// callers can tell a failed fetch from an empty catalogue.
func (s *CatalogueService) GetStationCatalogue(ctx context.Context) ([]domain.Station, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, catalogueCacheKey); err == nil {
			var stations []domain.Station
			if err := json.Unmarshal(data, &stations); err == nil {
				metrics.CacheHits.WithLabelValues("catalogue").Inc()
				return stations, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("catalogue").Inc()
	}

	stations, err := s.catalogue.GetStationCatalogue(ctx)
	if err != nil {
		return nil, err
	}
	if stations == nil {
		stations = []domain.Station{}
	}

	if s.cache != nil {
		if data, err := json.Marshal(stations); err == nil {
			_ = s.cache.Set(ctx, catalogueCacheKey, data, s.ttl)
		}
	}

	return stations, nil
}

// Invalidate drops the cached catalogue.
func (s *CatalogueService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, catalogueCacheKey)
}
