// Package stationindex serves the station catalogue and nearest reachable
// station queries from a local dataset held in an R-tree.
package stationindex

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/pkg/geospatial"
)

const (
	tolerance   = 1e-6
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

type spatialStation struct {
	seq     int
	station domain.Station
	rect    rtreego.Rect
}

func (s *spatialStation) Bounds() rtreego.Rect {
	return s.rect
}

// Index implements ports.StationCatalogue and ports.ReachabilityService.
type Index struct {
	mu       sync.RWMutex
	tree     *rtreego.Rtree
	stations []domain.Station
}

// New indexes stations. Order is kept for the catalogue and breaks distance ties.
func New(stations []domain.Station) *Index {
	ix := &Index{}
	ix.Replace(stations)
	return ix
}

// Open loads the zipped CSV dataset at path and indexes it.
func Open(path string) (*Index, error) {
	stations, err := LoadZip(path)
	if err != nil {
		return nil, fmt.Errorf("load stations from %s: %w", path, err)
	}
	return New(stations), nil
}

// Replace swaps the indexed stations.
func (ix *Index) Replace(stations []domain.Station) {
	items := make([]rtreego.Spatial, 0, len(stations))
	kept := make([]domain.Station, 0, len(stations))
	for i, st := range stations {
		p := rtreego.Point{st.Location.Lat, st.Location.Lon}
		items = append(items, &spatialStation{seq: i, station: st, rect: p.ToRect(tolerance)})
		kept = append(kept, st)
	}
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren, items...)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.tree = tree
	ix.stations = kept
}

// Size returns the number of indexed stations.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.stations)
}

// GetStationCatalogue returns every station in dataset order.
func (ix *Index) GetStationCatalogue(ctx context.Context) ([]domain.Station, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]domain.Station, len(ix.stations))
	copy(out, ix.stations)
	return out, nil
}

// FindNearestReachableStation returns the closest station whose great-circle
// distance is within the query's range budget.
func (ix *Index) FindNearestReachableStation(ctx context.Context, q domain.ReachabilityQuery) (*domain.BestStationResult, error) {
	q = q.WithDefaults()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	budget := q.RangeBudgetKm()
	lat, lon := q.Position.Lat, q.Position.Lon

	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(lat, lon, budget)
	// A box clamped at the antimeridian may miss stations on the far side.
	if minLon <= -180 || maxLon >= 180 {
		minLon, maxLon = -180, 180
	}
	bb, err := rtreego.NewRectFromPoints(
		rtreego.Point{minLat - tolerance, minLon - tolerance},
		rtreego.Point{maxLat + tolerance, maxLon + tolerance},
	)
	if err != nil {
		return nil, fmt.Errorf("search box: %w", err)
	}

	ix.mu.RLock()
	candidates := ix.tree.SearchIntersect(bb)
	ix.mu.RUnlock()

	var best *spatialStation
	bestDist := math.Inf(1)
	for _, c := range candidates {
		item, ok := c.(*spatialStation)
		if !ok {
			continue
		}
		d := geospatial.DistanceKm(lat, lon, item.station.Location.Lat, item.station.Location.Lon)
		if d > budget {
			continue
		}
		if d < bestDist || (d == bestDist && item.seq < best.seq) {
			best, bestDist = item, d
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}

	return &domain.BestStationResult{
		Station:          best.station,
		DistanceKm:       geospatial.RoundTo(bestDist, 2),
		RemainingRangeKm: geospatial.RoundTo(math.Max(0, budget-bestDist), 2),
		Query:            q.Position,
	}, nil
}
