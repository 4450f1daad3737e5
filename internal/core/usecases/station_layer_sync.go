package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/ports"
	"github.com/samirrijal/voltroute/internal/pkg/metrics"
)

// Station layer identifiers. Both tiers draw from the StationLayerID source.
const (
	StationLayerID    = "stations"
	StationHaloTierID = "stations-halo"
	StationPointTier  = "stations-point"
)

var stationTwoTierStyle = domain.LayerStyle{Tiers: []domain.LayerTier{
	{
		ID:   StationHaloTierID,
		Type: "circle",
		Paint: map[string]any{
			"circle-radius":  12,
			"circle-color":   "#22c55e",
			"circle-opacity": 0.18,
			"circle-blur":    0.4,
		},
	},
	{
		ID:          StationPointTier,
		Type:        "circle",
		Interactive: true,
		Paint: map[string]any{
			"circle-radius":       5,
			"circle-color":        "#22c55e",
			"circle-stroke-width": 1.5,
			"circle-stroke-color": "#ffffff",
		},
	},
}}

// StationLayerStatus is the read-only state of the station layer.
type StationLayerStatus struct {
	Loading bool   `json:"loading"`
	Loaded  bool   `json:"loaded"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// StationLayerSync renders the station catalogue once per surface lifetime,
// after the surface reports readiness.
type StationLayerSync struct {
	surface   *GeoSurface
	catalogue ports.StationCatalogue
	timeout   time.Duration
	log       *slog.Logger

	mu        sync.Mutex
	handle    SurfaceHandle
	loadedFor SurfaceHandle
	loading   bool
	loaded    bool
	count     int
	err       error
	byID      map[string]domain.Station

	wg sync.WaitGroup
}

// NewStationLayerSync creates a sync fetching from catalogue.
func NewStationLayerSync(surface *GeoSurface, catalogue ports.StationCatalogue, timeout time.Duration, log *slog.Logger) *StationLayerSync {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &StationLayerSync{
		surface:   surface,
		catalogue: catalogue,
		timeout:   timeout,
		log:       log.With("component", "station_layer"),
	}
}

// Attach binds to h and schedules the catalogue load for when h is ready.
func (s *StationLayerSync) Attach(h SurfaceHandle) error {
	s.mu.Lock()
	s.handle = h
	if s.loadedFor != h {
		s.loading = true
		s.loaded = false
		s.count = 0
		s.err = nil
	}
	s.mu.Unlock()

	if err := s.surface.OnReady(s.load); err != nil {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *StationLayerSync) load(h SurfaceHandle) {
	s.mu.Lock()
	if h != s.handle {
		s.mu.Unlock()
		return
	}
	if s.loadedFor == h {
		s.loading = false
		s.mu.Unlock()
		return
	}
	s.loadedFor = h
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := time.Now()
		stations, err := s.catalogue.GetStationCatalogue(ctx)
		metrics.CatalogueFetchDuration.Observe(time.Since(start).Seconds())
		s.complete(h, stations, err)
	}()
}

func (s *StationLayerSync) complete(h SurfaceHandle, stations []domain.Station, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h != s.handle {
		s.log.Debug("discarding catalogue for superseded surface", "handle", h)
		metrics.CatalogueFetches.WithLabelValues("discarded").Inc()
		return
	}
	s.loading = false

	if !s.surface.Mounted(h) {
		s.log.Debug("discarding catalogue for unmounted surface", "handle", h)
		metrics.CatalogueFetches.WithLabelValues("discarded").Inc()
		return
	}
	if err != nil {
		s.err = err
		s.log.Warn("station catalogue unavailable, map stays usable without it", "error", err)
		metrics.CatalogueFetches.WithLabelValues("error").Inc()
		return
	}

	fc := geojson.NewFeatureCollection()
	s.byID = make(map[string]domain.Station, len(stations))
	for _, st := range stations {
		f := geojson.NewFeature(orb.Point{st.Location.Lon, st.Location.Lat})
		f.ID = st.ID
		f.Properties["station_id"] = st.ID
		f.Properties["rating"] = st.Rating
		f.Properties["cost"] = st.CostPerKWh
		if st.ChargerClass != "" {
			f.Properties["charger_class"] = st.ChargerClass
		}
		fc.Append(f)
		s.byID[st.ID] = st
	}

	if err := s.surface.UpsertLayer(StationLayerID, fc, stationTwoTierStyle); err != nil {
		s.err = err
		s.log.Warn("draw station layer", "error", err)
		metrics.CatalogueFetches.WithLabelValues("error").Inc()
		return
	}
	s.count = len(stations)
	s.loaded = true
	metrics.CatalogueFetches.WithLabelValues("ok").Inc()

	_ = s.surface.On(StationPointTier, domain.EventClick, s.onClick)
	_ = s.surface.On(StationPointTier, domain.EventMouseEnter, func(domain.InteractionEvent) {
		_ = s.surface.SetCursor("pointer")
	})
	_ = s.surface.On(StationPointTier, domain.EventMouseLeave, func(domain.InteractionEvent) {
		_ = s.surface.SetCursor("")
	})
}

func (s *StationLayerSync) onClick(ev domain.InteractionEvent) {
	id, _ := ev.Properties["station_id"].(string)

	s.mu.Lock()
	st, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	pos := st.Location
	if ev.Position != nil {
		pos = *ev.Position
	}
	_ = s.surface.ShowPopup(pos, StationPopupText(st))
}

// StationPopupText is the detail shown when a station is selected.
func StationPopupText(st domain.Station) string {
	text := fmt.Sprintf("Station %s\nRating: %.1f / 5\nCost: $%.2f/kWh", st.ID, st.Rating, st.CostPerKWh)
	if st.ChargerClass != "" {
		text += "\nCharger: " + st.ChargerClass
	}
	return text
}

// Status reports loading state and station count.
func (s *StationLayerSync) Status() StationLayerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := StationLayerStatus{Loading: s.loading, Loaded: s.loaded, Count: s.count}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

// Detach removes the station layer and its handlers from the surface.
func (s *StationLayerSync) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != "" && s.surface.Mounted(s.handle) {
		_ = s.surface.RemoveLayer(StationLayerID)
	}
	s.handle = ""
	s.loading = false
}

// Wait blocks until in-flight catalogue loads have completed.
func (s *StationLayerSync) Wait() {
	s.wg.Wait()
}
