package usecases

import (
	"log/slog"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/voltroute/internal/core/domain"
)

// RouteLayerID is the surface layer holding the preferred route polyline.
const RouteLayerID = "route"

// DefaultFitPadding is the viewport padding around a fitted route, in pixels.
const DefaultFitPadding = 40

var routeLineStyle = domain.LayerStyle{Tiers: []domain.LayerTier{{
	ID:     RouteLayerID,
	Type:   "line",
	Layout: map[string]any{"line-join": "round", "line-cap": "round"},
	Paint:  map[string]any{"line-color": "#007cbf", "line-width": 5},
}}}

var (
	startMarkerStyle = domain.MarkerStyle{Kind: "route_start", Color: "#10b981", Popup: "Start"}
	endMarkerStyle   = domain.MarkerStyle{Kind: "route_end", Color: "#ef4444", Popup: "Destination"}
)

// RouteLayerSync keeps one route polyline and its start and end markers in step
// with the shared route state.
type RouteLayerSync struct {
	surface *GeoSurface
	padding int
	log     *slog.Logger

	mu     sync.Mutex
	handle SurfaceHandle
	start  MarkerHandle
	end    MarkerHandle
	latest *domain.RouteResult
	unsub  func()
}

// NewRouteLayerSync subscribes to state. Results that arrive while no surface is
// attached are kept and drawn on the next Attach.
func NewRouteLayerSync(surface *GeoSurface, state *RouteState, padding int, log *slog.Logger) *RouteLayerSync {
	if padding <= 0 {
		padding = DefaultFitPadding
	}
	if log == nil {
		log = slog.Default()
	}
	r := &RouteLayerSync{surface: surface, padding: padding, log: log.With("component", "route_layer")}
	r.latest = state.Current()
	r.unsub = state.Subscribe(r.Render)
	return r
}

// Attach binds the sync to a mounted surface and draws the latest result.
func (r *RouteLayerSync) Attach(h SurfaceHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handle = h
	r.start, r.end = "", ""
	if r.latest != nil {
		r.drawLocked(r.latest)
	}
}

// Render projects result onto the attached surface.
func (r *RouteLayerSync) Render(result *domain.RouteResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.latest = result
	if r.handle == "" || !r.surface.Mounted(r.handle) {
		return
	}
	r.drawLocked(result)
}

func (r *RouteLayerSync) drawLocked(result *domain.RouteResult) {
	pref, ok := result.Preferred()
	if !ok || !result.AnyFeasible() || !pref.Geometry.Drawable() {
		r.clearLocked()
		return
	}

	coords := pref.Geometry.Coordinates
	line := make(orb.LineString, 0, len(coords))
	for _, c := range coords {
		line = append(line, orb.Point{c.Lon, c.Lat})
	}
	f := geojson.NewFeature(line)
	f.Properties["distance_km"] = pref.DistanceKm
	f.Properties["duration_min"] = pref.DurationMin
	f.Properties["green_score"] = pref.GreenScore
	fc := geojson.NewFeatureCollection()
	fc.Append(f)

	if err := r.surface.UpsertLayer(RouteLayerID, fc, routeLineStyle); err != nil {
		r.log.Warn("draw route", "error", err)
		return
	}

	r.removeMarkersLocked()
	first, _ := pref.Geometry.First()
	last, _ := pref.Geometry.Last()
	var err error
	if r.start, err = r.surface.AddMarker(first, startMarkerStyle, nil); err != nil {
		r.log.Warn("add start marker", "error", err)
	}
	if r.end, err = r.surface.AddMarker(last, endMarkerStyle, nil); err != nil {
		r.log.Warn("add end marker", "error", err)
	}

	_ = r.surface.FitTo(coords, r.padding)
}

func (r *RouteLayerSync) clearLocked() {
	_ = r.surface.RemoveLayer(RouteLayerID)
	r.removeMarkersLocked()
}

func (r *RouteLayerSync) removeMarkersLocked() {
	if r.start != "" {
		r.surface.RemoveMarker(r.start)
		r.start = ""
	}
	if r.end != "" {
		r.surface.RemoveMarker(r.end)
		r.end = ""
	}
}

// Detach removes the route layer and markers from the surface. The latest result
// is kept for a later Attach.
func (r *RouteLayerSync) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle != "" && r.surface.Mounted(r.handle) {
		r.clearLocked()
	}
	r.handle = ""
	r.start, r.end = "", ""
}

// Close detaches and stops following the route state.
func (r *RouteLayerSync) Close() {
	r.Detach()
	if r.unsub != nil {
		r.unsub()
	}
}
