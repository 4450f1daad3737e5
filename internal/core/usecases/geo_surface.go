package usecases

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/ports"
	"github.com/samirrijal/voltroute/internal/pkg/metrics"
)

// ErrNotMounted is returned by surface mutations issued without a mounted context.
var ErrNotMounted = errors.New("map surface not mounted")

// SurfaceHandle identifies one mounted rendering context.
type SurfaceHandle string

// MarkerHandle identifies a point marker on the surface.
type MarkerHandle string

// InteractionHandler reacts to a renderer event on a layer tier.
type InteractionHandler func(ev domain.InteractionEvent)

// LayerSnapshot describes a layer currently on the surface.
type LayerSnapshot struct {
	ID       string   `json:"id"`
	Tiers    []string `json:"tiers"`
	Features int      `json:"features"`
	Version  int      `json:"version"`
}

// MarkerSnapshot describes a marker currently on the surface.
type MarkerSnapshot struct {
	Handle   MarkerHandle       `json:"handle"`
	Position domain.GeoPoint    `json:"position"`
	Style    domain.MarkerStyle `json:"style"`
}

type layerState struct {
	id      string
	style   domain.LayerStyle
	data    *geojson.FeatureCollection
	version int
}

type markerState struct {
	handle  MarkerHandle
	pos     domain.GeoPoint
	style   domain.MarkerStyle
	onClick func()
}

// GeoSurface owns the single live map rendering context of a process. Layer and
// source mutations issued before the renderer reports readiness are queued and
// replayed in submission order once it does.
type GeoSurface struct {
	log *slog.Logger

	mu       sync.Mutex
	target   ports.RenderTarget
	handle   SurfaceHandle
	ready    bool
	pending  []func()
	layers   map[string]*layerState
	order    []string
	markers  map[MarkerHandle]*markerState
	handlers map[string]map[string]InteractionHandler
	onReady  []func(SurfaceHandle)
}

// NewGeoSurface creates an unmounted surface.
func NewGeoSurface(log *slog.Logger) *GeoSurface {
	if log == nil {
		log = slog.Default()
	}
	s := &GeoSurface{log: log.With("component", "geo_surface")}
	s.resetLocked()
	return s
}

func (s *GeoSurface) resetLocked() {
	s.target = nil
	s.handle = ""
	s.ready = false
	s.pending = nil
	s.layers = make(map[string]*layerState)
	s.order = nil
	s.markers = make(map[MarkerHandle]*markerState)
	s.handlers = make(map[string]map[string]InteractionHandler)
	s.onReady = nil
}

// Mount creates the rendering context in target. It returns false when no new
// context was created: the target is detached, or a context is already mounted.
// Mounting the same container again returns its existing handle.
func (s *GeoSurface) Mount(target ports.RenderTarget) (SurfaceHandle, bool) {
	if target == nil || !target.Attached() {
		s.log.Warn("map container not attached, skipping mount")
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != "" {
		if s.target.ID() == target.ID() {
			return s.handle, false
		}
		s.log.Warn("surface already mounted by another container",
			"mounted", s.target.ID(), "requested", target.ID())
		return "", false
	}

	s.target = target
	s.handle = SurfaceHandle(uuid.NewString())
	s.sendLocked(domain.RenderCommand{Op: domain.OpMount})
	metrics.SurfacesMounted.Set(1)
	s.log.Info("surface mounted", "handle", s.handle, "container", target.ID())
	return s.handle, true
}

// Unmount removes every marker and layer, then destroys the context.
// Unknown or stale handles are ignored.
func (s *GeoSurface) Unmount(h SurfaceHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h == "" || h != s.handle {
		return
	}

	for mh := range s.markers {
		s.sendLocked(domain.RenderCommand{Op: domain.OpRemoveMarker, Marker: string(mh)})
	}
	for i := len(s.order) - 1; i >= 0; i-- {
		s.removeLayerLocked(s.order[i])
	}
	s.sendLocked(domain.RenderCommand{Op: domain.OpUnmount})

	s.log.Info("surface unmounted", "handle", h, "dropped_pending", len(s.pending))
	s.resetLocked()
	metrics.SurfacesMounted.Set(0)
}

// Mounted reports whether h is the currently mounted context.
func (s *GeoSurface) Mounted(h SurfaceHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return h != "" && h == s.handle
}

// Handle returns the mounted handle, or "" when unmounted.
func (s *GeoSurface) Handle() SurfaceHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Ready reports whether the readiness signal has fired for the current context.
func (s *GeoSurface) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Pending returns the number of mutations waiting for readiness.
func (s *GeoSurface) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// MarkReady delivers the readiness signal for h. Only the first call per mount
// has an effect: queued mutations are replayed in order, then ready callbacks run.
func (s *GeoSurface) MarkReady(h SurfaceHandle) {
	s.mu.Lock()
	if h == "" || h != s.handle || s.ready {
		s.mu.Unlock()
		return
	}
	s.ready = true
	queued := s.pending
	s.pending = nil
	for _, op := range queued {
		op()
	}
	callbacks := s.onReady
	s.onReady = nil
	s.mu.Unlock()

	s.log.Debug("surface ready", "handle", h, "replayed", len(queued))
	for _, fn := range callbacks {
		fn(h)
	}
}

// OnReady runs fn once the current context is ready, immediately if it already is.
func (s *GeoSurface) OnReady(fn func(SurfaceHandle)) error {
	s.mu.Lock()
	if s.handle == "" {
		s.mu.Unlock()
		return ErrNotMounted
	}
	if !s.ready {
		s.onReady = append(s.onReady, fn)
		s.mu.Unlock()
		return nil
	}
	h := s.handle
	s.mu.Unlock()
	fn(h)
	return nil
}

// UpsertLayer replaces the data of an existing layer, or creates its source and
// tiers when id is new. The style of an existing layer is never touched.
func (s *GeoSurface) UpsertLayer(id string, data *geojson.FeatureCollection, style domain.LayerStyle) error {
	if data == nil {
		data = geojson.NewFeatureCollection()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == "" {
		return ErrNotMounted
	}
	if !s.ready {
		s.pending = append(s.pending, func() { s.upsertLayerLocked(id, data, style) })
		metrics.DeferredMutations.Inc()
		return nil
	}
	s.upsertLayerLocked(id, data, style)
	return nil
}

func (s *GeoSurface) upsertLayerLocked(id string, data *geojson.FeatureCollection, style domain.LayerStyle) {
	payload, err := data.MarshalJSON()
	if err != nil {
		s.log.Error("encode layer data", "layer", id, "error", err)
		return
	}

	if l, ok := s.layers[id]; ok {
		l.data = data
		l.version++
		s.sendLocked(domain.RenderCommand{Op: domain.OpSetData, Source: id, Data: payload})
		return
	}

	s.layers[id] = &layerState{id: id, style: style, data: data, version: 1}
	s.order = append(s.order, id)
	s.sendLocked(domain.RenderCommand{Op: domain.OpAddSource, Source: id, Data: payload})
	for i := range style.Tiers {
		tier := style.Tiers[i]
		s.sendLocked(domain.RenderCommand{Op: domain.OpAddLayer, Source: id, Layer: &tier})
	}
}

// RemoveLayer removes a layer's tiers, its source and any handlers bound to its
// tiers. Unknown ids are ignored.
func (s *GeoSurface) RemoveLayer(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == "" {
		return ErrNotMounted
	}
	if !s.ready {
		s.pending = append(s.pending, func() { s.removeLayerLocked(id) })
		metrics.DeferredMutations.Inc()
		return nil
	}
	s.removeLayerLocked(id)
	return nil
}

func (s *GeoSurface) removeLayerLocked(id string) {
	l, ok := s.layers[id]
	if !ok {
		return
	}
	for i := len(l.style.Tiers) - 1; i >= 0; i-- {
		tier := l.style.Tiers[i]
		s.sendLocked(domain.RenderCommand{Op: domain.OpRemoveLayer, Source: id, Layer: &domain.LayerTier{ID: tier.ID}})
		delete(s.handlers, tier.ID)
	}
	s.sendLocked(domain.RenderCommand{Op: domain.OpRemoveSource, Source: id})
	delete(s.layers, id)
	for i, lid := range s.order {
		if lid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// AddMarker places a marker. Markers do not depend on style readiness.
func (s *GeoSurface) AddMarker(pos domain.GeoPoint, style domain.MarkerStyle, onClick func()) (MarkerHandle, error) {
	if err := pos.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == "" {
		return "", ErrNotMounted
	}
	mh := MarkerHandle(uuid.NewString())
	s.markers[mh] = &markerState{handle: mh, pos: pos, style: style, onClick: onClick}
	p := pos
	st := style
	s.sendLocked(domain.RenderCommand{Op: domain.OpAddMarker, Marker: string(mh), Position: &p, Style: &st})
	return mh, nil
}

// RemoveMarker removes a marker. Unknown handles are ignored.
func (s *GeoSurface) RemoveMarker(mh MarkerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markers[mh]; !ok {
		return
	}
	delete(s.markers, mh)
	s.sendLocked(domain.RenderCommand{Op: domain.OpRemoveMarker, Marker: string(mh)})
}

// FitTo animates the viewport to the bounding box of coords. Empty input is a no-op.
func (s *GeoSurface) FitTo(coords []domain.GeoPoint, padding int) error {
	if len(coords) == 0 {
		return nil
	}

	mp := make(orb.MultiPoint, 0, len(coords))
	for _, c := range coords {
		mp = append(mp, orb.Point{c.Lon, c.Lat})
	}
	b := mp.Bound()
	bounds := domain.Bounds{
		MinLat: b.Min.Lat(),
		MinLon: b.Min.Lon(),
		MaxLat: b.Max.Lat(),
		MaxLon: b.Max.Lon(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == "" {
		return ErrNotMounted
	}
	s.sendLocked(domain.RenderCommand{Op: domain.OpFitBounds, Bounds: &bounds, Padding: padding})
	return nil
}

// FlyTo recenters the viewport on pos at the given zoom.
func (s *GeoSurface) FlyTo(pos domain.GeoPoint, zoom float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == "" {
		return ErrNotMounted
	}
	s.sendLocked(domain.RenderCommand{Op: domain.OpFlyTo, Position: &pos, Zoom: zoom})
	return nil
}

// ShowPopup opens a text popup at pos.
func (s *GeoSurface) ShowPopup(pos domain.GeoPoint, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == "" {
		return ErrNotMounted
	}
	s.sendLocked(domain.RenderCommand{Op: domain.OpShowPopup, Position: &pos, Text: text})
	return nil
}

// SetCursor changes the map canvas cursor. An empty cursor restores the default.
func (s *GeoSurface) SetCursor(cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == "" {
		return ErrNotMounted
	}
	s.sendLocked(domain.RenderCommand{Op: domain.OpSetCursor, Cursor: cursor})
	return nil
}

// On binds fn to events of the given type on a layer tier. Binding the same tier
// and event again replaces the previous handler.
func (s *GeoSurface) On(tierID, event string, fn InteractionHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == "" {
		return ErrNotMounted
	}
	byEvent, ok := s.handlers[tierID]
	if !ok {
		byEvent = make(map[string]InteractionHandler)
		s.handlers[tierID] = byEvent
	}
	byEvent[event] = fn
	return nil
}

// Dispatch routes a renderer event for handle h. Events for a stale handle are dropped.
func (s *GeoSurface) Dispatch(h SurfaceHandle, ev domain.InteractionEvent) {
	if ev.Type == domain.EventReady {
		s.MarkReady(h)
		return
	}

	s.mu.Lock()
	if h == "" || h != s.handle {
		s.mu.Unlock()
		return
	}
	var fn func()
	switch ev.Type {
	case domain.EventMarkerClick:
		if m, ok := s.markers[MarkerHandle(ev.Marker)]; ok && m.onClick != nil {
			fn = m.onClick
		}
	default:
		if handler, ok := s.handlers[ev.Layer][ev.Type]; ok {
			fn = func() { handler(ev) }
		}
	}
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Layers lists layers in creation order.
func (s *GeoSurface) Layers() []LayerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]LayerSnapshot, 0, len(s.order))
	for _, id := range s.order {
		l := s.layers[id]
		tiers := make([]string, 0, len(l.style.Tiers))
		for _, t := range l.style.Tiers {
			tiers = append(tiers, t.ID)
		}
		out = append(out, LayerSnapshot{ID: id, Tiers: tiers, Features: len(l.data.Features), Version: l.version})
	}
	return out
}

// LayerData returns the current data of a layer.
func (s *GeoSurface) LayerData(id string) (*geojson.FeatureCollection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.layers[id]
	if !ok {
		return nil, false
	}
	return l.data, true
}

// Markers lists the markers on the surface.
func (s *GeoSurface) Markers() []MarkerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]MarkerSnapshot, 0, len(s.markers))
	for _, m := range s.markers {
		out = append(out, MarkerSnapshot{Handle: m.handle, Position: m.pos, Style: m.style})
	}
	return out
}

func (s *GeoSurface) sendLocked(cmd domain.RenderCommand) {
	cmd.Surface = string(s.handle)
	metrics.RenderCommandsSent.WithLabelValues(string(cmd.Op)).Inc()
	if err := s.target.Send(cmd); err != nil {
		s.log.Warn("render command not delivered", "op", cmd.Op, "error", err)
	}
}
