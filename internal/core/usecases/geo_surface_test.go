package usecases_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/usecases"
)

var testStyle = domain.LayerStyle{Tiers: []domain.LayerTier{
	{ID: "pts-halo", Type: "circle"},
	{ID: "pts-point", Type: "circle", Interactive: true},
}}

func pointsFC(points ...orb.Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range points {
		fc.Append(geojson.NewFeature(p))
	}
	return fc
}

func mountReady(t *testing.T) (*usecases.GeoSurface, *recordingTarget, usecases.SurfaceHandle) {
	t.Helper()
	s := usecases.NewGeoSurface(nil)
	target := newTarget("browser-1")
	h, ok := s.Mount(target)
	if !ok || h == "" {
		t.Fatalf("mount failed")
	}
	s.MarkReady(h)
	target.reset()
	return s, target, h
}

func TestGeoSurface_MountIsIdempotent(t *testing.T) {
	s := usecases.NewGeoSurface(nil)
	target := newTarget("browser-1")

	h1, created1 := s.Mount(target)
	h2, created2 := s.Mount(target)

	if !created1 || created2 {
		t.Fatalf("expected only first mount to create a context, got %v %v", created1, created2)
	}
	if h1 != h2 {
		t.Errorf("expected same handle, got %s and %s", h1, h2)
	}
	if diff := cmp.Diff([]domain.RenderOp{domain.OpMount}, target.ops()); diff != "" {
		t.Errorf("render ops mismatch (-want +got):\n%s", diff)
	}
}

func TestGeoSurface_MountDetachedContainerIsSilent(t *testing.T) {
	s := usecases.NewGeoSurface(nil)
	target := newTarget("browser-1")
	target.detached = true

	h, created := s.Mount(target)
	if created || h != "" {
		t.Fatalf("expected no mount, got %q %v", h, created)
	}
	if len(target.commands()) != 0 {
		t.Errorf("expected no commands, got %v", target.ops())
	}
}

func TestGeoSurface_SecondContainerIgnored(t *testing.T) {
	s := usecases.NewGeoSurface(nil)
	first := newTarget("browser-1")
	second := newTarget("browser-2")

	h, _ := s.Mount(first)
	other, created := s.Mount(second)

	if created || other != "" {
		t.Fatalf("expected second container to be refused, got %q %v", other, created)
	}
	if !s.Mounted(h) {
		t.Error("original context should still be mounted")
	}
	if len(second.commands()) != 0 {
		t.Error("second container must not receive commands")
	}
}

func TestGeoSurface_MutationsDeferredUntilReady(t *testing.T) {
	s := usecases.NewGeoSurface(nil)
	target := newTarget("browser-1")
	h, _ := s.Mount(target)
	target.reset()

	if err := s.UpsertLayer("a", pointsFC(orb.Point{1, 1}), testStyle); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := s.UpsertLayer("b", pointsFC(orb.Point{2, 2}), domain.LayerStyle{Tiers: []domain.LayerTier{{ID: "b"}}}); err != nil {
		t.Fatalf("upsert b: %v", err)
	}
	if err := s.UpsertLayer("a", pointsFC(orb.Point{3, 3}, orb.Point{4, 4}), testStyle); err != nil {
		t.Fatalf("upsert a again: %v", err)
	}

	if got := len(target.commands()); got != 0 {
		t.Fatalf("expected nothing sent before ready, got %v", target.ops())
	}
	if s.Pending() != 3 {
		t.Errorf("expected 3 pending mutations, got %d", s.Pending())
	}

	s.MarkReady(h)

	want := []domain.RenderOp{
		domain.OpAddSource, domain.OpAddLayer, domain.OpAddLayer,
		domain.OpAddSource, domain.OpAddLayer,
		domain.OpSetData,
	}
	if diff := cmp.Diff(want, target.ops()); diff != "" {
		t.Errorf("replay order mismatch (-want +got):\n%s", diff)
	}
	if s.Pending() != 0 {
		t.Errorf("queue should be drained, got %d", s.Pending())
	}

	// Readiness fires once.
	target.reset()
	s.MarkReady(h)
	if len(target.commands()) != 0 {
		t.Errorf("second ready signal must be ignored, got %v", target.ops())
	}
}

func TestGeoSurface_UpsertSameIDReplacesDataOnly(t *testing.T) {
	s, target, _ := mountReady(t)

	first := pointsFC(orb.Point{1, 1})
	second := pointsFC(orb.Point{5, 5}, orb.Point{6, 6})

	_ = s.UpsertLayer("pts", first, testStyle)
	_ = s.UpsertLayer("pts", second, testStyle)

	layers := s.Layers()
	if len(layers) != 1 {
		t.Fatalf("expected exactly one layer, got %d", len(layers))
	}
	if layers[0].Features != 2 || layers[0].Version != 2 {
		t.Errorf("expected second dataset at version 2, got %+v", layers[0])
	}
	data, _ := s.LayerData("pts")
	if data != second {
		t.Error("layer should hold the second dataset")
	}

	want := []domain.RenderOp{domain.OpAddSource, domain.OpAddLayer, domain.OpAddLayer, domain.OpSetData}
	if diff := cmp.Diff(want, target.ops()); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestGeoSurface_UnmountRemovesEverythingAndIsIdempotent(t *testing.T) {
	s, target, h := mountReady(t)

	_ = s.UpsertLayer("pts", pointsFC(orb.Point{1, 1}), testStyle)
	if _, err := s.AddMarker(nyc, domain.MarkerStyle{Kind: "x"}, nil); err != nil {
		t.Fatalf("add marker: %v", err)
	}
	target.reset()

	s.Unmount(h)

	want := []domain.RenderOp{
		domain.OpRemoveMarker,
		domain.OpRemoveLayer, domain.OpRemoveLayer, domain.OpRemoveSource,
		domain.OpUnmount,
	}
	if diff := cmp.Diff(want, target.ops()); diff != "" {
		t.Errorf("teardown mismatch (-want +got):\n%s", diff)
	}
	if len(s.Layers()) != 0 || len(s.Markers()) != 0 {
		t.Error("expected no leaked layers or markers")
	}
	if s.Mounted(h) {
		t.Error("handle should no longer be mounted")
	}

	target.reset()
	s.Unmount(h)
	s.Unmount("")
	if len(target.commands()) != 0 {
		t.Errorf("repeated unmount must be a no-op, got %v", target.ops())
	}
}

func TestGeoSurface_RemountAfterUnmount(t *testing.T) {
	s, _, h := mountReady(t)
	s.Unmount(h)

	h2, created := s.Mount(newTarget("browser-2"))
	if !created || h2 == h {
		t.Fatalf("expected a fresh context, got %q %v", h2, created)
	}
	if s.Ready() {
		t.Error("new context must wait for its own ready signal")
	}
}

func TestGeoSurface_FitTo(t *testing.T) {
	s, target, _ := mountReady(t)

	if err := s.FitTo(nil, 40); err != nil {
		t.Fatalf("empty fit: %v", err)
	}
	if len(target.commands()) != 0 {
		t.Fatal("empty input must not move the viewport")
	}

	_ = s.FitTo([]domain.GeoPoint{nyc, boston, hart}, 40)

	cmd, ok := target.last(domain.OpFitBounds)
	if !ok {
		t.Fatal("expected fit_bounds")
	}
	want := domain.Bounds{MinLat: nyc.Lat, MinLon: nyc.Lon, MaxLat: boston.Lat, MaxLon: boston.Lon}
	if diff := cmp.Diff(want, *cmd.Bounds); diff != "" {
		t.Errorf("bounds mismatch (-want +got):\n%s", diff)
	}
	if cmd.Padding != 40 {
		t.Errorf("expected padding 40, got %d", cmd.Padding)
	}
}

func TestGeoSurface_NotMounted(t *testing.T) {
	s := usecases.NewGeoSurface(nil)

	if err := s.UpsertLayer("x", nil, testStyle); !errors.Is(err, usecases.ErrNotMounted) {
		t.Errorf("expected ErrNotMounted, got %v", err)
	}
	if _, err := s.AddMarker(nyc, domain.MarkerStyle{}, nil); !errors.Is(err, usecases.ErrNotMounted) {
		t.Errorf("expected ErrNotMounted, got %v", err)
	}
	if err := s.OnReady(func(usecases.SurfaceHandle) {}); !errors.Is(err, usecases.ErrNotMounted) {
		t.Errorf("expected ErrNotMounted, got %v", err)
	}
}

func TestGeoSurface_AddMarkerRejectsInvalidCoordinate(t *testing.T) {
	s, _, _ := mountReady(t)

	_, err := s.AddMarker(domain.GeoPoint{Lat: 91, Lon: 0}, domain.MarkerStyle{}, nil)
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(s.Markers()) != 0 {
		t.Error("invalid marker must not be added")
	}
}

func TestGeoSurface_DispatchRoutesToTierHandlers(t *testing.T) {
	s, _, h := mountReady(t)
	_ = s.UpsertLayer("pts", pointsFC(orb.Point{1, 1}), testStyle)

	var clicks int
	_ = s.On("pts-point", domain.EventClick, func(domain.InteractionEvent) { clicks++ })

	s.Dispatch(h, domain.InteractionEvent{Type: domain.EventClick, Layer: "pts-point"})
	s.Dispatch(h, domain.InteractionEvent{Type: domain.EventClick, Layer: "pts-halo"})
	s.Dispatch("stale", domain.InteractionEvent{Type: domain.EventClick, Layer: "pts-point"})

	if clicks != 1 {
		t.Fatalf("expected 1 click, got %d", clicks)
	}

	_ = s.RemoveLayer("pts")
	s.Dispatch(h, domain.InteractionEvent{Type: domain.EventClick, Layer: "pts-point"})
	if clicks != 1 {
		t.Error("handlers must be dropped with their layer")
	}
}

func TestGeoSurface_MarkerClickAndReadyEvent(t *testing.T) {
	s := usecases.NewGeoSurface(nil)
	h, _ := s.Mount(newTarget("browser-1"))

	var readyCalls int
	_ = s.OnReady(func(usecases.SurfaceHandle) { readyCalls++ })

	s.Dispatch(h, domain.InteractionEvent{Type: domain.EventReady})
	s.Dispatch(h, domain.InteractionEvent{Type: domain.EventReady})
	if readyCalls != 1 {
		t.Fatalf("ready callback should run once, got %d", readyCalls)
	}

	var clicked bool
	mh, _ := s.AddMarker(nyc, domain.MarkerStyle{}, func() { clicked = true })
	s.Dispatch(h, domain.InteractionEvent{Type: domain.EventMarkerClick, Marker: string(mh)})
	if !clicked {
		t.Error("marker click not delivered")
	}
}
