package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/usecases"
	"github.com/samirrijal/voltroute/internal/pkg/metrics"
)

var testStations = []domain.Station{
	{ID: "ST-1", Location: nyc, Rating: 4.5, CostPerKWh: 0.32, ChargerClass: "DC Fast"},
	{ID: "ST-2", Location: hart, Rating: 3.9, CostPerKWh: 0.28},
}

func TestStationLayerSync_LoadsAfterReady(t *testing.T) {
	s := usecases.NewGeoSurface(nil)
	cat := &mockCatalogue{getFn: func(ctx context.Context) ([]domain.Station, error) {
		return testStations, nil
	}}
	ss := usecases.NewStationLayerSync(s, cat, time.Second, nil)

	h, _ := s.Mount(newTarget("browser-1"))
	require.NoError(t, ss.Attach(h))

	assert.Equal(t, 0, cat.callCount(), "catalogue must wait for readiness")
	assert.True(t, ss.Status().Loading)

	s.MarkReady(h)
	ss.Wait()

	status := ss.Status()
	assert.False(t, status.Loading)
	assert.True(t, status.Loaded)
	assert.Equal(t, 2, status.Count)
	assert.Empty(t, status.Error)

	layers := s.Layers()
	require.Len(t, layers, 1)
	assert.Equal(t, usecases.StationLayerID, layers[0].ID)
	assert.Equal(t, []string{usecases.StationHaloTierID, usecases.StationPointTier}, layers[0].Tiers)
	assert.Equal(t, 2, layers[0].Features)

	data, _ := s.LayerData(usecases.StationLayerID)
	assert.Equal(t, "ST-1", data.Features[0].Properties["station_id"])
	assert.Equal(t, "DC Fast", data.Features[0].Properties["charger_class"])
}

func TestStationLayerSync_LoadsOncePerLifetime(t *testing.T) {
	s := usecases.NewGeoSurface(nil)
	cat := &mockCatalogue{getFn: func(ctx context.Context) ([]domain.Station, error) {
		return testStations, nil
	}}
	ss := usecases.NewStationLayerSync(s, cat, time.Second, nil)

	h, _ := s.Mount(newTarget("browser-1"))
	require.NoError(t, ss.Attach(h))
	s.MarkReady(h)
	s.MarkReady(h)
	ss.Wait()

	// A second attach to the same ready context does not refetch.
	require.NoError(t, ss.Attach(h))
	ss.Wait()

	assert.Equal(t, 1, cat.callCount())
	assert.False(t, ss.Status().Loading)
}

func TestStationLayerSync_TransportFailureLeavesMapUsable(t *testing.T) {
	s := usecases.NewGeoSurface(nil)
	cat := &mockCatalogue{getFn: func(ctx context.Context) ([]domain.Station, error) {
		return nil, &domain.TransportError{Op: "get stations", Err: errors.New("connection refused")}
	}}
	ss := usecases.NewStationLayerSync(s, cat, time.Second, nil)
	state := usecases.NewRouteState(nil, nil)
	rs := usecases.NewRouteLayerSync(s, state, 0, nil)
	defer rs.Close()

	view := &usecases.MapView{
		Surface:  s,
		Routes:   rs,
		Stations: ss,
		Resolver: usecases.NewReachabilityResolver(&mockReachability{}, s, nil, 0, nil),
	}
	h, err := view.Attach(newTarget("browser-1"))
	require.NoError(t, err)
	view.Dispatch(h, domain.InteractionEvent{Type: domain.EventReady})
	ss.Wait()

	status := ss.Status()
	assert.False(t, status.Loading)
	assert.False(t, status.Loaded)
	assert.Contains(t, status.Error, "connection refused")
	_, ok := s.LayerData(usecases.StationLayerID)
	assert.False(t, ok, "no station layer on failure")

	state.Replace(context.Background(), &domain.RouteResult{Routes: []domain.Route{routeWith(85, 10, line(nyc, boston))}})
	_, ok = s.LayerData(usecases.RouteLayerID)
	assert.True(t, ok, "route rendering is unaffected")
}

func TestStationLayerSync_EmptyCatalogueIsNotAnError(t *testing.T) {
	s := usecases.NewGeoSurface(nil)
	ss := usecases.NewStationLayerSync(s, &mockCatalogue{}, time.Second, nil)

	h, _ := s.Mount(newTarget("browser-1"))
	require.NoError(t, ss.Attach(h))
	s.MarkReady(h)
	ss.Wait()

	status := ss.Status()
	assert.True(t, status.Loaded)
	assert.Equal(t, 0, status.Count)
	assert.Empty(t, status.Error)
}

func TestStationLayerSync_DiscardsLateCatalogue(t *testing.T) {
	s := usecases.NewGeoSurface(nil)
	release := make(chan struct{})
	cat := &mockCatalogue{getFn: func(ctx context.Context) ([]domain.Station, error) {
		<-release
		return testStations, nil
	}}
	ss := usecases.NewStationLayerSync(s, cat, time.Second, nil)

	h, _ := s.Mount(newTarget("browser-1"))
	require.NoError(t, ss.Attach(h))
	s.MarkReady(h)

	ss.Detach()
	s.Unmount(h)
	close(release)
	ss.Wait()

	assert.Empty(t, s.Layers())
	assert.False(t, ss.Status().Loaded)
}

func TestStationLayerSync_LateCatalogueKeepsCurrentLoading(t *testing.T) {
	s := usecases.NewGeoSurface(nil)
	first, second := make(chan struct{}), make(chan struct{})
	gates := make(chan chan struct{}, 2)
	gates <- first
	gates <- second
	cat := &mockCatalogue{getFn: func(ctx context.Context) ([]domain.Station, error) {
		<-<-gates
		return testStations, nil
	}}
	ss := usecases.NewStationLayerSync(s, cat, time.Second, nil)
	discarded := metrics.CatalogueFetches.WithLabelValues("discarded")

	h1, _ := s.Mount(newTarget("browser-1"))
	require.NoError(t, ss.Attach(h1))
	s.MarkReady(h1)
	require.Eventually(t, func() bool { return cat.callCount() == 1 }, time.Second, time.Millisecond)

	ss.Detach()
	s.Unmount(h1)

	h2, _ := s.Mount(newTarget("browser-2"))
	require.NoError(t, ss.Attach(h2))
	s.MarkReady(h2)
	require.Eventually(t, func() bool { return cat.callCount() == 2 }, time.Second, time.Millisecond)

	before := testutil.ToFloat64(discarded)
	close(first)
	require.Eventually(t, func() bool { return testutil.ToFloat64(discarded) > before }, time.Second, time.Millisecond)

	status := ss.Status()
	assert.True(t, status.Loading)
	assert.False(t, status.Loaded)

	close(second)
	ss.Wait()

	status = ss.Status()
	assert.False(t, status.Loading)
	assert.True(t, status.Loaded)
	assert.Equal(t, 2, status.Count)
}

func TestStationLayerSync_Interactions(t *testing.T) {
	s := usecases.NewGeoSurface(nil)
	target := newTarget("browser-1")
	cat := &mockCatalogue{getFn: func(ctx context.Context) ([]domain.Station, error) {
		return testStations, nil
	}}
	ss := usecases.NewStationLayerSync(s, cat, time.Second, nil)

	h, _ := s.Mount(target)
	require.NoError(t, ss.Attach(h))
	s.MarkReady(h)
	ss.Wait()
	target.reset()

	click := domain.InteractionEvent{
		Type:       domain.EventClick,
		Layer:      usecases.StationPointTier,
		Properties: map[string]any{"station_id": "ST-1"},
	}
	s.Dispatch(h, click)

	popup, ok := target.last(domain.OpShowPopup)
	require.True(t, ok)
	assert.Equal(t, usecases.StationPopupText(testStations[0]), popup.Text)
	assert.Equal(t, nyc, *popup.Position)

	// Only the point tier is interactive.
	target.reset()
	click.Layer = usecases.StationHaloTierID
	s.Dispatch(h, click)
	assert.Empty(t, target.commands())

	s.Dispatch(h, domain.InteractionEvent{Type: domain.EventMouseEnter, Layer: usecases.StationPointTier})
	s.Dispatch(h, domain.InteractionEvent{Type: domain.EventMouseLeave, Layer: usecases.StationPointTier})
	cmds := target.commands()
	require.Len(t, cmds, 2)
	assert.Equal(t, "pointer", cmds[0].Cursor)
	assert.Equal(t, "", cmds[1].Cursor)
}

func TestStationPopupText(t *testing.T) {
	got := usecases.StationPopupText(domain.Station{ID: "A9", Rating: 4.5, CostPerKWh: 0.3})
	assert.Equal(t, "Station A9\nRating: 4.5 / 5\nCost: $0.30/kWh", got)
}
