package usecases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/usecases"
)

func TestRouteState_NotifiesSubscribersInOrder(t *testing.T) {
	pub := &recordingPublisher{}
	state := usecases.NewRouteState(pub, nil)

	var order []string
	state.Subscribe(func(*domain.RouteResult) { order = append(order, "first") })
	unsub := state.Subscribe(func(*domain.RouteResult) { order = append(order, "second") })
	state.Subscribe(func(*domain.RouteResult) { order = append(order, "third") })

	state.Replace(context.Background(), &domain.RouteResult{Routes: []domain.Route{routeWith(85, 10, line(nyc, boston))}})
	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, 1, pub.routes)

	order = nil
	unsub()
	state.Replace(context.Background(), &domain.RouteResult{})
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestRouteState_SnapshotDerivesMetrics(t *testing.T) {
	state := usecases.NewRouteState(nil, nil)

	r := routeWith(85, 30, line(nyc, boston))
	r.EnergyConsumedKWh = 10
	r.GreenScore = 72
	state.Replace(context.Background(), &domain.RouteResult{Routes: []domain.Route{r}})

	snap := state.Snapshot()
	require.NotNil(t, snap.Preferred)
	require.NotNil(t, snap.Metrics)
	assert.Equal(t, uint64(1), snap.Version)
	assert.InDelta(t, 1.5, snap.Metrics.EnergySavedKWh, 1e-9)
	assert.InDelta(t, 0.75, snap.Metrics.CO2SavedKg, 1e-9)
	assert.Equal(t, 4, snap.Metrics.EcoLevel)
	assert.InDelta(t, 55.0, snap.Metrics.EndBattery, 1e-9)
}

func TestRouteState_ClearOnNil(t *testing.T) {
	pub := &recordingPublisher{}
	state := usecases.NewRouteState(pub, nil)

	state.Replace(context.Background(), &domain.RouteResult{Routes: []domain.Route{routeWith(85, 10, line(nyc, boston))}})
	state.Replace(context.Background(), nil)

	snap := state.Snapshot()
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.Metrics)
	assert.Nil(t, snap.Preferred)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, 1, pub.routes, "clearing is not published")
}

func TestMetricsFor_EcoLevelCapsAtFive(t *testing.T) {
	tests := []struct {
		green float64
		want  int
	}{
		{0, 1},
		{19.9, 1},
		{20, 2},
		{79, 4},
		{80, 5},
		{100, 5},
	}
	for _, tt := range tests {
		got := domain.MetricsFor(domain.Route{GreenScore: tt.green})
		assert.Equal(t, tt.want, got.EcoLevel, "green score %v", tt.green)
	}
}
