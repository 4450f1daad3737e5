package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/samirrijal/voltroute/internal/core/domain"
)

// --- Recording render target ---

type recordingTarget struct {
	mu       sync.Mutex
	id       string
	detached bool
	cmds     []domain.RenderCommand
}

func newTarget(id string) *recordingTarget {
	return &recordingTarget{id: id}
}

func (t *recordingTarget) ID() string { return t.id }

func (t *recordingTarget) Attached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.detached
}

func (t *recordingTarget) Send(cmd domain.RenderCommand) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cmds = append(t.cmds, cmd)
	return nil
}

func (t *recordingTarget) commands() []domain.RenderCommand {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.RenderCommand, len(t.cmds))
	copy(out, t.cmds)
	return out
}

func (t *recordingTarget) ops() []domain.RenderOp {
	var ops []domain.RenderOp
	for _, c := range t.commands() {
		ops = append(ops, c.Op)
	}
	return ops
}

func (t *recordingTarget) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cmds = nil
}

func (t *recordingTarget) last(op domain.RenderOp) (domain.RenderCommand, bool) {
	cmds := t.commands()
	for i := len(cmds) - 1; i >= 0; i-- {
		if cmds[i].Op == op {
			return cmds[i], true
		}
	}
	return domain.RenderCommand{}, false
}

// --- Fake clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Mock services ---

type mockCatalogue struct {
	mu    sync.Mutex
	calls int
	getFn func(ctx context.Context) ([]domain.Station, error)
}

func (m *mockCatalogue) GetStationCatalogue(ctx context.Context) ([]domain.Station, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.getFn != nil {
		return m.getFn(ctx)
	}
	return nil, nil
}

func (m *mockCatalogue) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockReachability struct {
	findFn func(ctx context.Context, q domain.ReachabilityQuery) (*domain.BestStationResult, error)
}

func (m *mockReachability) FindNearestReachableStation(ctx context.Context, q domain.ReachabilityQuery) (*domain.BestStationResult, error) {
	if m.findFn != nil {
		return m.findFn(ctx, q)
	}
	return nil, domain.ErrNotFound
}

type mockOptimizer struct {
	optimizeFn func(ctx context.Context, p domain.TripParameters) (*domain.RouteResult, error)
}

func (m *mockOptimizer) OptimizeRoute(ctx context.Context, p domain.TripParameters) (*domain.RouteResult, error) {
	if m.optimizeFn != nil {
		return m.optimizeFn(ctx, p)
	}
	return &domain.RouteResult{}, nil
}

type mockProfiles struct {
	getFn  func(ctx context.Context, userID string) (*domain.Profile, error)
	saveFn func(ctx context.Context, p *domain.Profile) error
}

func (m *mockProfiles) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockProfiles) SaveProfile(ctx context.Context, p *domain.Profile) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, p)
	}
	return nil
}

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type recordingPublisher struct {
	mu            sync.Mutex
	routes        int
	notifications []domain.Notification
	best          []*domain.BestStationResult
}

func (p *recordingPublisher) PublishRouteUpdated(ctx context.Context, r *domain.RouteResult, m *domain.SustainabilityMetrics) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes++
	return nil
}

func (p *recordingPublisher) PublishNotification(ctx context.Context, n domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, n)
	return nil
}

func (p *recordingPublisher) PublishBestStation(ctx context.Context, r *domain.BestStationResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.best = append(p.best, r)
	return nil
}

// --- Fixtures ---

func f64(v float64) *float64 { return &v }

func line(points ...domain.GeoPoint) domain.GeoLineString {
	return domain.GeoLineString{Coordinates: points}
}

func routeWith(start, usage float64, geometry domain.GeoLineString) domain.Route {
	return domain.Route{
		DistanceKm:          215,
		DurationMin:         230,
		EnergyConsumedKWh:   40,
		BatteryUsagePercent: f64(usage),
		StartBattery:        f64(start),
		GreenScore:          72,
		Feasible:            true,
		Geometry:            geometry,
	}
}

var (
	nyc    = domain.GeoPoint{Lat: 40.7128, Lon: -74.0060}
	hart   = domain.GeoPoint{Lat: 41.7658, Lon: -72.6734}
	boston = domain.GeoPoint{Lat: 42.3601, Lon: -71.0589}
)
