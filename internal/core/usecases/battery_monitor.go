package usecases

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/ports"
	"github.com/samirrijal/voltroute/internal/pkg/metrics"
)

// End-of-trip battery thresholds, in percent.
const (
	InsufficientBatteryThreshold = 15.0
	LowBatteryThreshold          = 20.0
)

// DefaultInsufficientVisible is how long the insufficient-battery banner stays up.
const DefaultInsufficientVisible = 10 * time.Second

const (
	msgInsufficient  = "Battery may not be sufficient for this trip."
	hintInsufficient = "Consider visiting charging stations."
	msgLowBattery    = "Battery will be low on arrival."
	hintLowBattery   = "The nearest reachable station search has been filled in for you."
)

// BatteryPopulator receives the end-of-trip battery and start position when the
// low-battery threshold is crossed.
type BatteryPopulator interface {
	Populate(batteryPercent int, pos *domain.GeoPoint)
}

// BatteryMonitorConfig configures a BatteryMonitor. Zero values use defaults.
type BatteryMonitorConfig struct {
	Clock               func() time.Time
	InsufficientVisible time.Duration
	Publisher           ports.EventPublisher
	Logger              *slog.Logger
}

// BatteryMonitor raises and clears battery notifications for each new route
// result. Each kind is either absent or active with an expiry; expiry is checked
// against the clock on every read, so no timers are involved.
type BatteryMonitor struct {
	populator BatteryPopulator
	now       func() time.Time
	ttl       time.Duration
	publisher ports.EventPublisher
	log       *slog.Logger

	mu     sync.Mutex
	active map[domain.NotificationKind]*domain.Notification
	closed bool
	unsub  func()
}

// NewBatteryMonitor creates a monitor that follows state. populator may be nil.
func NewBatteryMonitor(state *RouteState, populator BatteryPopulator, cfg BatteryMonitorConfig) *BatteryMonitor {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.InsufficientVisible <= 0 {
		cfg.InsufficientVisible = DefaultInsufficientVisible
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	m := &BatteryMonitor{
		populator: populator,
		now:       cfg.Clock,
		ttl:       cfg.InsufficientVisible,
		publisher: cfg.Publisher,
		log:       cfg.Logger.With("component", "battery_monitor"),
		active:    make(map[domain.NotificationKind]*domain.Notification),
	}
	if state != nil {
		m.unsub = state.Subscribe(m.Evaluate)
	}
	return m
}

// Evaluate applies the thresholds to the preferred route of result. Kinds whose
// condition no longer holds are cleared; kinds raised again get a fresh expiry.
func (m *BatteryMonitor) Evaluate(result *domain.RouteResult) {
	pref, ok := result.Preferred()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if !ok {
		m.active = make(map[domain.NotificationKind]*domain.Notification)
		m.mu.Unlock()
		return
	}

	end := pref.EndBattery()
	now := m.now()
	var raised []domain.Notification

	if end < InsufficientBatteryThreshold {
		raised = append(raised, m.raiseLocked(domain.Notification{
			Kind:      domain.NotificationInsufficient,
			Message:   msgInsufficient,
			Hint:      hintInsufficient,
			Views:     []domain.View{domain.ViewRoute, domain.ViewStations},
			RaisedAt:  now,
			ExpiresAt: now.Add(m.ttl),
		}))
	} else {
		delete(m.active, domain.NotificationInsufficient)
	}

	low := end < LowBatteryThreshold
	if low {
		raised = append(raised, m.raiseLocked(domain.Notification{
			Kind:     domain.NotificationLowBattery,
			Message:  msgLowBattery,
			Hint:     hintLowBattery,
			Views:    []domain.View{domain.ViewRoute},
			RaisedAt: now,
		}))
	} else {
		delete(m.active, domain.NotificationLowBattery)
	}
	m.mu.Unlock()

	if low && m.populator != nil {
		var pos *domain.GeoPoint
		if first, ok := pref.Geometry.First(); ok {
			pos = &first
		}
		m.populator.Populate(int(math.Max(0, math.Round(end))), pos)
	}

	for _, n := range raised {
		metrics.NotificationsRaised.WithLabelValues(string(n.Kind)).Inc()
		if m.publisher != nil {
			if err := m.publisher.PublishNotification(context.Background(), n); err != nil {
				m.log.Warn("publish notification", "kind", n.Kind, "error", err)
			}
		}
	}
}

// raiseLocked activates n, replacing any live notification of the same kind.
func (m *BatteryMonitor) raiseLocked(n domain.Notification) domain.Notification {
	n.Visible = true
	m.active[n.Kind] = &n
	return n
}

// Active returns live notifications, dropping any that expired. Insufficient
// battery sorts first.
func (m *BatteryMonitor) Active() []domain.Notification {
	now := m.now()

	m.mu.Lock()
	expired := m.expireLocked(now)
	out := make([]domain.Notification, 0, len(m.active))
	for _, n := range m.active {
		out = append(out, *n)
	}
	m.mu.Unlock()

	m.recordExpired(expired)
	sort.Slice(out, func(i, j int) bool {
		return kindRank(out[i].Kind) < kindRank(out[j].Kind)
	})
	return out
}

// Sweep drops expired notifications and returns their kinds.
func (m *BatteryMonitor) Sweep() []domain.NotificationKind {
	now := m.now()

	m.mu.Lock()
	expired := m.expireLocked(now)
	m.mu.Unlock()

	m.recordExpired(expired)
	return expired
}

// SweepEvery calls Sweep on each tick until ctx is done.
func (m *BatteryMonitor) SweepEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (m *BatteryMonitor) expireLocked(now time.Time) []domain.NotificationKind {
	var expired []domain.NotificationKind
	for kind, n := range m.active {
		if n.Expired(now) {
			delete(m.active, kind)
			expired = append(expired, kind)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return kindRank(expired[i]) < kindRank(expired[j])
	})
	return expired
}

func (m *BatteryMonitor) recordExpired(kinds []domain.NotificationKind) {
	for _, kind := range kinds {
		m.log.Debug("notification expired", "kind", kind)
		metrics.NotificationsExpired.WithLabelValues(string(kind)).Inc()
	}
}

// Kind returns the live notification of kind, if any.
func (m *BatteryMonitor) Kind(kind domain.NotificationKind) (domain.Notification, bool) {
	for _, n := range m.Active() {
		if n.Kind == kind {
			return n, true
		}
	}
	return domain.Notification{}, false
}

// Dismiss clears a notification at the user's request.
func (m *BatteryMonitor) Dismiss(kind domain.NotificationKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[kind]; !ok {
		return false
	}
	delete(m.active, kind)
	return true
}

// Close clears all notifications and stops following the route state.
func (m *BatteryMonitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.active = make(map[domain.NotificationKind]*domain.Notification)
	m.mu.Unlock()

	if m.unsub != nil {
		m.unsub()
	}
}

func kindRank(k domain.NotificationKind) int {
	switch k {
	case domain.NotificationInsufficient:
		return 0
	case domain.NotificationLowBattery:
		return 1
	default:
		return 2
	}
}
