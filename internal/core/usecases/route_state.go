package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/ports"
)

// RouteSnapshot is a read-only view of the shared route state.
type RouteSnapshot struct {
	Result    *domain.RouteResult           `json:"result"`
	Preferred *domain.Route                 `json:"preferred,omitempty"`
	Metrics   *domain.SustainabilityMetrics `json:"metrics,omitempty"`
	Version   uint64                        `json:"version"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

// RouteState holds the latest optimization result and its derived metrics.
// A new result fully replaces the previous one; there is no history.
type RouteState struct {
	publisher ports.EventPublisher
	log       *slog.Logger
	now       func() time.Time

	mu      sync.RWMutex
	result  *domain.RouteResult
	metrics *domain.SustainabilityMetrics
	version uint64
	updated time.Time

	// notifyMu serializes Replace so subscribers observe results in order.
	notifyMu sync.Mutex
	subMu    sync.Mutex
	nextSub  int
	subs     []subscription
}

type subscription struct {
	id int
	fn func(*domain.RouteResult)
}

// NewRouteState creates an empty store. publisher may be nil.
func NewRouteState(publisher ports.EventPublisher, log *slog.Logger) *RouteState {
	if log == nil {
		log = slog.Default()
	}
	return &RouteState{publisher: publisher, log: log.With("component", "route_state"), now: time.Now}
}

// Replace swaps in result and notifies subscribers in registration order.
// A nil result clears the state.
func (s *RouteState) Replace(ctx context.Context, result *domain.RouteResult) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	var m *domain.SustainabilityMetrics
	if pref, ok := result.Preferred(); ok {
		derived := domain.MetricsFor(*pref)
		m = &derived
	}

	s.mu.Lock()
	s.result = result
	s.metrics = m
	s.version++
	s.updated = s.now()
	s.mu.Unlock()

	s.subMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(result)
	}

	if s.publisher != nil && result != nil {
		if err := s.publisher.PublishRouteUpdated(ctx, result, m); err != nil {
			s.log.Warn("publish route update", "error", err)
		}
	}
}

// Snapshot returns the current result and metrics.
func (s *RouteState) Snapshot() RouteSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := RouteSnapshot{
		Result:    s.result,
		Metrics:   s.metrics,
		Version:   s.version,
		UpdatedAt: s.updated,
	}
	if pref, ok := s.result.Preferred(); ok {
		snap.Preferred = pref
	}
	return snap
}

// Current returns the latest result, or nil.
func (s *RouteState) Current() *domain.RouteResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// Subscribe registers fn for every future Replace. The returned func unsubscribes.
func (s *RouteState) Subscribe(fn func(*domain.RouteResult)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}
