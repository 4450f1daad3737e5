package usecases

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/ports"
	"github.com/samirrijal/voltroute/internal/pkg/metrics"
)

// ResolverState is the lifecycle state of a reachability query.
type ResolverState string

const (
	ResolverIdle           ResolverState = "idle"
	ResolverQuerying       ResolverState = "querying"
	ResolverResolved       ResolverState = "resolved"
	ResolverUnreachable    ResolverState = "unreachable"
	ResolverTransportError ResolverState = "transport_error"
)

// User-facing messages for failed queries.
const (
	MsgNoReachableStation = "No reachable station found."
	MsgServiceUnreachable = "Unable to reach the charging service. Please try again."
)

// DefaultHighlightZoom is tighter than the catalogue overview.
const DefaultHighlightZoom = 13.0

var highlightMarkerStyle = domain.MarkerStyle{Kind: "best_station", Color: "#f59e0b"}

// ReachabilitySnapshot is the read-only state of the resolver.
type ReachabilitySnapshot struct {
	State         ResolverState             `json:"state"`
	Inputs        domain.ReachabilityInputs `json:"inputs"`
	RangeBudgetKm *float64                  `json:"range_budget_km,omitempty"`
	Result        *domain.BestStationResult `json:"result,omitempty"`
	Message       string                    `json:"message,omitempty"`
	Token         uint64                    `json:"token"`
}

// ReachabilityResolver finds the nearest station reachable on the current charge
// and highlights it. The latest submission always wins: every submission takes a
// new token and a response is applied only if its token is still current.
type ReachabilityResolver struct {
	service   ports.ReachabilityService
	surface   *GeoSurface
	publisher ports.EventPublisher
	zoom      float64
	log       *slog.Logger

	mu        sync.Mutex
	inputs    domain.ReachabilityInputs
	state     ResolverState
	token     uint64
	budget    *float64
	result    *domain.BestStationResult
	message   string
	handle    SurfaceHandle
	highlight MarkerHandle
}

// NewReachabilityResolver creates an idle resolver. publisher may be nil.
func NewReachabilityResolver(service ports.ReachabilityService, surface *GeoSurface, publisher ports.EventPublisher, zoom float64, log *slog.Logger) *ReachabilityResolver {
	if zoom <= 0 {
		zoom = DefaultHighlightZoom
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReachabilityResolver{
		service:   service,
		surface:   surface,
		publisher: publisher,
		zoom:      zoom,
		log:       log.With("component", "reachability"),
		state:     ResolverIdle,
		inputs: domain.ReachabilityInputs{
			CapacityKWh: formatFloat(domain.DefaultCapacityKWh),
			Efficiency:  formatFloat(domain.DefaultEfficiencyKmPerK),
		},
	}
}

// SetInputs replaces the form values.
func (r *ReachabilityResolver) SetInputs(in domain.ReachabilityInputs) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = in
}

// Inputs returns the current form values.
func (r *ReachabilityResolver) Inputs() domain.ReachabilityInputs {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inputs
}

// Populate fills the battery field and, when pos is non-nil, the position fields.
func (r *ReachabilityResolver) Populate(batteryPercent int, pos *domain.GeoPoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inputs.BatteryPercent = strconv.Itoa(batteryPercent)
	if pos != nil {
		r.inputs.Latitude = formatFloat(pos.Lat)
		r.inputs.Longitude = formatFloat(pos.Lon)
	}
}

// Submit validates the current inputs and queries the service. Invalid input
// returns a *domain.ValidationError without touching state. A response that was
// superseded by a later Submit returns domain.ErrStaleResult and changes nothing.
func (r *ReachabilityResolver) Submit(ctx context.Context) (*domain.BestStationResult, error) {
	r.mu.Lock()
	q, err := r.inputs.Parse()
	if err != nil {
		r.mu.Unlock()
		metrics.ReachabilityQueries.WithLabelValues("invalid").Inc()
		return nil, err
	}

	budget := q.RangeBudgetKm()
	r.token++
	token := r.token
	r.removeHighlightLocked()
	r.state = ResolverQuerying
	r.budget = &budget
	r.result = nil
	r.message = ""
	r.mu.Unlock()

	// Raw inputs go to the service; it owns the reachability decision.
	res, err := r.service.FindNearestReachableStation(ctx, q)

	r.mu.Lock()
	if token != r.token {
		r.mu.Unlock()
		metrics.StaleResultsDiscarded.Inc()
		r.log.Debug("discarding stale reachability response", "token", token)
		return nil, domain.ErrStaleResult
	}

	switch {
	case err == nil && res != nil:
		out := *res
		out.Query = q.Position
		out.RemainingRangeKm = math.Max(0, budget-out.DistanceKm)
		r.result = &out
		r.state = ResolverResolved
		r.showHighlightLocked(out)
		r.mu.Unlock()

		metrics.ReachabilityQueries.WithLabelValues("resolved").Inc()
		if r.publisher != nil {
			if perr := r.publisher.PublishBestStation(ctx, &out); perr != nil {
				r.log.Warn("publish best station", "error", perr)
			}
		}
		return &out, nil

	case domain.IsNotFound(err) || (err == nil && res == nil):
		r.state = ResolverUnreachable
		r.message = MsgNoReachableStation
		r.mu.Unlock()
		metrics.ReachabilityQueries.WithLabelValues("unreachable").Inc()
		if err == nil {
			err = domain.ErrNotFound
		}
		return nil, err

	default:
		r.state = ResolverTransportError
		r.message = MsgServiceUnreachable
		r.mu.Unlock()
		metrics.ReachabilityQueries.WithLabelValues("transport_error").Inc()
		r.log.Error("reachability query failed", "error", err)
		if !domain.IsTransport(err) {
			err = &domain.TransportError{Op: "find nearest reachable station", Err: err}
		}
		return nil, err
	}
}

// Snapshot returns the current state.
func (r *ReachabilityResolver) Snapshot() ReachabilitySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return ReachabilitySnapshot{
		State:         r.state,
		Inputs:        r.inputs,
		RangeBudgetKm: r.budget,
		Result:        r.result,
		Message:       r.message,
		Token:         r.token,
	}
}

// Reset returns a terminal resolver to idle and clears its highlight.
func (r *ReachabilityResolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.token++
	r.removeHighlightLocked()
	r.state = ResolverIdle
	r.budget = nil
	r.result = nil
	r.message = ""
}

// AttachSurface binds the highlight marker to h and redraws any current result.
func (r *ReachabilityResolver) AttachSurface(h SurfaceHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handle = h
	r.highlight = ""
	if r.result != nil {
		r.showHighlightLocked(*r.result)
	}
}

// DetachSurface removes the highlight. Completions arriving afterwards update
// state but never touch the surface.
func (r *ReachabilityResolver) DetachSurface() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeHighlightLocked()
	r.handle = ""
}

func (r *ReachabilityResolver) showHighlightLocked(res domain.BestStationResult) {
	if r.handle == "" || !r.surface.Mounted(r.handle) {
		return
	}
	r.removeHighlightLocked()

	style := highlightMarkerStyle
	style.Popup = StationPopupText(res.Station)
	mh, err := r.surface.AddMarker(res.Station.Location, style, nil)
	if err != nil {
		r.log.Warn("add highlight marker", "error", err)
		return
	}
	r.highlight = mh
	_ = r.surface.FlyTo(res.Station.Location, r.zoom)
}

func (r *ReachabilityResolver) removeHighlightLocked() {
	if r.highlight == "" {
		return
	}
	r.surface.RemoveMarker(r.highlight)
	r.highlight = ""
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
