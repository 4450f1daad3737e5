package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voltroute",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voltroute",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voltroute",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Map surface metrics
	SurfacesMounted = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "voltroute",
		Subsystem: "surface",
		Name:      "mounted",
		Help:      "Map surfaces currently mounted (0 or 1 per process)",
	})

	RenderCommandsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voltroute",
		Subsystem: "surface",
		Name:      "render_commands_total",
		Help:      "Render commands sent to the map container, by op",
	}, []string{"op"})

	DeferredMutations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voltroute",
		Subsystem: "surface",
		Name:      "deferred_mutations_total",
		Help:      "Layer mutations queued until the surface became ready",
	})

	// Domain metrics
	CatalogueFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voltroute",
		Subsystem: "stations",
		Name:      "catalogue_fetches_total",
		Help:      "Station catalogue loads by outcome",
	}, []string{"outcome"})

	CatalogueFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "voltroute",
		Subsystem: "stations",
		Name:      "catalogue_fetch_duration_seconds",
		Help:      "Duration of station catalogue loads",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	ReachabilityQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voltroute",
		Subsystem: "reachability",
		Name:      "queries_total",
		Help:      "Nearest-reachable-station queries by outcome",
	}, []string{"outcome"})

	StaleResultsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voltroute",
		Subsystem: "reachability",
		Name:      "stale_results_discarded_total",
		Help:      "Responses dropped because a newer query superseded them",
	})

	NotificationsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voltroute",
		Subsystem: "battery",
		Name:      "notifications_raised_total",
		Help:      "Battery notifications raised, by kind",
	}, []string{"kind"})

	NotificationsExpired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voltroute",
		Subsystem: "battery",
		Name:      "notifications_expired_total",
		Help:      "Battery notifications cleared by expiry, by kind",
	}, []string{"kind"})

	RouteResultsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voltroute",
		Subsystem: "routes",
		Name:      "results_received_total",
		Help:      "Route optimization results applied to the shared state, by source",
	}, []string{"source"})

	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voltroute",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to the EV routing backend",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation", "status"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "voltroute",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voltroute",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voltroute",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "voltroute",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "voltroute",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "voltroute",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat exported as gauges.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool counters into the db gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}
