package telemetry

// Span attribute keys used by instrumented upstream clients.
const (
	AttrUpstreamOp    = "voltroute.upstream.op"
	AttrHTTPStatus    = "http.status_code"
	AttrStationCount  = "voltroute.stations.count"
	AttrRouteCount    = "voltroute.routes.count"
	AttrRangeBudgetKm = "voltroute.range_budget_km"
	AttrStationID     = "voltroute.station.id"
)
