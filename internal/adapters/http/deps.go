package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/voltroute/internal/adapters/postgres"
	"github.com/samirrijal/voltroute/internal/adapters/valkey"
	"github.com/samirrijal/voltroute/internal/core/ports"
	"github.com/samirrijal/voltroute/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers. NATS, DB and Cache
// are optional.
type Dependencies struct {
	Trips        *usecases.TripService
	RouteState   *usecases.RouteState
	Battery      *usecases.BatteryMonitor
	Reachability *usecases.ReachabilityResolver
	Catalogue    *usecases.CatalogueService
	Profiles     *usecases.ProfileService
	Map          *usecases.MapView

	// BestStation answers stateless lookups on the deprecated query endpoint.
	BestStation ports.ReachabilityService

	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache
}
