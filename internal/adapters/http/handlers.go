package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/usecases"
)

// OptimizeTripHandler submits trip parameters and returns the new route state.
func OptimizeTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var params domain.TripParameters
		if err := c.BodyParser(&params); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		if _, err := deps.Trips.Optimize(c.UserContext(), params); err != nil {
			return writeDomainError(c, err, "route not found")
		}
		return c.JSON(deps.RouteState.Snapshot())
	}
}

// GetRouteHandler returns the shared route state.
func GetRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.RouteState.Snapshot())
	}
}

// SustainabilityHandler returns metrics for the preferred route.
func SustainabilityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := deps.RouteState.Snapshot()
		if snap.Metrics == nil {
			return errNotFound(c, "no route has been planned yet")
		}
		return c.JSON(snap.Metrics)
	}
}

// ListNotificationsHandler returns live battery notifications, optionally
// only those shown in ?view=route|stations.
func ListNotificationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		active := deps.Battery.Active()

		view := domain.View(c.Query("view"))
		if view == "" {
			return c.JSON(active)
		}
		if view != domain.ViewRoute && view != domain.ViewStations {
			return errBadRequest(c, "view must be route or stations")
		}

		out := make([]domain.Notification, 0, len(active))
		for _, n := range active {
			for _, v := range n.Views {
				if v == view {
					out = append(out, n)
					break
				}
			}
		}
		return c.JSON(out)
	}
}

// DismissNotificationHandler clears one notification kind.
func DismissNotificationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind := domain.NotificationKind(c.Params("kind"))
		if kind != domain.NotificationLowBattery && kind != domain.NotificationInsufficient {
			return errBadRequest(c, "unknown notification kind")
		}
		if !deps.Battery.Dismiss(kind) {
			return errNotFound(c, "notification is not active")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GetReachabilityHandler returns the resolver state.
func GetReachabilityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Reachability.Snapshot())
	}
}

// SetReachabilityInputsHandler replaces the form values without querying.
func SetReachabilityInputsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in domain.ReachabilityInputs
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		deps.Reachability.SetInputs(in)
		return c.JSON(deps.Reachability.Snapshot())
	}
}

// ResolveReachabilityHandler submits the form. A JSON body, when present,
// replaces the inputs first. A superseded query answers with the state of the
// query that replaced it.
func ResolveReachabilityHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(c.Body()) > 0 {
			var in domain.ReachabilityInputs
			if err := c.BodyParser(&in); err != nil {
				return errBadRequest(c, "invalid request body")
			}
			deps.Reachability.SetInputs(in)
		}

		_, err := deps.Reachability.Submit(c.UserContext())
		switch {
		case err == nil, errors.Is(err, domain.ErrStaleResult):
			return c.JSON(deps.Reachability.Snapshot())
		case domain.IsNotFound(err):
			return errNotFound(c, usecases.MsgNoReachableStation)
		case domain.IsTransport(err):
			return errUpstream(c, usecases.MsgServiceUnreachable)
		default:
			return writeDomainError(c, err, usecases.MsgNoReachableStation)
		}
	}
}

// BestStationHandler answers the query-parameter form of the reachability
// lookup without touching the resolver or the map.
func BestStationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in := domain.ReachabilityInputs{
			Latitude:       c.Query("vehicle_lat"),
			Longitude:      c.Query("vehicle_lon"),
			BatteryPercent: c.Query("battery_percent"),
			CapacityKWh:    c.Query("battery_capacity_kwh", "60"),
			Efficiency:     c.Query("efficiency_km_per_kwh", "6"),
		}
		q, err := in.Parse()
		if err != nil {
			return writeDomainError(c, err, "")
		}

		res, err := deps.BestStation.FindNearestReachableStation(c.UserContext(), q)
		if err != nil {
			return writeDomainError(c, err, usecases.MsgNoReachableStation)
		}
		return c.JSON(res)
	}
}

// ListStationsHandler returns a page of the station catalogue.
func ListStationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stations, err := deps.Catalogue.GetStationCatalogue(c.UserContext())
		if err != nil {
			return writeDomainError(c, err, "")
		}

		page, pg := paginate(c, stations, 100, 1000)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page, Pagination: pg})
	}
}

// StationsStatusResponse reports the station layer and surface state.
type StationsStatusResponse struct {
	usecases.StationLayerStatus
	SurfaceMounted bool `json:"surface_mounted"`
	SurfaceReady   bool `json:"surface_ready"`
	PendingOps     int  `json:"pending_ops"`
}

// StationsStatusHandler reports whether the station layer has loaded.
func StationsStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(StationsStatusResponse{
			StationLayerStatus: deps.Map.Stations.Status(),
			SurfaceMounted:     deps.Map.Surface.Handle() != "",
			SurfaceReady:       deps.Map.Surface.Ready(),
			PendingOps:         deps.Map.Surface.Pending(),
		})
	}
}

// GetProfileHandler returns a stored EV profile.
func GetProfileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Profiles.Get(c.UserContext(), c.Params("user_id"))
		if err != nil {
			return writeDomainError(c, err, "profile not found")
		}
		c.Set("Cache-Control", "private, max-age=0")
		return c.JSON(p)
	}
}

// UpdateProfileHandler merges the supplied fields into the profile.
func UpdateProfileHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var u domain.ProfileUpdate
		if err := c.BodyParser(&u); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p, err := deps.Profiles.Update(c.UserContext(), c.Params("user_id"), u)
		if err != nil {
			return writeDomainError(c, err, "profile not found")
		}
		return c.JSON(p)
	}
}
