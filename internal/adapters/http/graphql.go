package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/voltroute/internal/core/domain"
)

// buildSchema exposes read-only snapshots of the session state. Struct fields
// resolve through their json tags.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	stationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Station",
		Fields: graphql.Fields{
			"station_id":    &graphql.Field{Type: graphql.String},
			"location":      &graphql.Field{Type: geoPointType},
			"rating":        &graphql.Field{Type: graphql.Float},
			"cost":          &graphql.Field{Type: graphql.Float},
			"charger_class": &graphql.Field{Type: graphql.String},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"distance_km":              &graphql.Field{Type: graphql.Float},
			"duration_min":             &graphql.Field{Type: graphql.Float},
			"energy_consumed_kWh":      &graphql.Field{Type: graphql.Float},
			"battery_percentage_usage": &graphql.Field{Type: graphql.Float},
			"start_battery":            &graphql.Field{Type: graphql.Float},
			"green_score":              &graphql.Field{Type: graphql.Float},
			"feasible":                 &graphql.Field{Type: graphql.Boolean},
			"is_optimal":               &graphql.Field{Type: graphql.Boolean},
			"route_explanation":        &graphql.Field{Type: graphql.String},
			"end_battery": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					r, _ := p.Source.(domain.Route)
					return r.EndBattery(), nil
				},
			},
		},
	})

	metricsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SustainabilityMetrics",
		Fields: graphql.Fields{
			"distance_km":         &graphql.Field{Type: graphql.Float},
			"duration_min":        &graphql.Field{Type: graphql.Float},
			"energy_consumed_kwh": &graphql.Field{Type: graphql.Float},
			"energy_saved_kwh":    &graphql.Field{Type: graphql.Float},
			"co2_saved_kg":        &graphql.Field{Type: graphql.Float},
			"green_score":         &graphql.Field{Type: graphql.Float},
			"eco_level":           &graphql.Field{Type: graphql.Int},
			"end_battery":         &graphql.Field{Type: graphql.Float},
		},
	})

	notificationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Notification",
		Fields: graphql.Fields{
			"kind":    &graphql.Field{Type: graphql.String},
			"message": &graphql.Field{Type: graphql.String},
			"hint":    &graphql.Field{Type: graphql.String},
			"views": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					n, _ := p.Source.(domain.Notification)
					out := make([]string, len(n.Views))
					for i, v := range n.Views {
						out[i] = string(v)
					}
					return out, nil
				},
			},
			"expires_at": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					n, _ := p.Source.(domain.Notification)
					if n.ExpiresAt.IsZero() {
						return nil, nil
					}
					return n.ExpiresAt.UTC().Format(time.RFC3339), nil
				},
			},
		},
	})

	bestStationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BestStation",
		Fields: graphql.Fields{
			"station":            &graphql.Field{Type: stationType},
			"distance_km":        &graphql.Field{Type: graphql.Float},
			"remaining_range_km": &graphql.Field{Type: graphql.Float},
			"query_position":     &graphql.Field{Type: geoPointType},
		},
	})

	reachabilityType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Reachability",
		Fields: graphql.Fields{
			"state":           &graphql.Field{Type: graphql.String},
			"range_budget_km": &graphql.Field{Type: graphql.Float},
			"result":          &graphql.Field{Type: bestStationType},
			"message":         &graphql.Field{Type: graphql.String},
		},
	})

	stationsStatusType := graphql.NewObject(graphql.ObjectConfig{
		Name: "StationsStatus",
		Fields: graphql.Fields{
			"loading": &graphql.Field{Type: graphql.Boolean},
			"loaded":  &graphql.Field{Type: graphql.Boolean},
			"count":   &graphql.Field{Type: graphql.Int},
			"error":   &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"routes": &graphql.Field{
				Type:        graphql.NewList(routeType),
				Description: "Candidates of the current route result",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					snap := deps.RouteState.Snapshot()
					if snap.Result == nil {
						return []domain.Route{}, nil
					}
					return snap.Result.Routes, nil
				},
			},
			"preferredRoute": &graphql.Field{
				Type:        routeType,
				Description: "The optimal route, or the first candidate",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if pref := deps.RouteState.Snapshot().Preferred; pref != nil {
						return *pref, nil
					}
					return nil, nil
				},
			},
			"sustainability": &graphql.Field{
				Type:        metricsType,
				Description: "Sustainability metrics of the preferred route",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if m := deps.RouteState.Snapshot().Metrics; m != nil {
						return *m, nil
					}
					return nil, nil
				},
			},
			"notifications": &graphql.Field{
				Type:        graphql.NewList(notificationType),
				Description: "Live battery notifications",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Battery.Active(), nil
				},
			},
			"reachability": &graphql.Field{
				Type:        reachabilityType,
				Description: "Nearest reachable station query state",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					snap := deps.Reachability.Snapshot()
					return map[string]interface{}{
						"state":           string(snap.State),
						"range_budget_km": snap.RangeBudgetKm,
						"result":          snap.Result,
						"message":         snap.Message,
					}, nil
				},
			},
			"stationsStatus": &graphql.Field{
				Type:        stationsStatusType,
				Description: "Station layer load state",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Map.Stations.Status(), nil
				},
			},
			"stations": &graphql.Field{
				Type:        graphql.NewList(stationType),
				Description: "A page of the station catalogue",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					offset, _ := p.Args["offset"].(int)
					limit, _ := p.Args["limit"].(int)
					stations, err := deps.Catalogue.GetStationCatalogue(p.Context)
					if err != nil {
						return nil, err
					}
					if offset < 0 || offset >= len(stations) || limit <= 0 {
						return []domain.Station{}, nil
					}
					return stations[offset:min(offset+limit, len(stations))], nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
