package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/voltroute/internal/adapters/evapi"
	"github.com/samirrijal/voltroute/internal/adapters/http"
	natsadapter "github.com/samirrijal/voltroute/internal/adapters/nats"
	"github.com/samirrijal/voltroute/internal/adapters/postgres"
	"github.com/samirrijal/voltroute/internal/adapters/stationindex"
	"github.com/samirrijal/voltroute/internal/adapters/valkey"
	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/ports"
	"github.com/samirrijal/voltroute/internal/core/usecases"
	"github.com/samirrijal/voltroute/internal/pkg/config"
	"github.com/samirrijal/voltroute/internal/pkg/logging"
	"github.com/samirrijal/voltroute/internal/pkg/telemetry"
)

// stationSource is what a catalogue driver provides.
type stationSource interface {
	ports.StationCatalogue
	ports.ReachabilityService
}

func main() {
	cfg, err := config.Load("voltroute-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup("voltroute-api", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	backendTimeout := time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
	backend := evapi.NewClient(cfg.Backend.BaseURL, backendTimeout, evapi.WithLogger(logger))

	// Station source
	var (
		stations stationSource
		db       *postgres.DB
	)
	switch cfg.Catalogue.Driver {
	case config.DriverPostgres:
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		go db.ReportPoolStats(ctx, 15*time.Second)
		stations = postgres.NewStationRepo(db)
	case config.DriverFile:
		ix, err := stationindex.Open(cfg.Catalogue.File)
		if err != nil {
			log.Fatalf("station file: %v", err)
		}
		slog.Info("station index loaded", "file", cfg.Catalogue.File, "stations", ix.Size())
		stations = ix
	default:
		stations = backend
	}
	slog.Info("station source selected", "driver", cfg.Catalogue.Driver)

	// Cache
	var (
		cache      ports.CacheService
		valkeyConn *valkey.Cache
	)
	if cfg.Valkey.Enabled {
		valkeyConn, err = valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer valkeyConn.Close()
			cache = valkeyConn
		}
	}

	// NATS
	var (
		publisher ports.EventPublisher
		natsConn  *nats.Conn
	)
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
			natsConn = pub.Conn()
		}
	}

	// Use cases
	state := usecases.NewRouteState(publisher, logger)
	catalogue := usecases.NewCatalogueService(stations, cache, cfg.Catalogue.CacheTTLSeconds)
	surface := usecases.NewGeoSurface(logger)
	resolver := usecases.NewReachabilityResolver(stations, surface, publisher, cfg.Map.HighlightZoom, logger)
	routes := usecases.NewRouteLayerSync(surface, state, cfg.Map.FitPadding, logger)
	defer routes.Close()
	stationLayer := usecases.NewStationLayerSync(surface, catalogue, backendTimeout, logger)
	battery := usecases.NewBatteryMonitor(state, resolver, usecases.BatteryMonitorConfig{
		InsufficientVisible: time.Duration(cfg.Map.InsufficientBannerSeconds) * time.Second,
		Publisher:           publisher,
		Logger:              logger,
	})
	defer battery.Close()
	go battery.SweepEvery(ctx, time.Second)
	trips := usecases.NewTripService(backend, backend, state)

	// Route results computed by other producers
	if natsConn != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			err := sub.SubscribeRouteResults(ctx, func(ctx context.Context, result *domain.RouteResult) error {
				trips.Accept(ctx, result, "nats")
				return nil
			})
			if err != nil {
				slog.Warn("subscribe route results", "error", err)
			}
		}
	}

	deps := &http.Dependencies{
		Trips:        trips,
		RouteState:   state,
		Battery:      battery,
		Reachability: resolver,
		Catalogue:    catalogue,
		Profiles:     usecases.NewProfileService(backend),
		Map: &usecases.MapView{
			Surface:  surface,
			Routes:   routes,
			Stations: stationLayer,
			Resolver: resolver,
		},
		BestStation: stations,
		NATS:        natsConn,
		DB:          db,
		Cache:       valkeyConn,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "VoltRoute API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Let an in-flight catalogue load finish before the adapters close.
	stationLayer.Wait()

	slog.Info("server stopped")
}
