//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samirrijal/voltroute/internal/adapters/http"
	"github.com/samirrijal/voltroute/internal/adapters/postgres"
	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/pkg/config"
)

// setupTestDB connects to the database named by the test configuration. The
// migrations in migrations/ must already be applied.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("voltroute-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return db
}

// setupStationDeps serves stations and best-station answers from PostGIS.
func setupStationDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	repo := postgres.NewStationRepo(db)
	m := newMocks()
	deps := makeDeps(m)
	m.catalogue.listFn = repo.GetStationCatalogue
	m.reachability.findFn = repo.FindNearestReachableStation
	deps.DB = db
	return deps
}

// seedStations upserts stations with ids unique to this run.
func seedStations(t *testing.T, db *postgres.DB, prefix string) {
	repo := postgres.NewStationRepo(db)
	stations := []domain.Station{
		{ID: prefix + "-nyc", Location: domain.GeoPoint{Lat: 40.7580, Lon: -73.9855}, Rating: 4.1, CostPerKWh: 0.32, ChargerClass: "DC Fast Charger"},
		{ID: prefix + "-hartford", Location: domain.GeoPoint{Lat: 41.7658, Lon: -72.6734}, Rating: 4.8, CostPerKWh: 0.28},
	}
	if err := repo.UpsertBatch(context.Background(), stations); err != nil {
		t.Fatalf("seed stations: %v", err)
	}
}

func TestBestStation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	prefix := "it" + time.Now().Format("20060102150405")
	seedStations(t, db, prefix)

	app := setupApp(setupStationDeps(t, db))

	// 20% of 60 kWh at 6 km/kWh is 72 km: midtown is in range, Hartford is not.
	url := fmt.Sprintf("/v1/best-station?vehicle_lat=%f&vehicle_lon=%f&battery_percent=20", 40.7128, -74.0060)
	resp, err := app.Test(httptest.NewRequest("GET", url, nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res domain.BestStationResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.DistanceKm > 72 {
		t.Errorf("distance %.2f exceeds the range budget", res.DistanceKm)
	}
	if res.Station.ID == prefix+"-hartford" {
		t.Errorf("Hartford is out of range but was returned")
	}
}

func TestListStations_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	seedStations(t, db, "it-list")

	app := setupApp(setupStationDeps(t, db))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/stations?limit=1000", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.Station    `json:"data"`
		Pagination struct{ Total int } `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Pagination.Total < 2 {
		t.Errorf("expected at least 2 stations, got %d", result.Pagination.Total)
	}
}

func TestReady_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()

	app := setupApp(setupStationDeps(t, db))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
