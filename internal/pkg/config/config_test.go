package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/voltroute/internal/pkg/config"
)

func validConfig() config.Config {
	return config.Config{
		Server:    config.ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 10},
		Backend:   config.BackendConfig{BaseURL: "http://localhost:8000", TimeoutSeconds: 15},
		Catalogue: config.CatalogueConfig{Driver: config.DriverHTTP, CacheTTLSeconds: 600},
		Map:       config.MapConfig{FitPadding: 40, HighlightZoom: 13, InsufficientBannerSeconds: 10},
		NATS:      config.NATSConfig{URL: "nats://localhost:4222", Enabled: true},
		Valkey:    config.ValkeyConfig{Addr: "localhost:6379", Enabled: true},
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		edit func(*config.Config)
		want string
	}{
		{"bad port", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"no backend", func(c *config.Config) { c.Backend.BaseURL = "" }, "backend.base_url"},
		{"unknown driver", func(c *config.Config) { c.Catalogue.Driver = "s3" }, "catalogue.driver"},
		{"file driver without path", func(c *config.Config) { c.Catalogue.Driver = config.DriverFile }, "catalogue.file"},
		{"postgres driver without db", func(c *config.Config) { c.Catalogue.Driver = config.DriverPostgres }, "database.host"},
		{"banner duration", func(c *config.Config) { c.Map.InsufficientBannerSeconds = 0 }, "map.insufficient_banner_seconds"},
		{"nats enabled without url", func(c *config.Config) { c.NATS.URL = "" }, "nats.url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.edit(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_DisabledBrokerNeedsNoURL(t *testing.T) {
	cfg := validConfig()
	cfg.NATS = config.NATSConfig{}
	cfg.Valkey = config.ValkeyConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled integrations should not need addresses: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VOLTROUTE_BACKEND_BASE_URL", "http://ev-backend:9000")
	t.Setenv("VOLTROUTE_CATALOGUE_DRIVER", "file")
	t.Setenv("VOLTROUTE_CATALOGUE_FILE", "/data/stations.zip")

	cfg, err := config.Load("voltroute-test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://ev-backend:9000" {
		t.Errorf("backend.base_url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Catalogue.Driver != config.DriverFile || cfg.Catalogue.File != "/data/stations.zip" {
		t.Errorf("catalogue = %+v", cfg.Catalogue)
	}
	if cfg.Telemetry.ServiceName != "voltroute-test" {
		t.Errorf("telemetry.service_name = %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Map.HighlightZoom != 13 {
		t.Errorf("map.highlight_zoom default = %v", cfg.Map.HighlightZoom)
	}
}
