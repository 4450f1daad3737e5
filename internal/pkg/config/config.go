package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Catalogue drivers.
const (
	DriverHTTP     = "http"
	DriverPostgres = "postgres"
	DriverFile     = "file"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Catalogue CatalogueConfig `mapstructure:"catalogue"`
	Map       MapConfig       `mapstructure:"map"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BackendConfig points at the EV routing backend that optimizes routes, serves
// the station catalogue and stores profiles.
type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// CatalogueConfig selects where stations and reachability answers come from.
type CatalogueConfig struct {
	Driver          string `mapstructure:"driver"`
	File            string `mapstructure:"file"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

// MapConfig tunes the map surface.
type MapConfig struct {
	FitPadding                int     `mapstructure:"fit_padding"`
	HighlightZoom             float64 `mapstructure:"highlight_zoom"`
	InsufficientBannerSeconds int     `mapstructure:"insufficient_banner_seconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout_seconds", 15)
	v.SetDefault("catalogue.driver", DriverHTTP)
	v.SetDefault("catalogue.file", "data/ev_charging_stations.zip")
	v.SetDefault("catalogue.cache_ttl_seconds", 600)
	v.SetDefault("map.fit_padding", 40)
	v.SetDefault("map.highlight_zoom", 13)
	v.SetDefault("map.insufficient_banner_seconds", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "voltroute")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "voltroute")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", true)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: VOLTROUTE_BACKEND_BASE_URL → backend.base_url
	v.SetEnvPrefix("VOLTROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// UsesDatabase reports whether the selected catalogue driver needs PostgreSQL.
func (c *Config) UsesDatabase() bool {
	return c.Catalogue.Driver == DriverPostgres
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url is required")
	}
	if c.Backend.TimeoutSeconds <= 0 {
		errs = append(errs, "backend.timeout_seconds must be positive")
	}

	switch c.Catalogue.Driver {
	case DriverHTTP:
	case DriverFile:
		if c.Catalogue.File == "" {
			errs = append(errs, "catalogue.file is required for the file driver")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("catalogue.driver must be one of http, postgres, file, got %q", c.Catalogue.Driver))
	}
	if c.Catalogue.CacheTTLSeconds < 0 {
		errs = append(errs, "catalogue.cache_ttl_seconds must not be negative")
	}

	if c.Map.FitPadding < 0 {
		errs = append(errs, "map.fit_padding must not be negative")
	}
	if c.Map.HighlightZoom <= 0 || c.Map.HighlightZoom > 22 {
		errs = append(errs, "map.highlight_zoom must be in (0, 22]")
	}
	if c.Map.InsufficientBannerSeconds <= 0 {
		errs = append(errs, "map.insufficient_banner_seconds must be positive")
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
