package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "suctracker/backend/libs/config"
)

const (
	defaultPort                = "8080"
	defaultSuperchargerListing = "https://www.tesla.com/all-locations?type=supercharger"
	defaultDestinationListing  = "https://www.tesla.com/all-locations?type=destination_charger"
)

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Port string `yaml:"port" env:"CHECKIN_HTTP_PORT"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn" env:"CHECKIN_POSTGRES_DSN"`
	MaxOpenConns int    `yaml:"maxOpenConns" env:"CHECKIN_POSTGRES_MAX_OPEN"`
	MaxIdleConns int    `yaml:"maxIdleConns" env:"CHECKIN_POSTGRES_MAX_IDLE"`
}

// RedisConfig configures the cache and refresh lock backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"CHECKIN_REDIS_ADDR"`
	Password string        `yaml:"password" env:"CHECKIN_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"CHECKIN_REDIS_DB"`
	CacheTTL time.Duration `yaml:"cacheTTL" env:"CHECKIN_CACHE_TTL"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// AuthConfig configures the admin surface.
type AuthConfig struct {
	JWTSecret         string        `yaml:"jwtSecret" env:"CHECKIN_JWT_SECRET"`
	AdminPasswordHash string        `yaml:"adminPasswordHash" env:"CHECKIN_ADMIN_PASSWORD_HASH"`
	TokenTTL          time.Duration `yaml:"tokenTTL" env:"CHECKIN_TOKEN_TTL"`
}

// ListingConfig configures the station directory refresh.
type ListingConfig struct {
	SuperchargerURL string        `yaml:"superchargerURL" env:"CHECKIN_LISTING_SUPERCHARGER_URL"`
	DestinationURL  string        `yaml:"destinationURL" env:"CHECKIN_LISTING_DESTINATION_URL"`
	Timeout         time.Duration `yaml:"timeout" env:"CHECKIN_LISTING_TIMEOUT"`
	RefreshInterval time.Duration `yaml:"refreshInterval" env:"CHECKIN_LISTING_REFRESH_INTERVAL"`
	LockTTL         time.Duration `yaml:"lockTTL" env:"CHECKIN_LISTING_LOCK_TTL"`
}

// CheckinsConfig holds the submission and aggregation rules.
type CheckinsConfig struct {
	ReferenceTimezone  string        `yaml:"referenceTimezone" env:"CHECKIN_REFERENCE_TIMEZONE"`
	MaxAge             time.Duration `yaml:"maxAge" env:"CHECKIN_MAX_AGE"`
	FutureSkew         time.Duration `yaml:"futureSkew" env:"CHECKIN_FUTURE_SKEW"`
	OverviewWindow     time.Duration `yaml:"overviewWindow" env:"CHECKIN_OVERVIEW_WINDOW"`
	MinCountryStations int           `yaml:"minCountryStations" env:"CHECKIN_MIN_COUNTRY_STATIONS"`
}

// ImportConfig configures the bulk feed.
type ImportConfig struct {
	Region string `yaml:"region" env:"CHECKIN_IMPORT_REGION"`
}

// Config defines checkin service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	Listing  ListingConfig  `yaml:"listing"`
	Checkins CheckinsConfig `yaml:"checkins"`
	Import   ImportConfig   `yaml:"import"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		HTTP:  HTTPConfig{Port: defaultPort},
		Redis: RedisConfig{Addr: "localhost:6379", CacheTTL: 5 * time.Minute},
		Log:   LogConfig{Level: "info", Format: "json"},
		Auth:  AuthConfig{TokenTTL: 12 * time.Hour},
		Listing: ListingConfig{
			SuperchargerURL: defaultSuperchargerListing,
			DestinationURL:  defaultDestinationListing,
			Timeout:         30 * time.Second,
			RefreshInterval: 24 * time.Hour,
			LockTTL:         10 * time.Minute,
		},
		Checkins: CheckinsConfig{
			ReferenceTimezone:  "Europe/Zurich",
			MaxAge:             30 * 24 * time.Hour,
			FutureSkew:         time.Hour,
			OverviewWindow:     14 * 24 * time.Hour,
			MinCountryStations: 4,
		},
		Import: ImportConfig{Region: "europe"},
	}
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn required")
	}
	if strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("config: redis addr required")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("config: jwt secret required")
	}
	if strings.TrimSpace(c.Auth.AdminPasswordHash) == "" {
		return errors.New("config: admin password hash required")
	}
	if c.Listing.Timeout <= 0 {
		return fmt.Errorf("config: listing timeout must be positive, got %s", c.Listing.Timeout)
	}
	if c.Listing.RefreshInterval < 0 {
		return fmt.Errorf("config: listing refresh interval must not be negative, got %s", c.Listing.RefreshInterval)
	}
	if c.Checkins.MaxAge <= 0 || c.Checkins.FutureSkew < 0 {
		return errors.New("config: checkin freshness window must be positive")
	}
	if c.Checkins.MinCountryStations < 1 {
		return fmt.Errorf("config: min country stations must be at least 1, got %d", c.Checkins.MinCountryStations)
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
