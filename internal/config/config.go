package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingSalt is returned by Load when CLICK_HASH_SALT is unset in
// production mode. Outside production the salt may be empty; callers
// should log a warning in that case.
var ErrMissingSalt = errors.New("CLICK_HASH_SALT is required in production")

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Broker      BrokerConfig
	Geo         GeoConfig
	Tracking    TrackingConfig
	Pages       PagesConfig
	Environment string // "development", "staging", "production"
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	OTLPEndpoint string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// CacheConfig holds the Redis connection used for link caching and
// rate-limit counters
type CacheConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	LinkTTL  time.Duration
}

// BrokerConfig holds the optional RabbitMQ connection for click event
// fan-out. An empty URL disables publishing.
type BrokerConfig struct {
	URL      string
	Exchange string
}

// GeoConfig holds geolocation settings. Both the database path and the
// lookup API are optional; resolution degrades to no-location without
// them.
type GeoConfig struct {
	DBPath       string // path to a MaxMind .mmdb file
	LookupAPIURL string // HTTP fallback, e.g. https://ipwho.is
}

// TrackingConfig holds click-tracking settings
type TrackingConfig struct {
	HashSalt        string
	DedupWindow     time.Duration
	RateLimit       int
	RateLimitWindow time.Duration
}

// PagesConfig holds the explanatory page targets for non-redirect
// outcomes
type PagesConfig struct {
	NotFound     string
	Inactive     string
	Expired      string
	LimitReached string
	Error        string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "linkhub"),
			Password: getEnv("DB_PASSWORD", "linkhub_secret"),
			DBName:   getEnv("DB_NAME", "linkhub"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Cache: CacheConfig{
			Host:     getEnv("RDB_HOST", "localhost"),
			Port:     getEnv("RDB_PORT", "6379"),
			User:     getEnv("RDB_USER", ""),
			Password: getEnv("RDB_PASSWORD", ""),
			// Upper bound on how long a deleted or paused link can keep
			// resolving from cache; keep this short.
			LinkTTL: getEnvDuration("LINK_CACHE_TTL", 10*time.Second),
		},
		Broker: BrokerConfig{
			URL:      getEnv("BROKER_URL", ""),
			Exchange: getEnv("BROKER_EXCHANGE", "clicks"),
		},
		Geo: GeoConfig{
			DBPath:       getEnv("GEOIP_DB_PATH", ""),
			LookupAPIURL: getEnv("GEO_LOOKUP_API_URL", ""),
		},
		Tracking: TrackingConfig{
			HashSalt:        getEnv("CLICK_HASH_SALT", ""),
			DedupWindow:     getEnvDuration("CLICK_DEDUP_WINDOW", 10*time.Second),
			RateLimit:       getEnvInt("REDIRECT_RATE_LIMIT", 100),
			RateLimitWindow: getEnvDuration("REDIRECT_RATE_WINDOW", 60*time.Second),
		},
		Pages: PagesConfig{
			NotFound:     getEnv("PAGE_NOT_FOUND", "/link/not-found"),
			Inactive:     getEnv("PAGE_INACTIVE", "/link/inactive"),
			Expired:      getEnv("PAGE_EXPIRED", "/link/expired"),
			LimitReached: getEnv("PAGE_LIMIT_REACHED", "/link/limit-reached"),
			Error:        getEnv("PAGE_ERROR", "/link/error"),
		},
	}

	if cfg.IsProduction() && cfg.Tracking.HashSalt == "" {
		return nil, ErrMissingSalt
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// ConnectionString returns the Redis connection string
func (c *CacheConfig) ConnectionString() string {
	return fmt.Sprintf("redis://%s:%s@%s:%s/0", c.User, c.Password, c.Host, c.Port)
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
