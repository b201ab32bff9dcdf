package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"dispatch-cost-service/internal/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	DB      DBConfig
	Routing RoutingConfig
	Cache   CacheConfig
	Engine  EngineConfig
	Toll    TollConfig
}

type AppConfig struct {
	Env      string
	LogLevel string
	SeedPath string
}

type HTTPConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

type DBConfig struct {
	URL             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RoutingConfig struct {
	// "graphhopper" talks to BaseURL, "stub" serves straight-line routes in process.
	Mode      string
	BaseURL   string
	APIKey    string
	Profile   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

type CacheConfig struct {
	// "redis", "sql" or "none".
	Backend  string
	RedisURL string
	TTL      time.Duration
}

type EngineConfig struct {
	SearchRadiusKm float64
	MaxCandidates  int
	BulkWorkers    int
	TollCategory   int
	Fuel           domain.FuelParams
}

type TollConfig struct {
	ThresholdKm    float64
	PaddingDeg     float64
	CatalogLimit   int
	NearbyRadiusKm float64
	NearbyLimit    int
}

var defaults = map[string]any{
	"APP_ENV":   "production",
	"LOG_LEVEL": "info",
	"SEED_PATH": "data/seeds/demo.yaml",

	"PORT":                  "8080",
	"HTTP_SHUTDOWN_TIMEOUT": "15s",

	"DATABASE_URL":         "",
	"DB_MAX_OPEN_CONNS":    10,
	"DB_CONN_MAX_LIFETIME": "30m",

	"ROUTING_MODE":       "graphhopper",
	"ROUTING_BASE_URL":   "http://localhost:8989",
	"ROUTING_API_KEY":    "",
	"ROUTING_PROFILE":    "car",
	"ROUTING_TIMEOUT":    "30s",
	"ROUTING_RATE_LIMIT": 10.0,
	"ROUTING_RATE_BURST": 5,

	"ROUTE_CACHE":     "none",
	"REDIS_URL":       "redis://localhost:6379/0",
	"ROUTE_CACHE_TTL": "24h",

	"ENGINE_SEARCH_RADIUS_KM": 50.0,
	"ENGINE_MAX_CANDIDATES":   3,
	"ENGINE_BULK_WORKERS":     4,
	"ENGINE_TOLL_CATEGORY":    1,
	"FUEL_PRICE_PER_UNIT":     12000.0,
	"FUEL_KM_PER_UNIT":        8.0,

	"TOLL_MATCH_THRESHOLD_KM": 5.0,
	"TOLL_BBOX_PADDING_DEG":   0.2,
	"TOLL_CATALOG_LIMIT":      100,
	"TOLL_NEARBY_RADIUS_KM":   10.0,
	"TOLL_NEARBY_LIMIT":       50,
}

// Load reads .env (optional), an optional YAML file named by CONFIG_FILE and
// the process environment, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read %q: %w", path, err)
			}
		}
	}

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
			SeedPath: v.GetString("SEED_PATH"),
		},
		HTTP: HTTPConfig{
			Port:            v.GetString("PORT"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
		},
		DB: DBConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Routing: RoutingConfig{
			Mode:      strings.ToLower(v.GetString("ROUTING_MODE")),
			BaseURL:   strings.TrimRight(v.GetString("ROUTING_BASE_URL"), "/"),
			APIKey:    v.GetString("ROUTING_API_KEY"),
			Profile:   v.GetString("ROUTING_PROFILE"),
			Timeout:   v.GetDuration("ROUTING_TIMEOUT"),
			RateLimit: v.GetFloat64("ROUTING_RATE_LIMIT"),
			RateBurst: v.GetInt("ROUTING_RATE_BURST"),
		},
		Cache: CacheConfig{
			Backend:  strings.ToLower(v.GetString("ROUTE_CACHE")),
			RedisURL: v.GetString("REDIS_URL"),
			TTL:      v.GetDuration("ROUTE_CACHE_TTL"),
		},
		Engine: EngineConfig{
			SearchRadiusKm: v.GetFloat64("ENGINE_SEARCH_RADIUS_KM"),
			MaxCandidates:  v.GetInt("ENGINE_MAX_CANDIDATES"),
			BulkWorkers:    v.GetInt("ENGINE_BULK_WORKERS"),
			TollCategory:   v.GetInt("ENGINE_TOLL_CATEGORY"),
			Fuel: domain.FuelParams{
				PricePerUnit: v.GetFloat64("FUEL_PRICE_PER_UNIT"),
				KmPerUnit:    v.GetFloat64("FUEL_KM_PER_UNIT"),
			},
		},
		Toll: TollConfig{
			ThresholdKm:    v.GetFloat64("TOLL_MATCH_THRESHOLD_KM"),
			PaddingDeg:     v.GetFloat64("TOLL_BBOX_PADDING_DEG"),
			CatalogLimit:   v.GetInt("TOLL_CATALOG_LIMIT"),
			NearbyRadiusKm: v.GetFloat64("TOLL_NEARBY_RADIUS_KM"),
			NearbyLimit:    v.GetInt("TOLL_NEARBY_LIMIT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Routing.Mode {
	case "graphhopper", "stub":
	default:
		errs = append(errs, fmt.Errorf("ROUTING_MODE must be graphhopper or stub, got %q", c.Routing.Mode))
	}
	if c.Routing.Timeout <= 0 {
		errs = append(errs, errors.New("ROUTING_TIMEOUT must be > 0"))
	}
	switch c.Cache.Backend {
	case "redis", "sql", "none":
	default:
		errs = append(errs, fmt.Errorf("ROUTE_CACHE must be redis, sql or none, got %q", c.Cache.Backend))
	}
	if c.Engine.SearchRadiusKm <= 0 {
		errs = append(errs, errors.New("ENGINE_SEARCH_RADIUS_KM must be > 0"))
	}
	if c.Engine.MaxCandidates < 1 {
		errs = append(errs, errors.New("ENGINE_MAX_CANDIDATES must be >= 1"))
	}
	if c.Engine.BulkWorkers < 1 {
		errs = append(errs, errors.New("ENGINE_BULK_WORKERS must be >= 1"))
	}
	if !domain.ValidTollCategory(c.Engine.TollCategory) {
		errs = append(errs, fmt.Errorf("ENGINE_TOLL_CATEGORY must be 1..5, got %d", c.Engine.TollCategory))
	}
	if err := c.Engine.Fuel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Toll.ThresholdKm < 0 || c.Toll.PaddingDeg < 0 {
		errs = append(errs, errors.New("toll threshold and padding must be >= 0"))
	}
	if c.Toll.CatalogLimit < 1 || c.Toll.NearbyLimit < 1 {
		errs = append(errs, errors.New("toll catalog limits must be >= 1"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Get returns the environment value for key or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
