package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
	Redis    RedisConfig
}

type StorageConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether uploads can reach object storage.
func (s StorageConfig) Enabled() bool {
	return s.CloudName != "" && s.APIKey != "" && s.APISecret != ""
}

type EnrichmentConfig struct {
	WeatherBaseURL string
	WeatherAPIKey  string
	WeatherLang    string
	WeatherTimeout time.Duration
	WaterBaseURL   string
	WaterTimeout   time.Duration
	WeatherTTL     time.Duration
	WaterTTL       time.Duration
	NegativeTTL    time.Duration
	CoordPrecision int
	Concurrency    int
}

type SpotsConfig struct {
	ListTTL      time.Duration
	WriteRetries int
	RetryBackoff time.Duration
}

type MapConfig struct {
	DefaultLat   float64
	DefaultLon   float64
	DefaultZoom  int
	RecenterZoom int
	SessionTTL   time.Duration
	Timezone     string
}

type ObservabilityConfig struct {
	ServiceName  string
	OTLPEndpoint string
	MetricsAddr  string
	PprofAddr    string
}

type Config struct {
	Repositories  RepositoriesConfig
	Storage       StorageConfig
	Enrichment    EnrichmentConfig
	Spots         SpotsConfig
	Map           MapConfig
	Observability ObservabilityConfig
	ServerPort    string
	LogLevel      string
	Mode          string
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
				DB:       getEnvOrDefault("POSTGRES_DB", "fishspots"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: int32(getIntOrDefault("POSTGRES_MAX_CONNS", 10)),
				MinConns: int32(getIntOrDefault("POSTGRES_MIN_CONNS", 2)),
			},
			Redis: RedisConfig{
				Addr:     getEnvOrDefault("REDIS_ADDR", ""),
				Password: getEnvOrDefault("REDIS_PASSWORD", ""),
				DB:       getIntOrDefault("REDIS_DB", 0),
			},
		},
		Storage: StorageConfig{
			CloudName: getEnvOrDefault("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnvOrDefault("CLOUDINARY_API_KEY", ""),
			APISecret: getEnvOrDefault("CLOUDINARY_API_SECRET", ""),
			Folder:    getEnvOrDefault("CLOUDINARY_FOLDER", "fishing_images"),
		},
		Enrichment: EnrichmentConfig{
			WeatherBaseURL: getEnvOrDefault("WEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
			WeatherAPIKey:  getEnvOrDefault("WEATHER_API_KEY", ""),
			WeatherLang:    getEnvOrDefault("WEATHER_LANG", "th"),
			WeatherTimeout: getDurationOrDefault("WEATHER_TIMEOUT", 5*time.Second),
			WaterBaseURL:   getEnvOrDefault("WATER_BASE_URL", "https://api-v3.thaiwater.net/api/v1/thaiwater30"),
			WaterTimeout:   getDurationOrDefault("WATER_TIMEOUT", 5*time.Second),
			WeatherTTL:     getDurationOrDefault("WEATHER_CACHE_TTL", 30*time.Minute),
			WaterTTL:       getDurationOrDefault("WATER_CACHE_TTL", 60*time.Minute),
			NegativeTTL:    getDurationOrDefault("ENRICHMENT_NEGATIVE_TTL", time.Minute),
			CoordPrecision: getIntOrDefault("ENRICHMENT_COORD_PRECISION", 4),
			Concurrency:    getIntOrDefault("ENRICHMENT_CONCURRENCY", 8),
		},
		Spots: SpotsConfig{
			ListTTL:      getDurationOrDefault("SPOTS_LIST_TTL", 10*time.Minute),
			WriteRetries: getIntOrDefault("SPOTS_WRITE_RETRIES", 3),
			RetryBackoff: getDurationOrDefault("SPOTS_RETRY_BACKOFF", 200*time.Millisecond),
		},
		Map: MapConfig{
			DefaultLat:   getFloatOrDefault("MAP_DEFAULT_LAT", 13.7563),
			DefaultLon:   getFloatOrDefault("MAP_DEFAULT_LON", 100.5018),
			DefaultZoom:  getIntOrDefault("MAP_DEFAULT_ZOOM", 12),
			RecenterZoom: getIntOrDefault("MAP_RECENTER_ZOOM", 15),
			SessionTTL:   getDurationOrDefault("SESSION_TTL", 12*time.Hour),
			Timezone:     getEnvOrDefault("MAP_TIMEZONE", "Asia/Bangkok"),
		},
		Observability: ObservabilityConfig{
			ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", "fishspots"),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			MetricsAddr:  getEnvOrDefault("METRICS_ADDR", ":9092"),
			PprofAddr:    getEnvOrDefault("PPROF_ADDR", ":6060"),
		},
		ServerPort: getEnvOrDefault("SERVER_PORT", "8091"),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
		Mode:       getEnvOrDefault("GIN_MODE", "release"),
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}
	if cfg.Spots.WriteRetries < 1 {
		return nil, fmt.Errorf("SPOTS_WRITE_RETRIES must be at least 1, got %d", cfg.Spots.WriteRetries)
	}
	switch cfg.Mode {
	case "debug", "release", "test":
	default:
		return nil, fmt.Errorf("GIN_MODE must be debug, release or test, got %q", cfg.Mode)
	}
	if _, err := time.LoadLocation(cfg.Map.Timezone); err != nil {
		return nil, fmt.Errorf("invalid MAP_TIMEZONE %q: %w", cfg.Map.Timezone, err)
	}

	return cfg, nil
}

// Location returns the zone used for timestamps in merged descriptions.
func (m MapConfig) Location() *time.Location {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
