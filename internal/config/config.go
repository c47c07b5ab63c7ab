package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-lookup/internal/logger"
)

const (
	ProviderOpenWeather = "openweather"
	ProviderWeatherAPI  = "weatherapi"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type AppConfig struct {
	Port string

	// Upstream provider selection and credentials.
	Provider          string
	OpenWeatherAPIKey string
	WeatherAPIKey     string

	// Cache behaviour.
	Freshness    time.Duration
	ForecastDays int
	StoreBackend string
	SQLitePath   string

	// Outbound call limits.
	HTTPTimeout        time.Duration // per upstream HTTP call
	RequestTimeout     time.Duration // whole lookup, including retries
	UpstreamMaxRetries int
	UpstreamRPS        float64
	UpstreamBurst      int

	// Cache warmer; no cities disables it.
	WarmCities   []string
	WarmInterval time.Duration

	CORSAllowOrigins string
	LogLevel         string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logger.GetLogger("config").Infow("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.CORSAllowOrigins = getenvDefault("CORS_ALLOW_ORIGINS", "*")

	cfg.Provider = strings.ToLower(getenvDefault("WEATHER_PROVIDER", ProviderOpenWeather))
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")

	switch cfg.Provider {
	case ProviderOpenWeather:
		if cfg.OpenWeatherAPIKey == "" {
			return nil, fmt.Errorf("OPENWEATHER_API_KEY is required for provider %q", cfg.Provider)
		}
	case ProviderWeatherAPI:
		if cfg.WeatherAPIKey == "" {
			return nil, fmt.Errorf("WEATHERAPI_API_KEY is required for provider %q", cfg.Provider)
		}
	default:
		return nil, fmt.Errorf("invalid WEATHER_PROVIDER %q", cfg.Provider)
	}

	if cfg.Freshness, err = getenvDuration("CACHE_FRESHNESS", "10m"); err != nil {
		return nil, err
	}
	cfg.ForecastDays = getenvInt("FORECAST_DAYS", 5)
	if cfg.ForecastDays < 1 || cfg.ForecastDays > 5 {
		return nil, fmt.Errorf("invalid FORECAST_DAYS %d: must be 1-5", cfg.ForecastDays)
	}

	cfg.StoreBackend = strings.ToLower(getenvDefault("STORE_BACKEND", StoreMemory))
	if cfg.StoreBackend != StoreMemory && cfg.StoreBackend != StoreSQLite {
		return nil, fmt.Errorf("invalid STORE_BACKEND %q", cfg.StoreBackend)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "weather-cache.db")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getenvDuration("REQUEST_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	cfg.UpstreamMaxRetries = getenvInt("UPSTREAM_MAX_RETRIES", 2)
	cfg.UpstreamRPS = getenvFloat("UPSTREAM_RPS", 1)
	cfg.UpstreamBurst = getenvInt("UPSTREAM_BURST", 5)

	cfg.WarmCities = splitList(os.Getenv("WARM_CITIES"))
	if cfg.WarmInterval, err = getenvDuration("WARM_INTERVAL", "9m"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
