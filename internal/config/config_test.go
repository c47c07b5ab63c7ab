package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "LOG_LEVEL", "CORS_ALLOW_ORIGINS", "WEATHER_PROVIDER", "OPENWEATHER_API_KEY",
		"WEATHERAPI_API_KEY", "CACHE_FRESHNESS", "FORECAST_DAYS", "STORE_BACKEND", "SQLITE_PATH",
		"HTTP_TIMEOUT", "REQUEST_TIMEOUT", "UPSTREAM_MAX_RETRIES", "UPSTREAM_RPS", "UPSTREAM_BURST",
		"WARM_CITIES", "WARM_INTERVAL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENWEATHER_API_KEY", "k")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ProviderOpenWeather, cfg.Provider)
	assert.Equal(t, 10*time.Minute, cfg.Freshness)
	assert.Equal(t, 5, cfg.ForecastDays)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.WarmCities)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_PROVIDER", "WeatherAPI")
	t.Setenv("WEATHERAPI_API_KEY", "k")
	t.Setenv("CACHE_FRESHNESS", "2m")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("WARM_CITIES", "Lahore, Karachi ,,Islamabad")
	t.Setenv("UPSTREAM_RPS", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderWeatherAPI, cfg.Provider)
	assert.Equal(t, 2*time.Minute, cfg.Freshness)
	assert.Equal(t, StoreSQLite, cfg.StoreBackend)
	assert.Equal(t, []string{"Lahore", "Karachi", "Islamabad"}, cfg.WarmCities)
	assert.Equal(t, 0.5, cfg.UpstreamRPS)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing key":      {"WEATHER_PROVIDER": "openweather", "OPENWEATHER_API_KEY": ""},
		"unknown provider": {"WEATHER_PROVIDER": "metoffice", "OPENWEATHER_API_KEY": "k"},
		"bad duration":     {"OPENWEATHER_API_KEY": "k", "CACHE_FRESHNESS": "soon"},
		"bad backend":      {"OPENWEATHER_API_KEY": "k", "STORE_BACKEND": "redis"},
		"too many days":    {"OPENWEATHER_API_KEY": "k", "FORECAST_DAYS": "7"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
