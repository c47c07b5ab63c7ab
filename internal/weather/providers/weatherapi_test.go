package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const wapiCurrentJSON = `{
  "location": {"name": "Lahore", "country": "Pakistan"},
  "current": {"temp_c": 30.2, "feelslike_c": 32.8, "humidity": 41, "pressure_mb": 1007.6,
              "wind_kph": 18.0, "wind_degree": 300, "vis_km": 4.5,
              "condition": {"text": "Partly cloudy", "icon": "//cdn.weatherapi.com/weather/64x64/day/116.png"}}
}`

const wapiForecastJSON = `{
  "forecast": {"forecastday": [
    {"date": "2024-05-01", "day": {"maxtemp_c": 37.1, "mintemp_c": 24.3},
     "hour": [
       {"time": "2024-05-01 11:00", "condition": {"text": "Sunny", "icon": "//cdn/113.png"}},
       {"time": "2024-05-01 12:00", "condition": {"text": "Patchy rain possible", "icon": "//cdn/176.png"}}
     ]}
  ]}
}`

func newWeatherAPIServer(t *testing.T, handler http.HandlerFunc) *WeatherAPIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewWeatherAPIProvider(Options{
		Client:  srv.Client(),
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})
}

func TestWeatherAPIFetchCurrent(t *testing.T) {
	p := newWeatherAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current.json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(wapiCurrentJSON))
	})

	cur, err := p.FetchCurrent(context.Background(), "Lahore")
	require.NoError(t, err)

	assert.Equal(t, "Pakistan", cur.Country)
	assert.Equal(t, 1008, cur.Pressure)
	require.NotNil(t, cur.WindSpeed)
	assert.InDelta(t, 5.0, *cur.WindSpeed, 0.001)
	require.NotNil(t, cur.VisibilityMeters)
	assert.Equal(t, 4500.0, *cur.VisibilityMeters)
	assert.Equal(t, "Clouds", cur.Main)
	assert.Equal(t, "partly cloudy", cur.Description)
	assert.Equal(t, "https://cdn.weatherapi.com/weather/64x64/day/116.png", cur.Icon)
}

func TestWeatherAPIFetchForecastUsesLocalWallClock(t *testing.T) {
	p := newWeatherAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast.json", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("days"))
		_, _ = w.Write([]byte(wapiForecastJSON))
	})

	samples, err := p.FetchForecast(context.Background(), "Lahore")
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.Equal(t, 12, samples[1].Time.Hour())
	assert.Equal(t, 37.1, samples[1].TempMax)
	assert.Equal(t, 24.3, samples[1].TempMin)
	assert.Equal(t, "Rain", samples[1].Main)

	daily := weather.ReduceDaily(samples, 5)
	require.Len(t, daily, 1)
	assert.Equal(t, "patchy rain possible", daily[0].Description)
}

func TestWeatherAPINoLocation(t *testing.T) {
	p := newWeatherAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":1006,"message":"No matching location found."}}`))
	})

	_, err := p.FetchCurrent(context.Background(), "Qwertyzzz")
	assert.True(t, errors.Is(err, weather.ErrCityNotFound))
}

func TestWeatherAPIOtherClientError(t *testing.T) {
	p := newWeatherAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":2008,"message":"API key has been disabled."}}`))
	})

	_, err := p.FetchCurrent(context.Background(), "Lahore")
	require.Error(t, err)
	assert.False(t, errors.Is(err, weather.ErrCityNotFound))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestMapWeatherAPICondition(t *testing.T) {
	cases := map[string]string{
		"Sunny":                       "Clear",
		"Clear":                       "Clear",
		"Overcast":                    "Clouds",
		"Patchy light drizzle":        "Drizzle",
		"Moderate rain":               "Rain",
		"Thundery outbreaks possible": "Thunderstorm",
		"Heavy snow":                  "Snow",
		"Freezing fog":                "Fog",
		"Mist":                        "Mist",
		"":                            "Clouds",
	}
	for in, want := range cases {
		assert.Equal(t, want, mapWeatherAPICondition(in), in)
	}
}
