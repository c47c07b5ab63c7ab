package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const owmCurrentJSON = `{
  "name": "Lahore",
  "sys": {"country": "PK"},
  "main": {"temp": 31.6, "feels_like": 33.2, "humidity": 38, "pressure": 1006},
  "visibility": 6000,
  "weather": [{"main": "Haze", "description": "haze", "icon": "50d"}]
}`

const owmForecastJSON = `{
  "list": [
    {"dt": 1714564800, "main": {"temp_min": 24.1, "temp_max": 35.7}, "weather": [{"main": "Clear", "description": "clear sky", "icon": "01d"}]},
    {"dt": 1714575600, "main": {"temp_min": 25.0, "temp_max": 36.2}, "weather": [{"main": "Clouds", "description": "few clouds", "icon": "02d"}]}
  ]
}`

func newOWMServer(t *testing.T, handler http.HandlerFunc) (*OpenWeatherProvider, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	p := NewOpenWeatherProvider(Options{
		Client:     srv.Client(),
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		MaxRetries: 1,
	})
	return p, &calls
}

func TestOpenWeatherFetchCurrent(t *testing.T) {
	p, _ := newOWMServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "Lahore", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(owmCurrentJSON))
	})

	cur, err := p.FetchCurrent(context.Background(), "Lahore")
	require.NoError(t, err)

	assert.Equal(t, "Lahore", cur.City)
	assert.Equal(t, "PK", cur.Country)
	assert.Equal(t, 31.6, cur.Temperature)
	assert.Equal(t, 38, cur.Humidity)
	assert.Equal(t, "Haze", cur.Main)
	assert.Equal(t, "50d", cur.Icon)
	assert.Nil(t, cur.WindSpeed, "absent wind stays nil")
	assert.Nil(t, cur.WindDirection)
	require.NotNil(t, cur.VisibilityMeters)
	assert.Equal(t, 6000.0, *cur.VisibilityMeters)
}

func TestOpenWeatherFetchForecast(t *testing.T) {
	p, _ := newOWMServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		_, _ = w.Write([]byte(owmForecastJSON))
	})

	samples, err := p.FetchForecast(context.Background(), "Lahore")
	require.NoError(t, err)
	require.Len(t, samples, 2)

	// 1714564800 is 2024-05-01 12:00 UTC.
	assert.Equal(t, "2024-05-01", samples[0].Time.Format("2006-01-02"))
	assert.Equal(t, 12, samples[0].Time.Hour())
	assert.Equal(t, 35.7, samples[0].TempMax)
	assert.Equal(t, "few clouds", samples[1].Description)
}

func TestOpenWeatherNotFound(t *testing.T) {
	p, calls := newOWMServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	})

	_, err := p.FetchCurrent(context.Background(), "Qwertyzzz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, weather.ErrCityNotFound))
	assert.EqualValues(t, 1, calls.Load(), "client errors are not retried")
}

func TestOpenWeatherServerErrorRetriesThenFails(t *testing.T) {
	p, calls := newOWMServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := p.FetchCurrent(context.Background(), "Lahore")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errServerError))
	assert.False(t, errors.Is(err, weather.ErrCityNotFound))
	assert.EqualValues(t, 2, calls.Load())
}

func TestOpenWeatherMalformedPayload(t *testing.T) {
	p, _ := newOWMServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Lahore","weather":[]}`))
	})

	_, err := p.FetchCurrent(context.Background(), "Lahore")
	assert.Error(t, err)
}

func TestOpenWeatherRequiresAPIKey(t *testing.T) {
	p := NewOpenWeatherProvider(Options{Client: http.DefaultClient})
	_, err := p.FetchCurrent(context.Background(), "Lahore")
	assert.Error(t, err)
}
