package weather

import (
	"errors"
	"time"
)

var (
	// ErrInvalidRequest is returned when the requested city fails validation.
	// It is always raised before any cache or network access.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrCityNotFound is returned when the upstream provider confirms it has no such place.
	ErrCityNotFound = errors.New("city not found")

	// ErrUpstreamUnavailable covers upstream errors, timeouts and malformed payloads.
	ErrUpstreamUnavailable = errors.New("upstream weather provider unavailable")
)

// WeatherRecord is the cached current-conditions view for a city.
// There is at most one live record per city; a refresh overwrites it wholesale.
type WeatherRecord struct {
	ID            string    `json:"id"`
	City          string    `json:"city"`
	Country       string    `json:"country"`
	Temperature   float64   `json:"temperature"` // °C, rounded
	FeelsLike     float64   `json:"feelsLike"`   // °C, rounded
	Humidity      int       `json:"humidity"`    // percent
	Pressure      int       `json:"pressure"`    // hPa
	WindSpeed     float64   `json:"windSpeed"`   // m/s
	WindDirection int       `json:"windDirection"`
	Visibility    float64   `json:"visibility"` // km
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	Main          string    `json:"main"`
	Timestamp     time.Time `json:"timestamp"`
}

// ForecastEntry is the representative forecast for one calendar day.
type ForecastEntry struct {
	ID          string    `json:"id"`
	City        string    `json:"city"`
	Date        string    `json:"date"` // YYYY-MM-DD
	TempMax     float64   `json:"tempMax"`
	TempMin     float64   `json:"tempMin"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Main        string    `json:"main"`
	Timestamp   time.Time `json:"timestamp"`
}

// Response is the combined payload returned for a lookup.
type Response struct {
	Current  WeatherRecord   `json:"current"`
	Forecast []ForecastEntry `json:"forecast"`
}
