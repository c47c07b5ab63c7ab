package weather

import (
	"context"
	"time"
)

// CurrentConditions is a provider's reading of the current weather, before
// ingestion rules (rounding, unit conversion, defaults) are applied.
// Optional fields are nil when the upstream payload omits them.
type CurrentConditions struct {
	City    string
	Country string

	Temperature float64
	FeelsLike   float64
	Humidity    int
	Pressure    int

	WindSpeed        *float64
	WindDirection    *int
	VisibilityMeters *float64

	Description string
	Icon        string
	Main        string
}

// ForecastSample is a single point of a provider's multi-day forecast.
// Time carries the upstream's own representation of the sample instant; its
// calendar date and hour are what daily reduction keys on.
type ForecastSample struct {
	Time        time.Time
	TempMax     float64
	TempMin     float64
	Description string
	Icon        string
	Main        string
}

// Provider abstracts an upstream weather data source (OpenWeatherMap, WeatherAPI).
// A provider reports an unknown city by returning an error wrapping ErrCityNotFound.
type Provider interface {
	Name() string
	FetchCurrent(ctx context.Context, city string) (CurrentConditions, error)
	FetchForecast(ctx context.Context, city string) ([]ForecastSample, error)
}

// Store is the contract the in-memory cache (and the SQLite backend) must satisfy.
// City keys are matched case-insensitively.
type Store interface {
	Get(city string) (WeatherRecord, bool, error)
	GetForecast(city string) ([]ForecastEntry, error)
	Put(record WeatherRecord) (WeatherRecord, error)
	AppendForecast(entry ForecastEntry) (ForecastEntry, error)
	Purge(city string) error

	// Replace purges record.City and every alias, then stores record and
	// forecast. Either all of it is written or none of it is.
	Replace(record WeatherRecord, forecast []ForecastEntry, aliases ...string) (WeatherRecord, []ForecastEntry, error)
}
