package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	weatherAPIBaseURL = "https://api.weatherapi.com/v1"

	// weatherAPINoLocation is the API error code for an unknown location.
	weatherAPINoLocation = 1006

	weatherAPIForecastDays = 5
	weatherAPILocalLayout  = "2006-01-02 15:04"
)

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

var _ weather.Provider = (*WeatherAPIProvider)(nil)

func NewWeatherAPIProvider(opts Options) *WeatherAPIProvider {
	base := opts.BaseURL
	if base == "" {
		base = weatherAPIBaseURL
	}
	httpCfg := opts.httpConfig("weatherapi")

	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(base, "/"),
		httpCfg: httpCfg,
		circuit: newCircuitBreaker("weatherapi", httpCfg.Log),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type wapiCondition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

type wapiCurrentPayload struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		TempC      float64       `json:"temp_c"`
		FeelsLikeC float64       `json:"feelslike_c"`
		Humidity   int           `json:"humidity"`
		PressureMb float64       `json:"pressure_mb"`
		WindKph    *float64      `json:"wind_kph"`
		WindDegree *int          `json:"wind_degree"`
		VisKm      *float64      `json:"vis_km"`
		Condition  wapiCondition `json:"condition"`
	} `json:"current"`
}

type wapiForecastPayload struct {
	Forecast struct {
		ForecastDay []struct {
			Day struct {
				MaxTempC float64 `json:"maxtemp_c"`
				MinTempC float64 `json:"mintemp_c"`
			} `json:"day"`
			Hour []struct {
				Time      string        `json:"time"`
				Condition wapiCondition `json:"condition"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func (p *WeatherAPIProvider) FetchCurrent(ctx context.Context, city string) (weather.CurrentConditions, error) {
	var payload wapiCurrentPayload
	if err := p.get(ctx, "current.json", city, nil, &payload); err != nil {
		return weather.CurrentConditions{}, err
	}

	c := payload.Current
	cur := weather.CurrentConditions{
		City:        payload.Location.Name,
		Country:     payload.Location.Country,
		Temperature: c.TempC,
		FeelsLike:   c.FeelsLikeC,
		Humidity:    c.Humidity,
		Pressure:    int(math.Round(c.PressureMb)),
		Description: strings.ToLower(c.Condition.Text),
		Icon:        iconURL(c.Condition.Icon),
		Main:        mapWeatherAPICondition(c.Condition.Text),
	}
	if c.WindKph != nil {
		// Convert wind from kph to m/s.
		ms := *c.WindKph / 3.6
		cur.WindSpeed = &ms
	}
	cur.WindDirection = c.WindDegree
	if c.VisKm != nil {
		m := *c.VisKm * 1000
		cur.VisibilityMeters = &m
	}
	return cur, nil
}

// FetchForecast returns hourly samples for five days. Sample times carry the
// location's local wall clock (labelled UTC), so midday means local noon.
// Each hourly sample inherits its day's min/max temperature.
func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, city string) ([]weather.ForecastSample, error) {
	extra := url.Values{}
	extra.Set("days", fmt.Sprint(weatherAPIForecastDays))
	extra.Set("aqi", "no")
	extra.Set("alerts", "no")

	var payload wapiForecastPayload
	if err := p.get(ctx, "forecast.json", city, extra, &payload); err != nil {
		return nil, err
	}

	var samples []weather.ForecastSample
	for _, day := range payload.Forecast.ForecastDay {
		for _, h := range day.Hour {
			ts, err := time.Parse(weatherAPILocalLayout, h.Time)
			if err != nil {
				return nil, fmt.Errorf("weatherapi: malformed payload: hour time %q: %w", h.Time, err)
			}
			samples = append(samples, weather.ForecastSample{
				Time:        ts,
				TempMax:     day.Day.MaxTempC,
				TempMin:     day.Day.MinTempC,
				Description: strings.ToLower(h.Condition.Text),
				Icon:        iconURL(h.Condition.Icon),
				Main:        mapWeatherAPICondition(h.Condition.Text),
			})
		}
	}
	return samples, nil
}

func (p *WeatherAPIProvider) get(ctx context.Context, endpoint, city string, extra url.Values, out interface{}) error {
	if p.apiKey == "" {
		return fmt.Errorf("weatherapi api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		for k, v := range extra {
			values[k] = v
		}
		values.Set("key", p.apiKey)
		values.Set("q", city)

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, endpoint, buildRequest)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && isWeatherAPINoLocation(se) {
			return fmt.Errorf("weatherapi %s: %w", endpoint, weather.ErrCityNotFound)
		}
		return fmt.Errorf("weatherapi %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("weatherapi %s: decode: %w", endpoint, err)
	}
	return nil
}

// isWeatherAPINoLocation recognizes the 400 response WeatherAPI sends for an unknown place.
func isWeatherAPINoLocation(se *StatusError) bool {
	if se.Code != http.StatusBadRequest {
		return false
	}
	var body struct {
		Error struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(bytes.NewReader(se.Body)).Decode(&body); err != nil {
		return false
	}
	return body.Error.Code == weatherAPINoLocation
}

// iconURL turns WeatherAPI's protocol-relative icon path into an absolute URL.
func iconURL(icon string) string {
	if strings.HasPrefix(icon, "//") {
		return "https:" + icon
	}
	return icon
}

// mapWeatherAPICondition maps free-text conditions onto the OpenWeatherMap
// category names the rest of the service uses for "main".
func mapWeatherAPICondition(text string) string {
	switch {
	case text == "":
		return "Clouds"
	case common.ContainsAnyFold(text, "thunder", "storm"):
		return "Thunderstorm"
	case common.ContainsAnyFold(text, "drizzle"):
		return "Drizzle"
	case common.ContainsAnyFold(text, "rain", "shower"):
		return "Rain"
	case common.ContainsAnyFold(text, "snow", "sleet", "blizzard", "ice pellets"):
		return "Snow"
	case common.ContainsAnyFold(text, "fog"):
		return "Fog"
	case common.ContainsAnyFold(text, "mist"):
		return "Mist"
	case common.ContainsAnyFold(text, "cloud", "overcast"):
		return "Clouds"
	case common.ContainsAnyFold(text, "sunny", "clear"):
		return "Clear"
	default:
		return "Clouds"
	}
}
