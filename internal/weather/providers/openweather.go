package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const openWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

var _ weather.Provider = (*OpenWeatherProvider)(nil)

func NewOpenWeatherProvider(opts Options) *OpenWeatherProvider {
	base := opts.BaseURL
	if base == "" {
		base = openWeatherBaseURL
	}
	httpCfg := opts.httpConfig("openweathermap")

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(base, "/"),
		httpCfg: httpCfg,
		circuit: newCircuitBreaker("openweather", httpCfg.Log),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmCurrentPayload struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
		Deg   *int     `json:"deg"`
	} `json:"wind"`
	Visibility *float64       `json:"visibility"`
	Weather    []owmCondition `json:"weather"`
}

type owmForecastPayload struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			TempMin float64 `json:"temp_min"`
			TempMax float64 `json:"temp_max"`
		} `json:"main"`
		Weather []owmCondition `json:"weather"`
	} `json:"list"`
}

func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, city string) (weather.CurrentConditions, error) {
	var payload owmCurrentPayload
	if err := p.get(ctx, "weather", city, &payload); err != nil {
		return weather.CurrentConditions{}, err
	}
	if len(payload.Weather) == 0 {
		return weather.CurrentConditions{}, fmt.Errorf("openweather: malformed payload: no weather conditions")
	}

	cond := payload.Weather[0]
	cur := weather.CurrentConditions{
		City:             payload.Name,
		Country:          payload.Sys.Country,
		Temperature:      payload.Main.Temp,
		FeelsLike:        payload.Main.FeelsLike,
		Humidity:         payload.Main.Humidity,
		Pressure:         payload.Main.Pressure,
		VisibilityMeters: payload.Visibility,
		Description:      cond.Description,
		Icon:             cond.Icon,
		Main:             cond.Main,
	}
	if payload.Wind != nil {
		cur.WindSpeed = payload.Wind.Speed
		cur.WindDirection = payload.Wind.Deg
	}
	return cur, nil
}

// FetchForecast returns the 5-day/3-hour samples. Sample times are UTC, matching
// the provider's own dt_txt representation.
func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, city string) ([]weather.ForecastSample, error) {
	var payload owmForecastPayload
	if err := p.get(ctx, "forecast", city, &payload); err != nil {
		return nil, err
	}

	samples := make([]weather.ForecastSample, 0, len(payload.List))
	for _, item := range payload.List {
		if len(item.Weather) == 0 {
			return nil, fmt.Errorf("openweather: malformed payload: forecast sample %d has no conditions", item.Dt)
		}
		cond := item.Weather[0]
		samples = append(samples, weather.ForecastSample{
			Time:        time.Unix(item.Dt, 0).UTC(),
			TempMax:     item.Main.TempMax,
			TempMin:     item.Main.TempMin,
			Description: cond.Description,
			Icon:        cond.Icon,
			Main:        cond.Main,
		})
	}
	return samples, nil
}

func (p *OpenWeatherProvider) get(ctx context.Context, endpoint, city string, out interface{}) error {
	if p.apiKey == "" {
		return fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, endpoint, buildRequest)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return fmt.Errorf("openweather %s: %w", endpoint, weather.ErrCityNotFound)
		}
		return fmt.Errorf("openweather %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("openweather %s: decode: %w", endpoint, err)
	}
	return nil
}
