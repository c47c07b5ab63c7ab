package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/telemetry"
)

const (
	// DefaultFreshness is how long a cached record is served without re-querying upstream.
	DefaultFreshness = 10 * time.Minute

	// MaxForecastDays caps the number of daily entries returned.
	MaxForecastDays = 5

	// DefaultRefreshTimeout bounds one upstream refresh, retries included.
	DefaultRefreshTimeout = 15 * time.Second
)

var validate = validator.New()

// Service is the weather fetch orchestrator: it serves fresh cache entries and
// refreshes stale or missing ones from the upstream provider.
type Service struct {
	store    Store
	provider Provider

	freshness      time.Duration
	maxDays        int
	refreshTimeout time.Duration
	now            func() time.Time

	// refreshes collapses concurrent refreshes of the same city.
	refreshes singleflight.Group

	log *zap.SugaredLogger
}

// Option customizes a Service.
type Option func(*Service)

// WithFreshness overrides the freshness window.
func WithFreshness(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.freshness = d
		}
	}
}

// WithForecastDays overrides the number of daily forecast entries (1..MaxForecastDays).
func WithForecastDays(n int) Option {
	return func(s *Service) {
		if n > 0 && n <= MaxForecastDays {
			s.maxDays = n
		}
	}
}

// WithRefreshTimeout bounds each upstream refresh. The refresh outlives the
// caller that started it, so this is what stops a stuck upstream.
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshTimeout = d
		}
	}
}

// WithClock replaces the clock used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new Service.
func NewService(store Store, provider Provider, opts ...Option) *Service {
	s := &Service{
		store:     store,
		provider:  provider,
		freshness:      DefaultFreshness,
		maxDays:        MaxForecastDays,
		refreshTimeout: DefaultRefreshTimeout,
		now:            time.Now,
		log:            logger.GetLogger("weather"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns current conditions and the daily forecast for city, from the
// cache when the stored record is younger than the freshness window and from
// the upstream provider otherwise.
func (s *Service) Lookup(ctx context.Context, city string) (Response, error) {
	key, err := normalizeCity(city)
	if err != nil {
		return Response{}, err
	}

	rec, ok, err := s.store.Get(key)
	if err != nil {
		return Response{}, fmt.Errorf("cache lookup for %q: %w", key, err)
	}

	if ok && s.now().Sub(rec.Timestamp) < s.freshness {
		forecast, err := s.store.GetForecast(key)
		if err != nil {
			return Response{}, fmt.Errorf("cached forecast for %q: %w", key, err)
		}
		if len(forecast) > s.maxDays {
			forecast = forecast[:s.maxDays]
		}
		telemetry.CacheLookups.WithLabelValues("hit").Inc()
		s.log.Debugw("cache hit", "city", key, "age", s.now().Sub(rec.Timestamp).Round(time.Second))
		return Response{Current: rec, Forecast: forecast}, nil
	}

	telemetry.CacheLookups.WithLabelValues("miss").Inc()
	s.log.Debugw("cache miss", "city", key, "cached", ok)
	return s.refreshShared(ctx, key)
}

// Refresh bypasses the freshness check and always re-queries the upstream provider.
func (s *Service) Refresh(ctx context.Context, city string) (Response, error) {
	key, err := normalizeCity(city)
	if err != nil {
		return Response{}, err
	}
	return s.refreshShared(ctx, key)
}

// refreshShared joins or starts the refresh for key. The refresh itself is
// detached from ctx: a caller that gives up gets an error, while the refresh
// carries on for everyone else waiting on it and still fills the cache.
func (s *Service) refreshShared(ctx context.Context, key string) (Response, error) {
	ch := s.refreshes.DoChan(strings.ToLower(key), func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
		defer cancel()
		return s.refresh(refreshCtx, key)
	})

	select {
	case <-ctx.Done():
		s.log.Debugw("caller left in-flight refresh", "city", key, "error", ctx.Err())
		return Response{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Response{}, res.Err
		}
		if res.Shared {
			s.log.Debugw("joined in-flight refresh", "city", key)
		}
		return res.Val.(Response), nil
	}
}

func (s *Service) refresh(ctx context.Context, key string) (Response, error) {
	if s.provider == nil {
		return Response{}, fmt.Errorf("%w: no provider configured", ErrUpstreamUnavailable)
	}

	cur, err := s.provider.FetchCurrent(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCityNotFound) {
			s.log.Infow("city not found upstream", "city", key, "provider", s.provider.Name())
			return Response{}, fmt.Errorf("%w: %q", ErrCityNotFound, key)
		}
		s.log.Warnw("current conditions fetch failed", "city", key, "provider", s.provider.Name(), "error", err)
		return Response{}, fmt.Errorf("%w: current conditions: %v", ErrUpstreamUnavailable, err)
	}

	samples, err := s.provider.FetchForecast(ctx, key)
	if err != nil {
		s.log.Warnw("forecast fetch failed", "city", key, "provider", s.provider.Name(), "error", err)
		return Response{}, fmt.Errorf("%w: forecast: %v", ErrUpstreamUnavailable, err)
	}

	daily := ReduceDaily(samples, s.maxDays)

	city := cur.City
	if city == "" {
		city = key
	}
	cur.City = city

	resp, err := s.persist(key, newWeatherRecord(cur), daily)
	if err != nil {
		return Response{}, err
	}

	s.log.Infow("refreshed weather", "city", city, "forecastDays", len(resp.Forecast), "samples", len(samples))
	return resp, nil
}

// persist replaces everything stored for the city with the new refresh in
// one store call. The upstream may canonicalize the name ("lahore" -> "Lahore"),
// so the requested key is passed as an alias to purge as well.
func (s *Service) persist(key string, rec WeatherRecord, daily []ForecastSample) (Response, error) {
	entries := make([]ForecastEntry, 0, len(daily))
	for _, sample := range daily {
		entries = append(entries, newForecastEntry(rec.City, sample))
	}

	stored, forecast, err := s.store.Replace(rec, entries, key)
	if err != nil {
		return Response{}, fmt.Errorf("store weather for %q: %w", rec.City, err)
	}
	return Response{Current: stored, Forecast: forecast}, nil
}

// normalizeCity trims surrounding whitespace and validates length (1..100 characters).
func normalizeCity(city string) (string, error) {
	city = strings.TrimSpace(city)
	if err := validate.Var(city, "required,max=100"); err != nil {
		return "", fmt.Errorf("%w: city must be 1-100 characters", ErrInvalidRequest)
	}
	return city, nil
}
