package store

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// cityEntry holds everything cached for one city key.
type cityEntry struct {
	current  *weather.WeatherRecord
	forecast []weather.ForecastEntry
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
// Nothing survives a process restart.
type MemoryStore struct {
	mu sync.RWMutex

	// key: lower-cased city name
	data map[string]*cityEntry

	now func() time.Time
}

var _ weather.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*cityEntry),
		now:  time.Now,
	}
}

func cityKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// Get returns the current record for a city.
func (s *MemoryStore) Get(city string) (weather.WeatherRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[cityKey(city)]
	if !ok || e.current == nil {
		return weather.WeatherRecord{}, false, nil
	}
	return *e.current, true, nil
}

// GetForecast returns a copy of the city's forecast list in insertion order.
func (s *MemoryStore) GetForecast(city string) ([]weather.ForecastEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[cityKey(city)]
	if !ok || len(e.forecast) == 0 {
		return []weather.ForecastEntry{}, nil
	}
	out := make([]weather.ForecastEntry, len(e.forecast))
	copy(out, e.forecast)
	return out, nil
}

// Put stores rec as the city's current record with a fresh ID and timestamp.
func (s *MemoryStore) Put(rec weather.WeatherRecord) (weather.WeatherRecord, error) {
	rec.ID = uuid.NewString()
	rec.Timestamp = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entry(cityKey(rec.City)).current = &rec
	return rec, nil
}

// AppendForecast appends entry to the city's forecast list. It does not
// deduplicate by date; callers purge first.
func (s *MemoryStore) AppendForecast(entry weather.ForecastEntry) (weather.ForecastEntry, error) {
	entry.ID = uuid.NewString()
	entry.Timestamp = s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(cityKey(entry.City))
	e.forecast = append(e.forecast, entry)
	return entry, nil
}

// Purge drops the record and forecast list for a city.
func (s *MemoryStore) Purge(city string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, cityKey(city))
	return nil
}

// Replace swaps in a new record and forecast list for rec.City under a single
// lock, dropping whatever was cached under rec.City or any alias.
func (s *MemoryStore) Replace(rec weather.WeatherRecord, forecast []weather.ForecastEntry, aliases ...string) (weather.WeatherRecord, []weather.ForecastEntry, error) {
	now := s.now().UTC()
	rec.ID = uuid.NewString()
	rec.Timestamp = now

	entries := make([]weather.ForecastEntry, len(forecast))
	for i, e := range forecast {
		e.ID = uuid.NewString()
		e.City = rec.City
		e.Timestamp = now
		entries[i] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, alias := range aliases {
		delete(s.data, cityKey(alias))
	}
	stored := make([]weather.ForecastEntry, len(entries))
	copy(stored, entries)
	s.data[cityKey(rec.City)] = &cityEntry{current: &rec, forecast: stored}

	return rec, entries, nil
}

// entry returns the entry for key, creating it. Callers hold s.mu.
func (s *MemoryStore) entry(key string) *cityEntry {
	e, ok := s.data[key]
	if !ok {
		e = &cityEntry{}
		s.data[key] = e
	}
	return e
}
