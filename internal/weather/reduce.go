package weather

import (
	"math"
	"sort"
)

const (
	// middayHour is the preferred hour-of-day for a day's representative sample.
	middayHour = 12

	dateLayout = "2006-01-02"

	defaultVisibilityMeters = 10000
)

// ReduceDaily collapses forecast samples into one representative sample per
// calendar day, ordered by date ascending and capped at maxDays.
//
// For each date the first sample encountered is kept unless a better
// candidate (see betterDailySample) shows up later.
func ReduceDaily(samples []ForecastSample, maxDays int) []ForecastSample {
	if len(samples) == 0 || maxDays <= 0 {
		return nil
	}

	picked := make(map[string]ForecastSample)
	dates := make([]string, 0, len(samples)/8+1)

	for _, s := range samples {
		key := s.Time.Format(dateLayout)
		current, ok := picked[key]
		if !ok {
			dates = append(dates, key)
			picked[key] = s
			continue
		}
		if betterDailySample(current, s) {
			picked[key] = s
		}
	}

	sort.Strings(dates)
	if len(dates) > maxDays {
		dates = dates[:maxDays]
	}

	out := make([]ForecastSample, 0, len(dates))
	for _, d := range dates {
		out = append(out, picked[d])
	}
	return out
}

// betterDailySample reports whether candidate should replace current as the
// representative sample for their shared date. Only a midday sample beats a
// non-midday one.
func betterDailySample(current, candidate ForecastSample) bool {
	return candidate.Time.Hour() == middayHour && current.Time.Hour() != middayHour
}

// newWeatherRecord applies ingestion rules to a provider reading.
func newWeatherRecord(c CurrentConditions) WeatherRecord {
	rec := WeatherRecord{
		City:        c.City,
		Country:     c.Country,
		Temperature: math.Round(c.Temperature),
		FeelsLike:   math.Round(c.FeelsLike),
		Humidity:    c.Humidity,
		Pressure:    c.Pressure,
		Visibility:  defaultVisibilityMeters / 1000,
		Description: c.Description,
		Icon:        c.Icon,
		Main:        c.Main,
	}
	if c.WindSpeed != nil {
		rec.WindSpeed = *c.WindSpeed
	}
	if c.WindDirection != nil {
		rec.WindDirection = *c.WindDirection
	}
	if c.VisibilityMeters != nil {
		rec.Visibility = *c.VisibilityMeters / 1000
	}
	return rec
}

func newForecastEntry(city string, s ForecastSample) ForecastEntry {
	return ForecastEntry{
		City:        city,
		Date:        s.Time.Format(dateLayout),
		TempMax:     math.Round(s.TempMax),
		TempMin:     math.Round(s.TempMin),
		Description: s.Description,
		Icon:        s.Icon,
		Main:        s.Main,
	}
}
