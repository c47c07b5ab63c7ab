package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/weather"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS weather_data (
	id TEXT PRIMARY KEY,
	city_key TEXT NOT NULL UNIQUE,
	city TEXT NOT NULL,
	country TEXT NOT NULL,
	temperature REAL NOT NULL,
	feels_like REAL NOT NULL,
	humidity INTEGER NOT NULL,
	pressure INTEGER NOT NULL,
	wind_speed REAL NOT NULL,
	wind_direction INTEGER NOT NULL,
	visibility REAL NOT NULL,
	description TEXT NOT NULL,
	icon TEXT NOT NULL,
	main TEXT NOT NULL,
	timestamp TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS forecast (
	id TEXT PRIMARY KEY,
	city_key TEXT NOT NULL,
	city TEXT NOT NULL,
	date TEXT NOT NULL,
	temp_max REAL NOT NULL,
	temp_min REAL NOT NULL,
	description TEXT NOT NULL,
	icon TEXT NOT NULL,
	main TEXT NOT NULL,
	timestamp TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS forecast_city_key ON forecast(city_key);`

// SQLiteStore implements weather.Store on SQLite (pure Go driver modernc.org/sqlite).
// Rows are keyed by lower-cased city; forecast rows keep insertion order via rowid.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ weather.Store = (*SQLiteStore)(nil)

// sqliteBusyTimeout is how long a writer waits on a locked database before SQLITE_BUSY.
const sqliteBusyTimeout = 5 * time.Second

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// NewSQLite opens (or creates) the database at path and applies the schema.
// Writes from concurrent refreshes share one connection and queue on it.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		logger.GetLogger("store").Warnw("could not set WAL mode", "error", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", path, sep, sqliteBusyTimeout.Milliseconds())
}

// Get returns the current record for a city.
func (s *SQLiteStore) Get(city string) (weather.WeatherRecord, bool, error) {
	var (
		rec weather.WeatherRecord
		ts  string
	)
	err := s.db.QueryRow(`SELECT id, city, country, temperature, feels_like, humidity, pressure,
		wind_speed, wind_direction, visibility, description, icon, main, timestamp
		FROM weather_data WHERE city_key = ?`, cityKey(city)).Scan(
		&rec.ID, &rec.City, &rec.Country, &rec.Temperature, &rec.FeelsLike, &rec.Humidity, &rec.Pressure,
		&rec.WindSpeed, &rec.WindDirection, &rec.Visibility, &rec.Description, &rec.Icon, &rec.Main, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.WeatherRecord{}, false, nil
	}
	if err != nil {
		return weather.WeatherRecord{}, false, err
	}

	rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return weather.WeatherRecord{}, false, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	return rec, true, nil
}

// GetForecast returns the city's forecast rows in insertion order.
func (s *SQLiteStore) GetForecast(city string) ([]weather.ForecastEntry, error) {
	rows, err := s.db.Query(`SELECT id, city, date, temp_max, temp_min, description, icon, main, timestamp
		FROM forecast WHERE city_key = ? ORDER BY rowid`, cityKey(city))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]weather.ForecastEntry, 0)
	for rows.Next() {
		var (
			e  weather.ForecastEntry
			ts string
		)
		if err := rows.Scan(&e.ID, &e.City, &e.Date, &e.TempMax, &e.TempMin, &e.Description, &e.Icon, &e.Main, &ts); err != nil {
			return nil, err
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Put stores rec as the city's current record with a fresh ID and timestamp.
func (s *SQLiteStore) Put(rec weather.WeatherRecord) (weather.WeatherRecord, error) {
	rec.ID = uuid.NewString()
	rec.Timestamp = s.now().UTC()

	if err := insertRecord(s.db, rec); err != nil {
		return weather.WeatherRecord{}, err
	}
	return rec, nil
}

// AppendForecast inserts entry after the city's existing forecast rows.
func (s *SQLiteStore) AppendForecast(entry weather.ForecastEntry) (weather.ForecastEntry, error) {
	entry.ID = uuid.NewString()
	entry.Timestamp = s.now().UTC()

	if err := insertForecast(s.db, entry); err != nil {
		return weather.ForecastEntry{}, err
	}
	return entry, nil
}

// Purge deletes the city's record and forecast rows in one transaction.
func (s *SQLiteStore) Purge(city string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := deleteCity(tx, city); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Replace purges rec.City and aliases, then writes rec and forecast, all in
// one transaction.
func (s *SQLiteStore) Replace(rec weather.WeatherRecord, forecast []weather.ForecastEntry, aliases ...string) (weather.WeatherRecord, []weather.ForecastEntry, error) {
	now := s.now().UTC()
	rec.ID = uuid.NewString()
	rec.Timestamp = now

	tx, err := s.db.Begin()
	if err != nil {
		return weather.WeatherRecord{}, nil, err
	}
	defer tx.Rollback()

	for _, city := range append([]string{rec.City}, aliases...) {
		if err := deleteCity(tx, city); err != nil {
			return weather.WeatherRecord{}, nil, err
		}
	}
	if err := insertRecord(tx, rec); err != nil {
		return weather.WeatherRecord{}, nil, err
	}

	entries := make([]weather.ForecastEntry, 0, len(forecast))
	for _, e := range forecast {
		e.ID = uuid.NewString()
		e.City = rec.City
		e.Timestamp = now
		if err := insertForecast(tx, e); err != nil {
			return weather.WeatherRecord{}, nil, fmt.Errorf("insert forecast %s: %w", e.Date, err)
		}
		entries = append(entries, e)
	}

	if err := tx.Commit(); err != nil {
		return weather.WeatherRecord{}, nil, err
	}
	return rec, entries, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func insertRecord(db execer, rec weather.WeatherRecord) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO weather_data(id, city_key, city, country, temperature, feels_like,
		humidity, pressure, wind_speed, wind_direction, visibility, description, icon, main, timestamp)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, cityKey(rec.City), rec.City, rec.Country, rec.Temperature, rec.FeelsLike,
		rec.Humidity, rec.Pressure, rec.WindSpeed, rec.WindDirection, rec.Visibility,
		rec.Description, rec.Icon, rec.Main, rec.Timestamp.Format(time.RFC3339Nano))
	return err
}

func insertForecast(db execer, entry weather.ForecastEntry) error {
	_, err := db.Exec(`INSERT INTO forecast(id, city_key, city, date, temp_max, temp_min, description, icon, main, timestamp)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		entry.ID, cityKey(entry.City), entry.City, entry.Date, entry.TempMax, entry.TempMin,
		entry.Description, entry.Icon, entry.Main, entry.Timestamp.Format(time.RFC3339Nano))
	return err
}

func deleteCity(db execer, city string) error {
	key := cityKey(city)
	if _, err := db.Exec(`DELETE FROM weather_data WHERE city_key = ?`, key); err != nil {
		return err
	}
	_, err := db.Exec(`DELETE FROM forecast WHERE city_key = ?`, key)
	return err
}
