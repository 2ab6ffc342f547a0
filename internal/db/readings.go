package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/airsense/airmap/internal/service"
)

// ReadingStore persists pollutant measurements in DuckDB.
type ReadingStore struct {
	db *sql.DB
}

// NewReadingStore creates the store and its schema.
func NewReadingStore(db *sql.DB) (*ReadingStore, error) {
	if db == nil {
		return nil, fmt.Errorf("reading store requires a database connection")
	}

	const schema = `
CREATE TABLE IF NOT EXISTS readings (
    station_id  VARCHAR NOT NULL,
    pollutant   VARCHAR NOT NULL,
    value       DOUBLE NOT NULL,
    unit        VARCHAR,
    recorded_at TIMESTAMP NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create readings table: %w", err)
	}
	return &ReadingStore{db: db}, nil
}

// Insert stores one measurement. A zero RecordedAt defaults to now.
func (s *ReadingStore) Insert(ctx context.Context, r service.Reading) error {
	if r.StationID == "" || r.Pollutant == "" {
		return fmt.Errorf("reading requires station and pollutant")
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO readings (station_id, pollutant, value, unit, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		r.StationID, r.Pollutant, r.Value, r.Unit, r.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// Latest returns the most recent reading per pollutant for every station.
func (s *ReadingStore) Latest(ctx context.Context) (map[string][]service.Reading, error) {
	const query = `
SELECT station_id, pollutant, value, unit, recorded_at
FROM (
    SELECT *, row_number() OVER (PARTITION BY station_id, pollutant ORDER BY recorded_at DESC) AS rn
    FROM readings
) WHERE rn = 1`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest readings: %w", err)
	}
	defer rows.Close()

	latest := make(map[string][]service.Reading)
	for rows.Next() {
		var r service.Reading
		var unit sql.NullString
		if err := rows.Scan(&r.StationID, &r.Pollutant, &r.Value, &unit, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.Unit = unit.String
		latest[r.StationID] = append(latest[r.StationID], r)
	}
	return latest, rows.Err()
}

// Range returns readings for one station and pollutant within [from, to].
func (s *ReadingStore) Range(ctx context.Context, stationID, pollutant string, from, to time.Time) ([]service.Reading, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT station_id, pollutant, value, unit, recorded_at
		 FROM readings
		 WHERE station_id = ? AND pollutant = ? AND recorded_at BETWEEN ? AND ?
		 ORDER BY recorded_at`,
		stationID, pollutant, from, to)
	if err != nil {
		return nil, fmt.Errorf("query reading range: %w", err)
	}
	defer rows.Close()

	var readings []service.Reading
	for rows.Next() {
		var r service.Reading
		var unit sql.NullString
		if err := rows.Scan(&r.StationID, &r.Pollutant, &r.Value, &unit, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.Unit = unit.String
		readings = append(readings, r)
	}
	return readings, rows.Err()
}
