// Package storage persists flights and their telemetry in SQLite and
// implements the backend command surface the viewer drives.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/flight-log-viewer/internal/decode"
	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

const defaultBatchSize = 500

// SqliteStore handles database operations. It opens its connections
// lazily: a WAL write connection used by imports and deletes, and a
// read-only connection for queries.
type SqliteStore struct {
	dbPath string
	runner *decode.Runner
	logger *slog.Logger

	maxBatchSize int

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store over the database at dbPath. The schema
// is initialized on first write access.
func NewSqliteStore(dbPath string, options ...func(*SqliteStore)) *SqliteStore {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	s := SqliteStore{
		dbPath:       dbPath,
		logger:       logger,
		maxBatchSize: defaultBatchSize,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) func(*SqliteStore) {
	return func(s *SqliteStore) {
		s.logger = logger.With(slog.String("component", "storage"))
	}
}

// WithDecoder sets the external decoder used for log formats the store
// cannot parse directly.
func WithDecoder(r *decode.Runner) func(*SqliteStore) {
	return func(s *SqliteStore) {
		s.runner = r
	}
}

// WithBatchSize sets the number of telemetry rows per batch insert.
func WithBatchSize(n int) func(*SqliteStore) {
	return func(s *SqliteStore) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		// The write connection creates the database file and schema.
		if _, err := s.getWriteDB(); err != nil {
			s.readDBErr = err
			return
		}

		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// ListFlights returns all stored flights ordered by start time, unknown
// start times last.
func (s *SqliteStore) ListFlights(ctx context.Context) (flights []flight.Flight, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectFlightsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying flights: %w", err)
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var d flightData
		if err = rows.Scan(
			&d.ID,
			&d.FileName,
			&d.DroneModel,
			&d.DroneSerial,
			&d.StartTime,
			&d.DurationSecs,
			&d.TotalDistance,
			&d.MaxAltitude,
			&d.MaxSpeed,
			&d.PointCount,
		); err != nil {
			return nil, fmt.Errorf("scanning flight: %w", err)
		}
		flights = append(flights, toFlight(&d))
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("reading flights: %w", err)
	}
	return flights, nil
}

// FlightDetail loads one flight with its telemetry and track, downsampled
// by stride to at most maxPoints samples. The final sample is always
// retained.
func (s *SqliteStore) FlightDetail(ctx context.Context, id int64, maxPoints int) (detail *flight.Detail, err error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	var d flightData
	if err = db.QueryRowContext(ctx, selectFlightSQL, id).Scan(
		&d.ID,
		&d.FileName,
		&d.DroneModel,
		&d.DroneSerial,
		&d.StartTime,
		&d.DurationSecs,
		&d.TotalDistance,
		&d.MaxAltitude,
		&d.MaxSpeed,
		&d.HomeLat,
		&d.HomeLon,
		&d.PointCount,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("flight %d not found", id)
		}
		return nil, fmt.Errorf("scanning flight: %w", err)
	}

	rows, err := db.QueryContext(ctx, selectTelemetrySQL, id)
	if err != nil {
		return nil, fmt.Errorf("querying telemetry: %w", err)
	}
	defer closeWithError(rows, &err)

	var samples []telemetryData
	for rows.Next() {
		var t telemetryData
		if err = rows.Scan(
			&t.TimestampMs,
			&t.Latitude,
			&t.Longitude,
			&t.Altitude,
			&t.Speed,
			&t.Battery,
			&t.Satellites,
			&t.Pitch,
			&t.Roll,
			&t.Yaw,
		); err != nil {
			return nil, fmt.Errorf("scanning telemetry: %w", err)
		}
		samples = append(samples, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("reading telemetry: %w", err)
	}

	samples = downsample(samples, maxPoints)

	detail = &flight.Detail{Flight: toFlight(&d)}
	if d.HomeLat.Valid && d.HomeLon.Valid {
		detail.Home = &flight.Point{Lon: d.HomeLon.Float64, Lat: d.HomeLat.Float64}
	}

	var baseMs int64
	if len(samples) > 0 {
		baseMs = samples[0].TimestampMs
	}

	tel := flight.Telemetry{
		Time:       make([]float64, len(samples)),
		Altitude:   make([]*float64, len(samples)),
		Speed:      make([]*float64, len(samples)),
		Battery:    make([]*int64, len(samples)),
		Satellites: make([]*int64, len(samples)),
		Pitch:      make([]*float64, len(samples)),
		Roll:       make([]*float64, len(samples)),
		Yaw:        make([]*float64, len(samples)),
	}

	for i, t := range samples {
		tel.Time[i] = float64(t.TimestampMs-baseMs) / 1000
		tel.Altitude[i] = floatPtr(t.Altitude)
		tel.Speed[i] = floatPtr(t.Speed)
		tel.Battery[i] = intPtr(t.Battery)
		tel.Satellites[i] = intPtr(t.Satellites)
		tel.Pitch[i] = floatPtr(t.Pitch)
		tel.Roll[i] = floatPtr(t.Roll)
		tel.Yaw[i] = floatPtr(t.Yaw)

		if t.Latitude.Valid && t.Longitude.Valid {
			p := flight.Point{Lon: t.Longitude.Float64, Lat: t.Latitude.Float64}
			if t.Altitude.Valid {
				p.Alt = t.Altitude.Float64
			}
			detail.Track = append(detail.Track, p)
		}
	}
	detail.Telemetry = tel

	return detail, nil
}

// downsample reduces samples to at most maxPoints by stride, always
// keeping the final sample. The final sample has a slot reserved for it,
// so the budget holds even when the stride walk does not land on it.
func downsample(samples []telemetryData, maxPoints int) []telemetryData {
	if maxPoints <= 0 || len(samples) <= maxPoints {
		return samples
	}
	if maxPoints == 1 {
		return samples[len(samples)-1:]
	}

	head := len(samples) - 1
	stride := (head + maxPoints - 2) / (maxPoints - 1)
	out := make([]telemetryData, 0, maxPoints)
	for i := 0; i < head; i += stride {
		out = append(out, samples[i])
	}
	return append(out, samples[head])
}

// DeleteFlight removes a flight and all of its telemetry.
func (s *SqliteStore) DeleteFlight(ctx context.Context, id int64) (err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	if _, err = tx.ExecContext(ctx, deleteTelemetrySQL, id); err != nil {
		return fmt.Errorf("deleting telemetry: %w", err)
	}

	result, err := tx.ExecContext(ctx, deleteFlightSQL, id)
	if err != nil {
		return fmt.Errorf("deleting flight: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("flight %d not found", id)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Info("flight deleted", slog.Int64("flight", id))
	return nil
}

// Close releases both database connections. Safe to call multiple times.
func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		switch {
		case writeErr != nil && readErr != nil:
			s.closeErr = errors.Join(writeErr, readErr)
		case writeErr != nil:
			s.closeErr = writeErr
		case readErr != nil:
			s.closeErr = readErr
		}
	})

	return s.closeErr
}
