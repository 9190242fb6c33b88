package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roman-kulish/flight-log-viewer/internal/decode"
	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

// textExtensions are log formats the store parses directly as CSV; other
// formats go through the configured external decoder.
var textExtensions = map[string]bool{
	".csv": true,
	".txt": true,
	".log": true,
}

const earthRadiusMeters = 6_371_000

// flightStats is what import derives from the decoded records before
// writing the flight row.
type flightStats struct {
	durationSecs  *float64
	totalDistance *float64
	maxAltitude   *float64
	maxSpeed      *float64
	homeLat       *float64
	homeLon       *float64
}

// ImportLog decodes the log at path and stores it as a new flight.
// Unreadable or duplicate logs are domain-level failures reported through
// the result; an error is returned only for storage faults.
func (s *SqliteStore) ImportLog(ctx context.Context, path string) (*flight.ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &flight.ImportResult{
			Message: fmt.Sprintf("cannot read %s: %s", filepath.Base(path), err),
		}, nil
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if dupID, err := s.findByHash(ctx, hash); err != nil {
		return nil, err
	} else if dupID != 0 {
		return &flight.ImportResult{
			Message: fmt.Sprintf("%s is already imported as flight %d", filepath.Base(path), dupID),
		}, nil
	}

	res, failure, err := s.decodeLog(ctx, path, data)
	if err != nil {
		return nil, err
	}
	if failure != "" {
		return &flight.ImportResult{Message: failure}, nil
	}
	if len(res.Records) == 0 {
		return &flight.ImportResult{
			Message: fmt.Sprintf("no telemetry records found in %s", filepath.Base(path)),
		}, nil
	}

	stats := computeStats(res.Records)

	id, err := s.storeFlight(ctx, filepath.Base(path), hash, res, stats)
	if err != nil {
		return nil, err
	}

	s.logger.Info("flight imported",
		slog.Int64("flight", id),
		slog.String("file", filepath.Base(path)),
		slog.Int("points", len(res.Records)))

	return &flight.ImportResult{
		Success:    true,
		FlightID:   &id,
		Message:    fmt.Sprintf("imported %d points from %s", len(res.Records), filepath.Base(path)),
		PointCount: len(res.Records),
	}, nil
}

// decodeLog picks the decoding path by extension. A decode failure is a
// domain-level failure, returned as a message.
func (s *SqliteStore) decodeLog(ctx context.Context, path string, data []byte) (res *decode.Result, failure string, err error) {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case textExtensions[ext]:
		res, err = decode.ParseCSV(bytes.NewReader(data))

	case s.runner != nil:
		res, err = s.runner.Decode(ctx, path)

	default:
		return nil, fmt.Sprintf("unsupported log format %q and no decoder configured", ext), nil
	}

	if err != nil {
		return nil, fmt.Sprintf("decoding %s: %s", base, err), nil
	}
	return res, "", nil
}

func (s *SqliteStore) findByHash(ctx context.Context, hash string) (int64, error) {
	db, err := s.getReadDB()
	if err != nil {
		return 0, fmt.Errorf("getting read connection: %w", err)
	}

	var id int64
	err = db.QueryRowContext(ctx, selectFlightByHashSQL, hash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("checking for duplicate: %w", err)
	}
	return id, nil
}

// storeFlight writes the flight row and its telemetry in one transaction.
func (s *SqliteStore) storeFlight(ctx context.Context, fileName, hash string, res *decode.Result, stats flightStats) (id int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		return 0, fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	result, err := tx.ExecContext(ctx, insertFlightSQL,
		fileName,
		hash,
		nullString(res.Meta.DroneModel),
		nullString(res.Meta.DroneSerial),
		nullTime(res.Meta.StartTime),
		nullFloat(stats.durationSecs),
		nullFloat(stats.totalDistance),
		nullFloat(stats.maxAltitude),
		nullFloat(stats.maxSpeed),
		nullFloat(stats.homeLat),
		nullFloat(stats.homeLon),
		len(res.Records),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting flight: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting flight ID: %w", err)
	}

	for chunk := range slices.Chunk(res.Records, s.maxBatchSize) {
		if err = insertTelemetryBatch(ctx, tx, id, chunk); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return id, nil
}

func insertTelemetryBatch(ctx context.Context, tx *sql.Tx, flightID int64, records []*decode.Record) error {
	const valuesPlaceholder = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

	values := make([]interface{}, 0, len(records)*11)

	var sb strings.Builder
	sb.WriteString(insertTelemetrySQL)

	for i, rec := range records {
		data := toTelemetryData(flightID, rec)
		values = append(values,
			data.FlightID,
			data.TimestampMs,
			data.Latitude,
			data.Longitude,
			data.Altitude,
			data.Speed,
			data.Battery,
			data.Satellites,
			data.Pitch,
			data.Roll,
			data.Yaw,
		)

		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(valuesPlaceholder)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), values...); err != nil {
		return fmt.Errorf("batch inserting telemetry: %w", err)
	}
	return nil
}

// computeStats derives duration, distance, extremes and the home point
// from decoded records. Records are assumed time ordered.
func computeStats(records []*decode.Record) flightStats {
	var stats flightStats

	if len(records) > 1 {
		d := float64(records[len(records)-1].TimestampMs-records[0].TimestampMs) / 1000
		stats.durationSecs = &d
	}

	var distance float64
	var haveDistance bool
	var prevLat, prevLon float64
	var havePrev bool

	for _, rec := range records {
		if rec.Altitude != nil && (stats.maxAltitude == nil || *rec.Altitude > *stats.maxAltitude) {
			stats.maxAltitude = rec.Altitude
		}
		if rec.Speed != nil && (stats.maxSpeed == nil || *rec.Speed > *stats.maxSpeed) {
			stats.maxSpeed = rec.Speed
		}

		if rec.Latitude == nil || rec.Longitude == nil {
			continue
		}
		if stats.homeLat == nil {
			stats.homeLat = rec.Latitude
			stats.homeLon = rec.Longitude
		}
		if havePrev {
			distance += haversineMeters(prevLat, prevLon, *rec.Latitude, *rec.Longitude)
			haveDistance = true
		}
		prevLat, prevLon = *rec.Latitude, *rec.Longitude
		havePrev = true
	}

	if haveDistance {
		stats.totalDistance = &distance
	}
	return stats
}

// haversineMeters returns the great-circle distance between two
// coordinates.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}
