package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/roman-kulish/flight-log-viewer/internal/decode"
	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

// rollbackWithError is safe to defer past a successful Commit; the
// ErrTxDone from the no-op rollback is not surfaced.
func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}

func toTelemetryData(flightID int64, rec *decode.Record) *telemetryData {
	return &telemetryData{
		FlightID:    flightID,
		TimestampMs: rec.TimestampMs,
		Latitude:    nullFloat(rec.Latitude),
		Longitude:   nullFloat(rec.Longitude),
		Altitude:    nullFloat(rec.Altitude),
		Speed:       nullFloat(rec.Speed),
		Battery:     nullInt(rec.Battery),
		Satellites:  nullInt(rec.Satellites),
		Pitch:       nullFloat(rec.Pitch),
		Roll:        nullFloat(rec.Roll),
		Yaw:         nullFloat(rec.Yaw),
	}
}

func toFlight(d *flightData) flight.Flight {
	return flight.Flight{
		ID:            d.ID,
		FileName:      d.FileName,
		DroneModel:    stringPtr(d.DroneModel),
		DroneSerial:   stringPtr(d.DroneSerial),
		StartTime:     timePtr(d.StartTime),
		DurationSecs:  floatPtr(d.DurationSecs),
		TotalDistance: floatPtr(d.TotalDistance),
		MaxAltitude:   floatPtr(d.MaxAltitude),
		MaxSpeed:      floatPtr(d.MaxSpeed),
		PointCount:    d.PointCount,
	}
}
