package storage

import (
	"database/sql"
)

type flightData struct {
	ID            int64
	FileName      string
	FileHash      string
	DroneModel    sql.NullString
	DroneSerial   sql.NullString
	StartTime     sql.NullTime
	DurationSecs  sql.NullFloat64
	TotalDistance sql.NullFloat64
	MaxAltitude   sql.NullFloat64
	MaxSpeed      sql.NullFloat64
	HomeLat       sql.NullFloat64
	HomeLon       sql.NullFloat64
	PointCount    int
}

type telemetryData struct {
	FlightID    int64
	TimestampMs int64
	Latitude    sql.NullFloat64
	Longitude   sql.NullFloat64
	Altitude    sql.NullFloat64
	Speed       sql.NullFloat64
	Battery     sql.NullInt64
	Satellites  sql.NullInt64
	Pitch       sql.NullFloat64
	Roll        sql.NullFloat64
	Yaw         sql.NullFloat64
}
