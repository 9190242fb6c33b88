// Package decode turns flight-log files into telemetry records. Text
// exports are parsed directly as CSV; binary formats go through a
// configurable external decoder process whose CSV stdout is collected the
// same way. Records stream in roughly time order but may interleave, so a
// timestamp-ordered buffer sits between parsing and the caller.
package decode

import "time"

// Record is one raw telemetry sample as decoded from a log, before
// storage. Channel pointers are nil when the log had no reading at that
// sample.
type Record struct {
	TimestampMs int64    // Milliseconds from flight start
	Latitude    *float64 // Latitude in degrees
	Longitude   *float64 // Longitude in degrees
	Altitude    *float64 // Altitude in meters
	Speed       *float64 // Ground speed in m/s
	Battery     *int64   // Battery charge in percent
	Satellites  *int64   // Number of GPS satellites
	Pitch       *float64 // Pitch angle in degrees
	Roll        *float64 // Roll angle in degrees
	Yaw         *float64 // Yaw/heading in degrees
}

// Metadata is per-file information gathered from rows preceding the
// telemetry header.
type Metadata struct {
	DroneModel  *string
	DroneSerial *string
	StartTime   *time.Time // Absolute flight start, when the log carries one
}

// Result is the outcome of decoding one log file: metadata plus records
// ordered by timestamp.
type Result struct {
	Meta    Metadata
	Records []*Record
}
