package storage

import (
	_ "embed"
)

const (
	insertFlightSQL = `
INSERT INTO flights (file_name,
                     file_hash,
                     drone_model,
                     drone_serial,
                     start_time,
                     duration_secs,
                     total_distance,
                     max_altitude,
                     max_speed,
                     home_lat,
                     home_lon,
                     point_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectFlightsSQL = `
SELECT
    id,
    file_name,
    drone_model,
    drone_serial,
    start_time,
    duration_secs,
    total_distance,
    max_altitude,
    max_speed,
    point_count
FROM flights
ORDER BY
    start_time IS NULL,
    start_time,
    id`

	selectFlightSQL = `
SELECT
    id,
    file_name,
    drone_model,
    drone_serial,
    start_time,
    duration_secs,
    total_distance,
    max_altitude,
    max_speed,
    home_lat,
    home_lon,
    point_count
FROM flights
WHERE
    id = ?`

	selectFlightByHashSQL = `
SELECT id
FROM flights
WHERE
    file_hash = ?`

	selectTelemetrySQL = `
SELECT
    timestamp_ms,
    latitude,
    longitude,
    altitude,
    speed,
    battery,
    satellites,
    pitch,
    roll,
    yaw
FROM telemetry
WHERE
    flight_id = ?
ORDER BY
    timestamp_ms,
    id`

	insertTelemetrySQL = `
INSERT INTO telemetry (flight_id,
                       timestamp_ms,
                       latitude,
                       longitude,
                       altitude,
                       speed,
                       battery,
                       satellites,
                       pitch,
                       roll,
                       yaw)
VALUES `

	deleteTelemetrySQL = `
DELETE FROM telemetry
WHERE
    flight_id = ?`

	deleteFlightSQL = `
DELETE FROM flights
WHERE
    id = ?`
)

//go:embed schema.sql
var initSchemaSQL string
