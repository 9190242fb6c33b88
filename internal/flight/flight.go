package flight

import (
	"encoding/json"
	"fmt"
	"time"
)

// Flight is the list-item projection of a stored flight. It is immutable
// once fetched; the backend replaces the whole list on every reload.
type Flight struct {
	ID            int64      `json:"id"`                      // Unique identifier for the flight
	FileName      string     `json:"fileName"`                // Name of the imported log file
	DroneModel    *string    `json:"droneModel,omitempty"`    // Drone model, if the log reports one
	DroneSerial   *string    `json:"droneSerial,omitempty"`   // Drone serial number, if the log reports one
	StartTime     *time.Time `json:"startTime,omitempty"`     // When the flight began
	DurationSecs  *float64   `json:"durationSecs,omitempty"`  // Flight duration in seconds
	TotalDistance *float64   `json:"totalDistance,omitempty"` // Total distance flown in meters
	MaxAltitude   *float64   `json:"maxAltitude,omitempty"`   // Maximum altitude in meters
	MaxSpeed      *float64   `json:"maxSpeed,omitempty"`      // Maximum ground speed in m/s
	PointCount    int        `json:"pointCount"`              // Number of telemetry samples stored
}

// Point is a single geodetic track sample. It marshals to the compact
// [lon, lat, alt] triple the map UI consumes.
type Point struct {
	Lon float64 // Longitude in degrees
	Lat float64 // Latitude in degrees
	Alt float64 // Altitude in meters
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Lon, p.Lat, p.Alt})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var v [3]float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.Lon, p.Lat, p.Alt = v[0], v[1], v[2]
	return nil
}

// Track is the ordered flight path. Minimum length is zero; derived
// artifacts (smoothed path, gradient segments) are recomputed per render
// and never stored back onto the track.
type Track []Point

// Telemetry holds the parallel time-indexed channels of one flight.
// All slices have equal length; individual entries may be nil when the
// log had no reading for that channel at that index.
type Telemetry struct {
	Time       []float64  `json:"time"`       // Seconds elapsed from flight start
	Altitude   []*float64 `json:"altitude"`   // Altitude in meters
	Speed      []*float64 `json:"speed"`      // Ground speed in m/s
	Battery    []*int64   `json:"battery"`    // Battery charge in percent
	Satellites []*int64   `json:"satellites"` // Number of GPS satellites
	Pitch      []*float64 `json:"pitch"`      // Pitch angle in degrees
	Roll       []*float64 `json:"roll"`       // Roll angle in degrees
	Yaw        []*float64 `json:"yaw"`        // Yaw/heading in degrees
}

// Len returns the number of samples in the telemetry bundle.
func (t *Telemetry) Len() int {
	return len(t.Time)
}

// Validate checks the equal-length invariant across all channels.
func (t *Telemetry) Validate() error {
	n := len(t.Time)
	channels := map[string]int{
		"altitude":   len(t.Altitude),
		"speed":      len(t.Speed),
		"battery":    len(t.Battery),
		"satellites": len(t.Satellites),
		"pitch":      len(t.Pitch),
		"roll":       len(t.Roll),
		"yaw":        len(t.Yaw),
	}
	for name, l := range channels {
		if l != n {
			return fmt.Errorf("telemetry channel %s has %d samples, want %d", name, l, n)
		}
	}
	return nil
}

// Detail is the full, lazily loaded view of one flight. The store holds at
// most one Detail at a time; selecting another flight discards it.
type Detail struct {
	Flight    Flight    `json:"flight"`
	Telemetry Telemetry `json:"telemetry"`
	Track     Track     `json:"track"`
	Home      *Point    `json:"home,omitempty"` // Recorded home point, if the drone had a home lock
}

// ImportResult reports the outcome of one import attempt. It is transient:
// the store acts on it (reload + select) but never persists it.
type ImportResult struct {
	Success    bool   `json:"success"`
	FlightID   *int64 `json:"flightId,omitempty"` // ID of the newly created flight on success
	Message    string `json:"message"`
	PointCount int    `json:"pointCount"`
}
