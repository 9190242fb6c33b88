package flight

import "context"

// Backend is the command surface the viewer drives. Implementations own
// parsing, persistence and downsampling; the store on top of this
// interface only orchestrates calls and state.
type Backend interface {
	// ListFlights returns every stored flight, ordered by start time.
	// The result replaces any previously fetched list wholesale.
	ListFlights(ctx context.Context) ([]Flight, error)

	// FlightDetail loads one flight's telemetry and track. The backend is
	// responsible for downsampling the series to at most maxPoints samples
	// before returning them.
	FlightDetail(ctx context.Context, id int64, maxPoints int) (*Detail, error)

	// ImportLog parses the log file at path and stores it as a new flight.
	// A domain-level failure (unreadable log, duplicate file) is reported
	// through ImportResult.Success = false without an error.
	ImportLog(ctx context.Context, path string) (*ImportResult, error)

	// DeleteFlight removes a flight and all of its telemetry.
	DeleteFlight(ctx context.Context, id int64) error

	// Close releases backend resources. Safe to call multiple times.
	Close() error
}
