// Package store is the state container driving the viewer. It owns the
// flight list, the current selection and its detail, the busy flags and
// the last error, and orchestrates the backend command surface. Backend
// faults never escape an operation; they land in the error field of the
// published state.
package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

// DefaultPointBudget caps how many telemetry samples a flight detail
// request asks the backend for.
const DefaultPointBudget = 5000

// State is a point-in-time snapshot of the store, published as a value.
// Consumers must treat Detail as read-only.
type State struct {
	Flights    []flight.Flight `json:"flights"`
	SelectedID int64           `json:"selectedId,omitempty"` // 0 means nothing selected
	Detail     *flight.Detail  `json:"detail,omitempty"`
	Loading    bool            `json:"loading"`
	Importing  bool            `json:"importing"`
	LastError  string          `json:"lastError,omitempty"`
}

// Store orchestrates backend calls and holds viewer state. Operations are
// safe for concurrent use; the mutex is released across backend calls so
// unrelated operations may interleave. Last write wins, except for
// selection responses, which carry a generation token so a stale detail
// never overwrites a newer selection.
type Store struct {
	backend     flight.Backend
	logger      *slog.Logger
	pointBudget int

	mu         sync.Mutex
	flights    []flight.Flight
	selectedID int64
	detail     *flight.Detail
	loading    bool
	importing  bool
	lastError  string
	selectGen  uint64
}

// New creates a Store over the given backend.
func New(backend flight.Backend, options ...func(*Store)) *Store {
	s := &Store{
		backend:     backend,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		pointBudget: DefaultPointBudget,
	}

	for _, option := range options {
		option(s)
	}
	return s
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) func(*Store) {
	return func(s *Store) {
		s.logger = logger.With(slog.String("component", "store"))
	}
}

// WithPointBudget overrides the per-flight telemetry point budget.
func WithPointBudget(n int) func(*Store) {
	return func(s *Store) {
		if n > 0 {
			s.pointBudget = n
		}
	}
}

// Snapshot returns the current state. The flight list is copied; Detail is
// shared and must not be mutated by the caller.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Flights:    slices.Clone(s.flights),
		SelectedID: s.selectedID,
		Detail:     s.detail,
		Loading:    s.loading,
		Importing:  s.importing,
		LastError:  s.lastError,
	}
}

// LoadFlights replaces the flight list from the backend. When nothing is
// selected yet and the list is non-empty, the first flight is selected as
// a nested step. On failure the previous list is kept and the error is
// published in state.
func (s *Store) LoadFlights(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	flights, err := s.backend.ListFlights(ctx)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = fmt.Sprintf("loading flights: %s", err)
		s.mu.Unlock()

		s.logger.Error("loading flights failed", slog.Any("error", err))
		return
	}

	s.flights = flights
	selectFirst := s.selectedID == 0 && len(flights) > 0
	var firstID int64
	if selectFirst {
		firstID = flights[0].ID
	}
	s.mu.Unlock()

	s.logger.Debug("flights loaded", slog.Int("count", len(flights)))
	if selectFirst {
		s.SelectFlight(ctx, firstID)
	}
}

// SelectFlight optimistically records id as selected, then loads its
// detail. Only the response to the newest selection is applied; a stale
// response is discarded entirely, leaving the newer call's loading flag
// and detail untouched.
func (s *Store) SelectFlight(ctx context.Context, id int64) {
	s.mu.Lock()
	s.selectedID = id
	s.loading = true
	s.selectGen++
	gen := s.selectGen
	budget := s.pointBudget
	s.mu.Unlock()

	detail, err := s.backend.FlightDetail(ctx, id, budget)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.selectGen {
		s.logger.Debug("discarding stale selection response", slog.Int64("flight", id))
		return
	}

	s.loading = false
	if err != nil {
		s.lastError = fmt.Sprintf("loading flight %d: %s", id, err)
		s.logger.Error("loading flight detail failed", slog.Int64("flight", id), slog.Any("error", err))
		return
	}
	s.detail = detail
}

// ImportLog asks the backend to import the log at path. On success it
// reloads the flight list and selects the new flight; the importing flag
// stays up until both settle. Failures, including domain-level rejections
// the backend reports without an error, are published in state and
// returned as a failure result.
func (s *Store) ImportLog(ctx context.Context, path string) flight.ImportResult {
	s.mu.Lock()
	s.importing = true
	s.mu.Unlock()

	result, err := s.backend.ImportLog(ctx, path)

	if err != nil {
		s.mu.Lock()
		s.importing = false
		s.lastError = fmt.Sprintf("importing %s: %s", path, err)
		s.mu.Unlock()

		s.logger.Error("import failed", slog.String("path", path), slog.Any("error", err))
		return flight.ImportResult{Message: err.Error()}
	}

	if !result.Success {
		s.mu.Lock()
		s.importing = false
		s.lastError = fmt.Sprintf("importing %s: %s", path, result.Message)
		s.mu.Unlock()

		s.logger.Warn("import rejected", slog.String("path", path), slog.String("reason", result.Message))

		// A failure result carries no points, whatever the backend set.
		failed := *result
		failed.PointCount = 0
		return failed
	}

	s.LoadFlights(ctx)
	if result.FlightID != nil {
		s.SelectFlight(ctx, *result.FlightID)
	}

	s.mu.Lock()
	s.importing = false
	s.mu.Unlock()

	s.logger.Info("log imported",
		slog.String("path", path),
		slog.Int("points", result.PointCount))
	return *result
}

// DeleteFlight removes a flight. Deleting the selected flight clears the
// selection and detail before the list reloads, so no render pass sees a
// detail for a flight that is gone.
func (s *Store) DeleteFlight(ctx context.Context, id int64) {
	if err := s.backend.DeleteFlight(ctx, id); err != nil {
		s.mu.Lock()
		s.lastError = fmt.Sprintf("deleting flight %d: %s", id, err)
		s.mu.Unlock()

		s.logger.Error("deleting flight failed", slog.Int64("flight", id), slog.Any("error", err))
		return
	}

	s.mu.Lock()
	if s.selectedID == id {
		s.selectedID = 0
		s.detail = nil
		// Invalidate any in-flight selection of the deleted flight.
		s.selectGen++
	}
	s.mu.Unlock()

	s.logger.Info("flight deleted", slog.Int64("flight", id))
	s.LoadFlights(ctx)
}

// ClearError resets the published error.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
}
