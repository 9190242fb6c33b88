package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/ncruces/zenity"

	"github.com/roman-kulish/flight-log-viewer/internal/charts"
	"github.com/roman-kulish/flight-log-viewer/internal/scene"
	"github.com/roman-kulish/flight-log-viewer/internal/store"
)

// server exposes the viewer state and rendering over a local HTTP API.
type server struct {
	store    *store.Store
	snapshot *scene.SnapshotRenderer
	dialog   bool
	logger   *slog.Logger

	// renderer keeps per-session camera state and is not safe for
	// concurrent use.
	mu       sync.Mutex
	renderer *scene.Renderer
}

func newServer(st *store.Store, renderer *scene.Renderer, snapshot *scene.SnapshotRenderer, dialog bool, logger *slog.Logger) http.Handler {
	s := server{
		store:    st,
		renderer: renderer,
		snapshot: snapshot,
		dialog:   dialog,
		logger:   logger.With(slog.String("component", "server")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/flights", s.handleFlights)
	mux.HandleFunc("POST /api/flights/{id}/select", s.handleSelect)
	mux.HandleFunc("DELETE /api/flights/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/scene", s.handleScene)
	mux.HandleFunc("GET /api/charts", s.handleCharts)
	mux.HandleFunc("GET /api/track.png", s.handleTrackImage)
	mux.HandleFunc("POST /api/view", s.handleView)
	mux.HandleFunc("POST /api/error/clear", s.handleClearError)
	return mux
}

func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.Snapshot())
}

func (s *server) handleFlights(w http.ResponseWriter, r *http.Request) {
	s.store.LoadFlights(r.Context())
	writeJSON(w, s.store.Snapshot().Flights)
}

func (s *server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id, err := flightID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.store.SelectFlight(r.Context(), id)
	writeJSON(w, s.store.Snapshot())
}

func (s *server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := flightID(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.store.DeleteFlight(r.Context(), id)
	writeJSON(w, s.store.Snapshot())
}

func (s *server) handleImport(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		writeJSONError(w, http.StatusBadRequest,
			"file uploads are not supported; import by path or through the file picker")
		return
	}

	var req struct {
		Path string `json:"path"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	path := req.Path
	if path == "" {
		if !s.dialog {
			writeJSONError(w, http.StatusBadRequest, "no path given and the file dialog is disabled")
			return
		}

		var err error
		path, err = zenity.SelectFile(
			zenity.Title("Select Flight Log"),
			zenity.FileFilters{
				{Name: "Flight logs", Patterns: []string{"*.csv", "*.txt", "*.log"}},
				{Name: "All files", Patterns: []string{"*"}},
			},
		)
		if errors.Is(err, zenity.ErrCanceled) {
			writeJSON(w, s.store.Snapshot())
			return
		}
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("opening file dialog: %s", err))
			return
		}
	}

	result := s.store.ImportLog(r.Context(), path)
	writeJSON(w, result)
}

func (s *server) handleScene(w http.ResponseWriter, r *http.Request) {
	detail := s.store.Snapshot().Detail
	if detail == nil {
		writeJSONError(w, http.StatusNotFound, "no flight selected")
		return
	}

	s.mu.Lock()
	sc := s.renderer.Compose(detail)
	s.mu.Unlock()

	writeJSON(w, sc)
}

func (s *server) handleCharts(w http.ResponseWriter, r *http.Request) {
	detail := s.store.Snapshot().Detail
	if detail == nil {
		writeJSONError(w, http.StatusNotFound, "no flight selected")
		return
	}

	w.Header().Set("Content-Type", "text/html")
	if err := charts.Shape(&detail.Telemetry).WritePage(w); err != nil {
		s.logger.Error("rendering charts", slog.String("error", err.Error()))
	}
}

func (s *server) handleTrackImage(w http.ResponseWriter, r *http.Request) {
	detail := s.store.Snapshot().Detail
	if detail == nil {
		writeJSONError(w, http.StatusNotFound, "no flight selected")
		return
	}

	s.mu.Lock()
	sc := s.renderer.Compose(detail)
	s.mu.Unlock()

	img, err := s.snapshot.Render(sc, detail.Flight)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("rendering snapshot: %s", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err = png.Encode(w, img); err != nil {
		s.logger.Error("encoding snapshot", slog.String("error", err.Error()))
	}
}

func (s *server) handleView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		View3D    *bool           `json:"view3d"`
		Satellite *bool           `json:"satellite"`
		Viewport  *scene.Viewport `json:"viewport"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	if req.View3D != nil {
		s.renderer.SetView3D(*req.View3D)
	}
	if req.Satellite != nil {
		s.renderer.SetSatellite(*req.Satellite)
	}
	if req.Viewport != nil {
		s.renderer.SetViewport(*req.Viewport)
	}
	s.mu.Unlock()

	s.handleScene(w, r)
}

func (s *server) handleClearError(w http.ResponseWriter, r *http.Request) {
	s.store.ClearError()
	writeJSON(w, s.store.Snapshot())
}

func flightID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid flight id %q", r.PathValue("id"))
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
