package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
	"github.com/roman-kulish/flight-log-viewer/internal/scene"
	"github.com/roman-kulish/flight-log-viewer/internal/session"
	"github.com/roman-kulish/flight-log-viewer/internal/store"
)

type fakeBackend struct {
	flights []flight.Flight
}

func (b *fakeBackend) ListFlights(ctx context.Context) ([]flight.Flight, error) {
	return b.flights, nil
}

func (b *fakeBackend) FlightDetail(ctx context.Context, id int64, maxPoints int) (*flight.Detail, error) {
	for _, f := range b.flights {
		if f.ID == id {
			return &flight.Detail{
				Flight: f,
				Track: flight.Track{
					{Lon: 151.20, Lat: -33.86, Alt: 0},
					{Lon: 151.21, Lat: -33.85, Alt: 20},
					{Lon: 151.22, Lat: -33.84, Alt: 40},
				},
				Telemetry: flight.Telemetry{
					Time:       []float64{0, 1, 2},
					Altitude:   make([]*float64, 3),
					Speed:      make([]*float64, 3),
					Battery:    make([]*int64, 3),
					Satellites: make([]*int64, 3),
					Pitch:      make([]*float64, 3),
					Roll:       make([]*float64, 3),
					Yaw:        make([]*float64, 3),
				},
			}, nil
		}
	}
	return nil, fmt.Errorf("flight %d not found", id)
}

func (b *fakeBackend) ImportLog(ctx context.Context, path string) (*flight.ImportResult, error) {
	return &flight.ImportResult{Message: "unsupported log format"}, nil
}

func (b *fakeBackend) DeleteFlight(ctx context.Context, id int64) error { return nil }

func (b *fakeBackend) Close() error { return nil }

func newTestServer(t *testing.T, backend flight.Backend) *httptest.Server {
	t.Helper()

	st := store.New(backend)
	st.LoadFlights(context.Background())

	snapshot, err := scene.NewSnapshotRenderer(scene.SnapshotConfig{})
	if err != nil {
		t.Fatalf("NewSnapshotRenderer() error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(newServer(st, scene.NewRenderer(session.New()), snapshot, false, logger))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err = json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding %s: %v", url, err)
	}
}

func TestStateAndSelect(t *testing.T) {
	backend := &fakeBackend{flights: []flight.Flight{
		{ID: 1, FileName: "first.csv"},
		{ID: 2, FileName: "second.csv"},
	}}
	srv := newTestServer(t, backend)

	var state store.State
	getJSON(t, srv.URL+"/api/state", &state)

	if len(state.Flights) != 2 {
		t.Fatalf("got %d flights, want 2", len(state.Flights))
	}
	if state.SelectedID != 1 {
		t.Errorf("selected = %d, want first flight auto-selected", state.SelectedID)
	}
	if state.Detail == nil || state.Detail.Flight.ID != 1 {
		t.Error("detail of the first flight not loaded")
	}

	resp, err := http.Post(srv.URL+"/api/flights/2/select", "application/json", nil)
	if err != nil {
		t.Fatalf("POST select: %v", err)
	}
	defer resp.Body.Close()

	if err = json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decoding select response: %v", err)
	}
	if state.SelectedID != 2 || state.Detail == nil || state.Detail.Flight.ID != 2 {
		t.Errorf("selection did not move to flight 2: %+v", state)
	}
}

func TestSelectInvalidID(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{})

	resp, err := http.Post(srv.URL+"/api/flights/abc/select", "application/json", nil)
	if err != nil {
		t.Fatalf("POST select: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSceneAndCharts(t *testing.T) {
	backend := &fakeBackend{flights: []flight.Flight{{ID: 1, FileName: "first.csv"}}}
	srv := newTestServer(t, backend)

	var sc scene.Scene
	getJSON(t, srv.URL+"/api/scene", &sc)

	if len(sc.Path.Segments) == 0 {
		t.Error("scene has no path segments")
	}
	if len(sc.Markers) == 0 {
		t.Error("scene has no markers")
	}

	resp, err := http.Get(srv.URL + "/api/charts")
	if err != nil {
		t.Fatalf("GET charts: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("charts status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Altitude") {
		t.Error("charts page is missing the altitude chart")
	}
}

func TestNoSelectionIs404(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{})

	for _, path := range []string{"/api/scene", "/api/charts", "/api/track.png"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestViewToggles(t *testing.T) {
	backend := &fakeBackend{flights: []flight.Flight{{ID: 1, FileName: "first.csv"}}}
	srv := newTestServer(t, backend)

	resp, err := http.Post(srv.URL+"/api/view", "application/json",
		strings.NewReader(`{"view3d": true, "satellite": true}`))
	if err != nil {
		t.Fatalf("POST view: %v", err)
	}
	defer resp.Body.Close()

	var sc scene.Scene
	if err = json.NewDecoder(resp.Body).Decode(&sc); err != nil {
		t.Fatalf("decoding scene: %v", err)
	}

	if sc.Terrain == nil || sc.Sky == nil {
		t.Error("terrain and sky not enabled")
	}
	if sc.Basemap != scene.BasemapSatellite {
		t.Errorf("basemap = %s, want satellite", sc.Basemap)
	}
	if sc.Viewport.Pitch != 60 {
		t.Errorf("pitch = %v, want 60", sc.Viewport.Pitch)
	}
}

func TestImportWithoutDialog(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{})

	resp, err := http.Post(srv.URL+"/api/import", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST import: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 when the dialog is disabled", resp.StatusCode)
	}
}

func TestImportRejectsUploads(t *testing.T) {
	srv := newTestServer(t, &fakeBackend{})

	resp, err := http.Post(srv.URL+"/api/import",
		"multipart/form-data; boundary=x", strings.NewReader("--x--"))
	if err != nil {
		t.Fatalf("POST import: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body map[string]string
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if !strings.Contains(body["error"], "file picker") {
		t.Errorf("error = %q, want a pointer to the file picker", body["error"])
	}
}

func TestTrackImage(t *testing.T) {
	backend := &fakeBackend{flights: []flight.Flight{{ID: 1, FileName: "first.csv"}}}
	srv := newTestServer(t, backend)

	resp, err := http.Get(srv.URL + "/api/track.png")
	if err != nil {
		t.Fatalf("GET track.png: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %s", ct)
	}

	sig := make([]byte, 8)
	if _, err = io.ReadFull(resp.Body, sig); err != nil {
		t.Fatalf("reading image: %v", err)
	}
	if string(sig[1:4]) != "PNG" {
		t.Error("response is not a PNG image")
	}
}
