// Package scene composes the layered map scene for a flight track and
// owns the viewport plus the persisted view toggles. The composed Scene is
// a plain value a map UI (or the snapshot renderer) consumes; all geometry
// inside it is recomputed per render pass, never cached across flights.
package scene

import (
	"github.com/roman-kulish/flight-log-viewer/internal/flight"
	"github.com/roman-kulish/flight-log-viewer/internal/geo"
)

// Basemap identifies the raster base layer.
type Basemap string

const (
	BasemapDark      Basemap = "dark"
	BasemapLight     Basemap = "light"
	BasemapSatellite Basemap = "satellite"
)

// MarkerKind identifies one of the three track markers.
type MarkerKind string

const (
	MarkerStart MarkerKind = "start" // Pulsing dot on the first sample
	MarkerEnd   MarkerKind = "end"   // Directional icon on the last sample
	MarkerHome  MarkerKind = "home"  // Crosshair on the recorded home point
)

// Marker is a single point decoration on the track.
type Marker struct {
	Kind     MarkerKind   `json:"kind"`
	Position flight.Point `json:"position"`
	Bearing  float64      `json:"bearing,omitempty"` // Heading in degrees, end marker only
}

// ShadowLayer is the wide low-opacity dark path drawn under the gradient.
type ShadowLayer struct {
	Points  flight.Track `json:"points"`
	Color   string       `json:"color"`
	Width   float64      `json:"width"`
	Opacity float64      `json:"opacity"`
}

// PathLayer is the gradient-colored path drawn on top of the shadow.
type PathLayer struct {
	Segments []geo.Segment `json:"segments"`
	Width    float64       `json:"width"`
}

// TerrainLayer is the elevation source active in 3D view.
type TerrainLayer struct {
	Source       string  `json:"source"`
	Exaggeration float64 `json:"exaggeration"`
}

// SkyLayer is the atmosphere decoration shown above terrain.
type SkyLayer struct {
	ID string `json:"id"`
}

// Viewport is the camera state. Mutated by user interaction and by
// auto-framing when the displayed flight changes.
type Viewport struct {
	Lon     float64 `json:"lon"`
	Lat     float64 `json:"lat"`
	Zoom    float64 `json:"zoom"`
	Pitch   float64 `json:"pitch"`
	Bearing float64 `json:"bearing"`
}

// Scene is one fully composed render pass, layered bottom to top:
// basemap, optional terrain and sky, shadow path, gradient path, markers.
type Scene struct {
	Basemap  Basemap       `json:"basemap"`
	Terrain  *TerrainLayer `json:"terrain,omitempty"`
	Sky      *SkyLayer     `json:"sky,omitempty"`
	Shadow   ShadowLayer   `json:"shadow"`
	Path     PathLayer     `json:"path"`
	Markers  []Marker      `json:"markers"`
	Viewport Viewport      `json:"viewport"`
}
