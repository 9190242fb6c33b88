package scene

import (
	"math"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
	"github.com/roman-kulish/flight-log-viewer/internal/geo"
	"github.com/roman-kulish/flight-log-viewer/internal/session"
)

// Preference keys for the two toggles that survive across runs.
const (
	KeyView3D    = "view3d"
	KeySatellite = "satellite"
)

const (
	shadowColor   = "#0a0a0a"
	shadowWidth   = 10.0
	shadowOpacity = 0.25
	pathWidth     = 4.0

	terrainSource       = "terrain-dem"
	terrainExaggeration = 1.5

	pitch3D = 60.0

	// A home point this close to (0, 0) means "no home lock" and is not
	// marked.
	homeEpsilon = 1e-6
)

// Renderer composes scenes and owns the viewport and view toggles. It is
// not safe for concurrent use; the viewer drives it from its handler
// goroutine one render pass at a time.
type Renderer struct {
	prefs *session.Store

	basemap      Basemap
	subdivisions int
	startColor   geo.RGB
	endColor     geo.RGB

	viewport  Viewport
	view3D    bool
	satellite bool
	sky       *SkyLayer // created lazily on first 3D enable
	terrain   *TerrainLayer
	flightID  int64 // identity of the last framed flight, 0 for none
}

// NewRenderer restores the persisted toggles from prefs and returns a
// renderer with a world-view viewport.
func NewRenderer(prefs *session.Store, options ...func(*Renderer)) *Renderer {
	r := &Renderer{
		prefs:        prefs,
		basemap:      BasemapDark,
		subdivisions: geo.DefaultSubdivisions,
		startColor:   geo.DefaultStartColor,
		endColor:     geo.DefaultEndColor,
		viewport:     Viewport{Zoom: geo.MinZoom},
	}

	for _, option := range options {
		option(r)
	}

	r.satellite = prefs.GetBool(KeySatellite, false)
	if prefs.GetBool(KeyView3D, false) {
		r.setView3D(true)
	}
	return r
}

// WithBasemap sets the non-satellite base style.
func WithBasemap(b Basemap) func(*Renderer) {
	return func(r *Renderer) {
		if b == BasemapDark || b == BasemapLight {
			r.basemap = b
		}
	}
}

// WithSubdivisions sets the spline resolution per track segment.
func WithSubdivisions(n int) func(*Renderer) {
	return func(r *Renderer) {
		if n > 0 {
			r.subdivisions = n
		}
	}
}

// WithGradient sets the path gradient endpoint colors.
func WithGradient(start, end geo.RGB) func(*Renderer) {
	return func(r *Renderer) {
		r.startColor = start
		r.endColor = end
	}
}

// Viewport returns the current camera state.
func (r *Renderer) Viewport() Viewport { return r.viewport }

// SetViewport applies a user-driven camera change. It never re-frames;
// auto-framing happens only when the displayed flight changes.
func (r *Renderer) SetViewport(v Viewport) { r.viewport = v }

// View3D reports whether the 3D toggle is on.
func (r *Renderer) View3D() bool { return r.view3D }

// SetView3D switches between the flat and 3D view. Enabling adds the
// terrain source and, on first use, the sky decoration; disabling tears
// terrain and sky down and the next compose flattens the path in the same
// transition.
func (r *Renderer) SetView3D(on bool) {
	if on == r.view3D {
		return
	}
	r.setView3D(on)
	r.prefs.SetBool(KeyView3D, on)
}

func (r *Renderer) setView3D(on bool) {
	r.view3D = on
	if on {
		r.terrain = &TerrainLayer{Source: terrainSource, Exaggeration: terrainExaggeration}
		if r.sky == nil {
			r.sky = &SkyLayer{ID: "sky"}
		}
		r.viewport.Pitch = pitch3D
		return
	}
	r.terrain = nil
	r.viewport.Pitch = 0
}

// Satellite reports whether the satellite basemap toggle is on.
func (r *Renderer) Satellite() bool { return r.satellite }

// SetSatellite switches between the configured base style and satellite
// imagery.
func (r *Renderer) SetSatellite(on bool) {
	if on == r.satellite {
		return
	}
	r.satellite = on
	r.prefs.SetBool(KeySatellite, on)
}

// Compose builds the scene for the given flight detail. A nil detail
// composes an empty track over the base layers. Switching to a different
// flight re-frames the viewport; recomposing the same flight keeps the
// user's camera.
func (r *Renderer) Compose(detail *flight.Detail) Scene {
	var track flight.Track
	var home *flight.Point
	var id int64
	if detail != nil {
		track = detail.Track
		home = detail.Home
		id = detail.Flight.ID
	}

	if id != r.flightID {
		r.flightID = id
		f := geo.Frame(track)
		r.viewport = Viewport{
			Lon:  f.Center.Lon,
			Lat:  f.Center.Lat,
			Zoom: f.Zoom,
		}
		if r.view3D {
			r.viewport.Pitch = pitch3D
		}
	}

	smoothed := geo.Flatten(geo.Smooth(track, r.subdivisions), !r.view3D)

	s := Scene{
		Basemap: r.basemap,
		Shadow: ShadowLayer{
			Points:  smoothed,
			Color:   shadowColor,
			Width:   shadowWidth,
			Opacity: shadowOpacity,
		},
		Path: PathLayer{
			Segments: geo.GradientSegments(smoothed, r.startColor, r.endColor),
			Width:    pathWidth,
		},
		Markers:  markers(track, home),
		Viewport: r.viewport,
	}
	if r.satellite {
		s.Basemap = BasemapSatellite
	}
	if r.view3D {
		s.Terrain = r.terrain
		s.Sky = r.sky
	}
	return s
}

func markers(track flight.Track, home *flight.Point) []Marker {
	if len(track) == 0 {
		return nil
	}

	ms := []Marker{{Kind: MarkerStart, Position: track[0]}}

	end := Marker{Kind: MarkerEnd, Position: track[len(track)-1]}
	if len(track) > 1 {
		end.Bearing = bearing(track[len(track)-2], track[len(track)-1])
	}
	ms = append(ms, end)

	if home != nil && (math.Abs(home.Lon) > homeEpsilon || math.Abs(home.Lat) > homeEpsilon) {
		ms = append(ms, Marker{Kind: MarkerHome, Position: *home})
	}
	return ms
}

// bearing returns the initial great-circle bearing from a to b in degrees,
// normalized to [0, 360).
func bearing(a, b flight.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}
