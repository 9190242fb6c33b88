package geo

import (
	"math"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

// Zoom clamp range. Degenerate near-zero-extent tracks stop at MaxZoom
// instead of zooming in without bound; very long tracks stop at MinZoom.
const (
	MinZoom = 10
	MaxZoom = 18
)

// Bounds is the axis-aligned bounding box of a track in degrees.
type Bounds struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// Framing is an auto-computed camera position fitting a track.
type Framing struct {
	Center flight.Point
	Zoom   float64
}

// TrackBounds computes the bounding box of a track. ok is false for an
// empty track.
func TrackBounds(track flight.Track) (b Bounds, ok bool) {
	if len(track) == 0 {
		return Bounds{}, false
	}

	b = Bounds{
		MinLon: track[0].Lon, MaxLon: track[0].Lon,
		MinLat: track[0].Lat, MaxLat: track[0].Lat,
	}
	for _, p := range track[1:] {
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
	}
	return b, true
}

// Frame derives a center and zoom from the raw (unsmoothed) track. The
// center is the bounding box midpoint; zoom maps the box's largest
// dimension logarithmically (zoom 0 spans the whole world, each level
// halves the span) and clamps to [MinZoom, MaxZoom]. An empty track frames
// a neutral world view at minimum zoom.
func Frame(track flight.Track) Framing {
	b, ok := TrackBounds(track)
	if !ok {
		return Framing{Zoom: MinZoom}
	}

	center := flight.Point{
		Lon: (b.MinLon + b.MaxLon) / 2,
		Lat: (b.MinLat + b.MaxLat) / 2,
	}

	extent := math.Max(b.MaxLon-b.MinLon, b.MaxLat-b.MinLat)
	zoom := float64(MaxZoom)
	if extent > 0 {
		zoom = math.Log2(360 / extent)
	}
	zoom = math.Min(math.Max(zoom, MinZoom), MaxZoom)

	return Framing{Center: center, Zoom: zoom}
}
