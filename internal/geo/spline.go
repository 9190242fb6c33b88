// Package geo holds the pure track geometry: spline smoothing, gradient
// segmentation and viewport framing. Every function is referentially
// transparent over immutable inputs so it can be tested without any
// rendering context.
package geo

import (
	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

// DefaultSubdivisions is the number of interpolated points inserted per
// original track segment when the caller does not override it.
const DefaultSubdivisions = 8

// Smooth resamples a track with clamped uniform Catmull-Rom interpolation,
// inserting subdivisions points per original segment. Virtual control
// points at the boundaries are clamped to the first/last sample instead of
// extrapolated. Tracks with fewer than 3 points are returned unchanged;
// the output always starts and ends on real samples.
func Smooth(track flight.Track, subdivisions int) flight.Track {
	if len(track) < 3 || subdivisions < 1 {
		return track
	}

	n := len(track)
	out := make(flight.Track, 0, (n-1)*subdivisions+1)
	for i := 0; i < n-1; i++ {
		p0 := track[max(i-1, 0)]
		p1 := track[i]
		p2 := track[i+1]
		p3 := track[min(i+2, n-1)]

		for j := 0; j < subdivisions; j++ {
			t := float64(j) / float64(subdivisions)
			out = append(out, catmullRom(p0, p1, p2, p3, t))
		}
	}

	// The loop emits interpolated points up to (but excluding) the end of
	// the last segment; close the curve on the exact final sample.
	return append(out, track[n-1])
}

// Flatten projects a track onto the ground plane when flat is true,
// otherwise passes it through unchanged. Applied per point before
// segmentation so the renderer can switch between a 3D ribbon and a flat
// line without recomputing the spline.
func Flatten(track flight.Track, flat bool) flight.Track {
	if !flat {
		return track
	}
	out := make(flight.Track, len(track))
	for i, p := range track {
		p.Alt = 0
		out[i] = p
	}
	return out
}

func catmullRom(p0, p1, p2, p3 flight.Point, t float64) flight.Point {
	t2 := t * t
	t3 := t2 * t
	return flight.Point{
		Lon: catmullRom1(p0.Lon, p1.Lon, p2.Lon, p3.Lon, t, t2, t3),
		Lat: catmullRom1(p0.Lat, p1.Lat, p2.Lat, p3.Lat, t, t2, t3),
		Alt: catmullRom1(p0.Alt, p1.Alt, p2.Alt, p3.Alt, t, t2, t3),
	}
}

// catmullRom1 evaluates the uniform Catmull-Rom basis for one coordinate.
// At t = 0 it returns p1 exactly, so every original sample survives in the
// smoothed output.
func catmullRom1(p0, p1, p2, p3, t, t2, t3 float64) float64 {
	return 0.5 * ((2 * p1) +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}
