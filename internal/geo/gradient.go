package geo

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

// Default path gradient, start to end of flight.
var (
	DefaultStartColor = RGB{R: 0, G: 229, B: 255}
	DefaultEndColor   = RGB{R: 255, G: 61, B: 132}
)

// RGB is an 8-bit-per-channel color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the color as a #rrggbb string.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Segment is one consecutive-pair piece of a track, tagged with the
// interpolated colors at both of its endpoints.
type Segment struct {
	From     flight.Point `json:"from"`
	To       flight.Point `json:"to"`
	Color    RGB          `json:"color"`    // Color at the segment start
	EndColor RGB          `json:"endColor"` // Color at the segment end
}

// GradientSegments splits points into len(points)-1 ordered segments and
// assigns each endpoint a color linearly interpolated between start and end
// by normalized position t = i/(count-1), rounded to integer channels. The
// first segment starts exactly on start, the last ends exactly on end.
// Fewer than 2 points yield no segments.
func GradientSegments(points flight.Track, start, end RGB) []Segment {
	n := len(points)
	if n < 2 {
		return nil
	}

	c0 := toColorful(start)
	c1 := toColorful(end)
	colorAt := func(i int) RGB {
		t := float64(i) / float64(n-1)
		return toRGB(c0.BlendRgb(c1, t))
	}

	segments := make([]Segment, n-1)
	for i := range segments {
		segments[i] = Segment{
			From:     points[i],
			To:       points[i+1],
			Color:    colorAt(i),
			EndColor: colorAt(i + 1),
		}
	}
	return segments
}

func toColorful(c RGB) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

func toRGB(c colorful.Color) RGB {
	return RGB{
		R: uint8(math.Round(c.R * 255)),
		G: uint8(math.Round(c.G * 255)),
		B: uint8(math.Round(c.B * 255)),
	}
}
