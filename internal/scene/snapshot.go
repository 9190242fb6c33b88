package scene

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

const (
	dpi      = 120.0
	fontSize = 12.0

	// Default canvas and border sizes in pixels
	defaultTrackWidth   = 1024
	defaultTrackHeight  = 768
	defaultTopBorder    = 40
	defaultLeftBorder   = 40
	defaultBottomBorder = 40
	defaultRightBorder  = 40

	markerRadius = 6
)

// BorderConfig defines the sizes of padding around the track area.
type BorderConfig struct {
	Top    int
	Left   int
	Bottom int // Space for information bar
	Right  int
}

// SnapshotConfig holds all configuration options for track snapshots.
type SnapshotConfig struct {
	// Track area size in pixels, excluding borders
	Width  int
	Height int

	// Path to a TrueType font for the info bar. Empty disables
	// annotations.
	FontPath string
	FontSize float64

	BorderConfig BorderConfig
}

// SnapshotRenderer rasterizes a composed scene into an RGBA image.
type SnapshotRenderer struct {
	config SnapshotConfig
}

// NewSnapshotRenderer creates a snapshot renderer with the given
// configuration.
func NewSnapshotRenderer(config SnapshotConfig) (*SnapshotRenderer, error) {
	// Set defaults for zero values
	if config.Width == 0 {
		config.Width = defaultTrackWidth
	}
	if config.Height == 0 {
		config.Height = defaultTrackHeight
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}
	if config.Width < 1 || config.Height < 1 {
		return nil, fmt.Errorf("invalid track area %dx%d", config.Width, config.Height)
	}

	return &SnapshotRenderer{config: config}, nil
}

// Render draws the scene's track layers into a bordered image and, when a
// font is configured, annotates it with an info bar for the flight.
func (r *SnapshotRenderer) Render(s Scene, f flight.Flight) (*image.RGBA, error) {
	fullWidth := r.config.Width + r.config.BorderConfig.Left + r.config.BorderConfig.Right
	fullHeight := r.config.Height + r.config.BorderConfig.Top + r.config.BorderConfig.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.NewUniform(background(s.Basemap)), image.Point{}, draw.Src)

	trackArea := image.Rect(
		r.config.BorderConfig.Left,
		r.config.BorderConfig.Top,
		r.config.BorderConfig.Left+r.config.Width,
		r.config.BorderConfig.Top+r.config.Height,
	)

	proj := newProjection(s.Shadow.Points, trackArea)
	r.renderTrack(img, proj, s)

	if r.config.FontPath != "" {
		ann, err := newAnnotator(r.config)
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err := ann.annotate(img, f); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	return img, nil
}

// renderTrack draws shadow, gradient path and markers, bottom to top.
func (r *SnapshotRenderer) renderTrack(img *image.RGBA, proj projection, s Scene) {
	shadow := color.RGBA{R: 10, G: 10, B: 10, A: uint8(255 * s.Shadow.Opacity)}
	for i := 1; i < len(s.Shadow.Points); i++ {
		a := proj.toPixel(s.Shadow.Points[i-1])
		b := proj.toPixel(s.Shadow.Points[i])
		drawLine(img, a, b, int(s.Shadow.Width/2), shadow)
	}

	for _, seg := range s.Path.Segments {
		c := color.RGBA{R: seg.Color.R, G: seg.Color.G, B: seg.Color.B, A: 255}
		drawLine(img, proj.toPixel(seg.From), proj.toPixel(seg.To), int(s.Path.Width/2), c)
	}

	for _, m := range s.Markers {
		p := proj.toPixel(m.Position)
		switch m.Kind {
		case MarkerStart:
			drawDisc(img, p, markerRadius, color.RGBA{R: 64, G: 220, B: 120, A: 255})
		case MarkerEnd:
			drawArrow(img, p, m.Bearing, color.RGBA{R: 240, G: 80, B: 80, A: 255})
		case MarkerHome:
			drawCrosshair(img, p, markerRadius+2, color.RGBA{R: 250, G: 250, B: 250, A: 255})
		}
	}
}

func background(b Basemap) color.RGBA {
	switch b {
	case BasemapLight:
		return color.RGBA{R: 240, G: 240, B: 238, A: 255}
	case BasemapSatellite:
		return color.RGBA{R: 24, G: 32, B: 24, A: 255}
	default:
		return color.RGBA{R: 18, G: 18, B: 22, A: 255}
	}
}

// projection maps geodetic points into a pixel rectangle, preserving
// aspect ratio with a cosine latitude correction.
type projection struct {
	minLon, minLat float64
	scaleX, scaleY float64
	originX        int // pixel X of minLon
	baseY          int // pixel Y of minLat (bottom of the fitted track)
}

func newProjection(track flight.Track, area image.Rectangle) projection {
	var p projection
	if len(track) == 0 {
		return p
	}

	minLon, maxLon := track[0].Lon, track[0].Lon
	minLat, maxLat := track[0].Lat, track[0].Lat
	for _, pt := range track[1:] {
		minLon = math.Min(minLon, pt.Lon)
		maxLon = math.Max(maxLon, pt.Lon)
		minLat = math.Min(minLat, pt.Lat)
		maxLat = math.Max(maxLat, pt.Lat)
	}

	midLat := (minLat + maxLat) / 2
	latScale := math.Cos(midLat * math.Pi / 180)
	spanX := (maxLon - minLon) * latScale
	spanY := maxLat - minLat
	if spanX <= 0 {
		spanX = 1e-9
	}
	if spanY <= 0 {
		spanY = 1e-9
	}

	scale := math.Min(float64(area.Dx())/spanX, float64(area.Dy())/spanY)
	p.minLon, p.minLat = minLon, minLat
	p.scaleX = scale * latScale
	p.scaleY = scale

	// Center the fitted track inside the area. Latitude grows north,
	// pixel Y grows down, so minLat anchors at the fitted bottom edge.
	fittedW := int(spanX * scale)
	fittedH := int(spanY * scale)
	p.originX = area.Min.X + (area.Dx()-fittedW)/2
	p.baseY = area.Min.Y + (area.Dy()-fittedH)/2 + fittedH
	return p
}

func (p projection) toPixel(pt flight.Point) image.Point {
	return image.Point{
		X: p.originX + int((pt.Lon-p.minLon)*p.scaleX),
		Y: p.baseY - int((pt.Lat-p.minLat)*p.scaleY),
	}
}

// drawLine draws a thick segment by stamping discs along its length.
func drawLine(img *image.RGBA, a, b image.Point, radius int, c color.Color) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		drawDisc(img, a, radius, c)
		return
	}
	for i := 0; i <= steps; i++ {
		p := image.Point{
			X: a.X + dx*i/steps,
			Y: a.Y + dy*i/steps,
		}
		drawDisc(img, p, radius, c)
	}
}

func drawDisc(img *image.RGBA, center image.Point, radius int, c color.Color) {
	if radius < 1 {
		img.Set(center.X, center.Y, c)
		return
	}
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				img.Set(center.X+dx, center.Y+dy, c)
			}
		}
	}
}

func drawCrosshair(img *image.RGBA, center image.Point, size int, c color.Color) {
	for d := -size; d <= size; d++ {
		img.Set(center.X+d, center.Y, c)
		img.Set(center.X, center.Y+d, c)
	}
}

// drawArrow draws a small triangle pointing along the given bearing.
func drawArrow(img *image.RGBA, center image.Point, bearingDeg float64, c color.Color) {
	// Bearing 0 is north, which is pixel -Y.
	rad := (bearingDeg - 90) * math.Pi / 180
	tip := image.Point{
		X: center.X + int(float64(markerRadius+3)*math.Cos(rad)),
		Y: center.Y + int(float64(markerRadius+3)*math.Sin(rad)),
	}
	drawDisc(img, center, markerRadius, c)
	drawLine(img, center, tip, 1, c)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Internal annotator implementation

type annotator struct {
	context  *freetype.Context
	config   SnapshotConfig
	fontFace font.Face
}

func newAnnotator(config SnapshotConfig) (*annotator, error) {
	fontBytes, err := os.ReadFile(config.FontPath)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}
	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.White)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, f flight.Flight) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	var sb strings.Builder
	sb.WriteString(f.FileName)
	if f.StartTime != nil {
		sb.WriteString("; ")
		sb.WriteString(f.StartTime.Format(time.DateTime))
	}
	if f.DurationSecs != nil {
		sb.WriteString(fmt.Sprintf("; Duration: %s",
			(time.Duration(*f.DurationSecs) * time.Second).String()))
	}
	if f.TotalDistance != nil {
		sb.WriteString(fmt.Sprintf("; Distance: %s",
			formatDistance(*f.TotalDistance)))
	}
	sb.WriteString(fmt.Sprintf("; %s points", humanize.Comma(int64(f.PointCount))))

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	// Center text vertically in the bottom border.
	textY := img.Bounds().Max.Y - (a.config.BorderConfig.Bottom-fontHeight)/2 - metrics.Descent.Round()

	pt := freetype.Pt(a.config.BorderConfig.Left, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

func formatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.2f km", meters/1000)
	}
	return fmt.Sprintf("%.0f m", meters)
}
