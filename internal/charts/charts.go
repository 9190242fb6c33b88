// Package charts shapes telemetry into the three chart definitions the
// viewer displays: altitude+speed, battery and attitude. Shaping is
// stateless; whatever is in the input arrays, including per-index nulls,
// passes through unchanged.
package charts

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/roman-kulish/flight-log-viewer/internal/flight"
)

// Battery charge threshold annotated on the battery chart.
const batteryWarnPercent = 20

const (
	chartTheme  = "dark"
	chartWidth  = "100%"
	chartHeight = "360px"
)

// Set holds the three chart definitions shaped from one telemetry bundle.
type Set struct {
	AltitudeSpeed *charts.Line
	Battery       *charts.Line
	Attitude      *charts.Line
}

// Shape builds the chart set for one flight's telemetry.
func Shape(t *flight.Telemetry) *Set {
	labels := timeLabels(t.Time)

	return &Set{
		AltitudeSpeed: altitudeSpeedChart(t, labels),
		Battery:       batteryChart(t, labels),
		Attitude:      attitudeChart(t, labels),
	}
}

// WritePage renders the three charts into a single HTML document.
func (s *Set) WritePage(w io.Writer) error {
	page := components.NewPage()
	page.AddCharts(s.AltitudeSpeed, s.Battery, s.Attitude)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering chart page: %w", err)
	}
	return nil
}

func altitudeSpeedChart(t *flight.Telemetry, labels []string) *charts.Line {
	line := newLine("Altitude & Speed")
	line.ExtendYAxis(opts.YAxis{Name: "Speed (m/s)", Type: "value"})

	line.SetXAxis(labels).
		AddSeries("Altitude (m)", floatData(t.Altitude)).
		AddSeries("Speed (m/s)", floatData(t.Speed),
			charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}),
		)
	return line
}

func batteryChart(t *flight.Telemetry, labels []string) *charts.Line {
	line := newLine("Battery")

	line.SetXAxis(labels).
		AddSeries("Battery (%)", intData(t.Battery),
			charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{
				Name:  "Low battery",
				YAxis: batteryWarnPercent,
			}),
		)
	return line
}

func attitudeChart(t *flight.Telemetry, labels []string) *charts.Line {
	line := newLine("Attitude")

	line.SetXAxis(labels).
		AddSeries("Pitch (deg)", floatData(t.Pitch)).
		AddSeries("Roll (deg)", floatData(t.Roll)).
		AddSeries("Yaw (deg)", floatData(t.Yaw))
	return line
}

// newLine applies the shared base style. Animation is off; series can be
// thousands of points long.
func newLine(title string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  chartTheme,
			Width:  chartWidth,
			Height: chartHeight,
		}),
		charts.WithAnimation(false),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
	)
	return line
}

// FormatElapsed renders elapsed seconds as m:ss.
func FormatElapsed(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func timeLabels(times []float64) []string {
	labels := make([]string, len(times))
	for i, s := range times {
		labels[i] = FormatElapsed(s)
	}
	return labels
}

func floatData(values []*float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		if v != nil {
			data[i] = opts.LineData{Value: *v}
		}
	}
	return data
}

func intData(values []*int64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		if v != nil {
			data[i] = opts.LineData{Value: *v}
		}
	}
	return data
}
