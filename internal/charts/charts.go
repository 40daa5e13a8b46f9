// Package charts builds the dashboard's trend and forecast charts.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/fi-dashboard/internal/config"
	"github.com/iwvelando/fi-dashboard/internal/dataset"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when a chart has nothing to plot.
var ErrNoData = errors.New("no data to plot")

// Format is an image encoding supported by Render.
type Format string

// Supported chart formats.
const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat resolves a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	}
	return "", fmt.Errorf("unsupported chart format %q", name)
}

// ContentType is the MIME type of the encoded image.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Chart dimensions in pixels.
const (
	DefaultWidth  = 960
	DefaultHeight = 480
)

var (
	accessColor = drawing.ColorFromHex("1f77b4")
	usageColor  = drawing.ColorFromHex("ff7f0e")
	trendColor  = drawing.ColorFromHex("2c3e50")
)

// Point is one dated observation value.
type Point struct {
	Date  time.Time
	Value float64
}

// TrendPoints extracts the dated numeric observations of records, ordered by
// date. Rows without a date or value are skipped.
func TrendPoints(records dataset.Records) []Point {
	points := make([]Point, 0, len(records))
	for _, r := range records {
		v, ok := r.Value()
		if !ok || !r.HasDate || math.IsNaN(v) {
			continue
		}
		points = append(points, Point{Date: r.ObservationDate, Value: v})
	}
	return points
}

// Trend builds the historical trend of one indicator with a dashed marker
// line for every event.
func Trend(points []Point, indicator string, events []config.Event) (*chart.Chart, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, indicator)
	}

	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Date
		ys[i] = p.Value
	}

	minX, maxX := xs[0], xs[0]
	for _, x := range xs {
		if x.Before(minX) {
			minX = x
		}
		if x.After(maxX) {
			maxX = x
		}
	}
	for _, e := range events {
		if e.Date.Before(minX) {
			minX = e.Date
		}
		if e.Date.After(maxX) {
			maxX = e.Date
		}
	}
	xMin, xMax := padTimeRange(minX, maxX)
	yMin, yMax := padRange(ys)

	series := []chart.Series{
		chart.TimeSeries{
			Name: indicator,
			Style: chart.Style{
				StrokeColor: trendColor,
				StrokeWidth: 2,
				DotColor:    trendColor,
				DotWidth:    4,
			},
			XValues: xs,
			YValues: ys,
		},
	}

	annotations := make([]chart.Value2, 0, len(events))
	for _, e := range events {
		color := eventColor(e.Color)
		series = append(series, chart.TimeSeries{
			Name: e.Label,
			Style: chart.Style{
				StrokeColor:     color,
				StrokeWidth:     1.5,
				StrokeDashArray: []float64{5, 5},
			},
			XValues: []time.Time{e.Date, e.Date},
			YValues: []float64{yMin, yMax},
		})
		annotations = append(annotations, chart.Value2{
			XValue: chart.TimeToFloat64(e.Date),
			YValue: yMax,
			Label:  e.Label,
			Style: chart.Style{
				StrokeColor: color,
				FontColor:   color,
			},
		})
	}
	if len(annotations) > 0 {
		series = append(series, chart.AnnotationSeries{Annotations: annotations})
	}

	return &chart.Chart{
		Title:      indicator + " Historical Trend",
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 24, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006"),
			Range:          &chart.ContinuousRange{Min: xMin, Max: xMax},
		},
		YAxis: chart.YAxis{
			Name:  "% Adults",
			Range: &chart.ContinuousRange{Min: yMin, Max: yMax},
		},
		Series: series,
	}, nil
}

// Forecast builds the dual-axis chart of one scenario: account ownership on
// the left axis and digital payment usage on the right.
func Forecast(f *dataset.Forecast, s dataset.Scenario, cfg config.ForecastConfig) (*chart.Chart, error) {
	access, usage, err := f.ScenarioSeries(s)
	if err != nil {
		return nil, err
	}
	years := f.Years()

	accessX, accessY := dropMissing(years, access)
	usageX, usageY := dropMissing(years, usage)
	if len(accessX) == 0 && len(usageX) == 0 {
		return nil, fmt.Errorf("%w: %s scenario", ErrNoData, s)
	}

	var series []chart.Series
	if len(accessX) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name: "Access Forecast",
			Style: chart.Style{
				StrokeColor: accessColor,
				StrokeWidth: 3,
				DotColor:    accessColor,
				DotWidth:    5,
			},
			XValues: accessX,
			YValues: accessY,
		})
	}
	if len(usageX) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:  "Usage Forecast",
			YAxis: chart.YAxisSecondary,
			Style: chart.Style{
				StrokeColor: usageColor,
				StrokeWidth: 3,
				DotColor:    usageColor,
				DotWidth:    5,
			},
			XValues: usageX,
			YValues: usageY,
		})
	}

	ticks := make([]chart.Tick, 0, len(years))
	for _, year := range years {
		ticks = append(ticks, chart.Tick{Value: float64(year), Label: strconv.Itoa(year)})
	}
	xMin, xMax := yearRange(years)
	accessMin, accessMax := padRange(accessY)
	usageMin, usageMax := padRange(usageY)

	c := &chart.Chart{
		Title:      fmt.Sprintf("%s Scenario: Access & Usage %d–%d", s.Title(), cfg.FirstForecastYear(), cfg.LastForecastYear()),
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  "Year",
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: xMin, Max: xMax},
		},
		YAxis: chart.YAxis{
			Name:  "Access (%)",
			Range: &chart.ContinuousRange{Min: accessMin, Max: accessMax},
		},
		YAxisSecondary: chart.YAxis{
			Name:  "Usage (%)",
			Range: &chart.ContinuousRange{Min: usageMin, Max: usageMax},
		},
		Series: series,
	}
	c.Elements = []chart.Renderable{chart.Legend(c)}
	return c, nil
}

// Render encodes c in the given format.
func Render(w io.Writer, c *chart.Chart, format Format) error {
	switch format {
	case FormatSVG:
		var buf bytes.Buffer
		if err := c.Render(chart.SVG, &buf); err != nil {
			return err
		}
		_, err := w.Write(escapeAmpersands(buf.Bytes()))
		return err
	case FormatPNG:
		return c.Render(chart.PNG, w)
	}
	return fmt.Errorf("unsupported chart format %q", format)
}

var entityPattern = regexp.MustCompile(`^&(?:[a-zA-Z][a-zA-Z0-9]*|#[0-9]+|#x[0-9a-fA-F]+);`)

// escapeAmpersands escapes '&' characters that do not start an entity.
// go-chart writes SVG text nodes verbatim.
func escapeAmpersands(svg []byte) []byte {
	if !bytes.ContainsRune(svg, '&') {
		return svg
	}
	out := make([]byte, 0, len(svg)+16)
	for i := 0; i < len(svg); i++ {
		if svg[i] == '&' && !entityPattern.Match(svg[i:]) {
			out = append(out, "&amp;"...)
			continue
		}
		out = append(out, svg[i])
	}
	return out
}

var namedColors = map[string]drawing.Color{
	"red":    drawing.ColorFromHex("d62728"),
	"green":  drawing.ColorFromHex("2ca02c"),
	"purple": drawing.ColorFromHex("9467bd"),
	"blue":   accessColor,
	"orange": usageColor,
	"gray":   drawing.ColorFromHex("7f7f7f"),
	"grey":   drawing.ColorFromHex("7f7f7f"),
	"black":  drawing.ColorFromHex("000000"),
}

// eventColor resolves a configured color name or hex code.
func eventColor(name string) drawing.Color {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := namedColors[name]; ok {
		return c
	}
	if hex := strings.TrimPrefix(name, "#"); len(hex) == 6 || len(hex) == 3 {
		if _, err := strconv.ParseUint(hex, 16, 32); err == nil {
			return drawing.ColorFromHex(hex)
		}
	}
	return namedColors["gray"]
}

func dropMissing(years []int, values []float64) ([]float64, []float64) {
	var xs, ys []float64
	for i, v := range values {
		if i >= len(years) || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xs = append(xs, float64(years[i]))
		ys = append(ys, v)
	}
	return xs, ys
}

// padRange returns a y range around values with 10% headroom. A flat or
// empty series still gets a non-zero range.
func padRange(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 100
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.1, 1)
	}
	lower, upper := lo-pad, hi+pad
	if lo >= 0 && lower < 0 {
		lower = 0
	}
	return lower, upper
}

func padTimeRange(lo, hi time.Time) (float64, float64) {
	span := hi.Sub(lo)
	pad := span / 20
	if pad < 180*24*time.Hour {
		pad = 180 * 24 * time.Hour
	}
	return chart.TimeToFloat64(lo.Add(-pad)), chart.TimeToFloat64(hi.Add(pad))
}

func yearRange(years []int) (float64, float64) {
	if len(years) == 0 {
		return 0, 1
	}
	lo, hi := years[0], years[0]
	for _, y := range years {
		if y < lo {
			lo = y
		}
		if y > hi {
			hi = y
		}
	}
	return float64(lo) - 0.25, float64(hi) + 0.25
}
