// Package export renders shift results as raster images: the transmission
// curves and angle sweeps as go-chart PNGs, and the widget URL as a QR code.
package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/skip2/go-qrcode"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/talgya/aoi-shift/internal/diagram"
	"github.com/talgya/aoi-shift/internal/optics"
)

// Default PNG size when the caller passes zero.
const (
	DefaultWidth  = 640
	DefaultHeight = 320

	MinSize = 64
	MaxSize = 2048
)

// ErrNotEnoughPoints is returned when a sweep has fewer than two valid
// points to draw.
var ErrNotEnoughPoints = errors.New("not enough valid points to plot")

var (
	baselineColor = drawing.ColorFromHex("1f77b4")
	shiftedColor  = drawing.ColorFromHex("d62728")
)

// TransmissionPNG draws both transmission peaks and their center markers.
// The x axis is wavelength in nm, or canvas position when the geometry is
// a fallback with no wavelength window. Transmission is normalized to the
// baseline peak.
func TransmissionPNG(w io.Writer, g diagram.CurveGeometry, width, height int) error {
	width, height, err := size(width, height)
	if err != nil {
		return err
	}

	toX := g.Window.XToWavelength
	xName := "Wavelength (nm)"
	if g.Fallback {
		toX = func(x float64) float64 { return x }
		xName = "Position"
	}
	toY := func(y float64) float64 { return (diagram.CurveBaseY - y) / diagram.CurveAmplitude }

	series := []chart.Series{
		curveSeries("0 deg baseline", g.Baseline, toX, toY, lineStyle(baselineColor, nil)),
		curveSeries("Current AOI", g.Shifted, toX, toY, lineStyle(shiftedColor, nil)),
		markerSeries("baseline center", g.BaselineMarker, toX, toY, lineStyle(baselineColor, []float64{4, 3})),
		markerSeries("shifted center", g.ShiftedMarker, toX, toY, lineStyle(shiftedColor, []float64{4, 3})),
	}

	ch := chart.Chart{
		Title:      "Transmission vs. angle of incidence",
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 28, Left: 16, Right: 16, Bottom: 12}},
		XAxis: chart.XAxis{
			Name:           xName,
			Range:          &chart.ContinuousRange{Min: toX(diagram.CanvasMinX), Max: toX(diagram.CanvasMaxX)},
			ValueFormatter: fixedFormatter(1),
		},
		YAxis: chart.YAxis{
			Name:           "Transmission",
			Range:          &chart.ContinuousRange{Min: 0, Max: 1.05},
			ValueFormatter: fixedFormatter(2),
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render transmission png: %w", err)
	}
	return nil
}

// SweepPNG plots the shifted wavelength against the angle of incidence.
// Points with no shifted wavelength are skipped.
func SweepPNG(w io.Writer, points []optics.SweepPoint, width, height int) error {
	width, height, err := size(width, height)
	if err != nil {
		return err
	}

	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if v, ok := p.ShiftedNm.Get(); ok {
			xs = append(xs, p.AngleDeg)
			ys = append(ys, v)
		}
	}
	if len(xs) < 2 || xs[len(xs)-1] == xs[0] {
		return ErrNotEnoughPoints
	}

	lo, hi := ys[0], ys[0]
	for _, y := range ys {
		lo = math.Min(lo, y)
		hi = math.Max(hi, y)
	}
	pad := math.Max((hi-lo)*0.05, 1)

	ch := chart.Chart{
		Title:      "Shifted center wavelength",
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 28, Left: 16, Right: 16, Bottom: 12}},
		XAxis: chart.XAxis{
			Name:           "AOI (deg)",
			Range:          &chart.ContinuousRange{Min: xs[0], Max: xs[len(xs)-1]},
			ValueFormatter: fixedFormatter(0),
		},
		YAxis: chart.YAxis{
			Name:           "Wavelength (nm)",
			Range:          &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
			ValueFormatter: fixedFormatter(1),
		},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "Shifted", XValues: xs, YValues: ys, Style: lineStyle(shiftedColor, nil)},
		},
	}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render sweep png: %w", err)
	}
	return nil
}

// QRCodePNG encodes url as a square QR code PNG of the given side length.
func QRCodePNG(url string, side int) ([]byte, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("qr code: empty url")
	}
	if side < MinSize || side > MaxSize {
		return nil, fmt.Errorf("qr code: size %d out of range [%d, %d]", side, MinSize, MaxSize)
	}
	png, err := qrcode.Encode(url, qrcode.Medium, side)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}
	return png, nil
}

func size(width, height int) (int, int, error) {
	if width == 0 {
		width = DefaultWidth
	}
	if height == 0 {
		height = DefaultHeight
	}
	if width < MinSize || width > MaxSize || height < MinSize || height > MaxSize {
		return 0, 0, fmt.Errorf("image size %dx%d out of range [%d, %d]", width, height, MinSize, MaxSize)
	}
	return width, height, nil
}

func curveSeries(name string, c diagram.Curve, toX, toY func(float64) float64, style chart.Style) chart.ContinuousSeries {
	xs := make([]float64, len(c.Path.Points))
	ys := make([]float64, len(c.Path.Points))
	for i, p := range c.Path.Points {
		xs[i] = toX(p.X)
		ys[i] = toY(p.Y)
	}
	return chart.ContinuousSeries{Name: name, XValues: xs, YValues: ys, Style: style}
}

func markerSeries(name string, s diagram.Segment, toX, toY func(float64) float64, style chart.Style) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		Name:    name,
		XValues: []float64{toX(s.From.X), toX(s.To.X)},
		YValues: []float64{toY(s.From.Y), toY(s.To.Y)},
		Style:   style,
	}
}

func lineStyle(col drawing.Color, dash []float64) chart.Style {
	return chart.Style{
		StrokeColor:     col,
		StrokeWidth:     2,
		StrokeDashArray: dash,
	}
}

func fixedFormatter(digits int) chart.ValueFormatter {
	return func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return optics.FormatFixed(f, digits)
		}
		return ""
	}
}
