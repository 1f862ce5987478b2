package diagram

import (
	"math"

	"github.com/talgya/aoi-shift/internal/optics"
)

// Transmission diagram frame.
const (
	CanvasMinX     = 54.0
	CanvasMaxX     = 486.0
	CurveBaseY     = 180.0
	CurveAmplitude = 112.0
	CurveSamples   = 96

	baselineSigma    = 42.0
	shiftedSigma     = 44.0
	shiftedAmpScale  = 0.94
	fallbackShiftAmp = 105.0

	// Display window: ±windowSpan half-widths around λ₀, where the
	// half-width is windowFraction·λ₀ but at least minHalfWidthNm.
	windowFraction = 0.015
	minHalfWidthNm = 8.0
	windowSpan     = 4.2

	baselineMarkerTop = 68.0
	shiftedMarkerTop  = 74.0
	baselineLabelY    = 58.0
	shiftedLabelY     = 208.0
	baselineLabelDX   = 50.0
	shiftedLabelDX    = 54.0
)

// Curve is one sampled Gaussian peak.
type Curve struct {
	Path      Path    `json:"path"`
	CenterX   float64 `json:"center_x"`
	Sigma     float64 `json:"sigma"`
	Amplitude float64 `json:"amplitude"`
}

// Window maps wavelengths in [MinNm, MaxNm] linearly onto [MinX, MaxX].
type Window struct {
	MinNm float64 `json:"min_nm"`
	MaxNm float64 `json:"max_nm"`
	MinX  float64 `json:"min_x"`
	MaxX  float64 `json:"max_x"`
}

// WavelengthToX maps a wavelength to a canvas x coordinate.
func (w Window) WavelengthToX(nm float64) float64 {
	return WavelengthToX(nm, w.MinNm, w.MaxNm, w.MinX, w.MaxX)
}

// XToWavelength is the inverse of WavelengthToX.
func (w Window) XToWavelength(x float64) float64 {
	return w.MinNm + (x-w.MinX)/(w.MaxX-w.MinX)*(w.MaxNm-w.MinNm)
}

// WavelengthToX maps w from [wMin, wMax] onto [xMin, xMax].
func WavelengthToX(w, wMin, wMax, xMin, xMax float64) float64 {
	return xMin + ((w-wMin)/(wMax-wMin))*(xMax-xMin)
}

// CurveGeometry is everything the transmission diagram draws.
type CurveGeometry struct {
	Window         Window  `json:"window"`
	Baseline       Curve   `json:"baseline"`
	Shifted        Curve   `json:"shifted"`
	BaselineMarker Segment `json:"baseline_marker"`
	ShiftedMarker  Segment `json:"shifted_marker"`
	BaselineLabel  Label   `json:"baseline_label"`
	ShiftedLabel   Label   `json:"shifted_label"`
	// Fallback is set when the design wavelength could not be placed and
	// both curves sit at the canvas midpoint. Window has no wavelength
	// range then.
	Fallback bool `json:"fallback"`
}

// GaussianCurve samples y = yBase − amp·exp(−0.5·((x − center)/sigma)²) at
// samples+1 evenly spaced x between xMin and xMax.
func GaussianCurve(xMin, xMax, yBase, amp, center, sigma float64, samples int) Curve {
	pts := make([]Point, 0, samples+1)
	for i := 0; i <= samples; i++ {
		t := float64(i) / float64(samples)
		x := xMin + t*(xMax-xMin)
		z := (x - center) / sigma
		pts = append(pts, Point{X: x, Y: yBase - amp*math.Exp(-0.5*z*z)})
	}
	return Curve{Path: Path{Points: pts}, CenterX: center, Sigma: sigma, Amplitude: amp}
}

// DisplayWindow returns the wavelength window shown for lambda0, clamped to
// the accepted wavelength range. ok is false when the clamped window is
// empty and cannot be mapped.
func DisplayWindow(lambda0 float64) (w Window, ok bool) {
	half := math.Max(minHalfWidthNm, lambda0*windowFraction)
	w = Window{
		MinNm: optics.ClampWavelength(lambda0 - windowSpan*half),
		MaxNm: optics.ClampWavelength(lambda0 + windowSpan*half),
		MinX:  CanvasMinX,
		MaxX:  CanvasMaxX,
	}
	return w, w.MaxNm > w.MinNm
}

// RenderTransmission draws the 0° baseline peak at the design wavelength
// and the current-AOI peak at the shifted wavelength (or at the design
// wavelength when the shift is unavailable).
func RenderTransmission(designWavelengthNm float64, shifted optics.Value) CurveGeometry {
	if math.IsNaN(designWavelengthNm) || math.IsInf(designWavelengthNm, 0) {
		return fallbackTransmission()
	}
	win, ok := DisplayWindow(designWavelengthNm)
	if !ok {
		return fallbackTransmission()
	}

	lambdaShifted := shifted.Or(designWavelengthNm)
	baseCx := win.WavelengthToX(designWavelengthNm)
	shiftedCx := win.WavelengthToX(lambdaShifted)

	return CurveGeometry{
		Window:         win,
		Baseline:       GaussianCurve(CanvasMinX, CanvasMaxX, CurveBaseY, CurveAmplitude, baseCx, baselineSigma, CurveSamples),
		Shifted:        GaussianCurve(CanvasMinX, CanvasMaxX, CurveBaseY, CurveAmplitude*shiftedAmpScale, shiftedCx, shiftedSigma, CurveSamples),
		BaselineMarker: marker(baseCx, baselineMarkerTop),
		ShiftedMarker:  marker(shiftedCx, shiftedMarkerTop),
		BaselineLabel: Label{
			At:   Point{baseCx - baselineLabelDX, baselineLabelY},
			Text: "0 deg baseline: " + optics.FormatFixed(designWavelengthNm, 1) + " nm",
		},
		ShiftedLabel: Label{
			At:   Point{shiftedCx - shiftedLabelDX, shiftedLabelY},
			Text: "Current AOI: " + optics.FormatFixed(lambdaShifted, 1) + " nm",
		},
	}
}

func fallbackTransmission() CurveGeometry {
	center := (CanvasMinX + CanvasMaxX) / 2
	return CurveGeometry{
		Window:         Window{MinX: CanvasMinX, MaxX: CanvasMaxX},
		Baseline:       GaussianCurve(CanvasMinX, CanvasMaxX, CurveBaseY, CurveAmplitude, center, baselineSigma, CurveSamples),
		Shifted:        GaussianCurve(CanvasMinX, CanvasMaxX, CurveBaseY, fallbackShiftAmp, center, shiftedSigma, CurveSamples),
		BaselineMarker: marker(center, baselineMarkerTop),
		ShiftedMarker:  marker(center, shiftedMarkerTop),
		BaselineLabel:  Label{At: Point{center - baselineLabelDX, baselineLabelY}, Text: "0 deg baseline: " + optics.Placeholder},
		ShiftedLabel:   Label{At: Point{center - shiftedLabelDX, shiftedLabelY}, Text: "Current AOI: " + optics.Placeholder},
		Fallback:       true,
	}
}

func marker(x, top float64) Segment {
	return Segment{From: Point{x, top}, To: Point{x, CurveBaseY}}
}
