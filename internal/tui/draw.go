package tui

import (
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/talgya/aoi-shift/internal/diagram"
	"github.com/talgya/aoi-shift/internal/optics"
	"github.com/talgya/aoi-shift/internal/widget"
)

// Screen rows.
const (
	rowTitle    = 0
	rowFields   = 2
	rowReadouts = 7
	rowRay      = 8
	rowPlot     = 10
	plotHeight  = 9
	sliderWidth = 30
	labelColumn = 20
)

var (
	styleDefault  = tcell.StyleDefault
	styleTitle    = tcell.StyleDefault.Bold(true)
	styleFocus    = tcell.StyleDefault.Reverse(true)
	styleDim      = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleBaseline = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleShifted  = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleReadout  = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
)

// draw paints the whole screen from the controls and snapshot. Caller
// holds mu.
func (a *App) draw() {
	s := a.screen
	s.Clear()
	width, height := s.Size()
	c := a.controls
	snap := a.snapshot

	drawText(s, 0, rowTitle, width, styleTitle, "AOI wavelength shift  ["+a.strictness.String()+"]")

	preset := c.Preset
	if preset == "" {
		preset = "Custom"
	}
	fields := []struct {
		label, value string
	}{
		{"Design λ0 (nm)", c.WavelengthText},
		{"n_eff preset", preset},
		{"n_eff", c.IndexText},
		{"AOI (deg)", c.AngleText},
	}
	for i, f := range fields {
		y := rowFields + i
		style := styleDefault
		marker := "  "
		if Field(i) == a.focus {
			style = styleFocus
			marker = "> "
		}
		drawText(s, 0, y, width, styleDefault, marker+f.label)
		drawText(s, labelColumn, y, width, style, " "+f.value+" ")
	}
	drawSlider(s, labelColumn+12, rowFields+3, width, sliderAngle(c.SliderText))

	r := snap.Readouts
	line := "Shifted: " + r.Shifted + " nm   Δ: " + r.Delta + " nm   " + r.Percent
	drawText(s, 0, rowReadouts, width, styleReadout, line)
	drawText(s, 0, rowRay, width, styleDim, snap.Ray.AngleLabel.Text+"   "+snap.Ray.IndexLabel.Text)

	drawPlot(s, 0, rowPlot, width, plotHeight, snap.Transmission)
	labels := rowPlot + plotHeight
	drawText(s, 0, labels, width, styleBaseline, "· "+snap.Transmission.BaselineLabel.Text)
	drawText(s, 0, labels+1, width, styleShifted, "* "+snap.Transmission.ShiftedLabel.Text)

	if height > labels+3 {
		drawText(s, 0, height-1, width, styleDim, "tab: next field  ↑↓←→: adjust  enter: commit  s: strict/lenient  q: quit")
	}
	s.Show()
}

// sliderAngle reads the slider mirror; unparsable text sits at 0°.
func sliderAngle(text string) float64 {
	return optics.Valid(optics.ClampAngle(widget.ParseNumber(text))).Or(optics.MinAngleDeg)
}

// drawText writes s starting at (x, y), clipped to width.
func drawText(s tcell.Screen, x, y, width int, style tcell.Style, text string) {
	for _, r := range text {
		if x >= width {
			return
		}
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

// drawSlider renders the angle as a position on [MinAngleDeg, MaxAngleDeg].
func drawSlider(s tcell.Screen, x, y, width int, deg float64) {
	t := (deg - optics.MinAngleDeg) / (optics.MaxAngleDeg - optics.MinAngleDeg)
	pos := int(math.Round(t * float64(sliderWidth-1)))
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < sliderWidth; i++ {
		switch {
		case i == pos:
			sb.WriteRune('●')
		case i < pos:
			sb.WriteByte('=')
		default:
			sb.WriteByte('-')
		}
	}
	sb.WriteByte(']')
	drawText(s, x, y, width, styleDim, sb.String())
}

// drawPlot rasterizes both transmission curves into a width×height cell
// block. Each column samples the curve nearest in canvas x; cells where
// both curves land show '#'.
func drawPlot(s tcell.Screen, x0, y0, width, height int, g diagram.CurveGeometry) {
	if width < 2 || height < 2 {
		return
	}
	cols := width
	baseRows := curveRows(g.Baseline, cols, height)
	shiftRows := curveRows(g.Shifted, cols, height)

	markerCol := func(seg diagram.Segment) int {
		t := (seg.From.X - diagram.CanvasMinX) / (diagram.CanvasMaxX - diagram.CanvasMinX)
		return int(math.Round(t * float64(cols-1)))
	}
	bm, sm := markerCol(g.BaselineMarker), markerCol(g.ShiftedMarker)

	for col := 0; col < cols; col++ {
		for row := 0; row < height; row++ {
			switch col {
			case sm:
				s.SetContent(x0+col, y0+row, '¦', nil, styleShifted)
			case bm:
				s.SetContent(x0+col, y0+row, '¦', nil, styleBaseline)
			}
		}
		b, sh := baseRows[col], shiftRows[col]
		if b == sh {
			s.SetContent(x0+col, y0+b, '#', nil, styleShifted)
			continue
		}
		s.SetContent(x0+col, y0+b, '·', nil, styleBaseline)
		s.SetContent(x0+col, y0+sh, '*', nil, styleShifted)
	}
}

// curveRows maps each column to the row of the curve, top row 0 at full
// transmission.
func curveRows(c diagram.Curve, cols, height int) []int {
	rows := make([]int, cols)
	n := len(c.Path.Points)
	if n == 0 {
		for i := range rows {
			rows[i] = height - 1
		}
		return rows
	}
	for col := range rows {
		idx := int(math.Round(float64(col) / float64(cols-1) * float64(n-1)))
		t := (diagram.CurveBaseY - c.Path.Points[idx].Y) / diagram.CurveAmplitude
		rows[col] = height - 1 - int(math.Round(t*float64(height-1)))
	}
	return rows
}
