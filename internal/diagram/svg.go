package diagram

import (
	"bytes"
	"fmt"
	"html"
	"io"
)

// Diagram canvas sizes, matching the coordinate frames above.
const (
	RayViewWidth            = 520
	RayViewHeight           = 220
	TransmissionViewWidth   = 540
	TransmissionViewHeight  = 230
	transmissionAxisPadding = 6
)

// svgWriter keeps the first write error so drawing code stays linear.
type svgWriter struct {
	w   io.Writer
	err error
}

func (s *svgWriter) printf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

func (s *svgWriter) line(id, class string, seg Segment) {
	s.printf(`<line id="%s" class="%s" x1="%s" y1="%s" x2="%s" y2="%s"/>`+"\n",
		id, class, fixed2(seg.From.X), fixed2(seg.From.Y), fixed2(seg.To.X), fixed2(seg.To.Y))
}

func (s *svgWriter) path(id, class, d string) {
	s.printf(`<path id="%s" class="%s" d="%s"/>`+"\n", id, class, d)
}

func (s *svgWriter) text(id, class string, l Label) {
	s.printf(`<text id="%s" class="%s" x="%s" y="%s">%s</text>`+"\n",
		id, class, fixed2(l.At.X), fixed2(l.At.Y), html.EscapeString(l.Text))
}

// WriteRaySVG writes a standalone SVG document for the ray diagram.
func WriteRaySVG(w io.Writer, g RayGeometry) error {
	s := &svgWriter{w: w}
	s.printf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d" role="img" aria-label="Incident ray diagram">`+"\n",
		RayViewWidth, RayViewHeight, RayViewWidth, RayViewHeight)
	s.printf(`<style>.surface{stroke:#444;stroke-width:2}.filter{fill:#cfe3f7;stroke:none}.normal{stroke:#888;stroke-dasharray:4 4}.ray{stroke:#d9480f;stroke-width:2.5}.arc{fill:none;stroke:#1c7ed6;stroke-width:1.5}.label{font:13px sans-serif;fill:#222}</style>` + "\n")

	s.printf(`<rect class="filter" x="%s" y="%s" width="%s" height="%s"/>`+"\n",
		fixed2(RayCenterX-160), fixed2(RayCenterY), fixed2(320), fixed2(RayViewHeight-RayCenterY-10))
	s.line("surface", "surface", Segment{Point{RayCenterX - 160, RayCenterY}, Point{RayCenterX + 160, RayCenterY}})
	s.line("normal", "normal", Segment{Point{RayCenterX, RayCenterY - RayLength - 10}, Point{RayCenterX, RayCenterY + 80}})

	s.line("incidentRay", "ray", g.Ray)
	s.path("thetaArcAir", "arc", g.Arc.D())
	s.text("airAngleLabel", "label", g.AngleLabel)
	s.text("neffVizLabel", "label", g.IndexLabel)
	s.printf("</svg>\n")
	return s.err
}

// WriteTransmissionSVG writes a standalone SVG document for the
// transmission-curve diagram.
func WriteTransmissionSVG(w io.Writer, g CurveGeometry) error {
	s := &svgWriter{w: w}
	s.printf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d" role="img" aria-label="Transmission curves">`+"\n",
		TransmissionViewWidth, TransmissionViewHeight, TransmissionViewWidth, TransmissionViewHeight)
	s.printf(`<style>.axis{stroke:#444}.baseline{fill:none;stroke:#868e96;stroke-width:2;stroke-dasharray:6 4}.shifted{fill:none;stroke:#1c7ed6;stroke-width:2.5}.marker{stroke:#adb5bd;stroke-dasharray:2 3}.label{font:12px sans-serif;fill:#222}</style>` + "\n")

	s.line("axis", "axis", Segment{
		Point{CanvasMinX - transmissionAxisPadding, CurveBaseY},
		Point{CanvasMaxX + transmissionAxisPadding, CurveBaseY},
	})
	s.path("curveBaseline", "baseline", g.Baseline.Path.D())
	s.path("curveShifted", "shifted", g.Shifted.Path.D())
	s.line("baselineCenterLine", "marker", g.BaselineMarker)
	s.line("shiftedCenterLine", "marker", g.ShiftedMarker)
	s.text("baselineLabel", "label", g.BaselineLabel)
	s.text("shiftedLabel", "label", g.ShiftedLabel)
	s.printf("</svg>\n")
	return s.err
}

// RaySVG returns the ray diagram document as a string.
func RaySVG(g RayGeometry) string {
	var buf bytes.Buffer
	_ = WriteRaySVG(&buf, g)
	return buf.String()
}

// TransmissionSVG returns the transmission diagram document as a string.
func TransmissionSVG(g CurveGeometry) string {
	var buf bytes.Buffer
	_ = WriteTransmissionSVG(&buf, g)
	return buf.String()
}
