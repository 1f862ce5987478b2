package diagram

import (
	"fmt"
	"math"

	"github.com/talgya/aoi-shift/internal/optics"
)

// Ray diagram frame.
const (
	RayCenterX = 260.0 // where the ray meets the filter surface
	RayCenterY = 112.0
	RayLength  = 90.0
	ArcRadius  = 28.0

	// normalDeg points straight up from the surface in SVG coordinates.
	normalDeg = -90.0

	arcSamples = 24
)

// Arc is a circular arc around Center from StartDeg to EndDeg.
type Arc struct {
	Center   Point   `json:"center"`
	Radius   float64 `json:"radius"`
	StartDeg float64 `json:"start_deg"`
	EndDeg   float64 `json:"end_deg"`
	Start    Point   `json:"start"`
	End      Point   `json:"end"`
	LargeArc bool    `json:"large_arc"`
	Sweep    bool    `json:"sweep"`
}

// NewArc builds the arc between two angles. The flags make an SVG
// renderer take the short way from start to end.
func NewArc(center Point, radius, startDeg, endDeg float64) Arc {
	return Arc{
		Center:   center,
		Radius:   radius,
		StartDeg: startDeg,
		EndDeg:   endDeg,
		Start:    polar(center, radius, startDeg),
		End:      polar(center, radius, endDeg),
		LargeArc: math.Abs(endDeg-startDeg) > 180,
		Sweep:    endDeg > startDeg,
	}
}

// D formats the arc as SVG path data.
func (a Arc) D() string {
	return fmt.Sprintf("M %s %s A %s %s 0 %d %d %s %s",
		fixed2(a.Start.X), fixed2(a.Start.Y),
		shortest(a.Radius), shortest(a.Radius),
		flag(a.LargeArc), flag(a.Sweep),
		fixed2(a.End.X), fixed2(a.End.Y))
}

// Sample returns n+1 evenly spaced points along the arc, start to end.
func (a Arc) Sample(n int) []Point {
	if n < 1 {
		n = 1
	}
	pts := make([]Point, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		pts = append(pts, polar(a.Center, a.Radius, a.StartDeg+t*(a.EndDeg-a.StartDeg)))
	}
	return pts
}

// RayGeometry is everything the ray diagram draws for one input state.
type RayGeometry struct {
	Ray        Segment `json:"ray"`
	Arc        Arc     `json:"arc"`
	ArcPoints  []Point `json:"arc_points"`
	AngleLabel Label   `json:"angle_label"`
	IndexLabel Label   `json:"index_label"`
}

// RenderRay places the incident ray at incidenceAngleDeg from the normal,
// ending at the fixed surface point, plus the angle arc and labels. A
// non-finite angle draws the ray along the normal with a placeholder label.
func RenderRay(effectiveIndex, incidenceAngleDeg float64) RayGeometry {
	center := Point{RayCenterX, RayCenterY}

	theta := incidenceAngleDeg
	angleText := optics.FormatFixed(theta, 1)
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		theta = 0
	}
	rad := optics.Radians(theta)

	start := Point{
		X: center.X - RayLength*math.Sin(rad),
		Y: center.Y - RayLength*math.Cos(rad),
	}
	arc := NewArc(center, ArcRadius, normalDeg, normalDeg-theta)

	return RayGeometry{
		Ray:       Segment{From: start, To: center},
		Arc:       arc,
		ArcPoints: arc.Sample(arcSamples),
		AngleLabel: Label{
			At:   Point{center.X - 54, center.Y - 28},
			Text: "AOI = " + angleText + " deg",
		},
		IndexLabel: Label{
			At:   Point{center.X + 40, center.Y + 56},
			Text: "n_eff = " + optics.FormatFixed(effectiveIndex, 3),
		},
	}
}

func polar(c Point, r, deg float64) Point {
	rad := optics.Radians(deg)
	return Point{X: c.X + r*math.Cos(rad), Y: c.Y + r*math.Sin(rad)}
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
