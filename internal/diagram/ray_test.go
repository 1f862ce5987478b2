package diagram

import (
	"math"
	"testing"
)

func TestRenderRayNormalIncidence(t *testing.T) {
	g := RenderRay(2.05, 0)
	if math.Abs(g.Ray.From.X-RayCenterX) > 1e-12 || math.Abs(g.Ray.From.Y-(RayCenterY-RayLength)) > 1e-12 {
		t.Fatalf("ray start %+v", g.Ray.From)
	}
	if g.Ray.To != (Point{RayCenterX, RayCenterY}) {
		t.Fatalf("ray must end at the surface point, got %+v", g.Ray.To)
	}
	if g.AngleLabel.Text != "AOI = 0.0 deg" {
		t.Fatalf("angle label %q", g.AngleLabel.Text)
	}
	if g.IndexLabel.Text != "n_eff = 2.050" {
		t.Fatalf("index label %q", g.IndexLabel.Text)
	}
	if g.AngleLabel.At != (Point{RayCenterX - 54, RayCenterY - 28}) {
		t.Fatalf("angle label anchor %+v", g.AngleLabel.At)
	}
}

func TestRenderRayThirtyDegrees(t *testing.T) {
	g := RenderRay(1.5, 30)
	if got := fixed2(g.Ray.From.X) + " " + fixed2(g.Ray.From.Y); got != "215.00 34.06" {
		t.Fatalf("ray start %s", got)
	}
	if got := g.Arc.D(); got != "M 260.00 84.00 A 28 28 0 0 0 246.00 87.75" {
		t.Fatalf("arc path %q", got)
	}
	if g.Arc.Sweep || g.Arc.LargeArc {
		t.Fatalf("arc flags must be 0 0 for a small counter-clockwise sweep")
	}
	if g.AngleLabel.Text != "AOI = 30.0 deg" {
		t.Fatalf("angle label %q", g.AngleLabel.Text)
	}

	// The ray start lies on the arc's end direction, RayLength away.
	dx, dy := g.Ray.From.X-RayCenterX, g.Ray.From.Y-RayCenterY
	if math.Abs(math.Hypot(dx, dy)-RayLength) > 1e-9 {
		t.Fatalf("ray length %.12g", math.Hypot(dx, dy))
	}
	ex, ey := g.Arc.End.X-RayCenterX, g.Arc.End.Y-RayCenterY
	if math.Abs(dx/RayLength-ex/ArcRadius) > 1e-9 || math.Abs(dy/RayLength-ey/ArcRadius) > 1e-9 {
		t.Fatalf("arc end not aligned with ray")
	}
}

func TestRenderRayPlaceholders(t *testing.T) {
	g := RenderRay(math.NaN(), math.NaN())
	if g.IndexLabel.Text != "n_eff = —" {
		t.Fatalf("index label %q", g.IndexLabel.Text)
	}
	if g.AngleLabel.Text != "AOI = — deg" {
		t.Fatalf("angle label %q", g.AngleLabel.Text)
	}
	if math.IsNaN(g.Ray.From.X) || math.IsNaN(g.Arc.End.Y) {
		t.Fatalf("geometry must stay finite")
	}
}

func TestArcFlagsAndSamples(t *testing.T) {
	a := NewArc(Point{0, 0}, 10, 0, 270)
	if !a.LargeArc || !a.Sweep {
		t.Fatalf("expected large sweeping arc, got %+v", a)
	}
	pts := a.Sample(8)
	if len(pts) != 9 {
		t.Fatalf("got %d samples", len(pts))
	}
	if pts[0] != a.Start || pts[8] != a.End {
		t.Fatalf("samples must start and end on the arc endpoints")
	}
	for _, p := range pts {
		if math.Abs(math.Hypot(p.X, p.Y)-10) > 1e-9 {
			t.Fatalf("sample %+v off the circle", p)
		}
	}
	if len(NewArc(Point{}, 1, 0, 10).Sample(0)) != 2 {
		t.Fatalf("Sample(0) should clamp to one segment")
	}
}
