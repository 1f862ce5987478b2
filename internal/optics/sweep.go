package optics

import "math"

// MaxSweepPoints bounds a sweep so a tiny step cannot allocate without limit.
const MaxSweepPoints = 10000

// SweepPoint is one row of an angle sweep.
type SweepPoint struct {
	AngleDeg float64 `json:"angle_deg"`
	Result
}

// Sweep evaluates the shift at from, from+step, ... up to and including to.
// Angles are computed from the index rather than accumulated. A
// non-positive or non-finite step, to < from, or a range that would need
// more than MaxSweepPoints angles yields no points.
func Sweep(lambda0, neff, from, to, step float64, s Strictness) []SweepPoint {
	n, ok := sweepLen(from, to, step)
	if !ok {
		return nil
	}

	points := make([]SweepPoint, 0, n)
	for i := 0; i < n; i++ {
		theta := from + float64(i)*step
		in := Inputs{DesignWavelengthNm: lambda0, EffectiveIndex: neff, IncidenceAngleDeg: theta}
		points = append(points, SweepPoint{AngleDeg: theta, Result: ComputeShift(in, s)})
	}
	return points
}

// sweepLen counts the angles in [from, to]. The count is bounded as a
// float before conversion; an overflowing span never reaches int.
func sweepLen(from, to, step float64) (int, bool) {
	if !isFinite(from) || !isFinite(to) || !isFinite(step) || step <= 0 || to < from {
		return 0, false
	}
	span := math.Floor((to-from)/step + 1e-9)
	if math.IsNaN(span) || math.IsInf(span, 0) || span+1 > MaxSweepPoints {
		return 0, false
	}
	return int(span) + 1, true
}
